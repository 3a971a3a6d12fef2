package problem

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidValue      = errors.New("invalid value")
)

// DimensionError reports an array whose length along one axis does not
// match the index set it is keyed by.
type DimensionError struct {
	Field    string
	Axis     int
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: axis %d has length %d, want %d", e.Field, e.Axis, e.Actual, e.Expected)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// ValueError reports a parameter outside its domain.
type ValueError struct {
	Field  string
	Index  []int
	Reason string
}

func (e *ValueError) Error() string {
	if len(e.Index) == 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s%v: %s", e.Field, e.Index, e.Reason)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }
