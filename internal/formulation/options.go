package formulation

import (
	"errors"
	"fmt"

	"github.com/popmonkey/packing_solver_go/internal/problem"
)

// ErrIncompatibleOptions is returned for flag combinations that do not
// describe a coherent model.
var ErrIncompatibleOptions = errors.New("incompatible formulation options")

// AssignmentMode controls whether every order must be scheduled.
type AssignmentMode int

const (
	// Strict requires every order to be scheduled exactly once.
	Strict AssignmentMode = iota
	// Optional lets the solver leave orders unscheduled.
	Optional
)

// WorkerMode selects how the discrete model represents workers.
type WorkerMode int

const (
	// Counting indexes starts by (order, line, slot) and counts active
	// orders as a proxy for workers needed.
	Counting WorkerMode = iota
	// Explicit adds the worker index to every start variable.
	Explicit
)

// ShippingMode selects whether shipments are input or decided.
type ShippingMode int

const (
	FixedSchedule ShippingMode = iota
	Decision
)

// LatenessBasis is the event lateness is measured from.
type LatenessBasis int

const (
	ByCompletion LatenessBasis = iota
	ByShipTime
)

// Weights scale the objective terms. They are not normalized.
type Weights struct {
	OTIF      float64
	WIP       float64
	Workforce float64
	Line      float64
	Movement  float64
}

// Coefficients scale the parts inside each objective term.
type Coefficients struct {
	Late      float64
	Lateness  float64
	WIPCount  float64
	FlowTime  float64
	Inventory float64
	Range     float64
	Deviation float64
	Change    float64
}

// Options are the feature flags of one build.
type Options struct {
	Assignment AssignmentMode
	Workers    WorkerMode
	Shipping   ShippingMode
	Lateness   LatenessBasis

	NoEarlyShipping    bool
	SetupTimes         bool
	LineGating         bool
	TrackEarliness     bool
	WorkerMovement     bool
	WorkforceDeviation bool
	WorkforceChanges   bool

	// Epsilon is the gap that turns strict inequalities into closed ones.
	// Discrete models always use one slot.
	Epsilon float64
	// HasInventoryThreshold is the stock level from which has_inv may be 1.
	HasInventoryThreshold float64

	Weights      Weights
	Coefficients Coefficients
}

// Of returns the weight of term t.
func (w Weights) Of(t Term) float64 {
	switch t {
	case TermOTIF:
		return w.OTIF
	case TermWIP:
		return w.WIP
	case TermWorkforce:
		return w.Workforce
	case TermLine:
		return w.Line
	case TermMovement:
		return w.Movement
	}
	return 0
}

func DefaultWeights() Weights {
	return Weights{OTIF: 1, WIP: 0.5, Workforce: 0.3, Line: 0.2, Movement: 0}
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		Late:      7,
		Lateness:  3,
		WIPCount:  4,
		FlowTime:  6,
		Inventory: 1,
		Range:     5,
		Deviation: 3,
		Change:    2,
	}
}

// DefaultOptions returns the flags of the full model for the given mode:
// decided shipments measured by ship time in discrete mode, and no early
// shipping in continuous mode.
func DefaultOptions(mode problem.Mode) Options {
	o := Options{
		Assignment:            Strict,
		Workers:               Counting,
		Shipping:              Decision,
		Lateness:              ByShipTime,
		SetupTimes:            true,
		Epsilon:               0.01,
		HasInventoryThreshold: 1,
		Weights:               DefaultWeights(),
		Coefficients:          DefaultCoefficients(),
	}
	if mode == problem.Continuous {
		o.Assignment = Optional
		o.NoEarlyShipping = true
	}
	return o
}

// Validate rejects flag combinations the builder cannot honour.
func (o Options) Validate(mode problem.Mode) error {
	if o.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrIncompatibleOptions, o.Epsilon)
	}
	if o.HasInventoryThreshold <= 0 {
		return fmt.Errorf("%w: has-inventory threshold must be positive, got %g", ErrIncompatibleOptions, o.HasInventoryThreshold)
	}
	w := o.Weights
	for name, v := range map[string]float64{"otif": w.OTIF, "wip": w.WIP, "workforce": w.Workforce, "line": w.Line, "movement": w.Movement} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative", ErrIncompatibleOptions, name)
		}
	}
	c := o.Coefficients
	for _, v := range []float64{c.Late, c.Lateness, c.WIPCount, c.FlowTime, c.Inventory, c.Range, c.Deviation, c.Change} {
		if v < 0 {
			return fmt.Errorf("%w: objective coefficients must be non-negative", ErrIncompatibleOptions)
		}
	}
	if mode == problem.Continuous {
		return nil
	}
	if o.WorkerMovement && o.Workers != Explicit {
		return fmt.Errorf("%w: worker movement needs explicit workers", ErrIncompatibleOptions)
	}
	if o.Lateness == ByShipTime && o.Shipping != Decision {
		return fmt.Errorf("%w: lateness by ship time needs decided shipments", ErrIncompatibleOptions)
	}
	if o.Assignment == Optional && (o.Shipping != Decision || o.Lateness != ByShipTime) {
		return fmt.Errorf("%w: optional assignment needs decided shipments and lateness by ship time", ErrIncompatibleOptions)
	}
	return nil
}
