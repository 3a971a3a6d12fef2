// Package solver is the boundary between a built model and an external
// MILP engine. Backends register themselves by name from an init function
// and are enabled with a blank import, the way database/sql drivers are.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/popmonkey/packing_solver_go/internal/milp"
)

// ErrUnknownSolver is returned by New for a name no backend registered.
var ErrUnknownSolver = errors.New("unknown solver")

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// HasSolution reports whether a result with this status carries values.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options are passed through to the backend. A zero TimeLimit means no
// limit; MIPGap is relative.
type Options struct {
	TimeLimit time.Duration
	MIPGap    float64
	Verbose   bool
}

// Result of a solve. Values is indexed by milp.Var and is set only when
// Status.HasSolution().
type Result struct {
	Status    Status
	Objective float64
	SolveTime time.Duration
	Values    []float64
	Message   string
}

// Solver runs a model. Engine outcomes such as infeasibility or a time
// limit are reported in the Result; the error is for failures to run the
// engine at all.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *milp.Model, opts Options) (*Result, error)
}

// Factory builds a backend that logs to logger.
type Factory func(logger *slog.Logger) Solver

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a backend available by name. It panics on duplicates.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("solver: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("solver: Register called twice for " + name)
	}
	factories[name] = f
}

// New returns the backend registered under name.
func New(name string, logger *slog.Logger) (Solver, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownSolver, name, Names())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return f(logger), nil
}

// Names lists registered backends in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Solve looks up the named backend and runs it.
func Solve(ctx context.Context, name string, m *milp.Model, opts Options, logger *slog.Logger) (*Result, error) {
	s, err := New(name, logger)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx, m, opts)
}
