// Package formulation turns a bound problem instance into a MILP: it
// declares the decision variables, adds the assignment, capacity, worker,
// OTIF, WIP/inventory and workforce constraint groups, and composes the
// weighted objective.
package formulation

import (
	"fmt"

	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
)

// Row groups, one per constraint module.
const (
	GroupAssignment = "assignment"
	GroupCapacity   = "capacity"
	GroupWorker     = "worker"
	GroupOTIF       = "otif"
	GroupWIP        = "wip"
	GroupWorkforce  = "workforce"
)

// Term names one weighted part of the objective.
type Term string

const (
	TermOTIF      Term = "otif"
	TermWIP       Term = "wip"
	TermWorkforce Term = "workforce"
	TermLine      Term = "line_utilization"
	TermMovement  Term = "worker_movement"
)

// Terms lists the objective terms in composition order.
var Terms = []Term{TermOTIF, TermWIP, TermWorkforce, TermLine, TermMovement}

// Start is one discrete start column: order i begins on line j at slot
// Slot (1-based), handled by Worker (-1 when workers are only counted).
type Start struct {
	Order  int
	Line   int
	Slot   int
	Worker int
	Var    milp.Var
}

// Pair is an unordered order pair with Lo < Hi.
type Pair struct{ Lo, Hi int }

// Vars holds the column handles the extractor reads back. Slot-indexed
// slices use index t-1 for slot t; change-related slices start at slot 2.
// Variables a build does not declare are left nil.
type Vars struct {
	// discrete
	Starts    []Start
	LineUsed  []milp.Var
	Prod      [][]milp.Var
	Inv       [][]milp.Var
	Ship      [][]milp.Var
	ShipTime  []milp.Var
	HasInv    [][]milp.Var
	Flow      []milp.Var
	WIPInd    [][]milp.Var
	WIP       []milp.Var
	Working   [][]milp.Var
	Movement  [][]milp.Var
	Used      []milp.Var
	UsedMax   milp.Var
	UsedMin   milp.Var
	UsedRange milp.Var
	Above     []milp.Var
	Below     []milp.Var
	Increase  []milp.Var
	Decrease  []milp.Var
	Change    []milp.Var

	// both time models; Lateness, Late and Early are per order in discrete
	// mode and per demand in continuous mode.
	Start      []milp.Var
	Completion []milp.Var
	Lateness   []milp.Var
	Late       []milp.Var
	Early      []milp.Var

	// continuous
	Assign      [][]milp.Var
	Before      map[Pair]milp.Var
	Event       []milp.Var
	Started     [][]milp.Var
	NotComplete [][]milp.Var
	Active      [][]milp.Var
	DemandShip  []milp.Var
	Shipped     [][]milp.Var
	ProdOrder   [][]milp.Var
	ProdBefore  [][]milp.Var
	TypeInv     [][]milp.Var
}

// Formulation is a built model together with what is needed to interpret a
// solution of it.
type Formulation struct {
	Instance *problem.Instance
	Options  Options
	Model    *milp.Model
	Vars     Vars
	// Parts holds each objective term before weighting.
	Parts map[Term]milp.Expr
}

// Weight returns the weight applied to term t.
func (f *Formulation) Weight(t Term) float64 { return f.Options.Weights.Of(t) }

// state is the per-build working set. Index tables are derived once from
// the declared start columns and shared by the constraint modules.
type state struct {
	in    *problem.Instance
	opts  Options
	b     *milp.Builder
	v     Vars
	parts map[Term]milp.Expr

	// discrete: start columns covering slot t on line j / of order i / by
	// worker w, completing at slot t, and grouped by (order, line, slot).
	coverLine   [][][]int
	coverOrder  [][][]int
	coverWorker [][][]int
	doneAt      [][][]int
	startAt     [][][][]int
	onLine      [][]int
}

// Build validates opts against the instance mode and builds the model. It
// is deterministic: the same input yields the same columns and rows in the
// same order.
func Build(in *problem.Instance, opts Options) (*Formulation, error) {
	mode := in.Mode()
	if err := opts.Validate(mode); err != nil {
		return nil, err
	}
	if mode == problem.Discrete && opts.Shipping == FixedSchedule && !in.HasShippingSchedule() {
		return nil, fmt.Errorf("%w: fixed shipping needs a shipping schedule", ErrIncompatibleOptions)
	}

	s := &state{
		in:    in,
		opts:  opts,
		b:     milp.NewBuilder(fmt.Sprintf("packing_schedule_%s", mode)),
		parts: make(map[Term]milp.Expr),
	}

	if mode == problem.Continuous {
		s.continuousVars()
		s.continuousAssignment()
		s.continuousCapacity()
		s.continuousOTIF()
		s.continuousWIP()
		s.continuousWorkforce()
		s.continuousObjective()
	} else {
		s.discreteVars()
		s.discreteAssignment()
		s.discreteCapacity()
		s.discreteWorkers()
		s.discreteOTIF()
		s.discreteWIP()
		s.discreteWorkforce()
		s.discreteObjective()
	}

	model, err := s.b.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s model: %w", mode, err)
	}
	return &Formulation{
		Instance: in,
		Options:  opts,
		Model:    model,
		Vars:     s.v,
		Parts:    s.parts,
	}, nil
}

func name(prefix string, idx ...int) string {
	out := prefix
	for _, i := range idx {
		out += fmt.Sprintf("_%d", i)
	}
	return out
}

func (s *state) sumStarts(idx []int) milp.Expr {
	e := milp.Expr{}
	for _, a := range idx {
		e.Add(s.v.Starts[a].Var, 1)
	}
	return e
}
