package milp

import (
	"fmt"
	"math"
	"slices"
)

// Model is a compiled, immutable MILP: minimize Objective subject to Rows
// and the column bounds.
type Model struct {
	name  string
	vars  []Variable
	rows  []Row
	obj   Expr
	index map[string]Var
}

// Stats summarises a model's size.
type Stats struct {
	Columns     int
	Binary      int
	Integer     int
	Continuous  int
	Rows        int
	NonZeros    int
	RowsByGroup map[string]int
}

// Violation describes a row or bound not satisfied by a value vector.
type Violation struct {
	Name     string
	Group    string
	Activity float64
	Sense    Sense
	RHS      float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s]: %g %s %g", v.Name, v.Group, v.Activity, v.Sense, v.RHS)
}

func (m *Model) Name() string       { return m.name }
func (m *Model) NumVars() int       { return len(m.vars) }
func (m *Model) NumRows() int       { return len(m.rows) }
func (m *Model) Var(v Var) Variable { return m.vars[v] }
func (m *Model) Row(i int) Row      { return m.rows[i] }

// Vars returns a copy of the column table.
func (m *Model) Vars() []Variable { return slices.Clone(m.vars) }

// Rows returns a copy of the row table. Term slices are shared and must not
// be modified.
func (m *Model) Rows() []Row { return slices.Clone(m.rows) }

// Objective returns the merged objective expression.
func (m *Model) Objective() Expr { return m.obj.Clone() }

// Lookup finds a column by name.
func (m *Model) Lookup(name string) (Var, bool) {
	v, ok := m.index[name]
	return v, ok
}

func (m *Model) Stats() Stats {
	s := Stats{Columns: len(m.vars), Rows: len(m.rows), RowsByGroup: make(map[string]int)}
	for _, v := range m.vars {
		switch v.Kind {
		case Binary:
			s.Binary++
		case Integer:
			s.Integer++
		default:
			s.Continuous++
		}
	}
	for _, r := range m.rows {
		s.NonZeros += len(r.Terms)
		s.RowsByGroup[r.Group]++
	}
	return s
}

// Activity returns the left-hand side of row i at values.
func (m *Model) Activity(i int, values []float64) float64 {
	var a float64
	for _, t := range m.rows[i].Terms {
		a += t.Coef * values[t.Var]
	}
	return a
}

// Evaluate returns every row activity at values.
func (m *Model) Evaluate(values []float64) []float64 {
	out := make([]float64, len(m.rows))
	for i := range m.rows {
		out[i] = m.Activity(i, values)
	}
	return out
}

// ObjectiveValue evaluates the objective, including its constant, at values.
func (m *Model) ObjectiveValue(values []float64) float64 {
	return m.obj.Value(values)
}

// Violations lists every row, bound and integrality requirement that values
// break by more than tol.
func (m *Model) Violations(values []float64, tol float64) []Violation {
	if len(values) != len(m.vars) {
		return []Violation{{Name: "values", Group: "shape", Activity: float64(len(values)), Sense: EQ, RHS: float64(len(m.vars))}}
	}
	var out []Violation
	for j, v := range m.vars {
		x := values[j]
		if x < v.Lower-tol {
			out = append(out, Violation{Name: v.Name, Group: "bound", Activity: x, Sense: GE, RHS: v.Lower})
		}
		if x > v.Upper+tol {
			out = append(out, Violation{Name: v.Name, Group: "bound", Activity: x, Sense: LE, RHS: v.Upper})
		}
		if v.Kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			out = append(out, Violation{Name: v.Name, Group: "integrality", Activity: x, Sense: EQ, RHS: math.Round(x)})
		}
	}
	for i, r := range m.rows {
		a := m.Activity(i, values)
		bad := false
		switch r.Sense {
		case LE:
			bad = a > r.RHS+tol
		case GE:
			bad = a < r.RHS-tol
		case EQ:
			bad = math.Abs(a-r.RHS) > tol
		}
		if bad {
			out = append(out, Violation{Name: r.Name, Group: r.Group, Activity: a, Sense: r.Sense, RHS: r.RHS})
		}
	}
	return out
}
