package milp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBigMTooSmall is returned by Build when an indicator row was given an
	// M below the range its expression can take within the column bounds.
	ErrBigMTooSmall = errors.New("big-M too small")
	// ErrUnboundedIndicator is returned when an indicator expression has an
	// infinite range, so no finite M can switch it off.
	ErrUnboundedIndicator = errors.New("indicator expression is unbounded")
	// ErrDuplicateName is returned when two columns share a name.
	ErrDuplicateName = errors.New("duplicate column name")
)

// Sense of a row.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "<="
	}
}

// Row is a compiled constraint: Σ Terms (Sense) RHS.
type Row struct {
	Name  string
	Group string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Builder accumulates columns, rows and an objective. It is not safe for
// concurrent use. The first error encountered is kept and returned by Build;
// later calls become no-ops for rows but still hand out column handles so
// callers need not check every step.
type Builder struct {
	name  string
	vars  []Variable
	rows  []Row
	obj   Expr
	index map[string]Var
	err   error
}

// NewBuilder starts an empty minimization model.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, index: make(map[string]Var)}
}

// Err reports the first error recorded so far.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// NewVar declares a column. Binary columns are clamped to [0,1].
func (b *Builder) NewVar(name string, kind VarKind, lower, upper float64) Var {
	if kind == Binary {
		lower = math.Max(lower, 0)
		upper = math.Min(upper, 1)
	}
	if _, dup := b.index[name]; dup {
		b.fail(fmt.Errorf("%w: %s", ErrDuplicateName, name))
	}
	if lower > upper {
		b.fail(fmt.Errorf("column %s: lower bound %g above upper bound %g", name, lower, upper))
	}
	v := Var(len(b.vars))
	b.vars = append(b.vars, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	b.index[name] = v
	return v
}

// NumVars reports the number of declared columns.
func (b *Builder) NumVars() int { return len(b.vars) }

// AddRow adds lhs (sense) rhs. The constant part of lhs is moved to the
// right-hand side.
func (b *Builder) AddRow(group, name string, lhs Expr, sense Sense, rhs float64) {
	terms := lhs.merged()
	for _, t := range terms {
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			b.fail(fmt.Errorf("row %s: non-finite coefficient on %s", name, b.vars[t.Var].Name))
			return
		}
	}
	rhs -= lhs.Constant
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		b.fail(fmt.Errorf("row %s: non-finite right-hand side", name))
		return
	}
	b.rows = append(b.rows, Row{Name: name, Group: group, Terms: terms, Sense: sense, RHS: rhs})
}

// Compare adds lhs (sense) rhs where both sides are expressions.
func (b *Builder) Compare(group, name string, lhs Expr, sense Sense, rhs Expr) {
	b.AddRow(group, name, lhs.Plus(rhs, -1), sense, 0)
}

// When returns the condition "v = 1" for Implies.
func When(v Var) Expr { return Sum(v) }

// WhenNot returns the condition "v = 0" for Implies.
func WhenNot(v Var) Expr {
	e := Expr{Constant: 1}
	e.Add(v, -1)
	return e
}

// Implies adds the Big-M encoding of
//
//	(c1 = 1 ∧ c2 = 1 ∧ ...) ⇒ expr (sense) rhs
//
// where every condition is a 0/1-valued expression (see When, WhenNot). The
// row is relaxed by m for every unmet condition:
//
//	expr ≤ rhs + m·Σ(1 − ci)   or   expr ≥ rhs − m·Σ(1 − ci)
//
// m must cover the range of expr over the column bounds; Build fails with
// ErrBigMTooSmall otherwise.
func (b *Builder) Implies(group, name string, conds []Expr, expr Expr, sense Sense, rhs, m float64) {
	if sense == EQ {
		b.fail(fmt.Errorf("row %s: indicator rows must be <= or >=", name))
		return
	}
	lo, hi := expr.bounds(b.vars)
	var need float64
	if sense == LE {
		need = hi - rhs
	} else {
		need = rhs - lo
	}
	if math.IsInf(need, 0) || math.IsNaN(need) {
		b.fail(fmt.Errorf("%w: row %s", ErrUnboundedIndicator, name))
		return
	}
	if m+1e-9 < need {
		b.fail(fmt.Errorf("%w: row %s needs M >= %g, got %g", ErrBigMTooSmall, name, need, m))
		return
	}

	slack := Const(float64(len(conds)))
	for _, c := range conds {
		slack.AddExpr(c, -1)
	}
	row := expr.Clone()
	if sense == LE {
		row.AddExpr(slack, -m)
	} else {
		row.AddExpr(slack, m)
	}
	b.AddRow(group, name, row, sense, rhs)
}

// ImplyLE adds z = 1 ⇒ expr ≤ rhs.
func (b *Builder) ImplyLE(group, name string, z Var, expr Expr, rhs, m float64) {
	b.Implies(group, name, []Expr{When(z)}, expr, LE, rhs, m)
}

// ImplyGE adds z = 1 ⇒ expr ≥ rhs.
func (b *Builder) ImplyGE(group, name string, z Var, expr Expr, rhs, m float64) {
	b.Implies(group, name, []Expr{When(z)}, expr, GE, rhs, m)
}

// UnlessLE adds z = 0 ⇒ expr ≤ rhs.
func (b *Builder) UnlessLE(group, name string, z Var, expr Expr, rhs, m float64) {
	b.Implies(group, name, []Expr{WhenNot(z)}, expr, LE, rhs, m)
}

// UnlessGE adds z = 0 ⇒ expr ≥ rhs.
func (b *Builder) UnlessGE(group, name string, z Var, expr Expr, rhs, m float64) {
	b.Implies(group, name, []Expr{WhenNot(z)}, expr, GE, rhs, m)
}

// SetObjective replaces the (minimized) objective.
func (b *Builder) SetObjective(e Expr) {
	b.obj = e.Clone()
}

// Build compiles the model. The builder must not be used afterwards.
func (b *Builder) Build() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	obj := Expr{Terms: b.obj.merged(), Constant: b.obj.Constant}
	m := &Model{
		name:  b.name,
		vars:  b.vars,
		rows:  b.rows,
		obj:   obj,
		index: b.index,
	}
	b.vars, b.rows, b.index = nil, nil, nil
	return m, nil
}
