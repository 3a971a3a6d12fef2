package milp

import (
	"math"
	"sort"
)

// VarKind is the domain of a column.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "continuous"
	}
}

// Var is a handle to a column of a model. Handles are dense indices in
// declaration order.
type Var int

// Variable describes one column. Upper is math.Inf(1) when unbounded.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is coef * var.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a sparse linear expression with a constant part. The zero value is
// the empty expression. Duplicate terms are allowed and merged on compile.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression v1 + v2 + ... .
func Sum(vars ...Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// Const returns a constant expression.
func Const(c float64) Expr {
	return Expr{Constant: c}
}

// Add appends coef*v and returns the receiver for chaining.
func (e *Expr) Add(v Var, coef float64) *Expr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConst adds c to the constant part.
func (e *Expr) AddConst(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr appends scale*o.
func (e *Expr) AddExpr(o Expr, scale float64) *Expr {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	e.Constant += o.Constant * scale
	return e
}

// Plus returns e + scale*o without modifying e.
func (e Expr) Plus(o Expr, scale float64) Expr {
	out := e.Clone()
	out.AddExpr(o, scale)
	return out
}

// Scale returns s*e.
func (e Expr) Scale(s float64) Expr {
	out := Expr{Terms: make([]Term, len(e.Terms)), Constant: e.Constant * s}
	for i, t := range e.Terms {
		out.Terms[i] = Term{Var: t.Var, Coef: t.Coef * s}
	}
	return out
}

// Clone returns a deep copy.
func (e Expr) Clone() Expr {
	out := Expr{Terms: make([]Term, len(e.Terms)), Constant: e.Constant}
	copy(out.Terms, e.Terms)
	return out
}

// Value evaluates the expression at values (indexed by Var).
func (e Expr) Value(values []float64) float64 {
	v := e.Constant
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

// merged returns the terms with duplicates summed, zeros dropped, sorted by
// variable.
func (e Expr) merged() []Term {
	if len(e.Terms) == 0 {
		return nil
	}
	acc := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	out := make([]Term, 0, len(acc))
	for v, c := range acc {
		if c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// bounds returns the range of e over the box defined by vars.
func (e Expr) bounds(vars []Variable) (lo, hi float64) {
	lo, hi = e.Constant, e.Constant
	for _, t := range e.merged() {
		v := vars[t.Var]
		if t.Coef > 0 {
			lo += t.Coef * v.Lower
			hi += t.Coef * v.Upper
		} else {
			lo += t.Coef * v.Upper
			hi += t.Coef * v.Lower
		}
	}
	if math.IsNaN(lo) {
		lo = math.Inf(-1)
	}
	if math.IsNaN(hi) {
		hi = math.Inf(1)
	}
	return lo, hi
}
