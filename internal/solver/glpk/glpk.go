// Package glpk solves models in-process with GLPK through cgo. Import it
// for its side effect of registering the "glpk" backend.
package glpk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/solver"
)

const Name = "glpk"

func init() {
	solver.Register(Name, func(logger *slog.Logger) solver.Solver { return New(logger) })
}

// Solver is the GLPK backend. Each Solve uses its own problem object.
type Solver struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Solver {
	return &Solver{logger: logger.With("solver", Name)}
}

func (s *Solver) Name() string { return Name }

type outcome struct {
	res *solver.Result
	err error
}

// Solve runs simplex then branch-and-bound. lukpank/go-glpk keeps the
// glp_iocp fields private, so tm_lim and mip_gap cannot be set and the
// deadline is enforced here instead. When ctx ends first the result is
// StatusUnknown while the GLPK run keeps its problem object and thread
// until branch-and-bound returns on its own; a context that is already
// done never starts a run.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, opts solver.Options) (*solver.Result, error) {
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	if ctx.Err() != nil {
		return deadlineResult(0), nil
	}
	if opts.MIPGap > 0 {
		s.logger.Warn("lukpank/go-glpk does not expose a MIP gap; solving to proven optimality", "mip_gap", opts.MIPGap)
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		// GLPK keeps per-thread state; create, solve and delete on one thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		res, err := s.solve(m, opts)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.res != nil {
			out.res.SolveTime = time.Since(start)
			s.logger.Info("solve finished", "status", out.res.Status, "objective", out.res.Objective, "elapsed", out.res.SolveTime)
		}
		return out.res, out.err
	case <-ctx.Done():
		elapsed := time.Since(start)
		s.logger.Warn("deadline reached before GLPK finished; the run continues in the background", "elapsed", elapsed, "cause", ctx.Err())
		go func() {
			out := <-done
			s.logger.Debug("abandoned GLPK run finished", "elapsed", time.Since(start), "err", out.err)
		}()
		return deadlineResult(elapsed), nil
	}
}

func deadlineResult(elapsed time.Duration) *solver.Result {
	return &solver.Result{
		Status:    solver.StatusUnknown,
		SolveTime: elapsed,
		Message:   "time limit reached; GLPK reports no incumbent through this wrapper",
	}
}

func (s *Solver) solve(m *milp.Model, opts solver.Options) (*solver.Result, error) {
	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(m.Name())
	lp.SetObjDir(glpk.ObjDir(glpk.MIN))

	vars := m.Vars()
	// GLPK columns and rows are 1-based.
	numCols := 0
	createVar := func(v milp.Variable) int {
		numCols++
		lp.AddCols(1)
		lp.SetColName(numCols, v.Name)
		switch v.Kind {
		case milp.Binary:
			lp.SetColKind(numCols, glpk.VarType(glpk.BV))
		case milp.Integer:
			lp.SetColKind(numCols, glpk.VarType(glpk.IV))
		default:
			lp.SetColKind(numCols, glpk.VarType(glpk.CV))
		}
		bt, lb, ub := bounds(v.Lower, v.Upper)
		lp.SetColBnds(numCols, bt, lb, ub)
		return numCols
	}
	for _, v := range vars {
		createVar(v)
	}

	for _, t := range m.Objective().Terms {
		lp.SetObjCoef(int(t.Var)+1, t.Coef)
	}

	numRows := 0
	createConstraint := func(name string, boundsType glpk.BndsType, lower, upper float64) int {
		numRows++
		lp.AddRows(1)
		lp.SetRowName(numRows, name)
		lp.SetRowBnds(numRows, boundsType, lower, upper)
		return numRows
	}
	for _, r := range m.Rows() {
		var rowIdx int
		switch r.Sense {
		case milp.LE:
			rowIdx = createConstraint(r.Name, glpk.BndsType(glpk.UP), 0, r.RHS)
		case milp.GE:
			rowIdx = createConstraint(r.Name, glpk.BndsType(glpk.LO), r.RHS, 0)
		default:
			rowIdx = createConstraint(r.Name, glpk.BndsType(glpk.FX), r.RHS, r.RHS)
		}
		if len(r.Terms) == 0 {
			continue
		}
		// Element 0 of both slices is ignored by glp_set_mat_row.
		indices := make([]int32, 1, len(r.Terms)+1)
		coeffs := make([]float64, 1, len(r.Terms)+1)
		for _, t := range r.Terms {
			indices = append(indices, int32(t.Var)+1)
			coeffs = append(coeffs, t.Coef)
		}
		lp.SetMatRow(rowIdx, indices, coeffs)
	}
	s.logger.Debug("model loaded", "columns", numCols, "rows", numRows)

	msg := glpk.MsgLev(glpk.MSG_ERR)
	if opts.Verbose {
		msg = glpk.MsgLev(glpk.MSG_ON)
	}
	param := glpk.NewSmcp()
	param.SetMsgLev(msg)
	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(msg)

	if err := lp.Simplex(param); err != nil {
		return &solver.Result{Status: solver.StatusError, Message: err.Error()}, nil
	}
	switch lp.Status() {
	case glpk.NOFEAS:
		return &solver.Result{Status: solver.StatusInfeasible, Message: "LP relaxation has no feasible solution"}, nil
	case glpk.UNBND:
		return &solver.Result{Status: solver.StatusUnknown, Message: "LP relaxation is unbounded"}, nil
	}

	intErr := lp.Intopt(iocp)
	status := lp.MipStatus()
	switch status {
	case glpk.OPT, glpk.FEAS:
	case glpk.NOFEAS:
		return &solver.Result{Status: solver.StatusInfeasible, Message: "no integer feasible solution"}, nil
	default:
		if intErr != nil {
			return &solver.Result{Status: solver.StatusError, Message: fmt.Sprintf("integer solver failed: %v", intErr)}, nil
		}
		return &solver.Result{Status: solver.StatusUnknown, Message: fmt.Sprintf("MIP status %v", status)}, nil
	}

	res := &solver.Result{Status: solver.StatusOptimal, Values: make([]float64, len(vars))}
	if status == glpk.FEAS {
		s.logger.Warn("solver stopped before proving optimality; a feasible schedule was found")
		res.Status = solver.StatusFeasible
	}
	for j := range vars {
		res.Values[j] = lp.MipColVal(j + 1)
	}
	res.Objective = m.ObjectiveValue(res.Values)
	return res, nil
}

func bounds(lo, hi float64) (glpk.BndsType, float64, float64) {
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		return glpk.BndsType(glpk.FR), 0, 0
	case math.IsInf(hi, 1):
		return glpk.BndsType(glpk.LO), lo, 0
	case math.IsInf(lo, -1):
		return glpk.BndsType(glpk.UP), 0, hi
	case lo == hi:
		return glpk.BndsType(glpk.FX), lo, hi
	default:
		return glpk.BndsType(glpk.DB), lo, hi
	}
}
