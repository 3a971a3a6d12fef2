// Package run drives one scheduling run: decode the problem, bind it,
// build the model, hand it to a solver and read the schedule back.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/popmonkey/packing_solver_go/internal/config"
	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/metrics"
	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
	"github.com/popmonkey/packing_solver_go/internal/solution"
	"github.com/popmonkey/packing_solver_go/internal/solver"
	"github.com/popmonkey/packing_solver_go/internal/solver/highs"
)

// Runner carries what every stage needs. Metrics may be nil.
type Runner struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	runID   string
}

func New(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *Runner {
	id := uuid.NewString()
	return &Runner{
		cfg:     cfg,
		logger:  logger.With("run_id", id),
		metrics: m,
		runID:   id,
	}
}

func (r *Runner) ID() string { return r.runID }

// ModelSummary is the size of a built model.
type ModelSummary struct {
	Name        string         `json:"name"`
	Columns     int            `json:"columns"`
	Binary      int            `json:"binary"`
	Integer     int            `json:"integer"`
	Continuous  int            `json:"continuous"`
	Rows        int            `json:"rows"`
	NonZeros    int            `json:"non_zeros"`
	RowsByGroup map[string]int `json:"rows_by_group"`
}

// Summarize reports the size of m.
func Summarize(m *milp.Model) ModelSummary {
	s := m.Stats()
	return ModelSummary{
		Name:        m.Name(),
		Columns:     s.Columns,
		Binary:      s.Binary,
		Integer:     s.Integer,
		Continuous:  s.Continuous,
		Rows:        s.Rows,
		NonZeros:    s.NonZeros,
		RowsByGroup: s.RowsByGroup,
	}
}

// Output is what a solve prints.
type Output struct {
	RunID                string             `json:"run_id"`
	Solver               string             `json:"solver"`
	Status               solver.Status      `json:"status"`
	Message              string             `json:"message,omitempty"`
	Model                ModelSummary       `json:"model"`
	Solution             *solution.Solution `json:"solution,omitempty"`
	Warnings             []string           `json:"warnings,omitempty"`
	SolveDurationSeconds float64            `json:"solve_duration_seconds"`
}

// Prepare decodes, binds and builds.
func (r *Runner) Prepare(in io.Reader, format problem.Format) (*formulation.Formulation, error) {
	data, err := problem.Load(in, format)
	if err != nil {
		return nil, err
	}
	inst, err := problem.Bind(data)
	if err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}
	opts, err := r.cfg.ToOptions(inst.Mode())
	if err != nil {
		return nil, err
	}

	r.logger.Info("building model", "mode", inst.Mode(), "orders", inst.NumOrders(), "lines", inst.NumLines())
	f, err := formulation.Build(inst, opts)
	if err != nil {
		return nil, err
	}

	stats := f.Model.Stats()
	r.logger.Info("model built",
		"columns", humanize.Comma(int64(stats.Columns)),
		"binary", humanize.Comma(int64(stats.Binary)),
		"rows", humanize.Comma(int64(stats.Rows)),
		"non_zeros", humanize.Comma(int64(stats.NonZeros)))
	groups := make([]string, 0, len(stats.RowsByGroup))
	for g := range stats.RowsByGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		r.logger.Debug("row group", "group", g, "rows", stats.RowsByGroup[g])
	}
	if r.metrics != nil {
		r.metrics.ObserveBuild(string(inst.Mode()), stats.Columns, stats.Rows)
	}
	return f, nil
}

// Solve solves a prepared formulation. When the solver ends without a
// schedule the Output still carries the status and the error wraps
// solution.ErrNoSolution.
func (r *Runner) Solve(ctx context.Context, f *formulation.Formulation) (*Output, error) {
	name := r.cfg.Solver.Name
	s, err := r.newSolver(name)
	if err != nil {
		return nil, err
	}
	opts := solver.Options{
		TimeLimit: r.cfg.Solver.TimeLimit,
		MIPGap:    r.cfg.Solver.MIPGap,
		Verbose:   r.cfg.Solver.Verbose,
	}

	r.logger.Info("solving", "solver", name, "time_limit", opts.TimeLimit, "mip_gap", opts.MIPGap)
	start := time.Now()
	res, err := s.Solve(ctx, f.Model, opts)
	elapsed := time.Since(start)
	if err != nil {
		if r.metrics != nil {
			r.metrics.ObserveSolve(name, solver.StatusError.String(), elapsed)
		}
		return nil, fmt.Errorf("solver %s failed: %w", name, err)
	}
	if r.metrics != nil {
		r.metrics.ObserveSolve(name, res.Status.String(), elapsed)
	}
	r.logger.Info("total solver time", "elapsed", elapsed, "status", res.Status)

	out := &Output{
		RunID:                r.runID,
		Solver:               name,
		Status:               res.Status,
		Message:              res.Message,
		Model:                Summarize(f.Model),
		SolveDurationSeconds: elapsed.Seconds(),
	}
	sol, err := solution.Extract(f, res)
	if err != nil {
		if errors.Is(err, solution.ErrNoSolution) {
			r.logger.Warn("no schedule found", "status", res.Status, "message", res.Message)
		}
		return out, err
	}
	if err := solution.Check(f, sol); err != nil {
		r.logger.Warn("schedule failed verification", "err", err)
		out.Warnings = append(out.Warnings, err.Error())
	}
	out.Solution = sol
	return out, nil
}

// newSolver looks the backend up in the registry, except that HiGHS is
// built directly when a binary path is configured.
func (r *Runner) newSolver(name string) (solver.Solver, error) {
	if name == highs.Name && r.cfg.Solver.Binary != "" {
		return highs.New(r.logger, highs.WithBinary(r.cfg.Solver.Binary)), nil
	}
	return solver.New(name, r.logger)
}
