// Package highs solves models with the HiGHS command-line solver. The model
// is written in LP format to a scratch directory, the binary is run on it,
// and the raw solution file it writes is read back. Import it for its side
// effect of registering the "highs" backend.
package highs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/solver"
)

const (
	Name          = "highs"
	DefaultBinary = "highs"

	modelFile    = "model.lp"
	optionsFile  = "highs.opts"
	solutionFile = "model.sol"

	// grace is how long the process may run past its own time limit before
	// it is killed.
	grace = 10 * time.Second
)

func init() {
	solver.Register(Name, func(logger *slog.Logger) solver.Solver { return New(logger) })
}

// CommandRunner runs an external command. It exists so tests can stand in
// for the binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stdout, stderr := stdoutBuf.String(), stderrBuf.String()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return stdout, stderr, 0, nil
	case errors.As(runErr, &exitErr):
		return stdout, stderr, exitErr.ExitCode(), nil
	default:
		return stdout, stderr, -1, runErr
	}
}

type Solver struct {
	logger *slog.Logger
	binary string
	runner CommandRunner
}

type Option func(*Solver)

// WithBinary sets the path of the highs executable.
func WithBinary(path string) Option {
	return func(s *Solver) {
		if path != "" {
			s.binary = path
		}
	}
}

func WithRunner(r CommandRunner) Option {
	return func(s *Solver) { s.runner = r }
}

func New(logger *slog.Logger, opts ...Option) *Solver {
	s := &Solver{
		logger: logger.With("solver", Name),
		binary: DefaultBinary,
		runner: osCommandRunner{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Solver) Name() string { return Name }

func (s *Solver) Solve(ctx context.Context, m *milp.Model, opts solver.Options) (*solver.Result, error) {
	dir, err := os.MkdirTemp("", "packsched-highs-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, modelFile)
	if err := writeModel(modelPath, m); err != nil {
		return nil, err
	}
	optionsPath := filepath.Join(dir, optionsFile)
	solutionPath := filepath.Join(dir, solutionFile)
	if err := os.WriteFile(optionsPath, []byte(optionsText(opts, solutionPath)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write options file: %w", err)
	}

	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit+grace)
		defer cancel()
	}

	s.logger.Debug("running", "binary", s.binary, "dir", dir)
	start := time.Now()
	stdout, stderr, code, err := s.runner.Run(ctx, s.binary, "--model_file", modelPath, "--options_file", optionsPath)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Warn("highs killed at deadline", "elapsed", elapsed, "cause", ctx.Err())
			return &solver.Result{Status: solver.StatusUnknown, SolveTime: elapsed, Message: "killed at deadline"}, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", s.binary, err)
	}
	if opts.Verbose && stdout != "" {
		s.logger.Info("highs output", "log", stdout)
	}

	f, err := os.Open(solutionPath)
	if err != nil {
		if code != 0 {
			return &solver.Result{Status: solver.StatusError, SolveTime: elapsed, Message: fmt.Sprintf("highs exited with code %d: %s", code, tail(stderr+stdout))}, nil
		}
		return nil, fmt.Errorf("highs wrote no solution file: %w", err)
	}
	defer f.Close()

	raw, err := ParseSolution(f)
	if err != nil {
		return nil, err
	}
	res, err := toResult(m, raw)
	if err != nil {
		return nil, err
	}
	res.SolveTime = elapsed
	s.logger.Info("solve finished", "status", res.Status, "model_status", raw.ModelStatus, "objective", res.Objective, "elapsed", elapsed)
	return res, nil
}

func writeModel(path string, m *milp.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := milp.WriteLP(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return f.Close()
}

func optionsText(opts solver.Options, solutionPath string) string {
	var b strings.Builder
	if opts.TimeLimit > 0 {
		fmt.Fprintf(&b, "time_limit = %g\n", opts.TimeLimit.Seconds())
	}
	if opts.MIPGap > 0 {
		fmt.Fprintf(&b, "mip_rel_gap = %g\n", opts.MIPGap)
	}
	fmt.Fprintf(&b, "write_solution_to_file = true\n")
	fmt.Fprintf(&b, "write_solution_style = 0\n")
	fmt.Fprintf(&b, "solution_file = %s\n", solutionPath)
	fmt.Fprintf(&b, "output_flag = %t\n", opts.Verbose)
	return b.String()
}

// toResult maps the raw solution onto model columns by name.
func toResult(m *milp.Model, raw *RawSolution) (*solver.Result, error) {
	res := &solver.Result{Status: classify(raw), Message: raw.ModelStatus}
	if !res.Status.HasSolution() {
		return res, nil
	}
	// Columns missing from the file sit at the bound nearest zero.
	res.Values = make([]float64, m.NumVars())
	for v := range res.Values {
		col := m.Var(milp.Var(v))
		res.Values[v] = math.Max(col.Lower, math.Min(0, col.Upper))
	}
	for _, c := range raw.Columns {
		v, ok := m.Lookup(c.Name)
		if !ok {
			return nil, fmt.Errorf("solution names unknown column %q", c.Name)
		}
		res.Values[v] = c.Value
	}
	res.Objective = m.ObjectiveValue(res.Values)
	return res, nil
}

func classify(raw *RawSolution) solver.Status {
	switch strings.ToLower(raw.ModelStatus) {
	case "optimal", "model empty":
		return solver.StatusOptimal
	case "infeasible":
		return solver.StatusInfeasible
	case "time limit reached", "iteration limit reached", "solution limit reached", "interrupted by user", "objective bound", "objective target":
		if raw.PrimalFeasible {
			return solver.StatusFeasible
		}
		return solver.StatusUnknown
	case "unbounded", "primal infeasible or unbounded", "unknown":
		return solver.StatusUnknown
	default:
		return solver.StatusError
	}
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 400 {
		return "..." + s[len(s)-400:]
	}
	return s
}
