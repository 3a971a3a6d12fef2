package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/popmonkey/packing_solver_go/internal/config"
	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/logging"
	"github.com/popmonkey/packing_solver_go/internal/metrics"
	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
	"github.com/popmonkey/packing_solver_go/internal/run"
	"github.com/popmonkey/packing_solver_go/internal/solver"

	_ "github.com/popmonkey/packing_solver_go/internal/solver/glpk"
	_ "github.com/popmonkey/packing_solver_go/internal/solver/highs"
)

// app holds the persistent flags and what PersistentPreRunE builds from
// them. Each root command gets its own.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg      config.Config
	logger   *slog.Logger
	recorder *metrics.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "packsched",
		Short: "Packing line scheduler",
		Long:  "packsched builds a MILP for a packing schedule and solves it with GLPK or HiGHS.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" {
				return nil
			}
			a.logger.Debug("writing metrics", "path", a.metricsFile)
			return a.recorder.WriteTextfile(a.metricsFile)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	root.AddCommand(a.newSolveCmd(), a.newExportCmd(), a.newStatsCmd())
	return root
}

// setup loads the configuration, lets explicit log flags override it and
// builds the logger and metrics.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewLogger(level, format)
	a.recorder = metrics.New()
	return nil
}

func (a *app) newSolveCmd() *cobra.Command {
	var (
		solverName string
		timeLimit  time.Duration
		mipGap     float64
	)
	cmd := &cobra.Command{
		Use:   "solve [data-file]",
		Short: "Solve a problem and write the schedule as JSON to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("solver") {
				a.cfg.Solver.Name = solverName
			}
			if cmd.Flags().Changed("time-limit") {
				a.cfg.Solver.TimeLimit = timeLimit
			}
			if cmd.Flags().Changed("mip-gap") {
				a.cfg.Solver.MIPGap = mipGap
			}

			r := run.New(a.cfg, a.logger, a.recorder)
			f, err := a.prepare(cmd, r, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			out, solveErr := r.Solve(ctx, f)
			if out == nil {
				return solveErr
			}

			a.logger.Info("writing schedule to stdout")
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return fmt.Errorf("failed to write output JSON: %w", err)
			}
			if solveErr != nil {
				return solveErr
			}
			a.logger.Info("solver finished successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&solverName, "solver", "glpk", fmt.Sprintf("Solver backend %v", solver.Names()))
	cmd.Flags().DurationVar(&timeLimit, "time-limit", time.Minute, "Solver time limit")
	cmd.Flags().Float64Var(&mipGap, "mip-gap", 0.01, "Relative MIP gap")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [data-file]",
		Short: "Write the model in LP format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.prepare(cmd, run.New(a.cfg, a.logger, a.recorder), args)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return milp.WriteLP(cmd.OutOrStdout(), f.Model)
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := milp.WriteLP(file, f.Model); err != nil {
				file.Close()
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			a.logger.Info("model written", "path", out)
			return file.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [data-file]",
		Short: "Build the model and print its size",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.prepare(cmd, run.New(a.cfg, a.logger, a.recorder), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), run.Summarize(f.Model))
		},
	}
}

// prepare reads the problem from the named file, or from the command's
// input when no file is given.
func (a *app) prepare(cmd *cobra.Command, r *run.Runner, args []string) (*formulation.Formulation, error) {
	var input io.Reader
	format := problem.JSON
	if len(args) > 0 {
		filePath := args[0]
		a.logger.Info("reading input data from file", "path", filePath)
		file, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		format = problem.FormatFromPath(filePath)
	} else {
		a.logger.Info("reading input data from stdin")
		input = cmd.InOrStdin()
	}
	f, err := r.Prepare(input, format)
	if err != nil {
		var dim *problem.DimensionError
		if errors.As(err, &dim) {
			a.logger.Error("input has the wrong shape", "field", dim.Field, "expected", dim.Expected, "actual", dim.Actual)
		}
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return f, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
