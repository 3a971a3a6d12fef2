// Package config holds the YAML run configuration: which solver to use and
// how, the formulation flags, objective weights and logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/problem"
)

const (
	EnvSolver    = "PACKSCHED_SOLVER"
	EnvTimeLimit = "PACKSCHED_TIME_LIMIT"
)

type Config struct {
	Solver       SolverConfig       `yaml:"solver"`
	Formulation  FormulationConfig  `yaml:"formulation"`
	Weights      WeightsConfig      `yaml:"weights"`
	Coefficients CoefficientsConfig `yaml:"coefficients"`
	Log          LogConfig          `yaml:"log"`
}

type SolverConfig struct {
	Name      string        `yaml:"name" validate:"required"`
	TimeLimit time.Duration `yaml:"time_limit" validate:"gte=0"`
	MIPGap    float64       `yaml:"mip_gap" validate:"gte=0,lt=1"`

	// Binary is the executable for command-line backends.
	Binary  string `yaml:"binary"`
	Verbose bool   `yaml:"verbose"`
}

// FormulationConfig mirrors formulation.Options. Empty enums and unset
// pointers take the defaults of the problem's mode.
type FormulationConfig struct {
	Assignment string `yaml:"assignment" validate:"omitempty,oneof=strict optional"`
	Workers    string `yaml:"workers" validate:"omitempty,oneof=counting explicit"`
	Shipping   string `yaml:"shipping" validate:"omitempty,oneof=fixed decision"`
	Lateness   string `yaml:"lateness" validate:"omitempty,oneof=completion ship_time"`

	NoEarlyShipping    *bool `yaml:"no_early_shipping"`
	SetupTimes         *bool `yaml:"setup_times"`
	LineGating         bool  `yaml:"line_gating"`
	TrackEarliness     bool  `yaml:"track_earliness"`
	WorkerMovement     bool  `yaml:"worker_movement"`
	WorkforceDeviation bool  `yaml:"workforce_deviation"`
	WorkforceChanges   bool  `yaml:"workforce_changes"`

	Epsilon               float64 `yaml:"epsilon" validate:"gt=0"`
	HasInventoryThreshold float64 `yaml:"has_inventory_threshold" validate:"gt=0"`
}

type WeightsConfig struct {
	OTIF      float64 `yaml:"otif" validate:"gte=0"`
	WIP       float64 `yaml:"wip" validate:"gte=0"`
	Workforce float64 `yaml:"workforce" validate:"gte=0"`
	Line      float64 `yaml:"line_utilization" validate:"gte=0"`
	Movement  float64 `yaml:"worker_movement" validate:"gte=0"`
}

type CoefficientsConfig struct {
	Late      float64 `yaml:"late" validate:"gte=0"`
	Lateness  float64 `yaml:"lateness" validate:"gte=0"`
	WIPCount  float64 `yaml:"wip_count" validate:"gte=0"`
	FlowTime  float64 `yaml:"flow_time" validate:"gte=0"`
	Inventory float64 `yaml:"inventory" validate:"gte=0"`
	Range     float64 `yaml:"range" validate:"gte=0"`
	Deviation float64 `yaml:"deviation" validate:"gte=0"`
	Change    float64 `yaml:"change" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	w := formulation.DefaultWeights()
	c := formulation.DefaultCoefficients()
	base := formulation.DefaultOptions(problem.Discrete)
	return Config{
		Solver: SolverConfig{
			Name:      "glpk",
			TimeLimit: 60 * time.Second,
			MIPGap:    0.01,
		},
		Formulation: FormulationConfig{
			Epsilon:               base.Epsilon,
			HasInventoryThreshold: base.HasInventoryThreshold,
		},
		Weights: WeightsConfig{
			OTIF:      w.OTIF,
			WIP:       w.WIP,
			Workforce: w.Workforce,
			Line:      w.Line,
			Movement:  w.Movement,
		},
		Coefficients: CoefficientsConfig{
			Late:      c.Late,
			Lateness:  c.Lateness,
			WIPCount:  c.WIPCount,
			FlowTime:  c.FlowTime,
			Inventory: c.Inventory,
			Range:     c.Range,
			Deviation: c.Deviation,
			Change:    c.Change,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSolver); ok && v != "" {
		c.Solver.Name = v
	}
	if v, ok := lookup(EnvTimeLimit); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeLimit, err)
		}
		c.Solver.TimeLimit = d
	}
	return nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ToOptions maps the formulation section onto the defaults of mode.
func (c Config) ToOptions(mode problem.Mode) (formulation.Options, error) {
	o := formulation.DefaultOptions(mode)
	f := c.Formulation

	switch f.Assignment {
	case "strict":
		o.Assignment = formulation.Strict
	case "optional":
		o.Assignment = formulation.Optional
	case "":
	default:
		return o, fmt.Errorf("unknown assignment mode %q", f.Assignment)
	}
	switch f.Workers {
	case "counting":
		o.Workers = formulation.Counting
	case "explicit":
		o.Workers = formulation.Explicit
	case "":
	default:
		return o, fmt.Errorf("unknown worker mode %q", f.Workers)
	}
	switch f.Shipping {
	case "fixed":
		o.Shipping = formulation.FixedSchedule
	case "decision":
		o.Shipping = formulation.Decision
	case "":
	default:
		return o, fmt.Errorf("unknown shipping mode %q", f.Shipping)
	}
	switch f.Lateness {
	case "completion":
		o.Lateness = formulation.ByCompletion
	case "ship_time":
		o.Lateness = formulation.ByShipTime
	case "":
	default:
		return o, fmt.Errorf("unknown lateness basis %q", f.Lateness)
	}

	if f.NoEarlyShipping != nil {
		o.NoEarlyShipping = *f.NoEarlyShipping
	}
	if f.SetupTimes != nil {
		o.SetupTimes = *f.SetupTimes
	}
	o.LineGating = f.LineGating
	o.TrackEarliness = f.TrackEarliness
	o.WorkerMovement = f.WorkerMovement
	o.WorkforceDeviation = f.WorkforceDeviation
	o.WorkforceChanges = f.WorkforceChanges
	o.Epsilon = f.Epsilon
	o.HasInventoryThreshold = f.HasInventoryThreshold

	w := c.Weights
	o.Weights = formulation.Weights{OTIF: w.OTIF, WIP: w.WIP, Workforce: w.Workforce, Line: w.Line, Movement: w.Movement}
	k := c.Coefficients
	o.Coefficients = formulation.Coefficients{
		Late:      k.Late,
		Lateness:  k.Lateness,
		WIPCount:  k.WIPCount,
		FlowTime:  k.FlowTime,
		Inventory: k.Inventory,
		Range:     k.Range,
		Deviation: k.Deviation,
		Change:    k.Change,
	}
	return o, o.Validate(mode)
}
