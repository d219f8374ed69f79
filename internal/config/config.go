package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/sweep"
)

const (
	DefaultFunction  = "quintic"
	DefaultPoints    = 7
	DefaultStep      = 0.25
	DefaultOrder     = 6
	DefaultRangeFrom = -10.0
	DefaultRangeTo   = 10.0
	DefaultRangeStep = 0.1
	DefaultWorkers   = 4
	DefaultOutput    = "runs"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Function string      `yaml:"function"`
	Points   int         `yaml:"points"`
	Step     float64     `yaml:"step"`
	Order    int         `yaml:"order"`
	Range    sweep.Range `yaml:"range"`
	Workers  int         `yaml:"workers"`
	Output   string      `yaml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		Function: DefaultFunction,
		Points:   DefaultPoints,
		Step:     DefaultStep,
		Order:    DefaultOrder,
		Range: sweep.Range{
			From: DefaultRangeFrom,
			To:   DefaultRangeTo,
			Step: DefaultRangeStep,
		},
		Workers: DefaultWorkers,
		Output:  DefaultOutput,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every problem of the configuration at once. Each one
// wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Function == "" {
		add("function is required")
	}
	if c.Points < 2 {
		add("points must be at least 2, got %d", c.Points)
	}
	if c.Step <= 0 {
		add("step must be positive, got %g", c.Step)
	}
	if c.Order < 0 {
		add("order must not be negative, got %d", c.Order)
	}
	if c.Order >= c.Points {
		add("order %d needs more than %d points", c.Order, c.Points)
	}
	if err := c.Range.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}

	return result.ErrorOrNil()
}

// Experiment returns the experiment settings of the configuration.
func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Function: c.Function,
		Points:   c.Points,
		Step:     c.Step,
		Order:    c.Order,
	}
}
