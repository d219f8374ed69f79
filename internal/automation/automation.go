// Package automation runs scripted sequences of sweeps described in YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/config"
	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/finitediff"
	"github.com/san-kum/dsmath/internal/sweep"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted sequence of sweeps
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single sweep. Zero fields fall back to the defaults,
// or to the named preset when Preset is set.
type ScenarioStep struct {
	Function string       `yaml:"function"`
	Preset   string       `yaml:"preset"`
	Points   int          `yaml:"points"`
	Step     float64      `yaml:"step"`
	Order    int          `yaml:"order"`
	Range    *sweep.Range `yaml:"range"`
	Workers  int          `yaml:"workers"`
	SaveAs   string       `yaml:"save_as"`
}

// StepResult pairs a resolved step configuration with its sweep.
type StepResult struct {
	Config  *config.Config
	SaveAs  string
	Result  *sweep.Result
	Elapsed time.Duration
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyScenario, path)
	}

	return &scenario, nil
}

// Resolve builds the full configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		p := config.GetPreset(s.Function, s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %s for function %s", s.Preset, s.Function)
		}
		cfg = p
	}

	if s.Function != "" {
		cfg.Function = s.Function
	}
	if s.Points != 0 {
		cfg.Points = s.Points
	}
	if s.Step != 0 {
		cfg.Step = s.Step
	}
	if s.Order != 0 {
		cfg.Order = s.Order
	}
	if s.Range != nil {
		cfg.Range = *s.Range
	}
	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes all steps in a scenario, stopping at the first
// failing one. Results of the steps already run are returned along with
// the error.
func RunScenario(
	ctx context.Context,
	scenario *Scenario,
	functions *experiment.Registry,
	compilers *compiler.Registry,
	log *slog.Logger,
	opts ...finitediff.Option,
) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info("running step", "step", i+1, "of", len(scenario.Steps), "function", cfg.Function)

		exp, err := experiment.New(functions, compilers, cfg.Experiment(), opts...)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		start := time.Now()
		result, err := sweep.Run(ctx, exp, cfg.Range, cfg.Workers)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{
			Config:  cfg,
			SaveAs:  step.SaveAs,
			Result:  result,
			Elapsed: time.Since(start),
		})
	}

	return results, nil
}
