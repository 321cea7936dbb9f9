// Package batch executes scripted sequences of tracking runs.
package batch

import (
	"context"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mectrack/internal/config"
	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/follow"
	"github.com/san-kum/mectrack/internal/metrics"
	"github.com/san-kum/mectrack/internal/sim"
	"github.com/san-kum/mectrack/internal/store"
	"github.com/san-kum/mectrack/internal/traj"
)

// Scenario is a scripted sequence of tracking runs, usually loaded
// from a YAML file.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step describes one run: which trajectory, under which configuration.
type Step struct {
	// Label names the step in output. Defaults to the trajectory ref.
	Label string `yaml:"label,omitempty"`
	// Trajectory is resolved by the runner's loader.
	Trajectory string `yaml:"trajectory"`
	// Preset picks a base configuration by name. Empty means defaults.
	Preset string `yaml:"preset,omitempty"`
	// Mode overrides the drive output when set.
	Mode string `yaml:"mode,omitempty"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("batch: parse %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("batch: %s: no steps", path)
	}
	return &sc, nil
}

// Loader resolves a step's trajectory reference.
type Loader func(ref string) (*traj.Trajectory, error)

// StepResult reports one completed step.
type StepResult struct {
	Label   string
	RunID   string
	Metrics map[string]float64
}

// Runner executes scenarios against one store.
type Runner struct {
	store  *store.Store
	load   Loader
	logger golog.Logger
}

func NewRunner(st *store.Store, load Loader, logger golog.Logger) *Runner {
	if logger == nil {
		logger = golog.NewLogger("batch")
	}
	return &Runner{store: st, load: load, logger: logger}
}

// Run executes every step in order, saving each run. It stops at the
// first failing step and returns the results that completed.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	out := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		res, err := r.runStep(ctx, step)
		if err != nil {
			return out, fmt.Errorf("batch: step %d (%s): %w", i+1, step.name(), err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (s Step) name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Trajectory
}

func (s Step) config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	}
	if s.Mode != "" {
		cfg.Mode = s.Mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (StepResult, error) {
	cfg, err := step.config()
	if err != nil {
		return StepResult{}, err
	}
	tr, err := r.load(step.Trajectory)
	if err != nil {
		return StepResult{}, err
	}

	plant := sim.NewPlant(cfg.PlantConfig())
	builder, err := drivetrain(cfg, plant)
	if err != nil {
		return StepResult{}, err
	}
	builder.ResetPose(tr)

	ses, err := sim.NewSession(builder.Follower(tr), plant, tr, cfg.Period, r.logger)
	if err != nil {
		return StepResult{}, err
	}
	for _, m := range metrics.Standard() {
		ses.AddMetric(m)
	}

	r.logger.Debugf("step %s: following %s in %s mode", step.name(), tr.Name, builder.Mode())
	res, err := ses.Run(ctx)
	if err != nil {
		return StepResult{}, err
	}

	runID, err := r.store.Save(tr.Name, cfg.Mode, cfg.Period, tr.Duration(), res)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Label: step.name(), RunID: runID, Metrics: res.Metrics}, nil
}

// drivetrain wires a follower builder to the plant in the configured
// output mode.
func drivetrain(cfg *config.Config, plant *sim.Plant) (*follow.Builder, error) {
	fc := follow.Config{
		Pose:        plant.Pose,
		Reset:       plant.ResetPose,
		Translation: cfg.Translation.Gains(),
		Rotation:    cfg.Rotation.Gains(),
	}
	if cfg.Mode == config.ModeWheels {
		fc.Kinematics = cfg.Kinematics()
		fc.MaxWheelSpeed = cfg.Frame.WheelCap
		fc.Wheels = plant.SetWheelSpeeds
	} else {
		fc.Chassis = func(c drive.ChassisSpeeds) {
			plant.SetVelocity(r3.Vector{X: c.VX, Y: c.VY}, r3.Vector{Z: c.Omega})
		}
	}
	return follow.NewBuilder(fc)
}
