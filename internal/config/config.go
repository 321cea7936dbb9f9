package config

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/pid"
	"github.com/san-kum/mectrack/internal/sim"
)

const (
	DefaultPeriod     = 0.02
	DefaultKp         = 2.5
	DefaultKd         = 0.1
	DefaultRotKp      = 4.0
	DefaultTrackWidth = 0.5
	DefaultWheelBase  = 0.6
	DefaultWheelCap   = 3.0
)

// Mode names accepted by Config.Mode.
const (
	ModeChassis = "chassis"
	ModeWheels  = "wheels"
)

type Config struct {
	Mode        string      `yaml:"mode"`
	Period      float64     `yaml:"period"`
	Translation GainsConfig `yaml:"translation"`
	Rotation    GainsConfig `yaml:"rotation"`
	Frame       FrameConfig `yaml:"frame"`
	Plant       PlantConfig `yaml:"plant"`
}

type GainsConfig struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	IZone     float64 `yaml:"izone"`
	Tolerance float64 `yaml:"tolerance"`
}

// FrameConfig describes the drivetrain geometry and the commanded
// wheel-speed ceiling used in wheels mode.
type FrameConfig struct {
	TrackWidth float64 `yaml:"track_width"`
	WheelBase  float64 `yaml:"wheel_base"`
	WheelCap   float64 `yaml:"wheel_cap"`
}

// PlantConfig describes the simulated chassis imperfections.
type PlantConfig struct {
	Lag      float64 `yaml:"lag"`
	Slip     float64 `yaml:"slip"`
	WheelCap float64 `yaml:"wheel_cap"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode:   ModeChassis,
		Period: DefaultPeriod,
		Translation: GainsConfig{
			Kp: DefaultKp,
			Kd: DefaultKd,
		},
		Rotation: GainsConfig{
			Kp: DefaultRotKp,
		},
		Frame: FrameConfig{
			TrackWidth: DefaultTrackWidth,
			WheelBase:  DefaultWheelBase,
			WheelCap:   DefaultWheelCap,
		},
		Plant: PlantConfig{
			Lag:      0.1,
			Slip:     0.05,
			WheelCap: DefaultWheelCap,
		},
	}
}

// Load reads a YAML config, with missing keys falling back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

// Validate reports every problem with the config, not just the first.
func (c *Config) Validate() error {
	var errs error
	if c.Mode != ModeChassis && c.Mode != ModeWheels {
		errs = multierr.Append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeChassis, ModeWheels, c.Mode))
	}
	if c.Period <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("period must be positive, got %v", c.Period))
	}
	if c.Frame.TrackWidth <= 0 || c.Frame.WheelBase <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("frame dimensions must be positive, got %vx%v", c.Frame.TrackWidth, c.Frame.WheelBase))
	}
	if c.Mode == ModeWheels && c.Frame.WheelCap <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("wheels mode needs a positive frame wheel_cap, got %v", c.Frame.WheelCap))
	}
	if c.Plant.Slip < 0 || c.Plant.Slip >= 1 {
		errs = multierr.Append(errs, fmt.Errorf("plant slip must be in [0, 1), got %v", c.Plant.Slip))
	}
	if c.Plant.Lag < 0 {
		errs = multierr.Append(errs, fmt.Errorf("plant lag must be non-negative, got %v", c.Plant.Lag))
	}
	if g := c.Translation; g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
		errs = multierr.Append(errs, fmt.Errorf("translation gains must be non-negative, got kp=%v ki=%v kd=%v", g.Kp, g.Ki, g.Kd))
	}
	if g := c.Rotation; g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
		errs = multierr.Append(errs, fmt.Errorf("rotation gains must be non-negative, got kp=%v ki=%v kd=%v", g.Kp, g.Ki, g.Kd))
	}
	return errs
}

// Gains converts the YAML shape into controller gains.
func (g GainsConfig) Gains() pid.Gains {
	return pid.Gains{Kp: g.Kp, Ki: g.Ki, Kd: g.Kd, IZone: g.IZone, Tolerance: g.Tolerance}
}

// Kinematics builds the drivetrain map for the configured frame.
func (c *Config) Kinematics() *drive.MecanumKinematics {
	return drive.ForFrame(c.Frame.TrackWidth, c.Frame.WheelBase)
}

// PlantConfig assembles the simulated chassis matching this config.
func (c *Config) PlantConfig() sim.PlantConfig {
	return sim.PlantConfig{
		Kinematics: c.Kinematics(),
		WheelCap:   c.Plant.WheelCap,
		Lag:        c.Plant.Lag,
		Slip:       c.Plant.Slip,
	}
}
