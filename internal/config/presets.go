package config

import "sort"

// Presets are ready-made tracking setups. "default" mirrors
// DefaultConfig; the rest trade responsiveness against smoothness or
// stress the plant model.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"aggressive": {
		Mode:        ModeChassis,
		Period:      0.01,
		Translation: GainsConfig{Kp: 5.0, Kd: 0.2, Tolerance: 0.02},
		Rotation:    GainsConfig{Kp: 6.0, Tolerance: 0.05},
		Frame:       FrameConfig{TrackWidth: DefaultTrackWidth, WheelBase: DefaultWheelBase, WheelCap: DefaultWheelCap},
		Plant:       PlantConfig{Lag: 0.1, Slip: 0.05, WheelCap: DefaultWheelCap},
	},
	"smooth": {
		Mode:        ModeChassis,
		Period:      DefaultPeriod,
		Translation: GainsConfig{Kp: 1.5, Ki: 0.3, IZone: 0.25, Tolerance: 0.05},
		Rotation:    GainsConfig{Kp: 2.5, Tolerance: 0.1},
		Frame:       FrameConfig{TrackWidth: DefaultTrackWidth, WheelBase: DefaultWheelBase, WheelCap: DefaultWheelCap},
		Plant:       PlantConfig{Lag: 0.15, Slip: 0.05, WheelCap: DefaultWheelCap},
	},
	"sluggish": {
		Mode:        ModeChassis,
		Period:      DefaultPeriod,
		Translation: GainsConfig{Kp: 2.5, Ki: 1.0, IZone: 0.5, Tolerance: 0.05},
		Rotation:    GainsConfig{Kp: 4.0},
		Frame:       FrameConfig{TrackWidth: DefaultTrackWidth, WheelBase: DefaultWheelBase, WheelCap: DefaultWheelCap},
		Plant:       PlantConfig{Lag: 0.3, Slip: 0.15, WheelCap: DefaultWheelCap},
	},
	"feedforward-only": {
		Mode:   ModeChassis,
		Period: DefaultPeriod,
		Frame:  FrameConfig{TrackWidth: DefaultTrackWidth, WheelBase: DefaultWheelBase, WheelCap: DefaultWheelCap},
		Plant:  PlantConfig{Lag: 0.1, Slip: 0.05, WheelCap: DefaultWheelCap},
	},
	"wheels": {
		Mode:        ModeWheels,
		Period:      DefaultPeriod,
		Translation: GainsConfig{Kp: DefaultKp, Kd: DefaultKd},
		Rotation:    GainsConfig{Kp: DefaultRotKp},
		Frame:       FrameConfig{TrackWidth: DefaultTrackWidth, WheelBase: DefaultWheelBase, WheelCap: 2.0},
		Plant:       PlantConfig{Lag: 0.1, Slip: 0.05, WheelCap: 2.5},
	},
}

// GetPreset returns a private copy of the named preset, or nil if the
// name is unknown.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
