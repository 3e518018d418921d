package config

// Presets are ready-made scenarios keyed by control mode, then preset name.
var Presets = map[string]map[string]*Config{
	"2xz": {
		"approach": {
			ControlMode: "2xz", InteractionMode: "curr",
			Gains: []float64{1.0, 1.0}, Dt: 0.05, MaxIters: 500, Tolerance: 0.01,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{X: 0.3},
			Target: PoseConfig{Z: 1},
		},
		"retreat": {
			ControlMode: "2xz", InteractionMode: "curr",
			Gains: []float64{1.0, 1.0}, Dt: 0.05, MaxIters: 500, Tolerance: 0.01,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{Z: 2},
			Target: PoseConfig{Z: 0.5},
		},
		"sidestep": {
			ControlMode: "2xz", InteractionMode: "mean",
			Gains: []float64{1.5, 1.5}, Dt: 0.05, MaxIters: 800, Tolerance: 0.01,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{X: 0.6, Z: 0.5},
			Target: PoseConfig{Z: 1},
		},
	},
	"2zy": {
		"pan": {
			ControlMode: "2zy", InteractionMode: "curr",
			Gains: []float64{0.5, 0.5}, Dt: 0.05, MaxIters: 800, Tolerance: 0.01,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{Yaw: 0.1},
			Target: PoseConfig{Z: 1},
		},
	},
	"4xyzy": {
		"full": {
			ControlMode: "4xyzy", InteractionMode: "curr",
			Gains: []float64{1.0, 1.0, 1.0, 1.0}, Dt: 0.05, MaxIters: 1000, Tolerance: 0.01,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{X: 0.2, Y: -0.1, Z: 0.4, Yaw: 0.05},
			Target: PoseConfig{Z: 1},
		},
		"gentle": {
			ControlMode: "4xyzy", InteractionMode: "mean",
			Gains: []float64{0.5, 0.5, 0.5, 0.5}, Dt: 0.05, MaxIters: 2000, Tolerance: 0.005,
			Scene:  squareScene(3.0),
			Camera: PoseConfig{X: 0.1, Y: 0.1, Z: 0.2},
			Target: PoseConfig{Z: 1},
		},
	},
}

func squareScene(z float64) []ScenePoint {
	return []ScenePoint{
		{X: -0.5, Y: -0.5, Z: z},
		{X: 0.5, Y: -0.5, Z: z},
		{X: 0.5, Y: 0.5, Z: z},
		{X: -0.5, Y: 0.5, Z: z},
	}
}

// GetPreset returns the named preset for a control mode, or nil.
func GetPreset(mode, preset string) *Config {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	cfg, ok := modePresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

// ListPresets returns the preset names for a control mode, or nil.
func ListPresets(mode string) []string {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modePresets))
	for name := range modePresets {
		names = append(names, name)
	}
	return names
}
