package models

// Settings is the engine's behavioral snapshot. The engine reads it at
// construction and again whenever the caller pushes an update; it never
// reads the config file itself.
type Settings struct {
	DefaultRestSeconds     int    `json:"defaultRestSeconds" yaml:"default_rest_seconds"`
	AutoStartRestTimer     bool   `json:"autoStartRestTimer" yaml:"auto_start_rest_timer"`
	WeightUnit             string `json:"weightUnit" yaml:"weight_unit"`
	CountdownSeconds       int    `json:"countdownSeconds" yaml:"countdown_seconds"`
	AutosaveDebounceMillis int    `json:"autosaveDebounceMillis" yaml:"autosave_debounce_ms"`
}

// Normalize fills zero values with usable defaults.
func (s Settings) Normalize() Settings {
	if s.DefaultRestSeconds <= 0 {
		s.DefaultRestSeconds = 180
	}
	if s.WeightUnit == "" {
		s.WeightUnit = "kg"
	}
	if s.CountdownSeconds <= 0 {
		s.CountdownSeconds = 10
	}
	if s.AutosaveDebounceMillis <= 0 {
		s.AutosaveDebounceMillis = 2000
	}
	return s
}
