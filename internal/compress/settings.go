package compress

// Settings control page rasterization.
type Settings struct {
	Scale   float64 `json:"scale"`
	Quality float64 `json:"quality"`
}

// SettingsFor is a fixed lookup. Lossless never rasterizes; its entry exists so
// every mode has settings.
func SettingsFor(m Mode) Settings {
	switch m {
	case ModeImage:
		return Settings{Scale: 1, Quality: 0.5}
	case ModeHybrid:
		return Settings{Scale: 1, Quality: 0.6}
	default:
		return Settings{Scale: 1, Quality: 0.6}
	}
}

// Validate checks 0 < Quality <= 1 and Scale > 0.
func (s Settings) Validate() error {
	if !(s.Quality > 0 && s.Quality <= 1) {
		return ErrInvalidSettings
	}
	if !(s.Scale > 0) {
		return ErrInvalidSettings
	}
	return nil
}
