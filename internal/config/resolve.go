package config

// Load builds the process-start Config: defaults, overlaid by the
// optional TOML file at filePath (empty string skips the file), overlaid
// by environment variables (always authoritative), then validated. This
// is the only config entry point the CLI bootstrap calls.
func Load(filePath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := LoadFile(cfg, filePath); err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
