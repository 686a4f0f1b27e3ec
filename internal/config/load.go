package config

import (
	"fmt"
	"os"
)

// Load parses CLI args, then layers an optional config file and
// environment overrides on top, then validates the result. The order is:
// parse flags, overlay the file onto fields still at Defaults() (see
// ApplyFileConfig), then apply ApplyEnvOverrides, which overrides
// everything. A set environment variable therefore outranks an explicit
// flag as well as the file.
func Load(fs *FlagSet, args []string, configFilePath string) (PipelineConfig, error) {
	if err := fs.Parse(args); err != nil {
		return PipelineConfig{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg := fs.Config()

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err == nil {
			fc, err := LoadConfigFile(configFilePath)
			if err != nil {
				return PipelineConfig{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
			}
			ApplyFileConfig(&cfg, fc)
		}
	}

	ApplyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}
