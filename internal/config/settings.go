package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings are read from the environment of the game process.
type Settings struct {
	// LogLevel is a zerolog level name.
	LogLevel string `env:"BLC_LOG_LEVEL" envDefault:"debug"`
	// Dir overrides the data directory holding the override file, the log
	// and the scan cache.
	Dir string `env:"BLC_DIR"`
	// Module overrides the name of the module to patch.
	Module string `env:"BLC_MODULE"`
	// ScanCache enables reusing the scan result of an unchanged binary.
	ScanCache bool `env:"BLC_SCAN_CACHE" envDefault:"true"`
}

// DefaultSettings returns the settings of an empty environment.
func DefaultSettings() Settings {
	s, _ := env.ParseAsWithOptions[Settings](env.Options{Environment: map[string]string{}})
	return s
}

// LoadSettings reads Settings from the process environment. Unset or empty
// variables take their defaults.
func LoadSettings() (Settings, error) {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return DefaultSettings(), fmt.Errorf("reading BLC_* environment: %w", err)
	}
	return s, nil
}
