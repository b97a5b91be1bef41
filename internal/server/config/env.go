package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// dotenvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win over the files.
var dotenvFiles = []string{".env"}

// parseEnv overlays variables from the environment. Only variables that are
// set replace the current value.
func parseEnv(config *Config) error {
	for _, f := range dotenvFiles {
		// a missing .env is the normal production case
		_ = godotenv.Load(f)
	}
	if err := envconfig.Process("", config); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}
