package configs

import (
	"errors"
	"io/fs"
	"os"

	"github.com/dietiestates/backend/internal/infrastructure/env"
	"github.com/joho/godotenv"
)

var candidatePaths = []string{
	"./config.yaml",
	"./config.yml",
	"../../config.yaml", // keep for local dev
	"/etc/dieti/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file: explicit flag value first,
// then DIETI_CONFIG, then the well-known locations. It returns "" when none
// exists, in which case Load falls back to defaults and env.
func DetermineConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if configPath := env.GetString("DIETI_CONFIG", ""); configPath != "" {
		return configPath
	}

	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// LoadDotEnv populates the process environment from the given .env files
// (default ".env"). Variables already set are left untouched and missing
// files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}

	return nil
}
