package config

import (
	"os"
	"path/filepath"
	"sync"

	"jamledger/stmt-ingest/internal/logging"

	"github.com/joho/godotenv"
)

var envOnce sync.Once

// LoadEnv loads a .env file from the working directory or its parent, if one exists.
// Existing environment variables win over the file.
func LoadEnv() {
	envOnce.Do(func() {
		loadEnvFrom(".env", filepath.Join("..", ".env"))
	})
}

func loadEnvFrom(candidates ...string) string {
	log := logging.GetLogger()
	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			log.WithError(err).Warn("Error loading .env file",
				logging.Field{Key: logging.FieldFile, Value: envFile})
			return ""
		}
		log.Debug("Loaded environment variables",
			logging.Field{Key: logging.FieldFile, Value: envFile})
		return envFile
	}
	log.Debug("No .env file found, using environment variables")
	return ""
}
