// Package config provides centralized configuration for the latentvault server.
// All configurable values are loaded from environment variables with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is the optional dotenv file read before the environment.
const EnvFile = ".env.local"

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite vault database.
	DBPath string

	// LogLevel is the zap level name ("debug", "info", ...).
	LogLevel string

	// GeminiKey is the API key for the Google Gemini service.
	GeminiKey string

	// GeminiModel is the image model used for generation.
	GeminiModel string

	// HTTPTimeout is the timeout for outgoing generation requests.
	HTTPTimeout time.Duration

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string

	// MaxImportBytes caps the size of an import document.
	MaxImportBytes int64
}

// Load reads EnvFile, if present, then configuration from environment
// variables, applying defaults. An unreadable or unparsable EnvFile is
// reported as an error; the returned Config then reflects the environment
// alone.
func Load() (Config, error) {
	envErr := loadEnvFile(EnvFile)
	return Config{
		Port:           envOr("PORT", "8080"),
		DBPath:         envOr("DB_PATH", "latentvault.db"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-2.5-flash-image"),
		HTTPTimeout:    envDuration("HTTP_TIMEOUT", 60*time.Second),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		MaxImportBytes: int64(envInt("MAX_IMPORT_BYTES", 64<<20)),
	}, envErr
}

// UseStubs returns true when no Gemini API key is configured.
func (c Config) UseStubs() bool {
	return c.GeminiKey == ""
}

// loadEnvFile sets variables from a dotenv file. Variables already present
// in the environment win; a missing file is ignored. godotenv parses the
// whole file before setting anything, so a bad line leaves every variable
// of the file unset.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("env file %s: %w", path, err)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
