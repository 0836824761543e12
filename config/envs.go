package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Pacing modes.
const (
	PacingFixed   = "fixed"   // Every attempt waits its own delay.
	PacingLimited = "limited" // All attempts of a run share one rate limiter.
)

var ErrMissingEnv = errors.New("environment variable is not set")

// Config holds the application's configuration values.
type Config struct {
	HostIP        string // Host IP for the server
	RESTPort      int    // Port for the REST API
	GinMode       string // Mode for the Gin framework (e.g., release, debug, test)
	JWTSecret     string // Secret key for JWT signing
	JWTIssuer     string // Issuer claim for JWTs
	RedisAddr     string // Redis address for cross-process claim arbitration, empty disables it
	RedisPassword string // Password for Redis
	RedisDB       int    // Redis database index
	ClaimTTL      int    // Seconds a cell lock survives in Redis without being extended
	RunRetention  int    // Seconds a settled run stays viewable before its cells are released
	GridWidth     int    // Default grid width for new runs
	GridHeight    int    // Default grid height for new runs
	PacingMs      int    // Default delay before each growth attempt, in milliseconds
	PacingMode    string // PacingFixed or PacingLimited
	TuningFile    string // Optional YAML file with named grid presets
}

// Load reads the configuration from the environment, loading a .env file first if present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	var errs []error
	c := Config{
		HostIP:        getEnvWithDefault("HOST_IP", "0.0.0.0"),
		RESTPort:      getEnvAsInt("REST_PORT", 8080, &errs),
		GinMode:       getEnvWithDefault("GIN_MODE", "release"),
		JWTSecret:     mustGetEnv("JWT_SECRET", &errs),
		JWTIssuer:     getEnvWithDefault("JWT_ISSUER", "vinom-tiles"),
		RedisAddr:     getEnvWithDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvWithDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0, &errs),
		ClaimTTL:      getEnvAsInt("CLAIM_TTL", 300, &errs),
		RunRetention:  getEnvAsInt("RUN_RETENTION", 600, &errs),
		GridWidth:     getEnvAsInt("GRID_WIDTH", 10, &errs),
		GridHeight:    getEnvAsInt("GRID_HEIGHT", 10, &errs),
		PacingMs:      getEnvAsInt("PACING_MS", 150, &errs),
		PacingMode:    getEnvWithDefault("PACING_MODE", PacingFixed),
		TuningFile:    getEnvWithDefault("TUNING_FILE", ""),
	}

	if c.PacingMode != PacingFixed && c.PacingMode != PacingLimited {
		errs = append(errs, fmt.Errorf("PACING_MODE must be %q or %q, got %q", PacingFixed, PacingLimited, c.PacingMode))
	}

	return c, errors.Join(errs...)
}

// mustGetEnv retrieves the value of an environment variable or records an error if not set.
func mustGetEnv(key string, errs *[]error) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Errorf("%w: %s", ErrMissingEnv, key))
	}
	return value
}

// getEnvAsInt retrieves an integer environment variable, falling back to defaultValue when unset.
func getEnvAsInt(key string, defaultValue int, errs *[]error) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("environment variable %s must be an integer: %w", key, err))
		return defaultValue
	}
	return value
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
