// Package config loads tag store configuration from command-line flags,
// environment variables, .env files and an optional TOML file.
package config

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Live      LiveConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the database.
type StorageConfig struct {
	Backend string // badger (default) or sqlite
	Path    string // data directory; the sqlite file lives inside it
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        // default: 8080
	ReadTimeout        time.Duration // default: 15s
	WriteTimeout       time.Duration // default: 0, SSE streams are long-lived
	IdleTimeout        time.Duration // default: 60s
	CORSAllowedOrigins []string
}

// LiveConfig throttles live query re-runs.
type LiveConfig struct {
	// RefreshRate caps re-runs per subscription per second. Zero disables the cap.
	RefreshRate  float64
	RefreshBurst int
}

// RateLimitConfig limits mutating API requests per client IP.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. TOML config file.
// 5. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tagstore", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory holding the database")
	backend := fs.String("storage-backend", "", "Storage backend (badger, sqlite)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, unlimited)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-allowed-origins", "", "Comma-separated allowed CORS origins")

	liveRate := fs.String("live-refresh-rate", "", "Max live query re-runs per second (default: 0, unlimited)")
	liveBurst := fs.String("live-refresh-burst", "", "Burst for live query re-runs (default: 1)")
	rateRPS := fs.String("rate-limit-rps", "", "Mutating requests per second per client (default: 20)")
	rateBurst := fs.String("rate-limit-burst", "", "Burst for mutating requests (default: 40)")

	envFile := fs.String("env-file", ".env", "Path to .env file")
	configFile := fs.String("config", "", "Path to a TOML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Variables already in the environment win over the file; a missing file is fine.
	_ = godotenv.Load(*envFile)

	file, err := loadFile(getConfigValue(*configFile, "CONFIG_FILE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", cmp.Or(file.Env, "development")),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", cmp.Or(file.LogLevel, "info")),
		},
		Storage: file.storage(*backend, *dataPath),
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", cmp.Or(file.Server.port(), "8080")),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", cmp.Or(strings.Join(file.Server.CORSAllowedOrigins, ","), "*"))),
		},
	}

	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", cmp.Or(file.Server.ReadTimeout, "15s")); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", cmp.Or(file.Server.WriteTimeout, "0s")); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", cmp.Or(file.Server.IdleTimeout, "60s")); err != nil {
		return nil, err
	}
	if cfg.Live.RefreshRate, err = getFloatConfigValue(*liveRate, "LIVE_REFRESH_RATE", file.Live.RefreshRate); err != nil {
		return nil, err
	}
	cfg.Live.RefreshBurst = getIntConfigValue(*liveBurst, "LIVE_REFRESH_BURST", cmp.Or(file.Live.RefreshBurst, 1))
	if cfg.RateLimit.RPS, err = getFloatConfigValue(*rateRPS, "RATE_LIMIT_RPS", cmp.Or(file.RateLimit.RPS, 20)); err != nil {
		return nil, err
	}
	cfg.RateLimit.Burst = getIntConfigValue(*rateBurst, "RATE_LIMIT_BURST", cmp.Or(file.RateLimit.Burst, 40))

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadStorage resolves only the storage settings, for tools that open the
// store without running the server. backend and path act as flags; the
// remaining layers (environment, .env, TOML file, defaults) apply as in Load.
func LoadStorage(backend, path, envFile, configFile string) (StorageConfig, error) {
	_ = godotenv.Load(cmp.Or(envFile, ".env"))

	file, err := loadFile(getConfigValue(configFile, "CONFIG_FILE", ""))
	if err != nil {
		return StorageConfig{}, err
	}

	cfg := &Config{Storage: file.storage(backend, path)}
	if err := cfg.expandDataPath(); err != nil {
		return StorageConfig{}, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.validateStorage(); err != nil {
		return StorageConfig{}, err
	}
	return cfg.Storage, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Live.RefreshRate < 0 {
		return errors.New("live refresh rate cannot be negative")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}

	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Backend != BackendBadger && c.Storage.Backend != BackendSQLite {
		return fmt.Errorf("invalid storage backend: %q (must be badger or sqlite)", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, uses defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/Inkwell/tagstore.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.Path, filepath.Join(homeDir, "Inkwell", "tagstore"))
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return result, nil
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
