package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Storage:   StorageConfig{Backend: BackendBadger, Path: "/data"},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
	}
}

// noEnvFile points Load at a .env that does not exist so a developer's
// local file cannot leak into assertions.
func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

// unsetenv removes keys for the duration of the test. t.Setenv registers
// the restore; godotenv skips keys that are present even when empty.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "sqlite backend", mutate: func(c *Config) { c.Storage.Backend = BackendSQLite }},
		{name: "unknown env", mutate: func(c *Config) { c.App.Environment = "test" }, wantErr: true},
		{name: "env is case sensitive", mutate: func(c *Config) { c.App.Environment = "DEVELOPMENT" }, wantErr: true},
		{name: "upper case level", mutate: func(c *Config) { c.Logger.Level = "DEBUG" }},
		{name: "unknown level", mutate: func(c *Config) { c.Logger.Level = "verbose" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "postgres" }, wantErr: true},
		{name: "empty data path", mutate: func(c *Config) { c.Storage.Path = "" }, wantErr: true},
		{name: "negative refresh rate", mutate: func(c *Config) { c.Live.RefreshRate = -1 }, wantErr: true},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	unsetenv(t, "ENV", "LOG_LEVEL", "DATA_PATH", "STORAGE_BACKEND", "SERVER_PORT", "CORS_ALLOWED_ORIGINS",
		"LIVE_REFRESH_RATE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"SERVER_IDLE_TIMEOUT", "CONFIG_FILE")

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, "Inkwell", "tagstore"), cfg.Storage.Path)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Zero(t, cfg.Live.RefreshRate)
	assert.Equal(t, 20.0, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`
# local overrides
SERVER_PORT=7000
STORAGE_BACKEND="sqlite"
LIVE_REFRESH_RATE=4
`), 0o600))

	unsetenv(t, "SERVER_PORT", "STORAGE_BACKEND", "LIVE_REFRESH_RATE", "ENV", "CONFIG_FILE")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load([]string{
		"--env-file=" + envFile,
		"--data-path=" + filepath.Join(dir, "db"),
		"--log-level=debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level, "flag beats environment")
	assert.Equal(t, "7000", cfg.Server.Port, ".env fills unset variables")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 4.0, cfg.Live.RefreshRate)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, filepath.Join(dir, "db"), cfg.Storage.Path)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "tagstore.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
env = "staging"
log_level = "warn"

[storage]
backend = "sqlite"
path = "`+filepath.Join(dir, "data")+`"

[server]
port = 9090
read_timeout = "5s"
cors_allowed_origins = ["http://app.test"]

[live]
refresh_rate = 2.5
refresh_burst = 3

[rate_limit]
rps = 5
burst = 10
`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=7000\n"), 0o600))

	unsetenv(t, "ENV", "LOG_LEVEL", "DATA_PATH", "STORAGE_BACKEND", "SERVER_PORT", "CORS_ALLOWED_ORIGINS",
		"LIVE_REFRESH_RATE", "LIVE_REFRESH_BURST", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SERVER_READ_TIMEOUT",
		"CONFIG_FILE")
	t.Setenv("RATE_LIMIT_BURST", "12")

	cfg, err := Load([]string{"--env-file=" + envFile, "--config=" + tomlPath})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.Path)
	assert.Equal(t, "7000", cfg.Server.Port, ".env beats the config file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://app.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 2.5, cfg.Live.RefreshRate)
	assert.Equal(t, 3, cfg.Live.RefreshBurst)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 12, cfg.RateLimit.Burst, "environment beats the config file")
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	unsetenv(t, "CONFIG_FILE")

	_, err := Load([]string{noEnvFile(t), "--config=" + filepath.Join(dir, "missing.toml")})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server\nport = "), 0o600))
	_, err = Load([]string{noEnvFile(t), "--config=" + bad})
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "--read-timeout=soon"})
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "--storage-backend=mongo"})
		assert.Error(t, err)
	})

	t.Run("bad float", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "--rate-limit-rps=fast"})
		assert.Error(t, err)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "--library-path=/x"})
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/notes", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/a/b/../c", "")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", got)
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	assert.Equal(t, 12, getIntConfigValue("", "TEST_INT", 3))
	assert.Equal(t, 7, getIntConfigValue("7", "TEST_INT", 3))

	t.Setenv("TEST_INT", "many")
	assert.Equal(t, 3, getIntConfigValue("", "TEST_INT", 3))
}

func TestLoadStorage(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "tagstore.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[storage]
backend = "SQLite"
path = "`+filepath.Join(dir, "data")+`"
`), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATA_PATH="+filepath.Join(dir, "from-env")+"\n"), 0o600))

	t.Run("config file", func(t *testing.T) {
		unsetenv(t, "DATA_PATH", "STORAGE_BACKEND", "CONFIG_FILE")
		got, err := LoadStorage("", "", filepath.Join(dir, "missing.env"), tomlPath)
		require.NoError(t, err)
		assert.Equal(t, StorageConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "data")}, got)
	})

	t.Run("config file from environment", func(t *testing.T) {
		unsetenv(t, "DATA_PATH", "STORAGE_BACKEND")
		t.Setenv("CONFIG_FILE", tomlPath)
		got, err := LoadStorage("", "", filepath.Join(dir, "missing.env"), "")
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, got.Backend)
	})

	t.Run(".env beats the config file", func(t *testing.T) {
		unsetenv(t, "DATA_PATH", "STORAGE_BACKEND", "CONFIG_FILE")
		got, err := LoadStorage("", "", envFile, tomlPath)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "from-env"), got.Path)
	})

	t.Run("flags win", func(t *testing.T) {
		unsetenv(t, "DATA_PATH", "CONFIG_FILE")
		t.Setenv("STORAGE_BACKEND", "sqlite")
		got, err := LoadStorage("badger", filepath.Join(dir, "flag"), filepath.Join(dir, "missing.env"), tomlPath)
		require.NoError(t, err)
		assert.Equal(t, StorageConfig{Backend: BackendBadger, Path: filepath.Join(dir, "flag")}, got)
	})

	t.Run("invalid backend", func(t *testing.T) {
		unsetenv(t, "DATA_PATH", "STORAGE_BACKEND", "CONFIG_FILE")
		_, err := LoadStorage("mongo", dir, filepath.Join(dir, "missing.env"), "")
		assert.Error(t, err)
	})
}
