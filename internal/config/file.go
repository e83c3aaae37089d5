package config

import (
	"cmp"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML config file layout. Every field is optional;
// zero values fall through to the built-in defaults.
type fileConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`

	Storage struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
	} `toml:"storage"`

	Server fileServerConfig `toml:"server"`

	Live struct {
		RefreshRate  float64 `toml:"refresh_rate"`
		RefreshBurst int     `toml:"refresh_burst"`
	} `toml:"live"`

	RateLimit struct {
		RPS   float64 `toml:"rps"`
		Burst int     `toml:"burst"`
	} `toml:"rate_limit"`
}

type fileServerConfig struct {
	Port               int      `toml:"port"`
	ReadTimeout        string   `toml:"read_timeout"`
	WriteTimeout       string   `toml:"write_timeout"`
	IdleTimeout        string   `toml:"idle_timeout"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// storage layers the storage flags and environment over the file values.
func (f fileConfig) storage(flagBackend, flagPath string) StorageConfig {
	return StorageConfig{
		Backend: strings.ToLower(getConfigValue(flagBackend, "STORAGE_BACKEND", cmp.Or(f.Storage.Backend, BackendBadger))),
		Path:    getConfigValue(flagPath, "DATA_PATH", f.Storage.Path),
	}
}

func (s fileServerConfig) port() string {
	if s.Port == 0 {
		return ""
	}
	return strconv.Itoa(s.Port)
}

// loadFile reads the TOML config at path. An empty path yields an empty config.
func loadFile(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return cfg, nil
}
