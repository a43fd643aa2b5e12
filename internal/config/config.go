// Package config loads sandbox configuration from the environment and an
// optional YAML file. Precedence: environment > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// NEAR_SANDBOX_TIMEOUT for the readiness timeout.
const EnvPrefix = "NEAR_SANDBOX"

// Config is the root configuration.
type Config struct {
	// Timeout is the readiness polling budget in seconds. It bypasses
	// strict decoding so a non-numeric value degrades to the default
	// instead of failing the whole load.
	Timeout int `mapstructure:"-" yaml:"timeout"`

	RPC  RPCConfig        `mapstructure:"rpc" yaml:"rpc"`
	Bin  BinConfig        `mapstructure:"bin" yaml:"bin"`
	Home HomeConfig       `mapstructure:"home" yaml:"home"`
	Log  logger.LogConfig `mapstructure:"log" yaml:"log"`
}

// RPCConfig configures the node's RPC interface.
type RPCConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
}

// BinConfig configures node binary resolution.
type BinConfig struct {
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
	Version string `mapstructure:"version" yaml:"version,omitempty"`
}

// HomeConfig configures working-directory handling.
type HomeConfig struct {
	// Keep leaves the home directory on disk after teardown.
	Keep bool `mapstructure:"keep" yaml:"keep"`
}

// ReadinessTimeout returns the readiness polling budget as a duration. A
// missing or non-numeric setting falls back to the default of 10 seconds.
func (c *Config) ReadinessTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine; anything else (malformed YAML,
			// permission denied) is not.
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", expanded, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// GetInt casts leniently: "soon" becomes 0, which ReadinessTimeout
	// treats as unset.
	cfg.Timeout = v.GetInt("timeout")
	return &cfg, nil
}

// SaveTo writes cfg to path as YAML, creating parent directories.
func SaveTo(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
