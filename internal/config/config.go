// Package config loads the application's TOML configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/trademon/trademon/internal/logger"
	"github.com/trademon/trademon/internal/secret"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Engine  EngineConfig  `toml:"engine" mapstructure:"engine"`
	Log     logger.Config `toml:"log" mapstructure:"log"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Mirror  MirrorConfig  `toml:"mirror" mapstructure:"mirror"`
	Gateway GatewayConfig `toml:"gateway" mapstructure:"gateway"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

// EngineConfig describes the embedded database engine instance. Password may
// be given in the clear or, preferably, as a ciphertext produced by
// `trademon secret encrypt` in PasswordEncrypted, which is decrypted with
// the key from the environment at load time.
type EngineConfig struct {
	DataDir           string        `toml:"data_dir" mapstructure:"data_dir"`
	BinDir            string        `toml:"bin_dir" mapstructure:"bin_dir"`
	Port              int           `toml:"port" mapstructure:"port"`
	User              string        `toml:"user" mapstructure:"user"`
	Password          string        `toml:"password" mapstructure:"password"`
	PasswordEncrypted string        `toml:"password_encrypted" mapstructure:"password_encrypted"`
	Database          string        `toml:"database" mapstructure:"database"`
	StartTimeout      time.Duration `toml:"start_timeout" mapstructure:"start_timeout"`
	StopWait          time.Duration `toml:"stop_wait" mapstructure:"stop_wait"`
	ProbeWait         time.Duration `toml:"probe_wait" mapstructure:"probe_wait"`
	KillGrace         time.Duration `toml:"kill_grace" mapstructure:"kill_grace"`
}

// HistoryConfig lists lifecycle-audit sink DSNs. Supported schemes:
// sqlite://, postgres:// (also postgresql://) and clickhouse://.
type HistoryConfig struct {
	Sinks []string `toml:"sinks" mapstructure:"sinks"`
}

type ServerConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// MirrorConfig points at the trading engine's SQLite store.
type MirrorConfig struct {
	StorePath string `toml:"store_path" mapstructure:"store_path"`
}

// GatewayConfig points at the trading engine's HTTP endpoint.
type GatewayConfig struct {
	BaseURL string        `toml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
}

// Load parses the TOML file at path, validates it, and resolves the engine
// password when it was stored encrypted.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := fc.validate(); err != nil {
		return nil, err
	}
	if fc.Engine.PasswordEncrypted != "" {
		plain, err := secret.Decrypt(fc.Engine.PasswordEncrypted)
		if err != nil {
			return nil, fmt.Errorf("config: decrypt engine password: %w", err)
		}
		fc.Engine.Password = plain
	}
	return &fc, nil
}

func (fc *FileConfig) validate() error {
	if fc.Engine.DataDir == "" {
		return fmt.Errorf("config: engine.data_dir is required")
	}
	if fc.Engine.Port < 0 || fc.Engine.Port > 65535 {
		return fmt.Errorf("config: engine.port %d out of range", fc.Engine.Port)
	}
	if fc.Engine.Password != "" && fc.Engine.PasswordEncrypted != "" {
		return fmt.Errorf("config: engine.password and engine.password_encrypted are mutually exclusive")
	}
	if fc.Server.Listen == "" {
		fc.Server.Listen = "127.0.0.1:8085"
	}
	return nil
}
