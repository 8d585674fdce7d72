package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trademon/trademon/internal/secret"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[engine]
data_dir = "/var/lib/trademon/data"
bin_dir = "/usr/lib/postgresql/16/bin"
port = 5434
user = "monitor"
password = "plain"
database = "accounts"
start_timeout = "20s"
stop_wait = "8s"

[log]
level = "debug"
dir = "/var/log/trademon"
max_size_mb = 20

[history]
sinks = ["sqlite:///var/lib/trademon/history.db", "clickhouse://ch:9000?table=engine_history"]

[server]
listen = "127.0.0.1:9090"

[mirror]
store_path = "/var/lib/tradingengine/trades.db"

[gateway]
base_url = "http://127.0.0.1:7000"
timeout = "3s"

[metrics]
enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.DataDir != "/var/lib/trademon/data" || cfg.Engine.Port != 5434 {
		t.Fatalf("engine config: %+v", cfg.Engine)
	}
	if cfg.Engine.StartTimeout != 20*time.Second || cfg.Engine.StopWait != 8*time.Second {
		t.Fatalf("durations: %+v", cfg.Engine)
	}
	if cfg.Log.Level != "debug" || cfg.Log.MaxSizeMB != 20 {
		t.Fatalf("log config: %+v", cfg.Log)
	}
	if len(cfg.History.Sinks) != 2 {
		t.Fatalf("history sinks: %+v", cfg.History.Sinks)
	}
	if cfg.Server.Listen != "127.0.0.1:9090" {
		t.Fatalf("server listen: %q", cfg.Server.Listen)
	}
	if cfg.Mirror.StorePath == "" || cfg.Gateway.BaseURL == "" || cfg.Gateway.Timeout != 3*time.Second {
		t.Fatalf("collaborators: %+v %+v", cfg.Mirror, cfg.Gateway)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics should be enabled")
	}
}

func TestLoadDefaultsListen(t *testing.T) {
	path := writeConfig(t, `
[engine]
data_dir = "/tmp/data"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:8085" {
		t.Fatalf("default listen = %q", cfg.Server.Listen)
	}
}

func TestLoadMissingDataDir(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:9090"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing engine.data_dir")
	}
}

func TestLoadPortOutOfRange(t *testing.T) {
	path := writeConfig(t, `
[engine]
data_dir = "/tmp/data"
port = 70000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestLoadMutuallyExclusivePasswords(t *testing.T) {
	path := writeConfig(t, `
[engine]
data_dir = "/tmp/data"
password = "a"
password_encrypted = "b"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for both password fields set")
	}
}

func TestLoadEncryptedPassword(t *testing.T) {
	t.Setenv(secret.EnvKey, "config-test-key")
	enc, err := secret.Encrypt("s3cret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	path := writeConfig(t, `
[engine]
data_dir = "/tmp/data"
password_encrypted = "`+enc+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Password != "s3cret" {
		t.Fatalf("decrypted password = %q", cfg.Engine.Password)
	}
}

func TestLoadEncryptedPasswordWithoutKey(t *testing.T) {
	t.Setenv(secret.EnvKey, "config-test-key")
	enc, err := secret.Encrypt("s3cret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	t.Setenv(secret.EnvKey, "")

	path := writeConfig(t, `
[engine]
data_dir = "/tmp/data"
password_encrypted = "`+enc+`"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when decryption key is absent")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
