package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nested struct {
	Port    string        `yaml:"port" env:"TEST_PORT"`
	Timeout time.Duration `yaml:"timeout" env:"TEST_TIMEOUT"`
	Enabled bool          `yaml:"enabled"`
}

type sample struct {
	Serial nested   `yaml:"serial"`
	Name   string   `yaml:"name"`
	Tags   []string `yaml:"tags" env:"TEST_TAGS"`
	Skip   string   `env:"-"`
}

type validated struct {
	DSN string `env:"TEST_DSN"`
}

func (v *validated) Validate() error {
	if v.DSN == "" {
		return errors.New("dsn required")
	}
	return nil
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(sample{}); err == nil {
		t.Fatalf("expected error for non-pointer target")
	}
	if err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for nil target")
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	doc := "name: bridge\nserial:\n  port: /dev/ttyACM0\n  timeout: 250ms\n  enabled: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(FileEnv, path)
	t.Setenv("TEST_PORT", "/dev/ttyUSB1")
	t.Setenv("TEST_TAGS", "a, b,,c")

	cfg := sample{Serial: nested{Timeout: time.Second}}
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Name != "bridge" {
		t.Fatalf("expected name from file, got %q", cfg.Name)
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" {
		t.Fatalf("expected env override for port, got %q", cfg.Serial.Port)
	}
	if cfg.Serial.Timeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms timeout, got %s", cfg.Serial.Timeout)
	}
	if !cfg.Serial.Enabled {
		t.Fatalf("expected enabled from file")
	}
	if len(cfg.Tags) != 3 || cfg.Tags[2] != "c" {
		t.Fatalf("unexpected tags %v", cfg.Tags)
	}
}

func TestLoadConfigDerivedKeysAndDurations(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("SERIAL_ENABLED", "true")
	t.Setenv("TEST_TIMEOUT", "40")

	var cfg sample
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Serial.Enabled {
		t.Fatalf("expected SERIAL_ENABLED to apply")
	}
	if cfg.Serial.Timeout != 40*time.Millisecond {
		t.Fatalf("expected bare integer as milliseconds, got %s", cfg.Serial.Timeout)
	}
}

func TestLoadConfigBadValue(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_TIMEOUT", "soon")

	var cfg sample
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigRunsValidator(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("TEST_DSN", "")

	if err := LoadConfig(&validated{}); err == nil {
		t.Fatalf("expected validation error")
	}

	t.Setenv("TEST_DSN", "postgres://localhost/cards")
	if err := LoadConfig(&validated{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
