package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "s3cret")
	path := writeFile(t, "port: 9000\ntoken: ${SAMPLE_TOKEN}\n")

	cfg := sample{Name: "default", Port: 1}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 9000 || cfg.Token != "s3cret" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
	if err := Load(writeFile(t, "port: [\n"), &cfg); err == nil {
		t.Error("expected parse error")
	}
	err := Load(writeFile(t, "port: 0\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("validation err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 8080}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	if err != nil || read {
		t.Fatalf("missing file: read=%v err=%v", read, err)
	}
	if cfg.Port != 8080 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	read, err = LoadOptional(writeFile(t, "port: 81\n"), &cfg)
	if err != nil || !read || cfg.Port != 81 {
		t.Errorf("existing file: read=%v err=%v cfg=%+v", read, err, cfg)
	}

	bad := sample{}
	if _, err := LoadOptional("", &bad); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "port: 7\n")
	var cfg sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), def, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7 {
		t.Errorf("port = %d", cfg.Port)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), "", &cfg); err == nil {
		t.Error("expected not found error")
	}
}

func TestMustLoad_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	var cfg sample
	MustLoad(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
}
