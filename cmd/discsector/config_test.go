package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "discsector.yaml")
	content := `workers: 3
maxIssues: 10
json: true
seedCache: seeds.gob.gz
logs:
  file: /var/log/discsector.log
  maxSizeMB: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Workers != 3 || cfg.MaxIssues != 10 || !cfg.JSON {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SeedCache != filepath.Join(dir, "seeds.gob.gz") {
		t.Errorf("SeedCache = %q, want it resolved against %q", cfg.SeedCache, dir)
	}
	if cfg.Logs.File != "/var/log/discsector.log" || cfg.Logs.MaxSizeMB != 50 || cfg.Logs.MaxBackups != 5 {
		t.Errorf("Logs = %+v", cfg.Logs)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := loadConfig(filepath.Join(dir, "missing.yaml"), true); err == nil {
		t.Error("expected error for missing required config")
	}
	if cfg, err := loadConfig(filepath.Join(dir, "missing.yaml"), false); err != nil || cfg.Logs.MaxBackups != 5 {
		t.Errorf("optional missing config = %+v, %v", cfg, err)
	}

	tests := map[string]string{
		"unknown key": "wrokers: 2\n",
		"negative":    "workers: -1\n",
		"not yaml":    "workers: [\n",
	}
	for name, content := range tests {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := loadConfig(path, true); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	flags.Int("max-issues", 0, "")
	flags.Bool("json", false, "")
	flags.String("log-file", "", "")
	flags.String("seeds", "", "")
	if err := flags.Parse([]string{"--workers", "8", "--seeds", "cache.gob.gz"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := defaultConfig()
	cfg.JSON = true
	cfg.MaxIssues = 7
	if err := applyFlags(&cfg, flags); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if cfg.Workers != 8 || cfg.SeedCache != "cache.gob.gz" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if !cfg.JSON || cfg.MaxIssues != 7 {
		t.Errorf("unset flags overrode config: %+v", cfg)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	logger, closer := newLogger(&stderr, logConfig{})
	logger.Print("hello")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "[discsector] ") || !strings.Contains(stderr.String(), "hello") {
		t.Errorf("log = %q", stderr.String())
	}

	file := filepath.Join(t.TempDir(), "discsector.log")
	logger, closer = newLogger(&stderr, logConfig{File: file, MaxSizeMB: 1, MaxBackups: 1})
	logger.Print("to file")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil || !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q, %v", data, err)
	}
}
