package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type logConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	SeedCache        string    `yaml:"seedCache"`
	Logs             logConfig `yaml:"logs"`
	Workers          int       `yaml:"workers"`
	MaxIssues        int       `yaml:"maxIssues"`
	RegenerateHeader bool      `yaml:"regenerateHeader"`
	JSON             bool      `yaml:"json"`
}

func defaultConfig() config {
	return config{
		Logs: logConfig{MaxSizeMB: 50, MaxAgeDays: 30, MaxBackups: 5},
	}
}

// loadConfig reads a YAML config file. Relative paths in it are resolved
// against the file's directory. A missing file is an error only when
// required is set.
func loadConfig(path string, required bool) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.SeedCache = resolvePath(cfg.SeedCache)
	cfg.Logs.File = resolvePath(cfg.Logs.File)

	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("config %s: workers must not be negative", path)
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 50
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cfg *config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "workers":
			cfg.Workers, err = flags.GetInt(f.Name)
		case "max-issues":
			cfg.MaxIssues, err = flags.GetInt(f.Name)
		case "json":
			cfg.JSON, err = flags.GetBool(f.Name)
		case "log-file":
			cfg.Logs.File, err = flags.GetString(f.Name)
		case "seeds":
			cfg.SeedCache, err = flags.GetString(f.Name)
		case "regenerate-header":
			cfg.RegenerateHeader, err = flags.GetBool(f.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}
