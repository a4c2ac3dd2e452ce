package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root    string   `yaml:"root"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"project"`
	Storage struct {
		DB string `yaml:"db"`
	} `yaml:"storage"`
	Rules struct {
		File    string        `yaml:"file"`
		Timeout time.Duration `yaml:"timeout"`
		Workers int           `yaml:"workers"`
	} `yaml:"rules"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Storage.DB = "archguard.db"
	cfg.Rules.File = "rules.yaml"
	cfg.Rules.Timeout = 30 * time.Second
	cfg.Rules.Workers = runtime.NumCPU()
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return &cfg
}

// LoadConfig reads path over the defaults, then applies ARCHGUARD_* environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Rules.Workers <= 0 {
		cfg.Rules.Workers = runtime.NumCPU()
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ARCHGUARD_DB"); v != "" {
		c.Storage.DB = v
	}
	if v := os.Getenv("ARCHGUARD_RULES"); v != "" {
		c.Rules.File = v
	}
	if v := os.Getenv("ARCHGUARD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ARCHGUARD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("ARCHGUARD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ARCHGUARD_TIMEOUT: %w", err)
		}
		c.Rules.Timeout = d
	}
	if v := os.Getenv("ARCHGUARD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARCHGUARD_WORKERS: %w", err)
		}
		c.Rules.Workers = n
	}
	return nil
}
