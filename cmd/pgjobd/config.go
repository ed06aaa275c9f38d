package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	LogLevel   string `yaml:"log_level"`
	WorkerName string `yaml:"worker_name"`

	Postgres struct {
		Conn string `yaml:"conn"`
	} `yaml:"postgres"`

	// Redis is optional; when addr is empty the admission claim goes
	// through the job table instead.
	Redis struct {
		Addr    string `yaml:"addr"`
		LockTTL string `yaml:"lock_ttl"`
	} `yaml:"redis"`

	lockTTL time.Duration
}

func loadConfig(path string) (config, error) {
	cfg := config{LogLevel: "info"}

	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Postgres.Conn == "" {
		return config{}, fmt.Errorf("%s: postgres.conn is required", path)
	}

	cfg.lockTTL, err = parseDurationOrDefault("redis.lock_ttl", cfg.Redis.LockTTL, 10*time.Minute)
	if err != nil {
		return config{}, err
	}
	return cfg, nil
}

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
