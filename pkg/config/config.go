// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the whole file.
type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	Timing  TimingConfig  `yaml:"timing"`
	Store   StoreConfig   `yaml:"store"`
	Datalog DatalogConfig `yaml:"datalog"`
	Relay   RelayConfig   `yaml:"relay"`
}

// ---- BUS ----

// BusConfig selects the transport. Port wins over URL when both are set.
type BusConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	Bitrate  int    `yaml:"bitrate"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Insecure bool   `yaml:"insecure"`
}

// ---- TIMING ----

type TimingConfig struct {
	KeepAliveMs     int `yaml:"keep_alive_ms"`
	ButtonStatusMs  int `yaml:"button_status_ms"`
	PreemptBudgetMs int `yaml:"preempt_budget_ms"`
	BringupRetryMs  int `yaml:"bringup_retry_ms"`
	BringupAttempts int `yaml:"bringup_attempts"`
	RefreshMs       int `yaml:"refresh_ms"`
}

// ---- STORE ----

type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// ---- DATALOG ----

type DatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ---- RELAY ----

type RelayConfig struct {
	Listen string `yaml:"listen"` // empty disables the relay
}

// Default values.
const (
	DefaultBaud            = 115200
	DefaultBitrate         = 1000000
	DefaultKeepAliveMs     = 150
	DefaultButtonStatusMs  = 30
	DefaultPreemptBudgetMs = 50
	DefaultBringupRetryMs  = 500
	DefaultBringupAttempts = 10
	DefaultRefreshMs       = 50
	DefaultStoreDir        = "."
	DefaultDatalogDir      = "logs"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Load reads and decodes path, then fills in defaults. Unknown keys are an
// error so typos do not pass silently.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	Normalize(cfg)
	return cfg, nil
}

// Normalize fills zero fields with defaults.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	setDefault(&cfg.Bus.Baud, DefaultBaud)
	setDefault(&cfg.Bus.Bitrate, DefaultBitrate)

	t := &cfg.Timing
	setDefault(&t.KeepAliveMs, DefaultKeepAliveMs)
	setDefault(&t.ButtonStatusMs, DefaultButtonStatusMs)
	setDefault(&t.PreemptBudgetMs, DefaultPreemptBudgetMs)
	setDefault(&t.BringupRetryMs, DefaultBringupRetryMs)
	setDefault(&t.BringupAttempts, DefaultBringupAttempts)
	setDefault(&t.RefreshMs, DefaultRefreshMs)

	if cfg.Store.Dir == "" {
		cfg.Store.Dir = DefaultStoreDir
	}
	if cfg.Datalog.Dir == "" {
		cfg.Datalog.Dir = DefaultDatalogDir
	}
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
