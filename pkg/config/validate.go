// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/SpencerGraffunder/NuclearDash/pkg/slcan"
)

// Validate checks a normalized configuration. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Bus.Baud < 0 {
		return fmt.Errorf("bus: baud must be positive, got %d", cfg.Bus.Baud)
	}
	if _, err := slcan.BitrateCode(cfg.Bus.Bitrate); err != nil {
		return fmt.Errorf("bus: %w", err)
	}

	t := cfg.Timing
	positive := []struct {
		name  string
		value int
	}{
		{"keep_alive_ms", t.KeepAliveMs},
		{"button_status_ms", t.ButtonStatusMs},
		{"preempt_budget_ms", t.PreemptBudgetMs},
		{"bringup_retry_ms", t.BringupRetryMs},
		{"bringup_attempts", t.BringupAttempts},
		{"refresh_ms", t.RefreshMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("timing: %s must be positive, got %d", p.name, p.value)
		}
	}

	// The drain slice must leave room for the fastest periodic frame.
	if t.PreemptBudgetMs > t.KeepAliveMs {
		return fmt.Errorf(
			"timing: preempt_budget_ms (%d) exceeds keep_alive_ms (%d)",
			t.PreemptBudgetMs,
			t.KeepAliveMs,
		)
	}

	if cfg.Datalog.Enabled && cfg.Datalog.Dir == "" {
		return fmt.Errorf("datalog: enabled without a dir")
	}
	return nil
}
