// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

func TestChannelRows(t *testing.T) {
	all := channelRows(haltech.Signals(), 0, false)
	if len(all) != len(haltech.Signals()) {
		t.Errorf("rows = %d, want %d", len(all), len(haltech.Signals()))
	}

	rows := channelRows(haltech.Signals(), 0x360, true)
	if len(rows) == 0 {
		t.Fatal("no rows for 0x360")
	}
	for _, row := range rows {
		if row[3] != "0x360" {
			t.Errorf("row for %s has id %s", row[1], row[3])
		}
	}
	if rows[0][4] != "0-1" {
		t.Errorf("RPM bytes = %s, want 0-1", rows[0][4])
	}

	if rows := channelRows(haltech.Signals(), 0x123, true); len(rows) != 0 {
		t.Errorf("unknown id produced %d rows", len(rows))
	}
}

func TestLayoutRows(t *testing.T) {
	rows := layoutRows(dash.DefaultLayout())
	if len(rows) != dash.NumSlots {
		t.Fatalf("rows = %d", len(rows))
	}

	coolant := rows[3]
	if coolant[0] != "4" || coolant[2] != "F" || coolant[4] != "Momentary" {
		t.Errorf("coolant row = %v", coolant)
	}
	if coolant[5] != "off" || coolant[6] != "220" || coolant[7] != "beep+flash" {
		t.Errorf("coolant alerts = %v", coolant[5:])
	}

	battery := rows[11]
	if battery[7] != "flash" || battery[6] != "off" {
		t.Errorf("battery row = %v", battery)
	}
}
