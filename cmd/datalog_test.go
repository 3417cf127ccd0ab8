// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// ============================================================================
// File naming
// ============================================================================

func TestNextLogPath(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty dir", nil, "log_0.csv"},
		{"one log", []string{"log_0.csv"}, "log_1.csv"},
		{"gap", []string{"log_0.csv", "log_7.csv", "log_3.csv"}, "log_8.csv"},
		{"ignores other files", []string{"notes.txt", "log_x.csv", "log_2.csv.bak", "log_4.csv"}, "log_5.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.existing {
				if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := nextLogPath(dir)
			if err != nil {
				t.Fatalf("nextLogPath: %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("nextLogPath = %s, want %s", filepath.Base(got), tt.want)
			}
		})
	}
}

func TestNextLogPath_MissingDir(t *testing.T) {
	got, err := nextLogPath(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("nextLogPath: %v", err)
	}
	if filepath.Base(got) != "log_0.csv" {
		t.Errorf("got %s", got)
	}
}

// ============================================================================
// Writing
// ============================================================================

func TestCSVDataLogger_CreatesLazily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := newCSVDataLogger(dir, nil)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("log dir created without any rows")
	}
}

func TestCSVDataLogger_Rows(t *testing.T) {
	dir := t.TempDir()
	l := newCSVDataLogger(dir, nil)

	l.Log(1500, 0x360, haltech.ChannelRPM, 3000)
	l.Log(1500, 0x360, haltech.ChannelManifoldPressure, 101.3)
	l.Log(2000, 0x3E0, haltech.ChannelCoolantTemperature, -12.5)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "log_0.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"micros,can_id,value",
		"1500,0x360,3000.000",
		"1500,0x360,101.300",
		"2000,0x3E0,-12.500",
		"",
	}, "\n")
	if string(data) != want {
		t.Errorf("file contents:\n%s\nwant:\n%s", data, want)
	}
	if l.Rows() != 3 {
		t.Errorf("Rows = %d, want 3", l.Rows())
	}
}

func TestCSVDataLogger_FlushesEverySecond(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1700000000, 0)
	l := newCSVDataLogger(dir, nil)
	l.now = func() time.Time { return now }
	defer l.Close()

	l.Log(0, 0x360, haltech.ChannelRPM, 1)
	path := filepath.Join(dir, "log_0.csv")
	if data, _ := os.ReadFile(path); len(data) != 0 {
		t.Errorf("rows visible before flush: %q", data)
	}

	now = now.Add(time.Second)
	l.Log(1000000, 0x360, haltech.ChannelRPM, 2)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Errorf("lines after flush = %d, want 3", got)
	}
}

func TestCSVDataLogger_NewFilePerSession(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l := newCSVDataLogger(dir, nil)
		l.Log(0, 0x360, haltech.ChannelRPM, 1)
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"log_0.csv", "log_1.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestCSVDataLogger_DisablesAfterFailure(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocked")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	l := newCSVDataLogger(blocker, nil)
	l.Log(0, 0x360, haltech.ChannelRPM, 1)
	l.Log(1, 0x360, haltech.ChannelRPM, 2)
	if l.Rows() != 0 {
		t.Errorf("Rows = %d, want 0", l.Rows())
	}
	if !l.failed {
		t.Error("logger should be disabled")
	}
}
