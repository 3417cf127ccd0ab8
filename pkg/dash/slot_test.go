// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"testing"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

func TestSlotToggleOncePerPress(t *testing.T) {
	s := Slot{SlotConfig: SlotConfig{Mode: ModeToggle}}

	// Held for many polls: exactly one flip.
	now := uint64(0)
	for i := 0; i < 20; i++ {
		s.Press(true, now)
		now += 50
	}
	if !s.Toggled() {
		t.Fatal("expected toggled after first press")
	}
	s.Press(false, now)
	s.Press(false, now+50)
	if !s.State() {
		t.Error("toggle state should survive release")
	}

	for i := 0; i < 5; i++ {
		now += 50
		s.Press(true, now)
	}
	if s.Toggled() {
		t.Error("second press should clear toggle")
	}
}

func TestSlotMomentaryState(t *testing.T) {
	for _, mode := range []Mode{ModeMomentary, ModeNone} {
		t.Run(mode.String(), func(t *testing.T) {
			s := Slot{SlotConfig: SlotConfig{Mode: mode}}
			s.Press(true, 10)
			if !s.State() || !s.JustPressed() {
				t.Error("expected pressed state on rising edge")
			}
			s.Press(true, 20)
			if s.JustPressed() {
				t.Error("JustPressed should only hold for one poll")
			}
			s.Press(false, 30)
			if s.State() || !s.JustReleased() {
				t.Error("expected released state on falling edge")
			}
			if s.Toggled() {
				t.Error("non-toggle slot must never toggle")
			}
		})
	}
}

func TestSlotLongPress(t *testing.T) {
	s := Slot{SlotConfig: SlotConfig{Mode: ModeMomentary}}
	s.Press(true, 1000)
	s.Press(true, 2000)
	if s.LongPressed(2000) {
		t.Error("exactly the threshold is not a long press")
	}
	if !s.LongPressed(2001) {
		t.Error("expected long press past the threshold")
	}
	if got := s.HeldFor(1500); got != 500 {
		t.Errorf("HeldFor = %d, want 500", got)
	}
	s.Press(false, 2100)
	if s.HeldFor(2200) != 0 || s.LongPressed(5000) {
		t.Error("released slot has no hold time")
	}
}

func TestSlotEvaluateAlert(t *testing.T) {
	s := Slot{SlotConfig: SlotConfig{AlertMin: -15, AlertMax: 15}}
	tests := []struct {
		value float32
		want  bool
	}{
		{16, true},
		{14.999, false},
		{15, false},
		{-15, false},
		{-15.5, true},
		{0, false},
	}
	for _, tt := range tests {
		if got := s.EvaluateAlert(tt.value); got != tt.want {
			t.Errorf("EvaluateAlert(%v) = %v, want %v", tt.value, got, tt.want)
		}
		if s.Alert() != tt.want {
			t.Errorf("Alert() after %v = %v", tt.value, s.Alert())
		}
	}
}

func TestSlotDisabledAlertNeverFires(t *testing.T) {
	s := Slot{SlotConfig: defaultSlot(haltech.ChannelRPM, haltech.UnitRPM, 0)}
	for _, v := range []float32{-1e30, 0, 1e30} {
		if s.EvaluateAlert(v) {
			t.Errorf("disabled bounds alerted at %v", v)
		}
	}
}

func TestOscillator(t *testing.T) {
	o := NewOscillator()
	if o.Beep() || o.Flash() {
		t.Fatal("oscillator starts low")
	}

	o.Update(100)
	if !o.Beep() || o.Flash() {
		t.Errorf("at 100 ms: beep=%v flash=%v, want true false", o.Beep(), o.Flash())
	}
	o.Update(150)
	if !o.Beep() {
		t.Error("beep should hold until a full period has elapsed")
	}
	o.Update(200)
	if o.Beep() || !o.Flash() {
		t.Errorf("at 200 ms: beep=%v flash=%v, want false true", o.Beep(), o.Flash())
	}
	o.Update(400)
	if !o.Beep() || o.Flash() {
		t.Errorf("at 400 ms: beep=%v flash=%v, want true false", o.Beep(), o.Flash())
	}
}
