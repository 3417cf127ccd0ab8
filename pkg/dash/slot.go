// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"fmt"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// Mode selects how a slot reports presses on the bus.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeMomentary
	ModeToggle

	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "None"
	case ModeMomentary:
		return "Momentary"
	case ModeToggle:
		return "Toggle"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m < numModes
}

// SlotConfig is the persisted part of a slot. Integer keys keep the encoding
// compact and let older layouts decode with missing fields left at zero.
type SlotConfig struct {
	Channel    haltech.ChannelID `cbor:"0,keyasint"`
	Unit       haltech.Unit      `cbor:"1,keyasint"`
	Decimals   uint8             `cbor:"2,keyasint"`
	Mode       Mode              `cbor:"3,keyasint"`
	AlertMin   float32           `cbor:"4,keyasint"`
	AlertMax   float32           `cbor:"5,keyasint"`
	AlertBeep  bool              `cbor:"6,keyasint"`
	AlertFlash bool              `cbor:"7,keyasint"`
}

// Slot is one on-screen button: its configuration plus press and alert state.
type Slot struct {
	SlotConfig

	pressed         bool
	previousPressed bool
	toggled         bool
	pressedAtMs     uint64

	alert bool
	value float32 // in the display unit
	valid bool    // channel has produced a value
	stale bool
}

// Press records one touch poll. A toggle slot flips on the poll after a rising
// edge, so it flips exactly once per press however long the press is held.
func (s *Slot) Press(touching bool, nowMs uint64) {
	if s.Mode == ModeToggle && s.JustPressed() {
		s.toggled = !s.toggled
	}
	s.previousPressed = s.pressed
	s.pressed = touching
	if s.pressed && !s.previousPressed {
		s.pressedAtMs = nowMs
	}
}

// JustPressed reports a rising edge on the last poll.
func (s Slot) JustPressed() bool {
	return s.pressed && !s.previousPressed
}

// JustReleased reports a falling edge on the last poll.
func (s Slot) JustReleased() bool {
	return !s.pressed && s.previousPressed
}

func (s Slot) Pressed() bool { return s.pressed }
func (s Slot) Toggled() bool { return s.toggled }

// State is what the slot reports on the bus.
func (s Slot) State() bool {
	if s.Mode == ModeToggle {
		return s.toggled
	}
	return s.pressed
}

// HeldFor returns how long the current press has lasted, or 0 when released.
func (s Slot) HeldFor(nowMs uint64) uint64 {
	if !s.pressed || nowMs < s.pressedAtMs {
		return 0
	}
	return nowMs - s.pressedAtMs
}

// LongPressed reports a press held past haltech.LongPressMs. Acting on it is
// up to the caller.
func (s Slot) LongPressed(nowMs uint64) bool {
	return s.HeldFor(nowMs) > haltech.LongPressMs
}

// EvaluateAlert sets and returns the alert flag for a display value. The
// bounds are exclusive and there is no hysteresis.
func (s *Slot) EvaluateAlert(v float32) bool {
	s.alert = v > s.AlertMax || v < s.AlertMin
	return s.alert
}

// Alert reports the last evaluated alert condition.
func (s Slot) Alert() bool { return s.alert }

// Value returns the last display value and whether the channel has produced
// one yet.
func (s Slot) Value() (float32, bool) { return s.value, s.valid }
