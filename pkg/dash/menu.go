// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"fmt"
	"math"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// MenuAction is one edit available while a slot is being configured.
type MenuAction int

const (
	ActionAlertMinDown MenuAction = iota
	ActionAlertMinUp
	ActionAlertMaxDown
	ActionAlertMaxUp
	ActionAlertMinClear
	ActionAlertMaxClear
	ActionBeepOff
	ActionBeepOn
	ActionFlashOff
	ActionFlashOn
	ActionDecimalsDown
	ActionDecimalsUp
	ActionUnitsBack
	ActionUnitsForward
	ActionModeNone
	ActionModeMomentary
	ActionModeToggle
)

var actionNames = map[MenuAction]string{
	ActionAlertMinDown:  "ALERT_MIN_DOWN",
	ActionAlertMinUp:    "ALERT_MIN_UP",
	ActionAlertMaxDown:  "ALERT_MAX_DOWN",
	ActionAlertMaxUp:    "ALERT_MAX_UP",
	ActionAlertMinClear: "ALERT_MIN_CLEAR",
	ActionAlertMaxClear: "ALERT_MAX_CLEAR",
	ActionBeepOff:       "BEEP_OFF",
	ActionBeepOn:        "BEEP_ON",
	ActionFlashOff:      "FLASH_OFF",
	ActionFlashOn:       "FLASH_ON",
	ActionDecimalsDown:  "DECIMALS_DOWN",
	ActionDecimalsUp:    "DECIMALS_UP",
	ActionUnitsBack:     "UNITS_BACK",
	ActionUnitsForward:  "UNITS_FORWARD",
	ActionModeNone:      "MODE_NONE",
	ActionModeMomentary: "MODE_MOMENTARY",
	ActionModeToggle:    "MODE_TOGGLE",
}

func (a MenuAction) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("ACTION_%d", int(a))
}

// Edit applies a menu action to slot i and reports whether the persisted
// configuration changed.
func (r *Runtime) Edit(i int, action MenuAction) bool {
	if i < 0 || i >= NumSlots {
		return false
	}
	s := &r.slots[i]
	before := s.SlotConfig

	switch action {
	case ActionAlertMinDown:
		s.AlertMin = r.stepAlert(s, s.AlertMin, -1)
	case ActionAlertMinUp:
		s.AlertMin = r.stepAlert(s, s.AlertMin, 1)
	case ActionAlertMaxDown:
		s.AlertMax = r.stepAlert(s, s.AlertMax, -1)
	case ActionAlertMaxUp:
		s.AlertMax = r.stepAlert(s, s.AlertMax, 1)
	case ActionAlertMinClear:
		s.AlertMin = AlertDisabledMin
	case ActionAlertMaxClear:
		s.AlertMax = AlertDisabledMax
	case ActionBeepOff:
		s.AlertBeep = false
	case ActionBeepOn:
		s.AlertBeep = true
	case ActionFlashOff:
		s.AlertFlash = false
	case ActionFlashOn:
		s.AlertFlash = true
	case ActionDecimalsDown:
		if s.Decimals > 0 {
			s.Decimals--
		}
	case ActionDecimalsUp:
		if s.Decimals < haltech.MaxDecimals {
			s.Decimals++
		}
	case ActionUnitsBack:
		r.ChangeUnits(i, -1)
	case ActionUnitsForward:
		r.ChangeUnits(i, 1)
	case ActionModeNone:
		s.Mode = ModeNone
	case ActionModeMomentary:
		s.Mode = ModeMomentary
	case ActionModeToggle:
		s.Mode = ModeToggle
	default:
		return false
	}
	return s.SlotConfig != before
}

// stepAlert moves a threshold by one unit of the slot's last displayed digit.
// A disabled threshold starts from the current value.
func (r *Runtime) stepAlert(s *Slot, current float32, direction int) float32 {
	step := float32(math.Pow10(-int(s.Decimals)))
	if current <= AlertDisabledMin || current >= AlertDisabledMax {
		if s.valid {
			return s.value
		}
		return 0
	}
	return current + float32(direction)*step
}

// ChangeUnits steps slot i through its channel's unit options, wrapping at
// both ends.
func (r *Runtime) ChangeUnits(i int, direction int) {
	s := &r.slots[i]
	sig, ok := r.table.Signal(s.Channel)
	if !ok {
		return
	}
	s.Unit = haltech.NextUnit(sig.Unit, s.Unit, direction)
}

// SetChannel binds slot i to a channel and resets its unit to the channel's
// canonical unit.
func (r *Runtime) SetChannel(i int, id haltech.ChannelID) error {
	sig, ok := r.table.Signal(id)
	if !ok {
		return fmt.Errorf("unknown channel %d", id)
	}
	s := &r.slots[i]
	s.Channel = id
	s.Unit = sig.Unit
	s.valid = false
	s.alert = false
	return nil
}

// SetAlertBounds sets both thresholds of slot i.
func (r *Runtime) SetAlertBounds(i int, min, max float32) error {
	if min > max {
		return fmt.Errorf("alert min %v above max %v", min, max)
	}
	r.slots[i].AlertMin = min
	r.slots[i].AlertMax = max
	return nil
}
