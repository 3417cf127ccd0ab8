// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dash runs the dashboard buttons on top of the haltech decoder: slot
// press and toggle state, unit conversion for display, alert evaluation with a
// shared beep and flash cadence, persistence of the slot layout, and the
// cooperative loop that ties the bus to all of it.
//
// All state is owned by one goroutine. Other goroutines talk to the Engine
// through its request methods and receive read-only snapshots.
package dash

import (
	"fmt"
	"log"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// Renderer draws one slot. It must not call back into the runtime.
type Renderer interface {
	DrawSlot(index int, text string, inverted bool)
}

// Runtime holds every slot and the shared oscillator.
type Runtime struct {
	table  *haltech.Table
	osc    *Oscillator
	slots  [NumSlots]Slot
	stats  *haltech.Statistics
	logger *log.Logger

	reported map[[2]haltech.Unit]bool
}

// NewRuntime creates a runtime loaded with the default layout. stats and
// logger may be nil.
func NewRuntime(table *haltech.Table, osc *Oscillator, stats *haltech.Statistics, logger *log.Logger) *Runtime {
	if osc == nil {
		osc = NewOscillator()
	}
	r := &Runtime{
		table:    table,
		osc:      osc,
		stats:    stats,
		logger:   logger,
		reported: make(map[[2]haltech.Unit]bool),
	}
	r.Apply(DefaultLayout())
	return r
}

// Table returns the signal table the slots read from.
func (r *Runtime) Table() *haltech.Table { return r.table }

// Oscillator returns the shared oscillator.
func (r *Runtime) Oscillator() *Oscillator { return r.osc }

// Apply replaces every slot's configuration, validating each one. Runtime
// press state is kept.
func (r *Runtime) Apply(cfgs [NumSlots]SlotConfig) {
	for i := range cfgs {
		r.slots[i].SlotConfig = r.sanitize(i, cfgs[i])
	}
}

// Configs returns the persisted part of every slot.
func (r *Runtime) Configs() [NumSlots]SlotConfig {
	var out [NumSlots]SlotConfig
	for i := range r.slots {
		out[i] = r.slots[i].SlotConfig
	}
	return out
}

// sanitize enforces the slot invariants: the channel exists, the unit can be
// reached from the channel's canonical unit, and decimals and mode are in
// range. A missing channel falls back to the default slot.
func (r *Runtime) sanitize(i int, c SlotConfig) SlotConfig {
	if !r.table.Valid(c.Channel) {
		if r.logger != nil {
			r.logger.Printf("slot %d: unknown channel %d, using default", i+1, c.Channel)
		}
		c = DefaultLayout()[i]
	}
	sig, _ := r.table.Signal(c.Channel)
	if !haltech.Compatible(sig.Unit, c.Unit) {
		c.Unit = sig.Unit
	}
	if c.Decimals > haltech.MaxDecimals {
		c.Decimals = haltech.MaxDecimals
	}
	if !c.Mode.Valid() {
		c.Mode = ModeMomentary
	}
	return c
}

// Slot returns a copy of slot i.
func (r *Runtime) Slot(i int) Slot {
	return r.slots[i]
}

// Press feeds one touch poll to slot i.
func (r *Runtime) Press(i int, touching bool, nowMs uint64) {
	r.slots[i].Press(touching, nowMs)
}

// ButtonStates returns the effective state of every slot for the status frame.
func (r *Runtime) ButtonStates() [haltech.NumSlots]bool {
	var out [haltech.NumSlots]bool
	for i := range r.slots {
		out[i] = r.slots[i].State()
	}
	return out
}

// Refresh advances the oscillator, converts every bound channel to its display
// unit and evaluates the alerts.
func (r *Runtime) Refresh(nowMs uint64) {
	r.osc.Update(nowMs)
	for i := range r.slots {
		r.refreshSlot(i, nowMs)
	}
}

func (r *Runtime) refreshSlot(i int, nowMs uint64) {
	s := &r.slots[i]
	ch, ok := r.table.Get(s.Channel)
	if !ok || !ch.Seen() {
		s.valid = false
		s.alert = false
		s.stale = false
		return
	}

	v, err := haltech.Convert(ch.Value, ch.Unit, s.Unit)
	if err != nil {
		r.reportConversion(ch.Unit, s.Unit, err)
	}
	s.value = v
	s.valid = true
	s.stale = ch.Stale(nowMs)
	s.EvaluateAlert(v)
}

func (r *Runtime) reportConversion(from, to haltech.Unit, err error) {
	if r.stats != nil {
		r.stats.UnsupportedConversions++
	}
	key := [2]haltech.Unit{from, to}
	if r.logger != nil && !r.reported[key] {
		r.reported[key] = true
		r.logger.Printf("display: %v", err)
	}
}

// BeepRequested reports whether any beep-enabled slot is in alert.
func (r *Runtime) BeepRequested() bool {
	for i := range r.slots {
		if r.slots[i].AlertBeep && r.slots[i].alert {
			return true
		}
	}
	return false
}

// BeepOutput is the shared beeper drive: on while any slot requests it and the
// beep wave is high.
func (r *Runtime) BeepOutput() bool {
	return r.osc.Beep() && r.BeepRequested()
}

// Inverted reports whether slot i should be drawn inverted right now.
func (r *Runtime) Inverted(i int) bool {
	s := &r.slots[i]
	return s.AlertFlash && s.alert && r.osc.Flash()
}

// Text returns the formatted value of slot i, or "--" before the channel has
// produced one.
func (r *Runtime) Text(i int) string {
	s := &r.slots[i]
	if !s.valid {
		return "--"
	}
	return haltech.FormatValue(s.value, s.Decimals)
}

// Render draws every slot.
func (r *Runtime) Render(rd Renderer) {
	for i := range r.slots {
		rd.DrawSlot(i, r.Text(i), r.Inverted(i))
	}
}

// Label returns the short channel name and unit label of slot i.
func (r *Runtime) Label(i int) (name, unit string) {
	sig, ok := r.table.Signal(r.slots[i].Channel)
	if !ok {
		return fmt.Sprintf("Channel %d", r.slots[i].Channel), ""
	}
	return sig.ShortName, r.slots[i].Unit.String()
}
