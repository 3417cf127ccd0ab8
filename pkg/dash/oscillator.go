// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

// Shared alert cadences in milliseconds.
const (
	BeepPeriodMs  = 100
	FlashPeriodMs = 200
)

// Oscillator holds the process-wide beep and flash square waves. Every slot
// reads the same phase.
type Oscillator struct {
	beepPeriodMs  uint64
	flashPeriodMs uint64

	beep, flash         bool
	lastBeep, lastFlash uint64
}

// NewOscillator creates an oscillator with the default cadences.
func NewOscillator() *Oscillator {
	return &Oscillator{beepPeriodMs: BeepPeriodMs, flashPeriodMs: FlashPeriodMs}
}

// Update advances both waves to nowMs.
func (o *Oscillator) Update(nowMs uint64) {
	if nowMs >= o.lastBeep && nowMs-o.lastBeep >= o.beepPeriodMs {
		o.beep = !o.beep
		o.lastBeep = nowMs
	}
	if nowMs >= o.lastFlash && nowMs-o.lastFlash >= o.flashPeriodMs {
		o.flash = !o.flash
		o.lastFlash = nowMs
	}
}

func (o *Oscillator) Beep() bool  { return o.beep }
func (o *Oscillator) Flash() bool { return o.flash }
