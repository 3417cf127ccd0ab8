// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"fmt"
	"time"
)

// Statistics counts bus traffic and every reportable event. It is written by
// the loop that owns the decoder and copied by value for display.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Inbound
	TotalFrames      uint64
	DecodedFrames    uint64
	UnknownFrames    uint64
	InvalidFrames    uint64
	LengthMismatches uint64
	LateUpdates      uint64

	// Keypad
	KeypadRequests        uint64
	UnknownKeypadRequests uint64

	// Outbound
	TxFrames  uint64
	TxErrors  uint64
	TxDropped uint64

	// Display
	UnsupportedConversions uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records an inbound frame and the anomalies found in it.
func (s *Statistics) Update(validationErrors []ValidationError) {
	s.TotalFrames++
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyInvalidID, AnomalyInvalidLength:
			s.InvalidFrames++
		case AnomalyLengthMismatch:
			s.LengthMismatches++
		}
	}
	s.LastUpdateTime = time.Now()
}

// Errors returns the number of inbound problems counted so far.
func (s *Statistics) Errors() uint64 {
	return s.InvalidFrames + s.LengthMismatches + s.LateUpdates + s.UnknownKeypadRequests + s.TxErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	pct := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Decoded Frames:  %8d (%.1f%%)\n", s.DecodedFrames, pct(s.DecodedFrames))

	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("Unknown IDs:     %8d (%.1f%%)\n", s.UnknownFrames, pct(s.UnknownFrames))
	}
	if s.InvalidFrames > 0 {
		result += fmt.Sprintf("Invalid Frames:  %8d (%.1f%%)\n", s.InvalidFrames, pct(s.InvalidFrames))
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Short Frames:    %8d (%.1f%%)\n", s.LengthMismatches, pct(s.LengthMismatches))
	}
	if s.LateUpdates > 0 {
		result += fmt.Sprintf("Late Updates:    %8d\n", s.LateUpdates)
	}
	if s.KeypadRequests > 0 {
		result += fmt.Sprintf("Keypad Requests: %8d", s.KeypadRequests)
		if s.UnknownKeypadRequests > 0 {
			result += fmt.Sprintf(" (%d unknown)", s.UnknownKeypadRequests)
		}
		result += "\n"
	}
	if s.TxFrames > 0 || s.TxErrors > 0 {
		result += fmt.Sprintf("Sent Frames:     %8d\n", s.TxFrames)
		if s.TxErrors > 0 {
			result += fmt.Sprintf("  Send Errors:      %5d\n", s.TxErrors)
		}
		if s.TxDropped > 0 {
			result += fmt.Sprintf("  Dropped:          %5d\n", s.TxDropped)
		}
	}
	if s.UnsupportedConversions > 0 {
		result += fmt.Sprintf("Bad Conversions: %8d\n", s.UnsupportedConversions)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}
