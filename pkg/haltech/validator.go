// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyInvalidID AnomalyType = iota
	AnomalyInvalidLength
	AnomalyLengthMismatch
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyInvalidID:
		return "INVALID_ID"
	case AnomalyInvalidLength:
		return "INVALID_LENGTH"
	case AnomalyLengthMismatch:
		return "LENGTH_MISMATCH"
	default:
		return fmt.Sprintf("ANOMALY_%d", int(a))
	}
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks the frame against CAN limits and, for ids the table
// knows, against the bytes its channels need. It returns nil for a clean
// frame. The frame is still decodable when only a length mismatch is found:
// the missing bytes read as zero.
func ValidateFrame(f Frame, table *Table) []ValidationError {
	if err := f.Validate(); err != nil {
		anomaly := AnomalyInvalidID
		if err == ErrInvalidLen {
			anomaly = AnomalyInvalidLength
		}
		return []ValidationError{{
			Type:    anomaly,
			Message: fmt.Sprintf("frame 0x%X: %v", f.ID, err),
			Details: map[string]interface{}{"id": f.ID, "len": f.Len, "extended": f.Extended},
		}}
	}

	if f.ID == KeypadQueryID && f.Len != KeypadLength {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("keypad query length mismatch (expected %d bytes, got %d)", KeypadLength, f.Len),
			Details: map[string]interface{}{"length": f.Len, "expected": KeypadLength},
		}}
	}

	if table == nil {
		return nil
	}
	var need uint8
	for _, id := range table.ChannelsForBusID(f.ID) {
		if end := table.channels[id].EndByte + 1; end > need {
			need = end
		}
	}
	if f.Len < need {
		return []ValidationError{{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("frame 0x%03X too short (expected at least %d bytes, got %d)", f.ID, need, f.Len),
			Details: map[string]interface{}{"length": f.Len, "minimum": need},
		}}
	}
	return nil
}
