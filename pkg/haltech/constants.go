// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package haltech decodes the Haltech ECU CAN broadcast into named, unit-scaled
// channels and produces the frames a keypad on the same bus is expected to send.
//
// The package covers the static signal table, the frame decoder with freshness
// tracking, the fixed unit converter, the periodic keep-alive and button-status
// transmitter, and the keypad enumeration responder. Everything here is
// synchronous and allocation-free on the hot path; callers drive it from a single
// loop and pass the current time in milliseconds.
package haltech

// Keypad identity on the bus. The keypad is CANopen node 0x0C.
const (
	KeypadNodeID = 0x0C

	// KeypadQueryID carries SDO requests from the ECU to the keypad.
	KeypadQueryID = 0x600 + KeypadNodeID
	// KeypadResponseID carries SDO responses from the keypad.
	KeypadResponseID = 0x580 + KeypadNodeID
	// KeepAliveID carries the heartbeat.
	KeepAliveID = 0x700 + KeypadNodeID
	// ButtonStatusID carries the button bit field (TPDO1).
	ButtonStatusID = 0x180 + KeypadNodeID
)

// Heartbeat payload: NMT state operational.
const KeepAliveState = 0x05

// Default transmit intervals in milliseconds.
const (
	DefaultKeepAliveIntervalMs    = 150
	DefaultButtonStatusIntervalMs = 30
)

// Frame geometry.
const (
	MaxDataLength      = 8
	ButtonStatusLength = 3
	KeepAliveLength    = 1
	KeypadLength       = 8
)

// Identifier ranges.
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
)

// LongPressMs is how long a slot must be held before the UI treats it as a
// long press.
const LongPressMs = 1000

// NumSlots is the number of on-screen buttons (4x4 grid) and the number of bits
// carried in the two button-status bytes.
const NumSlots = 16

// Staleness factor: a channel is late when its update gap exceeds this many
// expected periods.
const staleFactor = 2
