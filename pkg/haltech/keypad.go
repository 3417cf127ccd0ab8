// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import "log"

// SDO command specifiers seen on the keypad query id.
const (
	sdoDownloadRequest = 0x22
	sdoDownloadAck     = 0x60
	sdoUploadRequest   = 0x42
	sdoUploadResponse  = 0x43
	sdoAbort           = 0x80
)

type sdoKey struct {
	index uint16
	sub   uint8
}

// Fill bytes 4..7 of an upload response, captured from a physical keypad.
// These are literal and must not be derived or extended.
var uploadFill = map[sdoKey][4]byte{
	{0x1018, 1}: {0x07, 0x03, 0x00, 0x00},
	{0x1018, 2}: {0x48, 0x33, 0x00, 0x00},
	{0x1018, 3}: {0x01, 0x00, 0x00, 0x00},
	{0x1018, 4}: {0xCF, 0xB8, 0x19, 0x0C},
	{0x1800, 1}: {0x8C, 0x01, 0x00, 0x40},
}

// Response to the zero-command probe ending in 0xC8.
var probeResponse = [8]byte{sdoAbort, 0x00, 0x00, 0x00, 0x01, 0x00, 0x04, 0x05}

const probeMarker = 0xC8

// KeypadResponse returns the 8-byte answer to a request on the keypad query
// id. Unrecognised requests are answered with all zeros, which is what the
// physical keypad sends, and ok is false.
func KeypadResponse(req [8]byte) (resp [8]byte, ok bool) {
	switch {
	case req[0] == sdoDownloadRequest:
		resp[0] = sdoDownloadAck
		copy(resp[1:4], req[1:4])
		return resp, true

	case req[0] == sdoUploadRequest:
		resp[0] = sdoUploadResponse
		copy(resp[1:4], req[1:4])
		key := sdoKey{index: uint16(req[1]) | uint16(req[2])<<8, sub: req[3]}
		fill, found := uploadFill[key]
		if found {
			copy(resp[4:8], fill[:])
		}
		return resp, found

	case req[0] == 0x00 && req[7] == probeMarker:
		return probeResponse, true
	}
	return resp, false
}

// KeypadResponder answers enumeration requests so the ECU accepts this
// device as its keypad.
type KeypadResponder struct {
	stats  *Statistics
	logger *log.Logger

	reported map[byte]bool
}

// NewKeypadResponder creates a responder. stats and logger may be nil.
func NewKeypadResponder(stats *Statistics, logger *log.Logger) *KeypadResponder {
	return &KeypadResponder{
		stats:    stats,
		logger:   logger,
		reported: make(map[byte]bool),
	}
}

// Handles reports whether f is addressed to the keypad.
func (k *KeypadResponder) Handles(f Frame) bool {
	return !f.Extended && f.ID == KeypadQueryID
}

// Respond builds the response frame for a request. A response is always
// produced, even for unrecognised requests.
func (k *KeypadResponder) Respond(req Frame) Frame {
	resp, ok := KeypadResponse(req.Padded())
	if k.stats != nil {
		k.stats.KeypadRequests++
		if !ok {
			k.stats.UnknownKeypadRequests++
		}
	}
	if !ok && k.logger != nil && !k.reported[req.Data[0]] {
		k.reported[req.Data[0]] = true
		k.logger.Printf("unrecognised keypad request % X", req.Payload())
	}
	return Frame{ID: KeypadResponseID, Len: KeypadLength, Data: resp}
}
