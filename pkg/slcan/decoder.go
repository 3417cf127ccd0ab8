// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slcan

import (
	"errors"
	"fmt"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

var (
	// ErrAdapter is returned when the adapter answers a command with a bell.
	ErrAdapter = errors.New("slcan: adapter rejected command")
	// ErrOverflow is returned when a line grows past any valid frame.
	ErrOverflow = errors.New("slcan: line too long")
)

// Optional 16-bit timestamp some adapters append to received frames.
const timestampDigits = 4

// Decoder assembles adapter output into frames, one byte at a time.
type Decoder struct {
	line []byte
}

// NewDecoder creates a new line decoder
func NewDecoder() *Decoder {
	return &Decoder{line: make([]byte, 0, MaxLineLength+timestampDigits)}
}

// Reset discards any partial line.
func (d *Decoder) Reset() {
	d.line = d.line[:0]
}

// DecodeByte processes a single byte. It returns a frame when b completes a
// frame line, nil for acknowledgements and other adapter replies, and an error
// for adapter errors and malformed lines.
func (d *Decoder) DecodeByte(b byte) (*haltech.Frame, error) {
	switch b {
	case Bell:
		d.Reset()
		return nil, ErrAdapter
	case '\n':
		return nil, nil
	case CR:
		line := d.line
		d.Reset()
		return parseLine(line)
	}

	if len(d.line) >= MaxLineLength+timestampDigits {
		d.Reset()
		return nil, ErrOverflow
	}
	d.line = append(d.line, b)
	return nil, nil
}

// Decode feeds a buffer through the decoder and returns every complete frame.
// Decoding continues past bad lines; the last error is returned with the
// frames that did decode.
func (d *Decoder) Decode(data []byte) ([]haltech.Frame, error) {
	var frames []haltech.Frame
	var lastErr error
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			lastErr = err
			continue
		}
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames, lastErr
}

func parseLine(line []byte) (*haltech.Frame, error) {
	if len(line) == 0 {
		return nil, nil
	}

	var f haltech.Frame
	digits := stdIDDigits
	switch line[0] {
	case cmdStandard:
	case cmdExtended:
		f.Extended = true
		digits = extIDDigits
	case cmdRemote, cmdRemoteX:
		return nil, fmt.Errorf("slcan: remote frame %q not supported", line)
	default:
		// Transmit acknowledgements (z/Z), version and status replies
		return nil, nil
	}

	if len(line) < 1+digits+1 {
		return nil, fmt.Errorf("slcan: truncated frame %q", line)
	}
	id, err := parseHex(line[1 : 1+digits])
	if err != nil {
		return nil, fmt.Errorf("slcan: bad id in %q: %w", line, err)
	}
	f.ID = id

	dlc, err := parseHex(line[1+digits : 2+digits])
	if err != nil || dlc > haltech.MaxDataLength {
		return nil, fmt.Errorf("slcan: bad length in %q", line)
	}
	f.Len = uint8(dlc)

	data := line[2+digits:]
	n := 2 * int(f.Len)
	if len(data) != n && len(data) != n+timestampDigits {
		return nil, fmt.Errorf("slcan: %d data digits for length %d in %q", len(data), f.Len, line)
	}
	for i := 0; i < int(f.Len); i++ {
		v, err := parseHex(data[2*i : 2*i+2])
		if err != nil {
			return nil, fmt.Errorf("slcan: bad data in %q: %w", line, err)
		}
		f.Data[i] = byte(v)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("slcan: %q: %w", line, err)
	}
	return &f, nil
}

func parseHex(s []byte) (uint32, error) {
	var v uint32
	for _, c := range s {
		var n byte
		switch {
		case c >= '0' && c <= '9':
			n = c - '0'
		case c >= 'A' && c <= 'F':
			n = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			n = c - 'a' + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q", c)
		}
		v = v<<4 | uint32(n)
	}
	return v, nil
}
