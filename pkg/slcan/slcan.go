// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package slcan implements the Lawicel ASCII protocol spoken by USB serial CAN
// adapters: a line per frame, terminated by a carriage return.
//
//	t<iii><l><dd...>\r       standard frame
//	T<iiiiiiii><l><dd...>\r  extended frame
package slcan

import (
	"fmt"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// Line framing
const (
	CR   = '\r'
	Bell = '\a' // adapter error reply

	cmdStandard = 't'
	cmdExtended = 'T'
	cmdRemote   = 'r'
	cmdRemoteX  = 'R'
	cmdAckStd   = 'z'
	cmdAckExt   = 'Z'

	stdIDDigits = 3
	extIDDigits = 8

	// Longest valid line without CR: T + 8 id + 1 dlc + 16 data
	MaxLineLength = 1 + extIDDigits + 1 + 2*haltech.MaxDataLength
)

const hexDigits = "0123456789ABCDEF"

var bitrateCodes = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// DefaultBitrate is the Haltech CAN bus rate.
const DefaultBitrate = 1000000

// BitrateCode returns the S command digit for a bus bitrate.
func BitrateCode(bitrate int) (byte, error) {
	c, ok := bitrateCodes[bitrate]
	if !ok {
		return 0, fmt.Errorf("unsupported bitrate %d", bitrate)
	}
	return c, nil
}

// OpenSequence returns the commands that close the channel, set the bitrate
// and open it again. Closing first makes the sequence safe to repeat.
func OpenSequence(bitrate int) ([][]byte, error) {
	code, err := BitrateCode(bitrate)
	if err != nil {
		return nil, err
	}
	return [][]byte{
		{'C', CR},
		{'S', code, CR},
		{'O', CR},
	}, nil
}

// CloseCommand closes the CAN channel.
var CloseCommand = []byte{'C', CR}

// Encode renders a frame as one command line.
func Encode(f haltech.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	line := make([]byte, 0, MaxLineLength+1)
	digits := stdIDDigits
	if f.Extended {
		line = append(line, cmdExtended)
		digits = extIDDigits
	} else {
		line = append(line, cmdStandard)
	}
	for i := digits - 1; i >= 0; i-- {
		line = append(line, hexDigits[(f.ID>>(4*uint(i)))&0xF])
	}
	line = append(line, hexDigits[f.Len])
	for _, b := range f.Payload() {
		line = append(line, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return append(line, CR), nil
}
