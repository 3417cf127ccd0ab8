// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is a classical CAN data frame as it crosses the bus.
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool
	Len      uint8 // 0..8
	Data     [8]byte
}

var (
	ErrInvalidID  = errors.New("haltech: invalid identifier")
	ErrInvalidLen = errors.New("haltech: invalid data length")
)

// NewFrame builds a standard or extended frame from an id and up to eight bytes.
func NewFrame(id uint32, data ...byte) (Frame, error) {
	f := Frame{ID: id, Extended: id > MaxStandardID}
	if len(data) > MaxDataLength {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f, f.Validate()
}

// Validate returns an error if the identifier or length is out of range.
func (f Frame) Validate() error {
	if f.Len > MaxDataLength {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > MaxExtendedID {
			return ErrInvalidID
		}
	} else if f.ID > MaxStandardID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid data bytes.
func (f Frame) Payload() []byte {
	n := f.Len
	if n > MaxDataLength {
		n = MaxDataLength
	}
	return f.Data[:n]
}

// Padded returns the data bytes with everything past Len cleared.
func (f Frame) Padded() [8]byte {
	p := f.Data
	for i := int(f.Len); i < MaxDataLength; i++ {
		p[i] = 0
	}
	return p
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X [%d] % X", f.ID, f.Len, f.Payload())
	}
	return fmt.Sprintf("%03X [%d] % X", f.ID, f.Len, f.Payload())
}

// SocketCAN can_frame layout.
const (
	BinaryFrameSize = 16

	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canEffMask = 0x1FFFFFFF
	canStdMask = 0x7FF
)

// MarshalBinary encodes the frame in the 16-byte SocketCAN can_frame layout:
// little-endian can_id with the EFF flag in bit 31, DLC at byte 4, data at
// bytes 8..15.
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	buf := make([]byte, BinaryFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes the SocketCAN can_frame layout. Remote frames are
// rejected since they carry no data for the decoder.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < BinaryFrameSize {
		return fmt.Errorf("haltech: need %d bytes, got %d", BinaryFrameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	if id&canRtrFlag != 0 {
		return fmt.Errorf("haltech: remote frame 0x%X not supported", id&canEffMask)
	}
	f.Extended = id&canEffFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}
