// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

// Frame builders for everything the keypad puts on the bus.

// NewKeepAlive creates the heartbeat frame (0x70C) reporting the operational
// state.
func NewKeepAlive() Frame {
	f := Frame{ID: KeepAliveID, Len: KeepAliveLength}
	f.Data[0] = KeepAliveState
	return f
}

// PackButtonStates packs slot states into the two status bytes. Byte j bit i
// carries slot j*8+i.
func PackButtonStates(states [NumSlots]bool) [2]byte {
	var out [2]byte
	for j := 0; j < 2; j++ {
		for i := 0; i < 8; i++ {
			if states[j*8+i] {
				out[j] |= 1 << uint(i)
			}
		}
	}
	return out
}

// NewButtonStatus creates the button-status frame (0x18C). The third byte is
// reserved and always zero.
func NewButtonStatus(states [NumSlots]bool) Frame {
	packed := PackButtonStates(states)
	f := Frame{ID: ButtonStatusID, Len: ButtonStatusLength}
	f.Data[0] = packed[0]
	f.Data[1] = packed[1]
	return f
}

// NewKeypadQuery creates an SDO upload request to the keypad for the given
// object index and sub-index, in the form the ECU sends it.
func NewKeypadQuery(index uint16, sub uint8) Frame {
	f := Frame{ID: KeypadQueryID, Len: KeypadLength}
	f.Data[0] = sdoUploadRequest
	f.Data[1] = byte(index)
	f.Data[2] = byte(index >> 8)
	f.Data[3] = sub
	return f
}

// IdentityQueries are the object dictionary entries the ECU reads while
// enumerating the keypad.
var IdentityQueries = []struct {
	Index uint16
	Sub   uint8
}{
	{0x1018, 1}, // vendor id
	{0x1018, 2}, // product code
	{0x1018, 3}, // revision
	{0x1018, 4}, // serial number
	{0x1800, 1}, // TPDO1 COB-ID
}
