// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slcan

import (
	"errors"
	"testing"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame haltech.Frame
		want  string
	}{
		{
			name:  "keep-alive",
			frame: haltech.NewKeepAlive(),
			want:  "t70C105\r",
		},
		{
			name:  "button status",
			frame: haltech.NewButtonStatus([haltech.NumSlots]bool{0: true, 15: true}),
			want:  "t18C3018000\r",
		},
		{
			name:  "extended",
			frame: haltech.Frame{ID: 0x1ABCDEF0, Extended: true, Len: 2, Data: [8]byte{0xDE, 0xAD}},
			want:  "T1ABCDEF02DEAD\r",
		},
		{
			name:  "empty",
			frame: haltech.Frame{ID: 0x001},
			want:  "t0010\r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := Encode(haltech.Frame{ID: 0x800}); err == nil {
		t.Error("expected error for out of range standard id")
	}
}

func TestDecoder_Frames(t *testing.T) {
	tests := []struct {
		name string
		line string
		want haltech.Frame
	}{
		{
			name: "broadcast",
			line: "t36080BB803F501F40000\r",
			want: haltech.Frame{ID: 0x360, Len: 8, Data: [8]byte{0x0B, 0xB8, 0x03, 0xF5, 0x01, 0xF4}},
		},
		{
			name: "lowercase hex",
			line: "t60c842181001000000c8\r",
			want: haltech.Frame{ID: 0x60C, Len: 8, Data: [8]byte{0x42, 0x18, 0x10, 0x01, 0, 0, 0, 0xC8}},
		},
		{
			name: "with timestamp",
			line: "t70C1051A2B\r",
			want: haltech.Frame{ID: 0x70C, Len: 1, Data: [8]byte{0x05}},
		},
		{
			name: "extended",
			line: "T1ABCDEF02DEAD\r",
			want: haltech.Frame{ID: 0x1ABCDEF0, Extended: true, Len: 2, Data: [8]byte{0xDE, 0xAD}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			frames, err := d.Decode([]byte(tt.line))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(frames))
			}
			if frames[0] != tt.want {
				t.Errorf("got %+v, want %+v", frames[0], tt.want)
			}
		})
	}
}

func TestDecoder_RoundTrip(t *testing.T) {
	d := NewDecoder()
	in := []haltech.Frame{
		haltech.NewKeepAlive(),
		haltech.NewKeypadQuery(0x1018, 4),
		{ID: 0x3E0, Len: 8, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	var stream []byte
	for _, f := range in {
		line, err := Encode(f)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		stream = append(stream, line...)
	}
	out, err := d.Decode(stream)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d frames, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("frame %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecoder_RepliesAndErrors(t *testing.T) {
	d := NewDecoder()

	// Acknowledgements and status replies produce nothing
	for _, line := range []string{"\r", "z\r", "Z\r", "V1013\r", "F00\r"} {
		frames, err := d.Decode([]byte(line))
		if err != nil || len(frames) != 0 {
			t.Errorf("%q: frames=%v err=%v", line, frames, err)
		}
	}

	if _, err := d.DecodeByte(Bell); !errors.Is(err, ErrAdapter) {
		t.Errorf("bell: expected ErrAdapter, got %v", err)
	}

	bad := []string{
		"t36\r",          // truncated
		"t3609\r",        // dlc > 8
		"t3602AB\r",      // too few data digits
		"t36G1AB\r",      // bad id digit
		"t8001AB\r",      // id out of range
		"r3600\r",        // remote
		"t3601ZZ\r",      // bad data digit
		"t36020000001\r", // between plain and timestamped lengths
	}
	for _, line := range bad {
		if _, err := d.Decode([]byte(line)); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}

	// Decoder recovers after errors
	frames, err := d.Decode([]byte("t70C105\r"))
	if err != nil || len(frames) != 1 {
		t.Errorf("decoder did not recover: frames=%v err=%v", frames, err)
	}
}

func TestDecoder_Overflow(t *testing.T) {
	d := NewDecoder()
	var err error
	for i := 0; i < MaxLineLength+timestampDigits+1 && err == nil; i++ {
		_, err = d.DecodeByte('0')
	}
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestOpenSequence(t *testing.T) {
	seq, err := OpenSequence(DefaultBitrate)
	if err != nil {
		t.Fatalf("OpenSequence: %v", err)
	}
	want := []string{"C\r", "S8\r", "O\r"}
	for i, cmd := range seq {
		if string(cmd) != want[i] {
			t.Errorf("command %d = %q, want %q", i, cmd, want[i])
		}
	}
	if _, err := OpenSequence(333333); err == nil {
		t.Error("expected error for unsupported bitrate")
	}
}
