// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"bytes"
	"testing"
)

func TestKeypadResponse_Literal(t *testing.T) {
	tests := []struct {
		name string
		req  [8]byte
		want [8]byte
		ok   bool
	}{
		{
			name: "vendor id",
			req:  [8]byte{0x42, 0x18, 0x10, 0x01},
			want: [8]byte{0x43, 0x18, 0x10, 0x01, 0x07, 0x03, 0x00, 0x00},
			ok:   true,
		},
		{
			name: "product code",
			req:  [8]byte{0x42, 0x18, 0x10, 0x02},
			want: [8]byte{0x43, 0x18, 0x10, 0x02, 0x48, 0x33, 0x00, 0x00},
			ok:   true,
		},
		{
			name: "revision",
			req:  [8]byte{0x42, 0x18, 0x10, 0x03},
			want: [8]byte{0x43, 0x18, 0x10, 0x03, 0x01, 0x00, 0x00, 0x00},
			ok:   true,
		},
		{
			name: "serial number",
			req:  [8]byte{0x42, 0x18, 0x10, 0x04},
			want: [8]byte{0x43, 0x18, 0x10, 0x04, 0xCF, 0xB8, 0x19, 0x0C},
			ok:   true,
		},
		{
			name: "TPDO1 COB-ID",
			req:  [8]byte{0x42, 0x00, 0x18, 0x01},
			want: [8]byte{0x43, 0x00, 0x18, 0x01, 0x8C, 0x01, 0x00, 0x40},
			ok:   true,
		},
		{
			name: "upload of unlisted object echoes only",
			req:  [8]byte{0x42, 0x00, 0x10, 0x00},
			want: [8]byte{0x43, 0x00, 0x10, 0x00},
			ok:   false,
		},
		{
			name: "download acknowledged",
			req:  [8]byte{0x22, 0x17, 0x10, 0x00, 0xE8, 0x03, 0x00, 0x00},
			want: [8]byte{0x60, 0x17, 0x10, 0x00},
			ok:   true,
		},
		{
			name: "zero command probe",
			req:  [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC8},
			want: [8]byte{0x80, 0x00, 0x00, 0x00, 0x01, 0x00, 0x04, 0x05},
			ok:   true,
		},
		{
			name: "zero command without marker",
			req:  [8]byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00},
			want: [8]byte{},
			ok:   false,
		},
		{
			name: "unknown command",
			req:  [8]byte{0x40, 0x18, 0x10, 0x01},
			want: [8]byte{},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeypadResponse(tt.req)
			if got != tt.want {
				t.Errorf("response = % X, want % X", got, tt.want)
			}
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestKeypadResponder_AlwaysResponds(t *testing.T) {
	stats := NewStatistics()
	k := NewKeypadResponder(stats, nil)

	req := NewKeypadQuery(0x1018, 4)
	if !k.Handles(req) {
		t.Fatal("responder should handle its query id")
	}
	resp := k.Respond(req)
	if resp.ID != KeypadResponseID || resp.Len != 8 || resp.Extended {
		t.Errorf("unexpected response header %v", resp)
	}
	if !bytes.Equal(resp.Payload(), []byte{0x43, 0x18, 0x10, 0x04, 0xCF, 0xB8, 0x19, 0x0C}) {
		t.Errorf("unexpected payload % X", resp.Payload())
	}

	unknown := Frame{ID: KeypadQueryID, Len: 8, Data: [8]byte{0x99}}
	resp = k.Respond(unknown)
	if resp.ID != KeypadResponseID || resp.Data != ([8]byte{}) {
		t.Errorf("unknown request should get zero response, got %v", resp)
	}

	if stats.KeypadRequests != 2 || stats.UnknownKeypadRequests != 1 {
		t.Errorf("stats = %d requests, %d unknown", stats.KeypadRequests, stats.UnknownKeypadRequests)
	}

	if k.Handles(Frame{ID: 0x360}) {
		t.Error("responder should ignore broadcast ids")
	}
}

func TestIdentityQueries_AllAnswered(t *testing.T) {
	for _, q := range IdentityQueries {
		f := NewKeypadQuery(q.Index, q.Sub)
		if _, ok := KeypadResponse(f.Data); !ok {
			t.Errorf("query %04X.%d not answered", q.Index, q.Sub)
		}
	}
}
