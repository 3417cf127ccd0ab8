// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"errors"
	"math"
	"testing"
)

func testSignals() []Signal {
	return []Signal{
		{0, "Unsigned 16", "U16", 0x100, 0, 1, false, UnitRPM, 1, 0, 20},
		{1, "Signed 16", "S16", 0x100, 2, 3, true, UnitDegrees, 0.5, 0, 20},
		{2, "Signed 8", "S8", 0x100, 4, 4, true, UnitEnum, 1, 0, 20},
		{3, "Unsigned 8", "U8", 0x100, 5, 5, false, UnitPercent, 1, -10, 20},
		{4, "Signed 32", "S32", 0x200, 0, 3, true, UnitRaw, 1, 0, 50},
		{5, "Unsigned 32", "U32", 0x200, 4, 7, false, UnitCC, 1, 0, 50},
	}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(testSignals())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestRawValue_SignExtension(t *testing.T) {
	sigs := testSignals()
	tests := []struct {
		name    string
		signal  Signal
		payload [8]byte
		want    int64
	}{
		{"2-byte signed all ones is -1", sigs[1], [8]byte{2: 0xFF, 3: 0xFF}, -1},
		{"2-byte signed min", sigs[1], [8]byte{2: 0x80, 3: 0x00}, -32768},
		{"2-byte signed max", sigs[1], [8]byte{2: 0x7F, 3: 0xFF}, 32767},
		{"2-byte unsigned all ones", sigs[0], [8]byte{0: 0xFF, 1: 0xFF}, 65535},
		{"1-byte signed -1", sigs[2], [8]byte{4: 0xFF}, -1},
		{"1-byte signed -128", sigs[2], [8]byte{4: 0x80}, -128},
		{"1-byte signed 127", sigs[2], [8]byte{4: 0x7F}, 127},
		{"1-byte unsigned 0xFF", sigs[3], [8]byte{5: 0xFF}, 255},
		{"4-byte signed -1", sigs[4], [8]byte{0xFF, 0xFF, 0xFF, 0xFF}, -1},
		{"4-byte signed min", sigs[4], [8]byte{0x80, 0, 0, 0}, math.MinInt32},
		{"4-byte signed big-endian", sigs[4], [8]byte{0x00, 0x01, 0x02, 0x03}, 0x00010203},
		{"4-byte unsigned all ones", sigs[5], [8]byte{4: 0xFF, 5: 0xFF, 6: 0xFF, 7: 0xFF}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RawValue(tt.payload, tt.signal); got != tt.want {
				t.Errorf("RawValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecoder_ScalesEveryChannelOnTheID(t *testing.T) {
	table := newTestTable(t)
	stats := NewStatistics()
	d := NewDecoder(table, stats, nil)

	payload := [8]byte{0x0B, 0xB8, 0xFF, 0xFE, 0xFB, 0x14, 0xAA, 0xAA}
	ids := d.Decode(0x100, payload, 1000)
	if len(ids) != 4 {
		t.Fatalf("expected 4 channels updated, got %d", len(ids))
	}

	want := map[ChannelID]float32{
		0: 3000, // 0x0BB8
		1: -1,   // -2 * 0.5
		2: -5,   // 0xFB
		3: 10,   // 20 - 10
	}
	for id, v := range want {
		ch, _ := table.Get(id)
		if ch.Value != v {
			t.Errorf("channel %d: value = %v, want %v", id, ch.Value, v)
		}
		if !ch.JustUpdated {
			t.Errorf("channel %d: JustUpdated not set", id)
		}
		if ch.LastUpdateMs != 1000 {
			t.Errorf("channel %d: LastUpdateMs = %d, want 1000", id, ch.LastUpdateMs)
		}
	}

	// Channels on another id are untouched
	ch, _ := table.Get(4)
	if ch.Seen() || ch.JustUpdated {
		t.Error("channel on 0x200 should not be touched by 0x100")
	}
	if stats.DecodedFrames != 1 {
		t.Errorf("DecodedFrames = %d, want 1", stats.DecodedFrames)
	}
}

func TestDecoder_UnknownID(t *testing.T) {
	table := newTestTable(t)
	stats := NewStatistics()
	d := NewDecoder(table, stats, nil)

	if ids := d.Decode(0x7FF, [8]byte{}, 0); ids != nil {
		t.Errorf("expected nil for unknown id, got %v", ids)
	}
	d.Decode(0x7FF, [8]byte{}, 1)
	if stats.UnknownFrames != 2 {
		t.Errorf("UnknownFrames = %d, want 2", stats.UnknownFrames)
	}

	// Known ids keep decoding after an unknown one
	d.Decode(0x200, [8]byte{0, 0, 0, 7}, 2)
	if ch, _ := table.Get(4); ch.Value != 7 {
		t.Errorf("value = %v, want 7", ch.Value)
	}
}

func TestDecoder_LateUpdate(t *testing.T) {
	table := newTestTable(t)
	stats := NewStatistics()
	d := NewDecoder(table, stats, nil)

	var lateIDs []ChannelID
	var gaps []uint64
	d.OnLate = func(id ChannelID, gap uint64) {
		lateIDs = append(lateIDs, id)
		gaps = append(gaps, gap)
	}

	// Period is 50 ms, so the budget is 100 ms
	d.Decode(0x200, [8]byte{}, 1000)
	d.Decode(0x200, [8]byte{}, 1100) // exactly 2x: on time
	if len(lateIDs) != 0 {
		t.Fatalf("update at exactly twice the period reported late: %v", lateIDs)
	}

	d.Decode(0x200, [8]byte{0, 0, 0, 9}, 1201)
	if len(lateIDs) != 2 {
		t.Fatalf("expected both channels on 0x200 late, got %v", lateIDs)
	}
	if gaps[0] != 101 {
		t.Errorf("gap = %d, want 101", gaps[0])
	}
	if stats.LateUpdates != 2 {
		t.Errorf("LateUpdates = %d, want 2", stats.LateUpdates)
	}

	// Value is still taken
	if ch, _ := table.Get(4); ch.Value != 9 {
		t.Errorf("late value not decoded: %v", ch.Value)
	}
}

func TestTable_Stale(t *testing.T) {
	table := newTestTable(t)
	d := NewDecoder(table, nil, nil)

	if stale := table.Stale(10_000); len(stale) != 0 {
		t.Errorf("never-seen channels reported stale: %v", stale)
	}

	d.Decode(0x100, [8]byte{}, 1000)
	if stale := table.Stale(1040); len(stale) != 0 {
		t.Errorf("fresh channels reported stale: %v", stale)
	}
	stale := table.Stale(1041)
	if len(stale) != 4 {
		t.Fatalf("expected 4 stale channels, got %v", stale)
	}

	// Stale data keeps its last value
	ch, _ := table.Get(0)
	if !ch.Stale(5000) || !ch.Seen() {
		t.Error("expected channel 0 stale and seen")
	}
}

func TestNewTable_RejectsBadSignals(t *testing.T) {
	tests := []struct {
		name   string
		signal Signal
	}{
		{"start after end", Signal{ID: 0, StartByte: 3, EndByte: 2}},
		{"end past frame", Signal{ID: 0, StartByte: 6, EndByte: 8}},
		{"wider than 32 bits", Signal{ID: 0, StartByte: 0, EndByte: 4}},
		{"id out of order", Signal{ID: 1, StartByte: 0, EndByte: 1}},
		{"unknown unit", Signal{ID: 0, StartByte: 0, EndByte: 1, Unit: numUnits}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable([]Signal{tt.signal}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultTable(t *testing.T) {
	table := NewDefaultTable()
	if table.Len() != NumChannels {
		t.Fatalf("Len() = %d, want %d", table.Len(), NumChannels)
	}

	// Every channel decodes raw*scale+offset from a known pattern
	payload := [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	d := NewDecoder(table, nil, nil)
	for _, busID := range table.BusIDs() {
		d.Decode(busID, payload, 1)
	}
	for id := ChannelID(0); int(id) < table.Len(); id++ {
		ch, _ := table.Get(id)
		raw := RawValue(payload, ch.Signal)
		want := float32(float32(raw)*ch.Scale) + ch.Offset
		if ch.Value != want {
			t.Errorf("%s: value = %v, want %v", ch.Name, ch.Value, want)
		}
	}
}

func TestDefaultTable_KnownFrames(t *testing.T) {
	table := NewDefaultTable()
	d := NewDecoder(table, nil, nil)

	// 0x360: 3000 RPM, 101.3 kPa MAP, 50.0% TPS
	d.Decode(0x360, [8]byte{0x0B, 0xB8, 0x03, 0xF5, 0x01, 0xF4, 0x00, 0x00}, 1)
	// 0x3E0: coolant 363.1 K
	d.Decode(0x3E0, [8]byte{0x0E, 0x2F}, 1)
	// 0x470: gear -1 (reverse)
	d.Decode(0x470, [8]byte{7: 0xFF}, 1)

	tests := []struct {
		id   ChannelID
		want float32
	}{
		{ChannelRPM, 3000},
		{ChannelManifoldPressure, 101.3},
		{ChannelThrottlePosition, 50},
		{ChannelCoolantTemperature, 363.1},
		{ChannelGear, -1},
	}
	for _, tt := range tests {
		ch, _ := table.Get(tt.id)
		if math.Abs(float64(ch.Value-tt.want)) > 0.001 {
			t.Errorf("%s = %v, want %v", ch.Name, ch.Value, tt.want)
		}
	}
}

func TestConversionError_Unwraps(t *testing.T) {
	_, err := Convert(1, UnitRPM, UnitPSI)
	if !errors.Is(err, ErrUnsupportedConversion) {
		t.Errorf("expected ErrUnsupportedConversion, got %v", err)
	}
	var ce *ConversionError
	if !errors.As(err, &ce) || ce.From != UnitRPM || ce.To != UnitPSI {
		t.Errorf("unexpected conversion error %#v", err)
	}
}
