// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_Deterministic decodes random payloads on every broadcast id
// into two independent tables and checks both agree bit for bit.
func TestFuzzDecoder_Deterministic(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	a, b := NewDefaultTable(), NewDefaultTable()
	da, db := NewDecoder(a, nil, nil), NewDecoder(b, nil, nil)
	busIDs := a.BusIDs()

	for i := 0; i < rounds; i++ {
		var payload [8]byte
		rng.Read(payload[:])
		id := busIDs[rng.Intn(len(busIDs))]
		now := uint64(i)

		da.Decode(id, payload, now)
		db.Decode(id, payload, now)

		for _, ch := range a.ChannelsForBusID(id) {
			va, _ := a.Get(ch)
			vb, _ := b.Get(ch)
			if va.Value != vb.Value {
				t.Fatalf("Round %d: channel %s decoded %v and %v", i, va.Name, va.Value, vb.Value)
			}
		}
	}
}

// TestFuzzDecoder_SignedRange checks every signed field stays within the range
// of its width.
func TestFuzzDecoder_SignedRange(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		width := uint8(rng.Intn(4) + 1)
		start := uint8(rng.Intn(int(MaxDataLength - width + 1)))
		s := Signal{StartByte: start, EndByte: start + width - 1, Signed: true, Scale: 1}

		var payload [8]byte
		rng.Read(payload[:])
		raw := RawValue(payload, s)

		limit := int64(1) << (8*width - 1)
		if raw < -limit || raw >= limit {
			t.Fatalf("Round %d: %d-byte signed value %d out of range", i, width, raw)
		}
		// The top bit of the first byte decides the sign
		if (payload[start]&0x80 != 0) != (raw < 0) {
			t.Fatalf("Round %d: sign of %d disagrees with byte 0x%02X", i, raw, payload[start])
		}
	}
}

// TestFuzzFrame_RandomBinary feeds random 16-byte buffers to UnmarshalBinary
// and re-marshals whatever it accepts.
func TestFuzzFrame_RandomBinary(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		data := make([]byte, BinaryFrameSize)
		rng.Read(data)
		data[4] = byte(rng.Intn(10))

		var f Frame
		if err := f.UnmarshalBinary(data); err != nil {
			continue
		}
		out, err := f.MarshalBinary()
		if err != nil {
			t.Fatalf("Round %d: accepted frame failed to marshal: %v", i, err)
		}
		var g Frame
		if err := g.UnmarshalBinary(out); err != nil || g != f {
			t.Fatalf("Round %d: re-decode mismatch %v vs %v (%v)", i, f, g, err)
		}
	}
}
