// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import "log"

// Decoder turns inbound broadcast frames into channel values.
type Decoder struct {
	table  *Table
	stats  *Statistics
	logger *log.Logger

	// OnLate is called when a channel is updated after a gap longer than twice
	// its expected period. The value is still decoded.
	OnLate func(id ChannelID, gapMs uint64)

	reportedIDs map[uint32]bool
}

// NewDecoder creates a decoder that writes into table. stats and logger may be
// nil.
func NewDecoder(table *Table, stats *Statistics, logger *log.Logger) *Decoder {
	return &Decoder{
		table:       table,
		stats:       stats,
		logger:      logger,
		reportedIDs: make(map[uint32]bool),
	}
}

// Decode updates every channel carried by busID from payload and returns the
// ids it touched. An id with no channels returns nil and is counted as
// unknown. The returned slice is shared with the table.
func (d *Decoder) Decode(busID uint32, payload [8]byte, nowMs uint64) []ChannelID {
	ids := d.table.ChannelsForBusID(busID)
	if len(ids) == 0 {
		if d.stats != nil {
			d.stats.UnknownFrames++
		}
		if d.logger != nil && !d.reportedIDs[busID] {
			d.reportedIDs[busID] = true
			d.logger.Printf("no channels for bus id 0x%03X", busID)
		}
		return nil
	}

	for _, id := range ids {
		ch := &d.table.channels[id]
		if ch.seen && overdue(nowMs, ch.LastUpdateMs, ch.PeriodMs) {
			gap := nowMs - ch.LastUpdateMs
			if d.stats != nil {
				d.stats.LateUpdates++
			}
			if d.OnLate != nil {
				d.OnLate(id, gap)
			}
		}

		ch.Value = ScaledValue(payload, ch.Signal)
		ch.LastUpdateMs = nowMs
		ch.JustUpdated = true
		ch.seen = true
	}
	if d.stats != nil {
		d.stats.DecodedFrames++
	}
	return ids
}

// RawValue extracts the big-endian integer spanning s.StartByte..s.EndByte,
// sign-extended from the span's width when s.Signed.
func RawValue(payload [8]byte, s Signal) int64 {
	var raw uint32
	for i := s.StartByte; i <= s.EndByte && i < MaxDataLength; i++ {
		raw = raw<<8 | uint32(payload[i])
	}
	if s.Signed {
		shift := 32 - 8*uint(s.Width())
		return int64(int32(raw<<shift) >> shift)
	}
	return int64(raw)
}

// ScaledValue returns raw*scale+offset in the signal's canonical unit.
func ScaledValue(payload [8]byte, s Signal) float32 {
	// The inner conversion keeps the product from being fused with the add.
	return float32(float32(RawValue(payload, s))*s.Scale) + s.Offset
}

func overdue(nowMs, lastMs uint64, periodMs uint32) bool {
	if periodMs == 0 || nowMs <= lastMs {
		return false
	}
	return nowMs-lastMs > staleFactor*uint64(periodMs)
}
