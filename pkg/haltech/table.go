// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import "fmt"

// Channel is a signal plus its most recent decoded value.
type Channel struct {
	Signal

	Value        float32 // canonical unit
	LastUpdateMs uint64
	JustUpdated  bool

	seen bool
}

// Seen reports whether the channel has been decoded at least once.
func (c Channel) Seen() bool {
	return c.seen
}

// Stale reports whether the channel has gone quiet for more than twice its
// expected period. Channels never seen are not stale, only absent.
func (c Channel) Stale(nowMs uint64) bool {
	if !c.seen || c.PeriodMs == 0 {
		return false
	}
	return overdue(nowMs, c.LastUpdateMs, c.PeriodMs)
}

// Table owns every channel for the life of the process, indexed by ChannelID.
type Table struct {
	channels []Channel
	byBusID  map[uint32][]ChannelID
}

// NewTable builds a table from signal definitions. Each definition's ID must
// equal its position, and every byte span must fit a single 8-byte frame and a
// 32-bit raw value.
func NewTable(signals []Signal) (*Table, error) {
	t := &Table{
		channels: make([]Channel, len(signals)),
		byBusID:  make(map[uint32][]ChannelID),
	}
	for i, s := range signals {
		if int(s.ID) != i {
			return nil, fmt.Errorf("signal %q: id %d at position %d", s.Name, s.ID, i)
		}
		if s.StartByte > s.EndByte || s.EndByte >= MaxDataLength {
			return nil, fmt.Errorf("signal %q: invalid byte span %d..%d", s.Name, s.StartByte, s.EndByte)
		}
		if s.Width() > 4 {
			return nil, fmt.Errorf("signal %q: %d bytes exceeds 32-bit raw value", s.Name, s.Width())
		}
		if !s.Unit.Valid() {
			return nil, fmt.Errorf("signal %q: unknown unit %d", s.Name, s.Unit)
		}
		t.channels[i] = Channel{Signal: s}
		t.byBusID[s.BusID] = append(t.byBusID[s.BusID], s.ID)
	}
	return t, nil
}

// NewDefaultTable builds the Haltech broadcast table.
func NewDefaultTable() *Table {
	t, err := NewTable(haltechSignals)
	if err != nil {
		panic(fmt.Sprintf("haltech: static signal table: %v", err))
	}
	return t
}

// Len returns the number of channels.
func (t *Table) Len() int {
	return len(t.channels)
}

// Valid reports whether id names a channel in this table.
func (t *Table) Valid(id ChannelID) bool {
	return int(id) < len(t.channels)
}

// Get returns a copy of the channel.
func (t *Table) Get(id ChannelID) (Channel, bool) {
	if !t.Valid(id) {
		return Channel{}, false
	}
	return t.channels[id], true
}

// Signal returns the static definition of a channel.
func (t *Table) Signal(id ChannelID) (Signal, bool) {
	if !t.Valid(id) {
		return Signal{}, false
	}
	return t.channels[id].Signal, true
}

// ChannelsForBusID returns the channels carried by a bus id. The slice is shared
// and must not be modified.
func (t *Table) ChannelsForBusID(busID uint32) []ChannelID {
	return t.byBusID[busID]
}

// BusIDs returns every bus id the table decodes.
func (t *Table) BusIDs() []uint32 {
	ids := make([]uint32, 0, len(t.byBusID))
	for id := range t.byBusID {
		ids = append(ids, id)
	}
	return ids
}

// Stale lists channels that have been seen but are overdue at nowMs.
func (t *Table) Stale(nowMs uint64) []ChannelID {
	var out []ChannelID
	for i := range t.channels {
		if t.channels[i].Stale(nowMs) {
			out = append(out, ChannelID(i))
		}
	}
	return out
}

// ClearUpdated resets every JustUpdated flag.
func (t *Table) ClearUpdated() {
	for i := range t.channels {
		t.channels[i].JustUpdated = false
	}
}
