// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"errors"
	"log"
)

// ErrQueueFull is returned by a Sender whose transmit buffer cannot take
// another frame right now. The frame is kept and retried on the next poll.
var ErrQueueFull = errors.New("transmit queue full")

// Sender hands a frame to the bus.
type Sender interface {
	Send(Frame) error
}

// ButtonStates supplies the effective state of every slot.
type ButtonStates interface {
	ButtonStates() [NumSlots]bool
}

// MaxPendingFrames bounds the outbound queue.
const MaxPendingFrames = 64

// Transmitter emits the keep-alive and button-status frames on their own
// polled timers and queues anything else the keypad must send. Frames that
// fail to send stay at the head of the queue.
type Transmitter struct {
	keepAliveMs uint32
	statusMs    uint32

	lastKeepAlive uint64
	lastStatus    uint64

	pending []Frame
	failing bool

	stats  *Statistics
	logger *log.Logger
}

// NewTransmitter creates a transmitter. Zero intervals use the defaults.
func NewTransmitter(keepAliveMs, statusMs uint32, stats *Statistics, logger *log.Logger) *Transmitter {
	if keepAliveMs == 0 {
		keepAliveMs = DefaultKeepAliveIntervalMs
	}
	if statusMs == 0 {
		statusMs = DefaultButtonStatusIntervalMs
	}
	return &Transmitter{
		keepAliveMs: keepAliveMs,
		statusMs:    statusMs,
		pending:     make([]Frame, 0, MaxPendingFrames),
		stats:       stats,
		logger:      logger,
	}
}

// Poll runs both timers against nowMs, queues whatever is due and flushes the
// queue to bus. It never blocks beyond the bus's own Send.
func (t *Transmitter) Poll(nowMs uint64, states ButtonStates, bus Sender) {
	if due(nowMs, t.lastKeepAlive, t.keepAliveMs) {
		t.lastKeepAlive = nowMs
		t.Queue(NewKeepAlive())
	}
	if due(nowMs, t.lastStatus, t.statusMs) {
		t.lastStatus = nowMs
		var s [NumSlots]bool
		if states != nil {
			s = states.ButtonStates()
		}
		t.Queue(NewButtonStatus(s))
	}
	t.Flush(bus)
}

func periodic(f Frame) bool {
	return f.ID == KeepAliveID || f.ID == ButtonStatusID
}

// Queue adds a frame to the outbound queue. A queued periodic frame with the
// same id is replaced by the newer one. Queued frames keep their place, so a
// full queue makes room by shedding a periodic frame, which the next tick
// regenerates. Only when no periodic frame is queued is the new frame dropped
// and counted.
func (t *Transmitter) Queue(f Frame) {
	if periodic(f) {
		for i := range t.pending {
			if t.pending[i].ID == f.ID {
				t.pending[i] = f
				return
			}
		}
	}
	if len(t.pending) >= MaxPendingFrames {
		victim := -1
		if !periodic(f) {
			for i := range t.pending {
				if periodic(t.pending[i]) {
					victim = i
					break
				}
			}
		}
		if victim < 0 {
			t.drop(f)
			return
		}
		t.drop(t.pending[victim])
		t.pending = append(t.pending[:victim], t.pending[victim+1:]...)
	}
	t.pending = append(t.pending, f)
}

func (t *Transmitter) drop(f Frame) {
	if t.stats != nil {
		t.stats.TxDropped++
	}
	if t.logger != nil {
		t.logger.Printf("transmit queue full, dropping frame %v", f)
	}
}

// Transmit sends f now if the bus takes it, behind any frames still waiting.
// The queue is drained before f is added so a full queue only sheds frames
// the bus refused.
func (t *Transmitter) Transmit(f Frame, bus Sender) {
	t.Flush(bus)
	t.Queue(f)
	t.Flush(bus)
}

// Flush sends queued frames in order until the queue is empty or the bus
// refuses one.
func (t *Transmitter) Flush(bus Sender) {
	if bus == nil {
		return
	}
	sent := 0
	for sent < len(t.pending) {
		if err := bus.Send(t.pending[sent]); err != nil {
			if t.stats != nil {
				t.stats.TxErrors++
			}
			if !t.failing && t.logger != nil {
				t.logger.Printf("send failed, retrying next tick: %v", err)
			}
			t.failing = true
			break
		}
		if t.failing && t.logger != nil {
			t.logger.Println("send recovered")
		}
		t.failing = false
		sent++
		if t.stats != nil {
			t.stats.TxFrames++
		}
	}
	if sent > 0 {
		t.pending = append(t.pending[:0], t.pending[sent:]...)
	}
}

// Pending returns the number of frames waiting to be sent.
func (t *Transmitter) Pending() int {
	return len(t.pending)
}

func due(nowMs, lastMs uint64, intervalMs uint32) bool {
	return nowMs >= lastMs && nowMs-lastMs >= uint64(intervalMs)
}
