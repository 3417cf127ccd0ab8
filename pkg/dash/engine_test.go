// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

type fakeBus struct {
	rx      chan haltech.Frame
	sent    []haltech.Frame
	sendErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{rx: make(chan haltech.Frame, 256)}
}

func (b *fakeBus) Frames() <-chan haltech.Frame { return b.rx }

func (b *fakeBus) Send(f haltech.Frame) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, f)
	return nil
}

func (b *fakeBus) sentWithID(id uint32) []haltech.Frame {
	var out []haltech.Frame
	for _, f := range b.sent {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time         { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func mustFrame(t *testing.T, id uint32, data ...byte) haltech.Frame {
	t.Helper()
	f, err := haltech.NewFrame(id, data...)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

type recordingLogger struct {
	rows []uint32
}

func (l *recordingLogger) Log(_ uint64, busID uint32, _ haltech.ChannelID, _ float32) {
	l.rows = append(l.rows, busID)
}

func TestEngineKeepAliveAndStatusCadence(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	// 300 ms in 5 ms ticks. Both timers start counting at boot.
	e.Step()
	for i := 0; i < 60; i++ {
		clock.Advance(5 * time.Millisecond)
		e.Step()
	}

	keepAlives := bus.sentWithID(haltech.KeepAliveID)
	if len(keepAlives) != 2 { // 150, 300
		t.Errorf("keep-alives = %d, want 2", len(keepAlives))
	}
	for _, f := range keepAlives {
		if f.Len != 1 || f.Data[0] != haltech.KeepAliveState {
			t.Errorf("bad keep-alive %v", f)
		}
	}
	status := bus.sentWithID(haltech.ButtonStatusID)
	if len(status) != 10 { // every 30 ms up to 300
		t.Errorf("status frames = %d, want 10", len(status))
	}
}

func TestEngineKeypadRouting(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	bus.rx <- mustFrame(t, haltech.KeypadQueryID, 0x42, 0x18, 0x10, 0x04, 0, 0, 0, 0)
	e.Step()

	resp := bus.sentWithID(haltech.KeypadResponseID)
	if len(resp) != 1 {
		t.Fatalf("keypad responses = %d, want 1", len(resp))
	}
	want := [8]byte{0x43, 0x18, 0x10, 0x04, 0xCF, 0xB8, 0x19, 0x0C}
	if resp[0].Data != want || resp[0].Len != 8 {
		t.Errorf("response = % X, want % X", resp[0].Data, want)
	}
	if e.Stats().KeypadRequests != 1 {
		t.Errorf("KeypadRequests = %d", e.Stats().KeypadRequests)
	}
	if e.Stats().DecodedFrames != 0 {
		t.Error("keypad query must not reach the decoder")
	}
}

func TestEngineDecodesAndLogsBoundChannels(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	dl := &recordingLogger{}
	e := NewEngine(bus, Options{Now: clock.Now, DataLogger: dl})

	bus.rx <- mustFrame(t, 0x360, 0x0B, 0xB8, 0, 0, 0, 0, 0, 0)
	bus.rx <- mustFrame(t, 0x123, 1, 2, 3)
	e.Step()

	if e.Stats().DecodedFrames != 1 || e.Stats().UnknownFrames != 1 {
		t.Errorf("decoded=%d unknown=%d", e.Stats().DecodedFrames, e.Stats().UnknownFrames)
	}
	// 0x360 carries RPM, MAP and TPS; all three are on the default grid.
	if len(dl.rows) != 3 {
		t.Errorf("logged %d values, want 3", len(dl.rows))
	}

	snap := e.Snapshot()
	if snap.Slots[slotRPM].Text != "3000" {
		t.Errorf("rpm slot text = %q", snap.Slots[slotRPM].Text)
	}
}

func TestEngineDropsInvalidFrames(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	bus.rx <- haltech.Frame{ID: 0x360, Len: 9}
	bus.rx <- haltech.Frame{ID: 0x7FF + 1}
	e.Step()

	if e.Stats().InvalidFrames != 2 {
		t.Errorf("InvalidFrames = %d, want 2", e.Stats().InvalidFrames)
	}
	if e.Stats().DecodedFrames != 0 {
		t.Error("invalid frames must not be decoded")
	}
}

func TestEngineSendFailureRetries(t *testing.T) {
	bus := newFakeBus()
	bus.sendErr = errors.New("tx buffer full")
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	// Both timers fire at 150 ms.
	clock.Advance(150 * time.Millisecond)
	e.Step()
	if len(bus.sent) != 0 || e.Stats().TxErrors == 0 {
		t.Fatal("expected failed send")
	}
	pending := e.Snapshot().PendingTx
	if pending != 2 {
		t.Errorf("pending = %d, want 2", pending)
	}

	bus.sendErr = nil
	clock.Advance(5 * time.Millisecond)
	e.Step()
	if len(bus.sent) != 2 {
		t.Errorf("sent after recovery = %d, want 2", len(bus.sent))
	}
}

func TestEngineTouchReachesStatusFrame(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	e.Touch(9)
	for i := 0; i < 20; i++ {
		clock.Advance(5 * time.Millisecond)
		e.Step()
	}

	status := bus.sentWithID(haltech.ButtonStatusID)
	last := status[len(status)-1]
	if last.Data[1] != 0x02 || last.Data[0] != 0 || last.Data[2] != 0 {
		t.Errorf("status payload = % X, want slot 9 set", last.Payload())
	}

	e.Touch(-1)
	for i := 0; i < 20; i++ {
		clock.Advance(5 * time.Millisecond)
		e.Step()
	}
	status = bus.sentWithID(haltech.ButtonStatusID)
	if last := status[len(status)-1]; last.Data[1] != 0 {
		t.Errorf("status after release = % X", last.Payload())
	}
}

func TestEngineQuickTapReachesSlot(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now})

	cfgs := DefaultLayout()
	cfgs[0].Mode = ModeToggle
	e.Runtime().Apply(cfgs)
	e.Step()

	// Press and release both land between two refreshes.
	e.Touch(0)
	clock.Advance(10 * time.Millisecond)
	e.Step()
	e.Touch(-1)
	clock.Advance(10 * time.Millisecond)
	e.Step()

	pressedSeen := false
	for i := 0; i < 5; i++ {
		clock.Advance(60 * time.Millisecond)
		e.Step()
		if e.Runtime().Slot(0).Pressed() {
			pressedSeen = true
		}
	}

	if !pressedSeen {
		t.Error("tap never registered as a press")
	}
	slot := e.Runtime().Slot(0)
	if slot.Pressed() {
		t.Error("slot still pressed after the tap")
	}
	if !slot.Toggled() || !e.Runtime().ButtonStates()[0] {
		t.Error("toggle slot did not flip on a quick tap")
	}
}

func TestEngineEditSaves(t *testing.T) {
	mem := newMemStorage()
	store := NewStore(mem, nil)
	bus := newFakeBus()
	clock := newFakeClock()
	e := NewEngine(bus, Options{Now: clock.Now, Store: store})
	writes := mem.writes // defaults written on first boot

	e.Edit(0, ActionModeToggle)
	e.Step()
	if mem.writes != writes+2 {
		t.Errorf("writes = %d, want %d", mem.writes, writes+2)
	}

	// No-op edit does not save.
	e.Edit(0, ActionModeToggle)
	e.Step()
	if mem.writes != writes+2 {
		t.Error("unchanged layout should not be saved")
	}

	again := NewEngine(newFakeBus(), Options{Now: clock.Now, Store: store})
	if again.Runtime().Slot(0).Mode != ModeToggle {
		t.Error("edit did not persist")
	}
}

func TestEnginePublishesOnRefresh(t *testing.T) {
	bus := newFakeBus()
	clock := newFakeClock()
	var snaps []Snapshot
	e := NewEngine(bus, Options{Now: clock.Now, Publish: func(s Snapshot) { snaps = append(snaps, s) }})

	for i := 0; i < 21; i++ {
		e.Step()
		clock.Advance(5 * time.Millisecond)
	}
	// Steps at 0..100 ms: refresh at 0, 50, 100.
	if len(snaps) != 3 {
		t.Errorf("snapshots = %d, want 3", len(snaps))
	}
}

func TestEngineRunStopsOnClosedBus(t *testing.T) {
	bus := newFakeBus()
	e := NewEngine(bus, Options{Tick: time.Millisecond})
	close(bus.rx)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.Run(ctx); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Run = %v, want ErrBusClosed", err)
	}
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	e := NewEngine(newFakeBus(), Options{Tick: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
