// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// Bus is a CAN connection. Frames delivers received frames and is closed when
// the connection is lost.
type Bus interface {
	Frames() <-chan haltech.Frame
	Send(haltech.Frame) error
}

// DataLogger receives every decoded value of a channel bound to a slot. The
// engine never looks at the outcome.
type DataLogger interface {
	Log(timestampMicros uint64, busID uint32, channel haltech.ChannelID, value float32)
}

// ErrBusClosed is returned by Run when the bus frame channel closes.
var ErrBusClosed = errors.New("bus closed")

// Engine defaults.
const (
	DefaultPreemptBudget = 50 * time.Millisecond
	DefaultRefresh       = 50 * time.Millisecond
	DefaultTick          = 5 * time.Millisecond
)

// Options configures an Engine. Zero values use the defaults.
type Options struct {
	KeepAliveIntervalMs    uint32
	ButtonStatusIntervalMs uint32
	PreemptBudget          time.Duration
	Refresh                time.Duration
	Tick                   time.Duration

	Logger     *log.Logger
	DataLogger DataLogger
	Store      *Store

	// Publish receives a snapshot after every refresh. It runs on the engine
	// goroutine and must not block.
	Publish func(Snapshot)

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// SlotView is the read-only state of one slot.
type SlotView struct {
	Index     int
	Config    SlotConfig
	Name      string
	UnitLabel string
	Text      string
	Inverted  bool
	Alert     bool
	Pressed   bool
	Active    bool // state reported on the bus
	Valid     bool
	Stale     bool
	HeldMs    uint64
}

// Snapshot is everything a display needs, copied out of the engine.
type Snapshot struct {
	Slots      [NumSlots]SlotView
	Beep       bool
	Stats      haltech.Statistics
	Stale      []haltech.ChannelID
	UptimeMs   uint64
	PendingTx  int
	LoadResult LoadResult
}

// DrawSlot lets a Snapshot act as the runtime's Renderer.
func (s *Snapshot) DrawSlot(index int, text string, inverted bool) {
	s.Slots[index].Text = text
	s.Slots[index].Inverted = inverted
}

// Engine is the single owner of the decoder, transmitter, keypad responder and
// slot runtime. Step does one loop iteration; Run repeats it.
type Engine struct {
	opts Options

	table   *haltech.Table
	stats   *haltech.Statistics
	decoder *haltech.Decoder
	tx      *haltech.Transmitter
	keypad  *haltech.KeypadResponder
	runtime *Runtime

	bus    Bus
	start  time.Time
	closed bool

	touched     int
	tapped      int // latest slot pressed since the last refresh
	lastRefresh uint64
	refreshed   bool
	loadResult  LoadResult

	requests chan func(*Runtime) bool
}

// NewEngine wires a fresh table, decoder, transmitter and runtime to bus. If
// opts.Store is set the stored layout is loaded.
func NewEngine(bus Bus, opts Options) *Engine {
	if opts.PreemptBudget <= 0 {
		opts.PreemptBudget = DefaultPreemptBudget
	}
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	table := haltech.NewDefaultTable()
	stats := haltech.NewStatistics()
	e := &Engine{
		opts:     opts,
		table:    table,
		stats:    stats,
		decoder:  haltech.NewDecoder(table, stats, opts.Logger),
		tx:       haltech.NewTransmitter(opts.KeepAliveIntervalMs, opts.ButtonStatusIntervalMs, stats, opts.Logger),
		keypad:   haltech.NewKeypadResponder(stats, opts.Logger),
		runtime:  NewRuntime(table, NewOscillator(), stats, opts.Logger),
		bus:      bus,
		start:    opts.Now(),
		touched:  -1,
		tapped:   -1,
		requests: make(chan func(*Runtime) bool, 32),
	}
	e.decoder.OnLate = e.reportLate

	if opts.Store != nil {
		res, err := opts.Store.Load(e.runtime)
		if err != nil && opts.Logger != nil {
			opts.Logger.Printf("layout: %v (continuing with %s layout)", err, res)
		}
		e.loadResult = res
	}
	return e
}

func (e *Engine) reportLate(id haltech.ChannelID, gapMs uint64) {
	if e.opts.Logger == nil || !e.boundToSlot(id) {
		return
	}
	sig, _ := e.table.Signal(id)
	e.opts.Logger.Printf("%s late: %d ms since last update (expected every %d ms)", sig.Name, gapMs, sig.PeriodMs)
}

// nowMs returns milliseconds since the engine started.
func (e *Engine) nowMs() uint64 {
	return uint64(e.opts.Now().Sub(e.start).Milliseconds())
}

func (e *Engine) nowMicros() uint64 {
	return uint64(e.opts.Now().Sub(e.start).Microseconds())
}

// Touch sets the slot currently under the finger, or -1 for none. A press that
// is released before the next refresh still reaches the slot for one refresh.
// It is safe to call from any goroutine.
func (e *Engine) Touch(slot int) {
	e.Do(func(*Runtime) bool {
		e.touched = slot
		if slot >= 0 && slot < NumSlots {
			e.tapped = slot
		}
		return false
	})
}

// Do queues fn to run on the engine goroutine. When fn reports a configuration
// change the layout is saved. Do never blocks; a full queue drops the request
// and returns false.
func (e *Engine) Do(fn func(r *Runtime) bool) bool {
	select {
	case e.requests <- fn:
		return true
	default:
		return false
	}
}

// Edit queues a menu action for slot i.
func (e *Engine) Edit(i int, action MenuAction) bool {
	return e.Do(func(r *Runtime) bool { return r.Edit(i, action) })
}

// Runtime exposes the runtime for callers that own the engine goroutine, such
// as tests and single-threaded commands.
func (e *Engine) Runtime() *Runtime { return e.runtime }

// Table exposes the signal table under the same rule as Runtime.
func (e *Engine) Table() *haltech.Table { return e.table }

// Stats exposes the counters under the same rule as Runtime.
func (e *Engine) Stats() *haltech.Statistics { return e.stats }

// Step runs one loop iteration: drain received frames within the preemption
// budget, run the transmit timers, apply queued requests, and on the refresh
// cadence poll touch, refresh slots and publish.
func (e *Engine) Step() {
	e.drain()

	now := e.nowMs()
	e.tx.Poll(now, e.runtime, e.bus)

	e.applyRequests()

	if !e.refreshed || now-e.lastRefresh >= uint64(e.opts.Refresh.Milliseconds()) {
		e.refreshed = true
		e.lastRefresh = now
		for i := 0; i < NumSlots; i++ {
			e.runtime.Press(i, i == e.touched || i == e.tapped, now)
		}
		e.tapped = -1
		e.runtime.Refresh(now)
		e.table.ClearUpdated()
		if e.opts.Publish != nil {
			e.opts.Publish(e.Snapshot())
		}
	}
}

func (e *Engine) drain() {
	if e.closed || e.bus == nil {
		return
	}
	frames := e.bus.Frames()
	started := e.opts.Now()
	for e.opts.Now().Sub(started) < e.opts.PreemptBudget {
		select {
		case f, ok := <-frames:
			if !ok {
				e.closed = true
				return
			}
			e.handleFrame(f)
		default:
			return
		}
	}
}

func (e *Engine) handleFrame(f haltech.Frame) {
	anomalies := haltech.ValidateFrame(f, e.table)
	e.stats.Update(anomalies)
	for _, a := range anomalies {
		if a.Type != haltech.AnomalyLengthMismatch {
			if e.opts.Logger != nil {
				e.opts.Logger.Printf("dropping frame: %s", a.Message)
			}
			return
		}
	}

	if e.keypad.Handles(f) {
		e.tx.Transmit(e.keypad.Respond(f), e.bus)
		return
	}
	if f.Extended {
		e.stats.UnknownFrames++
		return
	}

	ids := e.decoder.Decode(f.ID, f.Padded(), e.nowMs())
	if e.opts.DataLogger == nil {
		return
	}
	micros := e.nowMicros()
	for _, id := range ids {
		if e.boundToSlot(id) {
			ch, _ := e.table.Get(id)
			e.opts.DataLogger.Log(micros, f.ID, id, ch.Value)
		}
	}
}

func (e *Engine) boundToSlot(id haltech.ChannelID) bool {
	for i := 0; i < NumSlots; i++ {
		if e.runtime.slots[i].Channel == id {
			return true
		}
	}
	return false
}

func (e *Engine) applyRequests() {
	changed := false
	for {
		select {
		case fn := <-e.requests:
			if fn(e.runtime) {
				changed = true
			}
		default:
			if changed {
				e.save()
			}
			return
		}
	}
}

func (e *Engine) save() {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.Save(e.runtime.Configs()); err != nil && e.opts.Logger != nil {
		e.opts.Logger.Printf("layout: save failed, keeping in-memory layout: %v", err)
	}
}

// Snapshot copies the current display state.
func (e *Engine) Snapshot() Snapshot {
	now := e.nowMs()
	snap := Snapshot{
		Beep:       e.runtime.BeepOutput(),
		Stats:      *e.stats,
		Stale:      e.table.Stale(now),
		UptimeMs:   now,
		PendingTx:  e.tx.Pending(),
		LoadResult: e.loadResult,
	}
	for i := 0; i < NumSlots; i++ {
		s := &e.runtime.slots[i]
		name, unit := e.runtime.Label(i)
		snap.Slots[i] = SlotView{
			Index:     i,
			Config:    s.SlotConfig,
			Name:      name,
			UnitLabel: unit,
			Alert:     s.alert,
			Pressed:   s.pressed,
			Active:    s.State(),
			Valid:     s.valid,
			Stale:     s.stale,
			HeldMs:    s.HeldFor(now),
		}
	}
	e.runtime.Render(&snap)
	return snap
}

// Run steps the engine on a ticker until ctx is cancelled or the bus closes.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Step()
			if e.closed {
				return ErrBusClosed
			}
		}
	}
}

// Rebind replaces the bus after a reconnect. Call it from the engine goroutine
// or before Run.
func (e *Engine) Rebind(bus Bus) {
	e.bus = bus
	e.closed = false
}
