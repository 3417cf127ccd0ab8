// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	bellEnabled bool
	relayAddr   string
	logDir      string
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Run the dashboard as a keypad on the ECU bus",
	Long: `Run the dashboard: decode the ECU broadcast, show 16 configurable slots and
report button presses to the ECU as keypad node 0x0C.

The terminal stands in for the touch panel. Click a slot to press it, hold it
for a second to edit it. With the keyboard, arrows move the cursor, space
presses the slot under it and e opens the editor.

Features:
  - Keypad identity negotiation, keep-alive and button status
  - Per-slot channel, units, decimals, mode and alert limits
  - Layout saved to --store-dir on every change
  - Terminal bell while an alert beeps (--bell)
  - Optional CSV data log (--log-dir) and websocket relay (--relay-addr)
  - Automatic reconnection on connection loss`,
	RunE: runDash,
}

func init() {
	rootCmd.AddCommand(dashCmd)
	dashCmd.Flags().BoolVar(&bellEnabled, "bell", true, "Ring the terminal bell while an alert beeps")
	dashCmd.Flags().StringVar(&relayAddr, "relay-addr", "", "Serve live values over websocket on this address (e.g. :8080)")
	dashCmd.Flags().StringVar(&logDir, "log-dir", "", "Write decoded values to CSV files in this directory")
}

// tuiLogWriter hands log lines to the TUI. It never blocks the engine; lines
// are dropped while the TUI is behind.
type tuiLogWriter struct {
	lines chan string
}

func (w *tuiLogWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	select {
	case w.lines <- line:
	default:
	}
	return len(p), nil
}

// dashSession runs the engine and replaces the bus when it drops.
type dashSession struct {
	engine *dash.Engine
	logger *log.Logger
	p      *tea.Program

	mu  sync.Mutex
	bus *CANBus
}

func (s *dashSession) currentBus() *CANBus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus
}

func (s *dashSession) setBus(bus *CANBus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = bus
}

func runDash(cmd *cobra.Command, args []string) error {
	// Bring-up problems go to stderr; the TUI is not running yet.
	bus, err := OpenBus(cmd.Context(), log.Default())
	if err != nil {
		return err
	}

	lines := make(chan string, 256)
	logger := log.New(&tuiLogWriter{lines: lines}, "", 0)

	var dataLogger dash.DataLogger
	dir := logDir
	if dir == "" && cfg.Datalog.Enabled {
		dir = cfg.Datalog.Dir
	}
	if dir != "" {
		csv := newCSVDataLogger(dir, logger)
		defer csv.Close()
		dataLogger = csv
	}

	var rel *relay
	addr := relayAddr
	if addr == "" {
		addr = cfg.Relay.Listen
	}
	if addr != "" {
		rel = newRelay(logger)
		if err := rel.Start(addr); err != nil {
			bus.Close()
			return err
		}
		defer rel.Close()
	}

	// Latest snapshot only; the TUI never needs a backlog.
	snapshots := make(chan dash.Snapshot, 1)
	publish := func(snap dash.Snapshot) {
		select {
		case snapshots <- snap:
			return
		default:
		}
		select {
		case <-snapshots:
		default:
		}
		select {
		case snapshots <- snap:
		default:
		}
	}

	engine := dash.NewEngine(bus, dash.Options{
		KeepAliveIntervalMs:    uint32(cfg.Timing.KeepAliveMs),
		ButtonStatusIntervalMs: uint32(cfg.Timing.ButtonStatusMs),
		PreemptBudget:          time.Duration(cfg.Timing.PreemptBudgetMs) * time.Millisecond,
		Refresh:                time.Duration(cfg.Timing.RefreshMs) * time.Millisecond,
		Logger:                 logger,
		DataLogger:             dataLogger,
		Store:                  dash.NewStore(dash.DirStorage{Dir: cfg.Store.Dir}, logger),
		Publish:                publish,
	})

	out := newTerminalOutput(os.Stdout)
	var bell io.Writer
	if bellEnabled {
		bell = out
	}
	m := initialDashModel(engine, bus.Info(), bell)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithOutput(out))

	session := &dashSession{engine: engine, logger: logger, p: p, bus: bus}

	ctx, cancel := context.WithCancel(cmd.Context())
	var wg sync.WaitGroup

	// Forward snapshots and log lines to the TUI and relay
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				p.Send(snapshotMsg(snap))
				if rel != nil {
					rel.Broadcast(snap)
				}
			case line := <-lines:
				p.Send(logLineMsg(line))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		session.run(ctx)
	}()

	_, runErr := p.Run()
	cancel()
	wg.Wait()
	session.currentBus().Close()

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// run steps the engine until ctx is cancelled, reconnecting whenever the bus
// closes underneath it.
func (s *dashSession) run(ctx context.Context) {
	for {
		err := s.engine.Run(ctx)
		if !errors.Is(err, dash.ErrBusClosed) {
			return
		}

		s.p.Send(connectionLostMsg{})
		s.logger.Printf("bus: connection lost, reconnecting")

		bus, ok := s.reconnect(ctx)
		if !ok {
			return // Shutdown requested during reconnect
		}
		s.engine.Rebind(bus)
		s.p.Send(reconnectedMsg{connInfo: bus.Info()})
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (s *dashSession) reconnect(ctx context.Context) (*CANBus, bool) {
	if old := s.currentBus(); old != nil {
		old.Close()
	}

	password, err := busPassword()
	if err != nil {
		s.logger.Printf("bus: %v", err)
		return nil, false
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}

		conn, codec, info, err := openConnection(password)
		if err == nil {
			bus := newCANBus(conn, codec, info)
			s.setBus(bus)
			return bus, true
		}
		s.logger.Printf("bus: reconnect failed: %v (next try in %s)", err, min(backoff*2, maxBackoff))

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
