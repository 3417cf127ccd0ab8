// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch bus health: rates, unknown ids, anomalies and stale channels",
	Long: `Passively track CAN traffic with statistics. Nothing is transmitted.

This command validates each frame and detects:
  - Invalid frames (identifier out of range, length over 8)
  - Frames shorter than the channels they carry
  - Broadcast ids with no known channels
  - Channels updated later than twice their broadcast period
  - Keypad queries this tool would not recognise
  - Statistics and trends (frame rate, error rate)

By default, only problems are displayed. Use --show-all to display every frame.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// busMonitor decodes without answering anything. It is not safe for
// concurrent use; each mode drives it from one goroutine.
type busMonitor struct {
	table    *haltech.Table
	decoder  *haltech.Decoder
	stats    *haltech.Statistics
	idCounts map[uint32]uint64
	start    time.Time

	// events receives late updates and unrecognised keypad requests.
	events func(message string, isError bool)
}

func newBusMonitor(events func(string, bool)) *busMonitor {
	m := &busMonitor{
		table:    haltech.NewDefaultTable(),
		stats:    haltech.NewStatistics(),
		idCounts: make(map[uint32]uint64),
		start:    time.Now(),
		events:   events,
	}
	m.decoder = haltech.NewDecoder(m.table, m.stats, nil)
	m.decoder.OnLate = func(id haltech.ChannelID, gapMs uint64) {
		sig, _ := m.table.Signal(id)
		m.report(fmt.Sprintf("%s late: %d ms (period %d ms)", sig.Name, gapMs, sig.PeriodMs), false)
	}
	return m
}

func (m *busMonitor) report(message string, isError bool) {
	if m.events != nil {
		m.events(message, isError)
	}
}

func (m *busMonitor) nowMs() uint64 {
	return uint64(time.Since(m.start).Milliseconds())
}

// process records one frame and returns the anomalies found in it.
func (m *busMonitor) process(f haltech.Frame) []haltech.ValidationError {
	validationErrors := haltech.ValidateFrame(f, m.table)
	m.stats.Update(validationErrors)
	m.idCounts[f.ID]++

	for _, v := range validationErrors {
		if v.Type != haltech.AnomalyLengthMismatch {
			return validationErrors
		}
	}

	switch {
	case f.Extended:
		m.stats.UnknownFrames++
	case f.ID == haltech.KeypadQueryID:
		m.stats.KeypadRequests++
		if _, ok := haltech.KeypadResponse(f.Padded()); !ok {
			m.stats.UnknownKeypadRequests++
			m.report(fmt.Sprintf("unrecognised keypad request % X", f.Payload()), false)
		}
	case f.ID == haltech.KeypadResponseID, f.ID == haltech.KeepAliveID, f.ID == haltech.ButtonStatusID:
		// another keypad talking
	default:
		if len(m.decoder.Decode(f.ID, f.Padded(), m.nowMs())) == 0 && m.idCounts[f.ID] == 1 {
			m.report(fmt.Sprintf("new unknown id 0x%03X", f.ID), false)
		}
	}
	return validationErrors
}

// staleNames lists channels that have been seen but stopped updating.
func (m *busMonitor) staleNames() []string {
	var names []string
	for _, id := range m.table.Stale(m.nowMs()) {
		sig, _ := m.table.Signal(id)
		names = append(names, sig.ShortName)
	}
	return names
}

type idCount struct {
	id    uint32
	count uint64
}

// topIDs returns the busiest ids, most frames first.
func (m *busMonitor) topIDs(n int) []idCount {
	out := make([]idCount, 0, len(m.idCounts))
	for id, c := range m.idCounts {
		out = append(out, idCount{id, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].id < out[j].id
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func runMonitor(cmd *cobra.Command, args []string) error {
	bus, err := OpenBus(cmd.Context(), log.Default())
	if err != nil {
		return err
	}
	defer bus.Close()

	if useTUI {
		return runMonitorTUI(bus)
	}
	return runMonitorText(bus)
}

// printValidationErrors prints the anomalies of one frame
func printValidationErrors(f haltech.Frame, table *haltech.Table, errors []haltech.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s %v\n", timestamp, haltech.FormatFrameName(f.ID, table), f)

	for i, err := range errors {
		switch err.Type {
		case haltech.AnomalyInvalidID, haltech.AnomalyInvalidLength:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			fmt.Printf("  >>> FRAME DROPPED <<<\n")

		case haltech.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if length, ok := err.Details["length"].(uint8); ok {
				if minimum, ok := err.Details["minimum"].(uint8); ok {
					fmt.Printf("    Length: received=%d, needed=%d (missing bytes read as zero)\n", length, minimum)
				}
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}
	fmt.Println()
}

// runMonitorText prints problems as they happen and a summary every interval.
func runMonitorText(bus *CANBus) error {
	fmt.Printf("NuclearDash - Bus Monitor\n")
	fmt.Printf("Connection: %s\n", bus.Info())
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	mon := newBusMonitor(func(message string, isError bool) {
		fmt.Printf("[%s] \033[1;33mNOTICE:\033[0m %s\n", time.Now().Format("15:04:05.000"), message)
	})

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	for {
		select {
		case <-interrupt:
			fmt.Println()
			fmt.Print(mon.stats.String())
			return nil

		case f, ok := <-bus.Frames():
			if !ok {
				log.Printf("Connection closed")
				return nil
			}
			validationErrors := mon.process(f)
			if len(validationErrors) > 0 {
				printValidationErrors(f, mon.table, validationErrors)
			} else if showAll {
				fmt.Print(haltech.FormatFrame(f, mon.table, time.Now()))
			}

		case <-statsTicker.C:
			mon.stats.CalculateRates()
			fmt.Println()
			fmt.Print(mon.stats.String())
			if stale := mon.staleNames(); len(stale) > 0 {
				fmt.Printf("Stale:           %s\n", strings.Join(stale, ", "))
			}
			if n := bus.DecodeErrors(); n > 0 {
				fmt.Printf("Adapter errors:  %8d\n", n)
			}
			fmt.Println()
		}
	}
}

// runMonitorTUI batches frames to the TUI on a fixed cadence.
func runMonitorTUI(bus *CANBus) error {
	m := initialMonitorModel(bus.Info(), statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		var batch []haltech.Frame
		for {
			select {
			case <-done:
				return
			case f, ok := <-bus.Frames():
				if !ok {
					p.Send(connectionLostMsg{})
					return
				}
				batch = append(batch, f)
			case <-ticker.C:
				if len(batch) > 0 {
					p.Send(monitorBatchMsg{frames: batch, adapterErrors: bus.DecodeErrors()})
					batch = nil
				}
			}
		}
	}()

	_, err := p.Run()
	close(done)
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
