// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const monitorTopIDs = 8

// monitorBatchMsg carries the frames read since the previous batch.
type monitorBatchMsg struct {
	frames        []haltech.Frame
	adapterErrors uint64
}

// TUI model
type monitorModel struct {
	connInfo      string
	statsInterval int
	showAll       bool
	mon           *busMonitor
	log           *eventLog
	adapterErrors uint64
	connected     bool
	width         int
	height        int
	quitting      bool
}

func initialMonitorModel(connInfo string, statsInterval int, showAll bool) monitorModel {
	events := newEventLog(100)
	return monitorModel{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		mon:           newBusMonitor(events.add),
		log:           events,
		connected:     true,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tickCmd(time.Second)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.mon.stats.CalculateRates()
		return m, tickCmd(time.Second)

	case connectionLostMsg:
		m.connected = false
		m.log.add("Connection lost", true)

	case monitorBatchMsg:
		if msg.adapterErrors > m.adapterErrors {
			m.log.add(fmt.Sprintf("Adapter reported %d undecodable lines", msg.adapterErrors-m.adapterErrors), true)
			m.adapterErrors = msg.adapterErrors
		}
		for _, f := range msg.frames {
			m.processFrame(f)
		}
	}

	return m, nil
}

func (m monitorModel) processFrame(f haltech.Frame) {
	validationErrors := m.mon.process(f)
	name := haltech.FormatFrameName(f.ID, m.mon.table)
	if len(validationErrors) > 0 {
		for _, err := range validationErrors {
			m.log.add(fmt.Sprintf("%s: %s", name, err.Message), err.Type != haltech.AnomalyLengthMismatch)
		}
	} else if m.showAll {
		m.log.add(fmt.Sprintf("%s %v", name, f), false)
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	stats := m.mon.stats

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("NUCLEARDASH - BUS MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Mode: %s | Press 'q' to quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	if !m.connected {
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	} else if stats.TotalFrames == 0 {
		s.WriteString(warningStyle.Render("⏳ Waiting for traffic..."))
	} else {
		s.WriteString(statsValueStyle.Render("✓ Receiving"))
		s.WriteString(headerStyle.Render(" for " + formatUptime(uint64(time.Since(stats.StartTime).Milliseconds()))))
	}
	s.WriteString("\n\n")

	// Statistics
	var decodedPercent, errorPercent float64
	if stats.TotalFrames > 0 {
		decodedPercent = float64(stats.DecodedFrames) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(stats.Errors()) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Decoded:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.DecodedFrames, decodedPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.Errors(), errorPercent)),
	))

	if stats.InvalidFrames > 0 || stats.LengthMismatches > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Invalid:"), errorStyle.Render(fmt.Sprintf("%d", stats.InvalidFrames)),
			statsLabelStyle.Render("Short:"), warningStyle.Render(fmt.Sprintf("%d", stats.LengthMismatches)),
		))
	}

	if stats.UnknownFrames > 0 || stats.LateUpdates > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Unknown IDs:"), warningStyle.Render(fmt.Sprintf("%d", stats.UnknownFrames)),
			statsLabelStyle.Render("Late:"), warningStyle.Render(fmt.Sprintf("%d", stats.LateUpdates)),
		))
	}

	if stats.KeypadRequests > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Keypad Queries:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.KeypadRequests)),
		))
		if stats.UnknownKeypadRequests > 0 {
			statsContent.WriteString(fmt.Sprintf(" (%s: %d)",
				headerStyle.Render("unrecognised"), stats.UnknownKeypadRequests,
			))
		}
		statsContent.WriteString("\n")
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Busiest ids
	if top := m.mon.topIDs(monitorTopIDs); len(top) > 0 {
		s.WriteString(statsLabelStyle.Render("Bus IDs:"))
		s.WriteString("\n")

		idContent := strings.Builder{}
		for i, c := range top {
			if i > 0 {
				idContent.WriteString("\n")
			}
			idContent.WriteString(fmt.Sprintf("%s %-16s %s",
				statsLabelStyle.Render(fmt.Sprintf("0x%03X", c.id)),
				m.describeID(c.id),
				statsValueStyle.Render(fmt.Sprintf("%d", c.count)),
			))
		}
		s.WriteString(boxStyle.Render(idContent.String()))
		s.WriteString("\n\n")
	}

	if stale := m.mon.staleNames(); len(stale) > 0 {
		s.WriteString(statsLabelStyle.Render("Stale: "))
		s.WriteString(warningStyle.Render(strings.Join(stale, ", ")))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(m.log.render(m.height-lipgloss.Height(s.String())-3, m.width-4))

	return s.String()
}

// describeID names the channels an id carries, or its keypad role.
func (m monitorModel) describeID(id uint32) string {
	channels := m.mon.table.ChannelsForBusID(id)
	if len(channels) == 0 {
		return haltech.FormatFrameName(id, m.mon.table)
	}
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		sig, _ := m.mon.table.Signal(ch)
		names = append(names, sig.ShortName)
	}
	return strings.Join(names, "/")
}
