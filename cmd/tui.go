// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Terminal output
//////////////////////////////////////////////////////////////

// terminalOutput is the terminal the program renders to. Every write holds the
// lock, so bytes sent outside the renderer land between frames. It keeps the
// file's descriptor visible to bubbletea for raw mode and resize handling.
type terminalOutput struct {
	*os.File
	mu sync.Mutex
}

func newTerminalOutput(f *os.File) *terminalOutput {
	return &terminalOutput{File: f}
}

func (t *terminalOutput) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.File.Write(p)
}

func (t *terminalOutput) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

//////////////////////////////////////////////////////////////
// Styles
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

//////////////////////////////////////////////////////////////
// Shared Messages
//////////////////////////////////////////////////////////////

type tickMsg time.Time

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

// logLineMsg carries one line written to the standard logger while a TUI
// owns the terminal.
type logLineMsg string

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

//////////////////////////////////////////////////////////////
// Event Log
//////////////////////////////////////////////////////////////

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// eventLog keeps the most recent entries. Models hold it by pointer so that
// callbacks registered outside Update can append to it.
type eventLog struct {
	entries []errorLogEntry
	max     int
}

func newEventLog(max int) *eventLog {
	return &eventLog{max: max}
}

func (l *eventLog) add(message string, isError bool) {
	l.entries = append(l.entries, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// render draws the newest lines that fit in height rows.
func (l *eventLog) render(height, width int) string {
	if height < 5 {
		height = 5
	}

	content := strings.Builder{}
	startIdx := len(l.entries) - height
	if startIdx < 0 {
		startIdx = 0
	}

	if len(l.entries) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(l.entries); i++ {
			entry := l.entries[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				content.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	if width < 20 {
		width = 20
	}
	return boxStyle.Width(width).Render(strings.TrimRight(content.String(), "\n"))
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// formatUptime formats uptime in milliseconds to human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}
