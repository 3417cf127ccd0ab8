// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	gridColumns = 4
	gridRows    = dash.NumSlots / gridColumns

	// Rows above the grid: title line and a blank line.
	gridTop = 2

	minCellInnerWidth = 12
	cellInnerHeight   = 3

	// How long a space bar press holds a slot down.
	keyPressDuration = 200 * time.Millisecond

	dashLogLines = 6
)

// View states
const (
	viewGrid = iota
	viewEditor
	viewChannels
	viewAlertEntry
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type editorItemKind int

const (
	itemBack editorItemKind = iota
	itemAction
	itemChannel
	itemAlertEntry
)

// editorItem is one line of the slot editor menu
type editorItem struct {
	title  string
	desc   string
	kind   editorItemKind
	action dash.MenuAction
}

// Implement list.Item interface
func (i editorItem) Title() string       { return i.title }
func (i editorItem) Description() string { return i.desc }
func (i editorItem) FilterValue() string { return i.title }

func editorItems() []list.Item {
	action := func(title, desc string, a dash.MenuAction) list.Item {
		return editorItem{title: title, desc: desc, kind: itemAction, action: a}
	}
	return []list.Item{
		editorItem{title: "Back", desc: "Save and return to the dashboard", kind: itemBack},
		editorItem{title: "Channel...", desc: "Pick the value this slot shows", kind: itemChannel},
		action("Alert min -", "Lower the low alert limit", dash.ActionAlertMinDown),
		action("Alert min +", "Raise the low alert limit", dash.ActionAlertMinUp),
		action("Alert max -", "Lower the high alert limit", dash.ActionAlertMaxDown),
		action("Alert max +", "Raise the high alert limit", dash.ActionAlertMaxUp),
		action("Clear alert min", "Disable the low alert limit", dash.ActionAlertMinClear),
		action("Clear alert max", "Disable the high alert limit", dash.ActionAlertMaxClear),
		editorItem{title: "Alert limits...", desc: "Type exact limits", kind: itemAlertEntry},
		action("Beep on", "Sound while in alert", dash.ActionBeepOn),
		action("Beep off", "Stay quiet while in alert", dash.ActionBeepOff),
		action("Flash on", "Flash while in alert", dash.ActionFlashOn),
		action("Flash off", "Stay steady while in alert", dash.ActionFlashOff),
		action("Decimals -", "Show fewer decimal places", dash.ActionDecimalsDown),
		action("Decimals +", "Show more decimal places", dash.ActionDecimalsUp),
		action("Units <", "Previous unit", dash.ActionUnitsBack),
		action("Units >", "Next unit", dash.ActionUnitsForward),
		action("Mode: none", "Report the raw press", dash.ActionModeNone),
		action("Mode: momentary", "On while held", dash.ActionModeMomentary),
		action("Mode: toggle", "Flip on each press", dash.ActionModeToggle),
	}
}

// channelItem is a selectable signal in the channel picker
type channelItem struct {
	sig haltech.Signal
}

func (c channelItem) Title() string { return c.sig.Name }
func (c channelItem) Description() string {
	return fmt.Sprintf("0x%03X  %s  %s", c.sig.BusID, c.sig.ShortName, c.sig.Unit)
}
func (c channelItem) FilterValue() string { return c.sig.Name + " " + c.sig.ShortName }

// dashModel is the Bubble Tea model for the dashboard
type dashModel struct {
	engine   *dash.Engine
	connInfo string
	bell     io.Writer // nil disables the bell

	signals map[haltech.ChannelID]haltech.Signal

	// Latest engine state
	snap     dash.Snapshot
	haveSnap bool
	lastBeep bool

	// Touch
	touched     int // slot under the mouse, -1 for none
	mouseDown   bool
	keyHeld     bool
	longHandled bool
	cursor      int

	// Editing
	view        int
	editing     int
	editorList  list.Model
	channelList list.Model
	alertInput  textinput.Model

	events *eventLog

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type snapshotMsg dash.Snapshot

type keyReleaseMsg struct{}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialDashModel(engine *dash.Engine, connInfo string, bell io.Writer) dashModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)

	editorList := list.New(editorItems(), delegate, 40, 16)
	editorList.SetShowStatusBar(false)
	editorList.SetShowHelp(false)
	editorList.SetFilteringEnabled(false)

	signals := haltech.Signals()
	byID := make(map[haltech.ChannelID]haltech.Signal, len(signals))
	channelItems := make([]list.Item, 0, len(signals))
	for _, sig := range signals {
		byID[sig.ID] = sig
		channelItems = append(channelItems, channelItem{sig: sig})
	}
	channelList := list.New(channelItems, delegate, 40, 16)
	channelList.Title = "Channels"
	channelList.SetShowStatusBar(false)
	channelList.SetShowHelp(false)

	ti := textinput.New()
	ti.Placeholder = "min max (- for off)"
	ti.CharLimit = 32
	ti.Width = 30

	return dashModel{
		engine:      engine,
		connInfo:    connInfo,
		bell:        bell,
		signals:     byID,
		touched:     -1,
		editorList:  editorList,
		channelList: channelList,
		alertInput:  ti,
		events:      newEventLog(100),
		width:       80,
		height:      24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m dashModel) Init() tea.Cmd {
	return nil
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case snapshotMsg:
		return m.handleSnapshot(dash.Snapshot(msg))

	case keyReleaseMsg:
		if m.keyHeld {
			m.keyHeld = false
			m.engine.Touch(-1)
		}

	case logLineMsg:
		m.events.add(string(msg), strings.Contains(string(msg), "failed"))

	case connectionLostMsg:
		m.connectionLost = true
		m.events.add("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.events.add("Reconnected to "+msg.connInfo, false)
	}

	return m, nil
}

func (m dashModel) handleSnapshot(snap dash.Snapshot) (tea.Model, tea.Cmd) {
	if !m.haveSnap {
		m.events.add(fmt.Sprintf("Layout: %s", snap.LoadResult), snap.LoadResult == dash.LoadFailed)
	}
	m.snap = snap
	m.haveSnap = true

	var cmd tea.Cmd
	if m.bell != nil && snap.Beep && !m.lastBeep {
		cmd = ringBell(m.bell)
	}
	m.lastBeep = snap.Beep

	// Long press opens the editor once per press.
	if m.view == viewGrid && m.touched >= 0 && !m.longHandled &&
		snap.Slots[m.touched].HeldMs > haltech.LongPressMs {
		m.longHandled = true
		slot := m.touched
		m.touched = -1
		m.engine.Touch(-1)
		m.openEditor(slot)
	}
	return m, cmd
}

// ringBell writes BEL through the program's own output so it cannot split a
// rendered frame.
func ringBell(w io.Writer) tea.Cmd {
	return func() tea.Msg {
		_, _ = io.WriteString(w, "\a")
		return nil
	}
}

func (m dashModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.view {
	case viewEditor:
		return m.handleEditorKey(msg)
	case viewChannels:
		return m.handleChannelKey(msg)
	case viewAlertEntry:
		return m.handleAlertKey(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		m.moveCursor(-1, 0)
	case "right", "l":
		m.moveCursor(1, 0)
	case "up", "k":
		m.moveCursor(0, -1)
	case "down", "j":
		m.moveCursor(0, 1)

	case " ":
		if m.keyHeld || m.touched >= 0 {
			return m, nil
		}
		m.keyHeld = true
		m.engine.Touch(m.cursor)
		return m, tea.Tick(keyPressDuration, func(time.Time) tea.Msg { return keyReleaseMsg{} })

	case "e", "enter":
		m.openEditor(m.cursor)
	}
	return m, nil
}

func (m dashModel) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.closeEditor()
		return m, nil

	case "enter":
		item, ok := m.editorList.SelectedItem().(editorItem)
		if !ok {
			return m, nil
		}
		switch item.kind {
		case itemBack:
			m.closeEditor()
		case itemAction:
			m.queue(m.engine.Edit(m.editing, item.action))
		case itemChannel:
			m.view = viewChannels
			m.channelList.ResetFilter()
			m.selectChannel(m.snap.Slots[m.editing].Config.Channel)
		case itemAlertEntry:
			m.view = viewAlertEntry
			m.alertInput.SetValue(formatAlertBounds(m.snap.Slots[m.editing].Config))
			m.alertInput.CursorEnd()
			return m, m.alertInput.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editorList, cmd = m.editorList.Update(msg)
	return m, cmd
}

func (m dashModel) handleChannelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.channelList.FilterState() != list.Filtering {
		switch msg.String() {
		case "esc", "q":
			if m.channelList.FilterState() == list.FilterApplied {
				m.channelList.ResetFilter()
				return m, nil
			}
			m.view = viewEditor
			return m, nil

		case "enter":
			if item, ok := m.channelList.SelectedItem().(channelItem); ok {
				slot, id := m.editing, item.sig.ID
				m.queue(m.engine.Do(func(r *dash.Runtime) bool {
					return r.SetChannel(slot, id) == nil
				}))
				m.events.add(fmt.Sprintf("Slot %d: %s", slot+1, item.sig.Name), false)
			}
			m.view = viewEditor
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.channelList, cmd = m.channelList.Update(msg)
	return m, cmd
}

func (m dashModel) handleAlertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.alertInput.Blur()
		m.view = viewEditor
		return m, nil

	case "enter":
		lo, hi, err := parseAlertBounds(m.alertInput.Value())
		if err != nil {
			m.events.add(fmt.Sprintf("Alert limits: %v", err), true)
			return m, nil
		}
		slot := m.editing
		m.queue(m.engine.Do(func(r *dash.Runtime) bool {
			return r.SetAlertBounds(slot, lo, hi) == nil
		}))
		m.alertInput.Blur()
		m.view = viewEditor
		return m, nil
	}

	var cmd tea.Cmd
	m.alertInput, cmd = m.alertInput.Update(msg)
	return m, cmd
}

func (m dashModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.view != viewGrid {
		return m, nil
	}
	// Some terminals report releases without a button.
	if msg.Action != tea.MouseActionRelease && msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		slot := m.hitTest(msg.X, msg.Y)
		if slot < 0 {
			return m, nil
		}
		m.touched = slot
		m.cursor = slot
		m.mouseDown = true
		m.longHandled = false
		m.engine.Touch(slot)

	case tea.MouseActionMotion:
		if !m.mouseDown || m.longHandled {
			return m, nil
		}
		if slot := m.hitTest(msg.X, msg.Y); slot != m.touched {
			m.touched = slot
			m.engine.Touch(slot)
		}

	case tea.MouseActionRelease:
		if m.touched >= 0 {
			m.engine.Touch(-1)
		}
		m.touched = -1
		m.mouseDown = false
		m.longHandled = false
	}
	return m, nil
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m dashModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Header (one line; the grid hit test depends on it)
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	helpText := "click=press hold=edit arrows/space/e q=quit"
	if m.view != viewGrid {
		helpText = "enter=select esc=back"
	}
	header := titleStyle.Render("NUCLEARDASH") + " " +
		headerStyle.Render(fmt.Sprintf("| %s | %s", connStatus, helpText))
	s.WriteString(lipgloss.NewStyle().MaxWidth(m.width).Render(header))
	s.WriteString("\n\n")

	switch m.view {
	case viewGrid:
		s.WriteString(m.renderGrid())
	case viewEditor:
		s.WriteString(m.renderEditor(m.editorList.View()))
	case viewChannels:
		s.WriteString(m.renderEditor(m.channelList.View()))
	case viewAlertEntry:
		s.WriteString(m.renderEditor(statsLabelStyle.Render("Alert limits: ") + m.alertInput.View()))
	}
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n")
	s.WriteString(m.events.render(dashLogLines, m.width-4))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

// cellInnerWidth is the content width of one grid cell for the current
// terminal width.
func (m dashModel) cellInnerWidth() int {
	w := m.width/gridColumns - 2 // border
	if w < minCellInnerWidth {
		w = minCellInnerWidth
	}
	return w
}

// hitTest maps a terminal cell to a slot index, or -1 outside the grid.
func (m dashModel) hitTest(x, y int) int {
	outerW := m.cellInnerWidth() + 2
	outerH := cellInnerHeight + 2
	if x < 0 || y < gridTop {
		return -1
	}
	col := x / outerW
	row := (y - gridTop) / outerH
	if col >= gridColumns || row >= gridRows {
		return -1
	}
	return row*gridColumns + col
}

func (m dashModel) renderGrid() string {
	rows := make([]string, 0, gridRows)
	for r := 0; r < gridRows; r++ {
		cells := make([]string, 0, gridColumns)
		for c := 0; c < gridColumns; c++ {
			i := r*gridColumns + c
			cells = append(cells, m.renderCell(i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m dashModel) renderCell(i int) string {
	inner := m.cellInnerWidth()
	v := m.snap.Slots[i]

	name, text, unit := v.Name, v.Text, v.UnitLabel
	if !m.haveSnap {
		name, text, unit = "", "--", ""
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(inner).
		Height(cellInnerHeight).
		Align(lipgloss.Center)

	switch {
	case v.Alert:
		style = style.BorderForeground(lipgloss.Color("9"))
	case v.Active && v.Config.Mode != dash.ModeNone:
		style = style.BorderForeground(lipgloss.Color("10"))
	}
	if i == m.cursor {
		style = style.Border(lipgloss.ThickBorder())
		if !v.Alert && !v.Active {
			style = style.BorderForeground(lipgloss.Color("12"))
		}
	}

	nameLine := truncate(name, inner)
	valueLine := truncate(text, inner)
	unitLine := truncate(unit, inner)

	if v.Inverted {
		style = style.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
		return style.Render(nameLine + "\n" + valueLine + "\n" + unitLine)
	}

	valueStyle := statsValueStyle.Bold(true)
	if v.Stale || !v.Valid {
		valueStyle = warningStyle
	}
	if v.Alert {
		valueStyle = errorStyle
	}
	return style.Render(headerStyle.Render(nameLine) + "\n" + valueStyle.Render(valueLine) + "\n" + headerStyle.Render(unitLine))
}

func (m dashModel) renderEditor(body string) string {
	cfg := m.snap.Slots[m.editing].Config
	name := fmt.Sprintf("Channel %d", cfg.Channel)
	if sig, ok := m.signals[cfg.Channel]; ok {
		name = sig.Name
	}

	var info strings.Builder
	info.WriteString(fmt.Sprintf("%s %d\n", statsLabelStyle.Render("Slot:"), m.editing+1))
	info.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Channel:"), statsValueStyle.Render(name)))
	info.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Unit:"), statsValueStyle.Render(cfg.Unit.String())))
	info.WriteString(fmt.Sprintf("%s %d\n", statsLabelStyle.Render("Decimals:"), cfg.Decimals))
	info.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Mode:"), cfg.Mode))
	info.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Alert min:"), formatAlertLimit(cfg.AlertMin, cfg.Decimals)))
	info.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Alert max:"), formatAlertLimit(cfg.AlertMax, cfg.Decimals)))
	info.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Beep:"), onOff(cfg.AlertBeep),
		statsLabelStyle.Render("Flash:"), onOff(cfg.AlertFlash)))

	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}
	left := boxStyle.Width(leftWidth).Render(info.String())
	right := boxStyle.BorderForeground(lipgloss.Color("12")).Width(rightWidth).Render(body)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func (m dashModel) renderStatisticsBar() string {
	stats := m.snap.Stats
	errText := statsValueStyle.Render("0")
	if n := stats.Errors(); n > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%d", n))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.0f f/s", stats.FrameRate)),
		statsLabelStyle.Render("Decoded:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.DecodedFrames)),
		statsLabelStyle.Render("Unknown:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.UnknownFrames)),
		statsLabelStyle.Render("Errors:"), errText,
		statsLabelStyle.Render("TX:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", stats.TxFrames, m.snap.PendingTx)),
		statsLabelStyle.Render("Up:"), statsValueStyle.Render(formatUptime(m.snap.UptimeMs)),
	)
	if n := len(m.snap.Stale); n > 0 {
		content += "  " + warningStyle.Render(fmt.Sprintf("%d stale", n))
	}
	return boxStyle.Width(m.width - 4).Render(content)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *dashModel) moveCursor(dx, dy int) {
	col := m.cursor%gridColumns + dx
	row := m.cursor/gridColumns + dy
	col = (col + gridColumns) % gridColumns
	row = (row + gridRows) % gridRows
	m.cursor = row*gridColumns + col
}

func (m *dashModel) openEditor(slot int) {
	m.editing = slot
	m.cursor = slot
	m.view = viewEditor
	m.editorList.Select(0)
	m.editorList.Title = fmt.Sprintf("Slot %d", slot+1)
}

func (m *dashModel) closeEditor() {
	// Persist on the way out even if nothing changed.
	m.queue(m.engine.Do(func(*dash.Runtime) bool { return true }))
	m.view = viewGrid
}

func (m *dashModel) queue(ok bool) {
	if !ok {
		m.events.add("Engine busy, edit dropped", true)
	}
}

func (m *dashModel) selectChannel(id haltech.ChannelID) {
	for i, item := range m.channelList.Items() {
		if c, ok := item.(channelItem); ok && c.sig.ID == id {
			m.channelList.Select(i)
			return
		}
	}
}

func (m *dashModel) updateListSize() {
	w := m.width - 40
	if w < 20 {
		w = 20
	}
	h := m.height - gridTop - dashLogLines - 8
	if h < 6 {
		h = 6
	}
	m.editorList.SetSize(w, h)
	m.channelList.SetSize(w, h)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}

func onOff(b bool) string {
	if b {
		return statsValueStyle.Render("on")
	}
	return headerStyle.Render("off")
}

func alertDisabled(v float32) bool {
	return v <= dash.AlertDisabledMin || v >= dash.AlertDisabledMax
}

func formatAlertLimit(v float32, decimals uint8) string {
	if alertDisabled(v) {
		return headerStyle.Render("off")
	}
	return statsValueStyle.Render(haltech.FormatValue(v, decimals))
}

// formatAlertBounds renders limits the way parseAlertBounds reads them.
func formatAlertBounds(c dash.SlotConfig) string {
	part := func(v float32) string {
		if alertDisabled(v) {
			return "-"
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return part(c.AlertMin) + " " + part(c.AlertMax)
}

// parseAlertBounds reads "min max", where "-" or "off" disables a limit.
func parseAlertBounds(s string) (lo, hi float32, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want two values, got %d", len(fields))
	}
	parse := func(f string, disabled float32) (float32, error) {
		switch strings.ToLower(f) {
		case "-", "off":
			return disabled, nil
		}
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return 0, fmt.Errorf("bad limit %q", f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("bad limit %q", f)
		}
		return float32(v), nil
	}
	if lo, err = parse(fields[0], dash.AlertDisabledMin); err != nil {
		return 0, 0, err
	}
	if hi, err = parse(fields[1], dash.AlertDisabledMax); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("min %v above max %v", lo, hi)
	}
	return lo, hi, nil
}
