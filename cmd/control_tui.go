// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jblav/mactl/pkg/jbl"
	"github.com/jblav/mactl/pkg/receiver"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxLogEntries = 100
	listWidth     = 34
)

// Focus states
const (
	focusOperations = iota
	focusValueInput
)

// statusRows orders the status panel
var statusRows = []jbl.CommandID{
	jbl.CmdPower, jbl.CmdVolume, jbl.CmdMute, jbl.CmdInputSource, jbl.CmdSurroundMode,
	jbl.CmdTrebleEQ, jbl.CmdBassEQ, jbl.CmdRoomEQ, jbl.CmdDialogEnhanced,
	jbl.CmdDolbyAudioMode, jbl.CmdDRC, jbl.CmdPartyMode, jbl.CmdPartyVolume,
	jbl.CmdDisplayDim, jbl.CmdStreamingState,
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// opItem is one catalog operation in the list
type opItem struct {
	op jbl.Operation
}

// Implement list.Item interface
func (i opItem) Title() string       { return i.op.Name }
func (i opItem) Description() string { return i.op.Help }
func (i opItem) FilterValue() string { return i.op.Name }

// errorLogEntry is one line of the event log
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for informational entries
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	// Connection manager (for sending commands and reconnection)
	connMgr     *connectionManager
	connInfo    string
	model       jbl.Model
	connectedAt time.Time

	// Operations
	opList     list.Model
	valueInput textinput.Model
	pending    *jbl.Operation // operation waiting for a value
	focus      int

	// Monitoring
	stats    *jbl.Statistics
	errorLog []errorLogEntry
	values   map[jbl.CommandID]*jbl.Response // last status update per command

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlBatchMsg struct {
	events []receiver.Event
}

type commandResultMsg struct {
	label    string
	response *jbl.Response
	err      error
	rtt      time.Duration
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
	model    jbl.Model
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string, model jbl.Model) controlModel {
	// Initialize text input for operation values
	ti := textinput.New()
	ti.CharLimit = 24
	ti.Width = 24

	ops := jbl.Operations()
	items := make([]list.Item, 0, len(ops))
	for _, op := range ops {
		items = append(items, opItem{op: op})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	opList := list.New(items, delegate, listWidth-4, 12)
	opList.Title = "Operations"
	opList.SetShowStatusBar(false)
	opList.SetShowHelp(false)

	m := controlModel{
		connMgr:     connMgr,
		connInfo:    connInfo,
		model:       model,
		connectedAt: time.Now(),
		opList:      opList,
		valueInput:  ti,
		focus:       focusOperations,
		stats:       jbl.NewStatistics(),
		errorLog:    make([]errorLogEntry, 0),
		values:      make(map[jbl.CommandID]*jbl.Response),
		width:       80,
		height:      24,
	}
	m.addLogEntry(fmt.Sprintf("Connected to %s", model), false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()
		return m, nil

	case controlTickMsg:
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case controlBatchMsg:
		for _, ev := range msg.events {
			m.processEvent(ev)
		}
		return m, nil

	case commandResultMsg:
		m.processResult(msg)
		return m, nil

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)
		return m, nil

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.model = msg.model
		m.connectedAt = time.Now()
		m.values = make(map[jbl.CommandID]*jbl.Response)
		m.addLogEntry(fmt.Sprintf("Reconnected to %s", msg.model), false)
		return m, nil
	}

	// Update child components
	var cmd tea.Cmd
	if m.focus == focusValueInput {
		m.valueInput, cmd = m.valueInput.Update(msg)
	} else {
		m.opList, cmd = m.opList.Update(msg)
	}
	return m, cmd
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	// While filtering, every key belongs to the list
	if m.focus == focusOperations && m.opList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.opList, cmd = m.opList.Update(msg)
		return m, cmd
	}

	if m.focus == focusValueInput {
		switch msg.String() {
		case "esc", "tab", "shift+tab":
			m.blurInput()
			return m, nil
		case "enter":
			return m.submitValue()
		}
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if item, ok := m.opList.SelectedItem().(opItem); ok && item.op.Arg != jbl.ArgNone {
			m.focusInput(item.op)
		}
		return m, nil

	case "enter":
		return m.handleEnter()

	case "+", "=":
		cmd := m.sendIR(jbl.IRVolumeUp)
		return m, cmd
	case "-":
		cmd := m.sendIR(jbl.IRVolumeDown)
		return m, cmd
	case "m":
		cmd := m.sendIR(jbl.IRMute)
		return m, cmd
	case "p":
		cmd := m.sendIR(jbl.IRPower)
		return m, cmd
	}

	var cmd tea.Cmd
	m.opList, cmd = m.opList.Update(msg)
	return m, cmd
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	item, ok := m.opList.SelectedItem().(opItem)
	if !ok {
		return m, nil
	}
	if item.op.Arg != jbl.ArgNone {
		m.focusInput(item.op)
		return m, nil
	}
	cmd := m.sendOperation(item.op, 0)
	return m, cmd
}

func (m controlModel) submitValue() (tea.Model, tea.Cmd) {
	if m.pending == nil {
		m.blurInput()
		return m, nil
	}
	op := *m.pending

	value := strings.TrimSpace(m.valueInput.Value())
	var args []string
	if value != "" {
		args = []string{value}
	}
	arg, err := parseOperationArg(op, args)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}

	m.blurInput()
	cmd := m.sendOperation(op, arg)
	return m, cmd
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("MACTL CONTROL"))
	s.WriteString(" ")
	connStatus := fmt.Sprintf("%s | %s", m.connInfo, m.model)
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=value /=filter +/-=vol m=mute p=power", connStatus)))
	s.WriteString("\n")
	if !m.connectionLost {
		s.WriteString(fmt.Sprintf(" %s %s",
			statsLabelStyle.Render("Connected for:"),
			statsValueStyle.Render(formatUptime(time.Since(m.connectedAt)))))
	}
	s.WriteString("\n\n")

	// Layout: left panel (operations) | right panel (status)
	rightWidth := m.width - listWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}

	listStyle := boxStyle.Width(listWidth)
	if m.focus == focusOperations {
		listStyle = focusedBoxStyle.Width(listWidth)
	}
	opPanel := listStyle.Render(m.opList.View())

	statusContent := m.renderStatusPanel(statsLabelStyle, statsValueStyle, headerStyle, focusedBoxStyle)
	statusPanel := boxStyle.Width(rightWidth).Render(statusContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, opPanel, " ", statusPanel))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderStatusPanel(statsLabelStyle, statsValueStyle, headerStyle, focusedBoxStyle lipgloss.Style) string {
	var s strings.Builder

	s.WriteString(statsLabelStyle.Render("STATUS"))
	s.WriteString("\n")
	for _, id := range statusRows {
		r, ok := m.values[id]
		if !ok {
			continue
		}
		s.WriteString(statsValueStyle.Render(jbl.FormatValue(id, r.Data())))
		s.WriteString(headerStyle.Render(fmt.Sprintf("  (%s)", r.Timestamp().Format("15:04:05"))))
		s.WriteString("\n")
	}
	if len(m.values) == 0 {
		s.WriteString(headerStyle.Render("(waiting for status)"))
		s.WriteString("\n")
	}

	// Value input for the pending operation
	if m.pending != nil {
		s.WriteString("\n")
		s.WriteString(statsLabelStyle.Render(m.pending.Name + ": "))
		s.WriteString(focusedBoxStyle.Render(m.valueInput.View()))
		s.WriteString("\n")
		s.WriteString(headerStyle.Render("Enter=send Esc=cancel"))
	} else if item, ok := m.opList.SelectedItem().(opItem); ok {
		s.WriteString("\n")
		s.WriteString(fmt.Sprintf("%s %s (0x%02X)\n", statsLabelStyle.Render("Selected:"), item.op.Name, uint8(item.op.Command)))
		models := item.op.Models.String()
		if !item.op.Models.Supports(m.model) {
			models += " - not supported on " + m.model.String()
		}
		s.WriteString(headerStyle.Render(models))
	}

	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		totalErrors := m.stats.DecodeErrors() + m.stats.Anomalies
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), func() string {
			if errorPercent > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
			}
			return statsValueStyle.Render("0.0%")
		}(),
		statsLabelStyle.Render("Rejected:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Rejections)),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frm/s", m.stats.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := 8
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}
	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) processEvent(ev receiver.Event) {
	m.stats.AddDiscarded(ev.Skipped)

	if ev.Err != nil {
		m.stats.Update(nil, ev.Err, nil)
		m.addLogEntry(fmt.Sprintf("DECODE ERROR (%s): %s", jbl.FailureReason(ev.Err), jbl.FormatHex(ev.Raw)), true)
		return
	}

	r := ev.Response
	validationErrors := jbl.ValidateResponse(r)
	m.stats.Update(r, nil, validationErrors)

	for _, v := range validationErrors {
		if v.Type != jbl.AnomalyRejected {
			m.addLogEntry(fmt.Sprintf("%s: %s", r.Command(), v.Message), true)
		}
	}

	if r.IsRejection() || len(r.Data()) == 0 {
		return
	}
	old, seen := m.values[r.Command()]
	m.values[r.Command()] = r
	if seen && !bytes.Equal(old.Data(), r.Data()) {
		m.addLogEntry(jbl.FormatValue(r.Command(), r.Data()), false)
	}
}

func (m *controlModel) processResult(msg commandResultMsg) {
	var rej *jbl.RejectionError
	switch {
	case errors.As(msg.err, &rej):
		m.addLogEntry(fmt.Sprintf("%s rejected: %s", msg.label, rej.Code), true)
	case msg.err != nil:
		m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.label, msg.err), true)
	default:
		detail := ""
		if len(msg.response.Data()) > 0 {
			detail = " -> " + jbl.FormatValue(msg.response.Command(), msg.response.Data())
		}
		m.addLogEntry(fmt.Sprintf("%s ok%s (rtt=%v)", msg.label, detail, msg.rtt.Round(time.Millisecond)), false)
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *controlModel) sendOperation(op jbl.Operation, arg int) tea.Cmd {
	// Don't allow control commands while connection is lost
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return nil
	}
	if !op.Models.Supports(m.model) {
		m.addLogEntry(fmt.Sprintf("Warning: %s is not supported on %s", op.Name, m.model), true)
	}
	return m.connMgr.request(op.Name, op.Frame(arg), op.Command)
}

func (m *controlModel) sendIR(code jbl.IRCode) tea.Cmd {
	if m.connectionLost {
		m.addLogEntry("Cannot send IR key: connection lost", true)
		return nil
	}
	return m.connMgr.request("IR "+code.String(), jbl.EncodeIR(code), jbl.CmdSimulateIR)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-maxLogEntries:]
	}
}

func (m *controlModel) focusInput(op jbl.Operation) {
	m.pending = &op
	m.focus = focusValueInput
	m.valueInput.SetValue("")
	m.valueInput.Placeholder = argPlaceholder(op.Arg)
	m.valueInput.Focus()
}

func (m *controlModel) blurInput() {
	m.pending = nil
	m.focus = focusOperations
	m.valueInput.Blur()
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 6 {
		listHeight = 6
	}
	m.opList.SetSize(listWidth-4, listHeight)
}

func argPlaceholder(k jbl.ArgKind) string {
	switch k {
	case jbl.ArgNumber:
		return "35"
	case jbl.ArgInput:
		return "hdmi1"
	case jbl.ArgSurround:
		return "native"
	case jbl.ArgVersion:
		return "ip"
	case jbl.ArgIRCode:
		return "VOL_UP"
	}
	return ""
}

// formatUptime formats a duration to a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
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
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, ", ")
}
