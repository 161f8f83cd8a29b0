// Package ui renders monitor reports as a terminal level meter.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"i2saudio/host/monitor"
)

const (
	meterFloorDB = -60.0 // Left edge of the meter
	meterWidth   = 40
	warnDB       = -12.0
	clipDB       = -1.0
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	clipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// ReportMsg delivers a monitor report to the model
type ReportMsg monitor.Report

// ErrMsg reports that the monitor stopped
type ErrMsg struct{ Err error }

// Model holds the TUI state
type Model struct {
	device string
	last   monitor.Report
	have   bool

	totalBlocks uint64
	totalLost   uint64
	err         error

	width int
}

// NewModel creates a model for the given serial device
func NewModel(device string) Model {
	return Model{device: device}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.totalBlocks = 0
			m.totalLost = 0
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ReportMsg:
		m.last = monitor.Report(msg)
		m.have = true
		m.totalBlocks += uint64(msg.Blocks)
		m.totalLost += uint64(msg.Lost)
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("I2S Audio Monitor - " + m.device))
	sb.WriteString("\n\n")

	if !m.have {
		sb.WriteString("Waiting for blocks...\n")
	} else {
		r := m.last
		fmt.Fprintf(&sb, "Channels: %d", r.Channels)
		if r.SampleRate > 0 {
			fmt.Fprintf(&sb, "   fs ~ %d Hz", r.SampleRate)
		}
		sb.WriteString("\n\n")

		for i, l := range r.Levels {
			fmt.Fprintf(&sb, "ch%-2d peak %s %6.1f dB\n", i, styledMeter(l.PeakDB), l.PeakDB)
			fmt.Fprintf(&sb, "     rms  %s %6.1f dB\n", styledMeter(l.RMSDB), l.RMSDB)
		}

		fmt.Fprintf(&sb, "\nBlocks: %d   Lost: %d", m.totalBlocks, m.totalLost)
		if r.Discarded > 0 || r.Errors > 0 {
			fmt.Fprintf(&sb, "   Discarded: %d bytes   Corrupt: %d", r.Discarded, r.Errors)
		}
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n" + errStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	sb.WriteString("\n" + helpStyle.Render("q: quit   r: reset counters") + "\n")
	return sb.String()
}

// Err returns the error that stopped the monitor, if any
func (m Model) Err() error {
	return m.err
}

// styledMeter colours the bar by how close it is to full scale
func styledMeter(db float64) string {
	style := okStyle
	switch {
	case db >= clipDB:
		style = clipStyle
	case db >= warnDB:
		style = warnStyle
	}
	return style.Render(Meter(db, meterWidth))
}

// Meter draws a bar for db between meterFloorDB and 0 dBFS
func Meter(db float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac := (db - meterFloorDB) / -meterFloorDB
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
