// Package display renders published views for operators and fans views out
// to several sinks.
package display

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	colorForeground = "#F8F8F2"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorComment    = "#6272A4"

	clearScreen = "\x1b[H\x1b[2J"

	// concealed stands in for device passwords, which views never carry.
	concealed = "••••••"
)

type styles struct {
	title, header, cell, online, offline, border lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPurple)).Padding(0, 1),
		cell:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorForeground)).Padding(0, 1),
		online:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Padding(0, 1),
		offline: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorRed)).Padding(0, 1),
		border:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment)),
	}
}

// Terminal is a sink that prints the device list, the online users and the
// occupancy counts as tables.
type Terminal struct {
	w      io.Writer
	clear  bool
	styles styles
}

// NewTerminal creates a terminal sink writing to w.
func NewTerminal(w io.Writer, cfg config.TerminalConfig) *Terminal {
	return &Terminal{w: w, clear: cfg.ClearScreen, styles: defaultStyles()}
}

func (*Terminal) Name() string { return "terminal" }

// Publish redraws the tables for view.
func (t *Terminal) Publish(_ context.Context, view model.View) error {
	var b strings.Builder
	if t.clear {
		b.WriteString(clearScreen)
	}
	b.WriteString(t.Render(view))

	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return fmt.Errorf("failed to write view to terminal: %w", err)
	}
	return nil
}

// Render returns the text drawn for view.
func (t *Terminal) Render(view model.View) string {
	var b strings.Builder

	b.WriteString(t.styles.title.Render("Servers list"))
	b.WriteString("\n")
	b.WriteString(t.servers(view.Devices))
	b.WriteString("\n\n")

	b.WriteString(t.styles.title.Render("Online Users"))
	b.WriteString("\n")
	b.WriteString(t.users(view.Rows))
	b.WriteString("\n\n")

	b.WriteString(t.styles.title.Render("Online Stats"))
	b.WriteString("\n")
	b.WriteString(t.stats(view.Summary))
	b.WriteString("\n\n")

	b.WriteString(t.styles.title.Render(fmt.Sprintf("Round Number: %d", view.Round)))
	b.WriteString("\n")

	return b.String()
}

func (t *Terminal) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.styles.border).
		Headers(headers...)
}

func (t *Terminal) servers(devices []model.DeviceStatus) string {
	tbl := t.newTable("Type", "Name", "Address", "Password", "Status")
	for _, d := range devices {
		tbl.Row(string(d.Class), d.Name, d.Address, concealed, status(d.Reachable))
	}

	return tbl.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return t.styles.header
		case col == 4 && row >= 0 && row < len(devices):
			if devices[row].Reachable {
				return t.styles.online
			}
			return t.styles.offline
		default:
			return t.styles.cell
		}
	}).String()
}

func (t *Terminal) users(rows []model.AggregatedRow) string {
	tbl := t.newTable("User", "Type", "Server", "Server Address", "Local Address", "Remote Address", "TX", "RX", "Uptime")
	for _, r := range rows {
		tbl.Row(
			r.User,
			string(r.Class),
			r.DeviceName,
			r.DeviceAddress,
			r.LocalAddress,
			r.RemoteAddress,
			strconv.FormatUint(r.TxBytes, 10),
			strconv.FormatUint(r.RxBytes, 10),
			r.Uptime,
		)
	}
	return tbl.StyleFunc(t.plain).String()
}

func (t *Terminal) stats(sum model.Summary) string {
	return t.newTable("All", "PPP", "SOCKS").
		Row(strconv.Itoa(sum.Total), strconv.Itoa(sum.PPP), strconv.Itoa(sum.SOCKS)).
		StyleFunc(t.plain).
		String()
}

func (t *Terminal) plain(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return t.styles.header
	}
	return t.styles.cell
}

func status(reachable bool) string {
	if reachable {
		return "ONLINE"
	}
	return "OFFLINE"
}
