package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/signal"
)

// Table prints device lists as aligned plain-text rows. Colors are applied
// only when Color is set, so piped output stays clean.
type Table struct {
	Out   io.Writer
	Color bool
}

type column struct {
	title string
	cell  func(discovery.Device) string
}

var columns = []column{
	{"#", func(d discovery.Device) string { return fmt.Sprintf("%d", d.Order) }},
	{"NAME", func(d discovery.Device) string { return d.DisplayName() }},
	{"ADDRESS", func(d discovery.Device) string { return d.Address }},
	{"SIGNAL", signalText},
	{"BARS", func(d discovery.Device) string { return SignalGlyph(d.RSSI) }},
	{"PAIRED", func(d discovery.Device) string { return d.PairedLabel() }},
}

// signalText renders "-55 dBm (Excellent)", or "n/a" without a reading.
func signalText(d discovery.Device) string {
	if d.RSSI == signal.Unknown {
		return signal.Format(d.RSSI)
	}
	return d.FormattedRSSI()
}

// Print writes a header row and one row per device.
func (t Table) Print(devices []discovery.Device) {
	widths := make([]int, len(columns))
	cells := make([][]string, len(devices))
	for i, c := range columns {
		widths[i] = len([]rune(c.title))
	}
	for r, d := range devices {
		cells[r] = make([]string, len(columns))
		for i, c := range columns {
			cells[r][i] = c.cell(d)
			if n := len([]rune(cells[r][i])); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := color.New(color.Bold, color.FgHiWhite)
	paired := color.New(color.FgCyan)

	var titles []string
	for i, c := range columns {
		titles = append(titles, pad(c.title, widths[i]))
	}
	t.line(header, strings.Join(titles, "  "))

	for r, d := range devices {
		var parts []string
		for i := range columns {
			text := pad(cells[r][i], widths[i])
			switch columns[i].title {
			case "SIGNAL", "BARS":
				text = t.paint(signalAttr(d.RSSI), text)
			case "PAIRED":
				if d.Paired {
					text = t.paint(paired, text)
				}
			}
			parts = append(parts, text)
		}
		_, _ = fmt.Fprintln(t.Out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

func (t Table) line(c *color.Color, s string) {
	_, _ = fmt.Fprintln(t.Out, t.paint(c, strings.TrimRight(s, " ")))
}

func (t Table) paint(c *color.Color, s string) string {
	if !t.Color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func signalAttr(rssi int) *color.Color {
	if rssi == signal.Unknown {
		return color.New(color.FgHiBlack)
	}
	switch signal.Describe(rssi) {
	case signal.Excellent, signal.Good:
		return color.New(color.FgGreen)
	case signal.Fair:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
