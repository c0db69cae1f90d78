package table

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Widths of the Namespace, Key, Value, Dtype and Size columns.
var columnWidths = [...]int{17, 17, 33, 9, 6}

var columnTitles = [...]string{"Namespace", "Key", "Value", "Dtype", "Size"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236"))
	alertStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 2)
)

// cell pads or truncates s to width w.
func cell(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w-1, "…"), w)
}

func (m Model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}

	var b strings.Builder

	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title) + "\n\n")
	}

	if len(m.alerts) > 0 {
		b.WriteString(alertStyle.Render(m.alerts[0]+"\n\n"+mutedStyle.Render("(enter to dismiss)")) + "\n\n")
	}

	var header strings.Builder
	for i, title := range columnTitles {
		header.WriteString(cell(title, columnWidths[i]))
	}
	b.WriteString(headerStyle.Render(strings.TrimRight(header.String(), " ")) + "\n")

	switch {
	case m.loading && len(m.rows) == 0:
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
	case len(m.rows) == 0:
		b.WriteString(mutedStyle.Render("No entries.") + "\n")
	}

	for i := range m.rows {
		b.WriteString(m.rowView(i) + "\n")
	}

	b.WriteString("\n")
	if m.StatusMsg != "" {
		b.WriteString(statusStyle.Render(" "+m.StatusMsg+" ") + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("tab/shift+tab, up/down: move (leaving a field saves it) • ctrl+r: reload • esc: quit"))

	return b.String() + "\n"
}

func (m Model) rowView(i int) string {
	r := m.rows[i]

	var b strings.Builder
	for c := range r.cells {
		if i == m.focusRow && c == m.focusCol {
			// The input view carries escape codes for the cursor, so let lipgloss measure it.
			b.WriteString(lipgloss.NewStyle().Width(columnWidths[c]).Render(r.cells[c].View()))
			continue
		}
		b.WriteString(cell(r.cells[c].Value(), columnWidths[c]))
	}

	b.WriteString(cell(string(r.entry.DType), columnWidths[3]))
	b.WriteString(strconv.Itoa(r.entry.Size))

	return b.String()
}
