// Package table implements the settings table of the nvspad client.
//
// The table is the single listener for every field it shows: when the focused cell loses focus,
// its value is committed through an editsync.Synchronizer.
package table

import (
	"context"
	"fmt"
	"time"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/editsync"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Loader reads the listing shown in the table.
type Loader interface {
	Load(ctx context.Context) (commons.Listing, error)
}

// Config configures a Model.
type Config struct {
	Sync   *editsync.Synchronizer
	Loader Loader

	// Positional makes the namespace and key cells editable too. Only commits in the value column are sent.
	Positional bool

	// Title is shown above the table.
	Title string
}

// Number of editable cells per row: namespace, key and value.
const editableColumns = 3

// statusTimeout is how long a status message stays in the status bar.
const statusTimeout = 5 * time.Second

type row struct {
	entry commons.Entry
	cells [editableColumns]textinput.Model
}

// Model is the bubbletea model of the settings table.
type Model struct {
	sync       *editsync.Synchronizer
	loader     Loader
	positional bool
	title      string

	rows []row

	// focusRow is -1 when no cell has focus.
	focusRow int
	focusCol int

	// alerts are shown one at a time; while any is pending, only dismiss keys are handled.
	alerts        []string
	reloadPending bool
	loading       bool

	StatusMsg string
	statusSeq int

	width    int
	height   int
	Quitting bool
}

type (
	listingMsg struct {
		listing commons.Listing
		err     error
	}

	outcomeMsg struct {
		outcome editsync.Outcome
	}

	statusTimeoutMsg struct {
		seq int
	}
)

// ChangeMsg reports an entry changed by another client.
type ChangeMsg struct {
	Entry commons.Entry
}

// New creates a table. The listing is loaded when the program starts.
func New(cfg Config) Model {
	return Model{
		sync:       cfg.Sync,
		loader:     cfg.Loader,
		positional: cfg.Positional,
		title:      cfg.Title,
		focusRow:   -1,
		focusCol:   editsync.ValueColumn,
		loading:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), textinput.Blink)
}

// load reads the listing in the background.
func (m Model) load() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		listing, err := loader.Load(context.Background())
		return listingMsg{listing: listing, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case listingMsg:
		m.loading = false
		if msg.err != nil {
			m.Alert(fmt.Sprintf("Failed to load settings: %v", msg.err))
			return m, nil
		}
		m.setRows(msg.listing.Contents)
		return m, textinput.Blink

	case outcomeMsg:
		editsync.Apply(msg.outcome, &m)
		cmd := m.setStatus(statusText(msg.outcome))
		if m.reloadPending {
			m.reloadPending = false
			m.loading = true
			return m, tea.Batch(cmd, m.load())
		}
		return m, cmd

	case ChangeMsg:
		m.applyEntry(msg.Entry)
		return m, m.setStatus(fmt.Sprintf("%s/%s changed on the server", msg.Entry.Namespace, msg.Entry.Key))

	case statusTimeoutMsg:
		if msg.seq == m.statusSeq {
			m.StatusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}

	// A pending alert blocks everything else until it is dismissed.
	if len(m.alerts) > 0 {
		if key == "enter" || key == "esc" {
			m.alerts = m.alerts[1:]
		}
		return m, nil
	}

	switch key {
	case "esc":
		m.Quitting = true
		return m, tea.Quit

	// Reloading discards unsaved edits.
	case "ctrl+r":
		m.loading = true
		return m, m.load()

	case "tab":
		return m, withBlink(m.moveFocus(1))

	case "shift+tab":
		return m, withBlink(m.moveFocus(-1))

	case "down", "enter":
		return m, withBlink(m.moveRow(1))

	case "up":
		return m, withBlink(m.moveRow(-1))
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused cell.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focusRow < 0 {
		return m, nil
	}

	var cmd tea.Cmd
	in := &m.rows[m.focusRow].cells[m.focusCol]
	*in, cmd = in.Update(msg)
	return m, cmd
}

func withBlink(commit tea.Cmd) tea.Cmd {
	if commit == nil {
		return textinput.Blink
	}
	return tea.Batch(commit, textinput.Blink)
}

// columns returns the columns that can take focus.
func (m *Model) columns() []int {
	if m.positional {
		return []int{editsync.NamespaceColumn, editsync.KeyColumn, editsync.ValueColumn}
	}
	return []int{editsync.ValueColumn}
}

// moveFocus moves focus by delta cells, in reading order, and returns the commit of the cell that lost it.
func (m *Model) moveFocus(delta int) tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}

	cols := m.columns()
	pos := 0
	if m.focusRow >= 0 {
		pos = m.focusRow*len(cols) + indexOf(cols, m.focusCol) + delta
	}

	total := len(m.rows) * len(cols)
	pos = ((pos % total) + total) % total

	return m.focus(pos/len(cols), cols[pos%len(cols)])
}

// moveRow moves focus by delta rows, keeping the column, and returns the commit of the cell that lost it.
func (m *Model) moveRow(delta int) tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}

	r := 0
	if m.focusRow >= 0 {
		r = m.focusRow + delta
	}
	if r < 0 {
		r = 0
	}
	if r >= len(m.rows) {
		r = len(m.rows) - 1
	}

	return m.focus(r, m.focusCol)
}

// focus gives focus to a cell. Losing focus is what commits an edit, so the previously focused
// cell is committed, even when its value did not change.
func (m *Model) focus(r, c int) tea.Cmd {
	if r == m.focusRow && c == m.focusCol {
		return nil
	}

	var commit tea.Cmd
	if m.focusRow >= 0 {
		m.rows[m.focusRow].cells[m.focusCol].Blur()
		commit = m.commit(m.focusRow, m.focusCol)
	}

	m.focusRow, m.focusCol = r, c
	m.rows[r].cells[c].Focus()

	return commit
}

// commit returns a command sending the cell's value, or nil when the cell is not an edit.
func (m *Model) commit(r, c int) tea.Cmd {
	s := m.sync
	cells := m.cellValues(r)

	if m.positional {
		pr := editsync.Row{Cells: cells}
		if _, ok := pr.FieldAt(c); !ok {
			return nil
		}
		return func() tea.Msg {
			return outcomeMsg{outcome: s.SendCell(context.Background(), pr, c)}
		}
	}

	f := editsync.Field{
		Namespace: m.rows[r].entry.Namespace,
		Name:      m.rows[r].entry.Key,
		Value:     cells[editsync.ValueColumn],
	}
	return func() tea.Msg {
		return outcomeMsg{outcome: s.Send(context.Background(), f)}
	}
}

func (m *Model) cellValues(r int) []string {
	values := make([]string, editableColumns)
	for i := range m.rows[r].cells {
		values[i] = m.rows[r].cells[i].Value()
	}
	return values
}

// setRows replaces every row, keeping the focused position where possible.
func (m *Model) setRows(entries []commons.Entry) {
	m.rows = make([]row, len(entries))
	for i, e := range entries {
		m.rows[i] = newRow(e)
	}

	if len(m.rows) == 0 {
		m.focusRow = -1
		return
	}

	r := m.focusRow
	if r < 0 {
		r = 0
	}
	if r >= len(m.rows) {
		r = len(m.rows) - 1
	}

	m.focusRow = r
	m.rows[r].cells[m.focusCol].Focus()
}

func newRow(e commons.Entry) row {
	var r row
	r.entry = e

	values := [editableColumns]string{e.Namespace, e.Key, e.Value}
	for i := range r.cells {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = columnWidths[i] - 1
		ti.SetValue(values[i])
		r.cells[i] = ti
	}
	return r
}

// applyEntry updates the row of e in place, or appends a row for it.
// The focused row is left alone so that an edit in progress is not overwritten.
func (m *Model) applyEntry(e commons.Entry) {
	for i := range m.rows {
		if m.rows[i].entry.Namespace != e.Namespace || m.rows[i].entry.Key != e.Key {
			continue
		}
		if i == m.focusRow {
			return
		}
		m.rows[i] = newRow(e)
		return
	}

	m.rows = append(m.rows, newRow(e))
}

// Render updates the rows of every entry in the listing.
func (m *Model) Render(listing commons.Listing) {
	for _, e := range listing.Contents {
		m.applyEntry(e)
	}
}

// Alert queues a blocking message.
func (m *Model) Alert(msg string) {
	m.alerts = append(m.alerts, msg)
}

// Reload schedules a fresh load of the listing.
func (m *Model) Reload() {
	m.reloadPending = true
}

func (m *Model) setStatus(msg string) tea.Cmd {
	if msg == "" {
		return nil
	}

	m.StatusMsg = msg
	m.statusSeq++
	seq := m.statusSeq

	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{seq: seq}
	})
}

func statusText(o editsync.Outcome) string {
	name := o.Field.Name
	if o.Field.Namespace != "" {
		name = o.Field.Namespace + "/" + name
	}

	switch o.Kind {
	case editsync.Saved:
		return "Saved " + name
	case editsync.Rejected:
		return fmt.Sprintf("Rejected %s (status %d)", name, o.StatusCode)
	case editsync.ConnectionLost:
		return "Lost connection, reloading"
	case editsync.Skipped:
		if o.Err != nil {
			return "Not saved: the field has no key"
		}
	}
	return ""
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}
