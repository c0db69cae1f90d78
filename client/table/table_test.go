package table

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/editsync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

type call struct {
	Path string
	Body string
}

type fakePoster struct {
	mu     sync.Mutex
	calls  []call
	status int
	err    error
}

func (p *fakePoster) Post(_ context.Context, path string, body []byte) (*editsync.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, call{Path: path, Body: string(body)})
	if p.err != nil {
		return nil, p.err
	}
	return &editsync.Response{StatusCode: p.status}, nil
}

type fakeLoader struct {
	listing commons.Listing
	err     error
}

func (l fakeLoader) Load(context.Context) (commons.Listing, error) {
	return l.listing, l.err
}

var testListing = commons.Listing{Contents: []commons.Entry{
	{Namespace: "app", Key: "timeout", Value: "30", DType: commons.DTypeU8, Size: 1},
	{Namespace: "network", Key: "wifi_ssid", Value: "MyNetwork", DType: commons.DTypeString, Size: 10},
}}

// newLoaded returns a table that has received testListing.
func newLoaded(t *testing.T, p *fakePoster, positional bool) Model {
	t.Helper()

	m := New(Config{
		Sync:       editsync.New(editsync.Config{Poster: p}),
		Loader:     fakeLoader{listing: testListing},
		Positional: positional,
	})

	msg := m.load()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// run executes a commit command and feeds its result back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func TestLoad(t *testing.T) {
	m := newLoaded(t, &fakePoster{status: 200}, false)

	got := []int{len(m.rows), m.focusRow, m.focusCol}
	expected := []int{2, 0, editsync.ValueColumn}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}

	if !m.rows[0].cells[editsync.ValueColumn].Focused() {
		t.Errorf("value cell of the first row is not focused\n")
	}
}

func TestLoad_Error(t *testing.T) {
	m := New(Config{Loader: fakeLoader{err: errors.New("connection refused")}})

	updated, _ := m.Update(m.load()())
	m = updated.(Model)

	if len(m.alerts) != 1 || !strings.Contains(m.alerts[0], "connection refused") {
		t.Errorf("got alerts %v, expected one load failure\n", m.alerts)
	}
}

func TestCommitOnBlur(t *testing.T) {
	p := &fakePoster{status: 200}
	m := newLoaded(t, p, false)

	// Typing alone sends nothing.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("5")})
	m = updated.(Model)
	if !strings.Contains(m.rows[0].cells[editsync.ValueColumn].Value(), "5") {
		t.Errorf("got value %q, expected the typed rune\n", m.rows[0].cells[editsync.ValueColumn].Value())
	}
	if len(p.calls) != 0 {
		t.Fatalf("got %d requests while typing, expected none\n", len(p.calls))
	}

	m.rows[0].cells[editsync.ValueColumn].SetValue("45")

	// Moving to the next row blurs the first one.
	cmd := m.moveRow(1)
	if cmd == nil {
		t.Fatalf("expected a commit when the cell lost focus\n")
	}
	m = run(t, m, cmd)

	expected := []call{{Path: "/api/v1/nvs/app", Body: `{"timeout":"45"}`}}
	if !cmp.Equal(p.calls, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(p.calls, expected))
	}

	if m.focusRow != 1 || m.StatusMsg != "Saved app/timeout" || len(m.alerts) != 0 {
		t.Errorf("got focus row %d, status %q, alerts %v\n", m.focusRow, m.StatusMsg, m.alerts)
	}

	// Leaving a field commits it even if nothing changed.
	m = run(t, m, m.moveRow(-1))
	if len(p.calls) != 2 || p.calls[1].Body != `{"wifi_ssid":"MyNetwork"}` {
		t.Errorf("got calls %v, expected an unchanged value to be committed\n", p.calls)
	}

	// Staying on the same cell is not a commit.
	if cmd := m.moveRow(-1); cmd != nil {
		t.Errorf("expected no commit when focus does not move\n")
	}
}

func TestCommit_Positional(t *testing.T) {
	p := &fakePoster{status: 200}
	m := newLoaded(t, p, true)

	// (0, value) -> (1, namespace): the value cell is committed.
	m = run(t, m, m.moveFocus(1))
	// (1, namespace) -> (1, key) and (1, key) -> (1, value): nothing is sent.
	for i := 0; i < 2; i++ {
		if cmd := m.moveFocus(1); cmd != nil {
			t.Errorf("got a commit for a non-value column\n")
		}
	}

	expected := []call{{Path: "/api/v1/nvs/app", Body: `{"timeout":"30"}`}}
	if !cmp.Equal(p.calls, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(p.calls, expected))
	}

	if m.focusRow != 1 || m.focusCol != editsync.ValueColumn {
		t.Errorf("got focus (%d, %d), expected (1, %d)\n", m.focusRow, m.focusCol, editsync.ValueColumn)
	}

	// The key cell is read at commit time.
	m.rows[1].cells[editsync.KeyColumn].SetValue("wifi_pass")
	m.rows[1].cells[editsync.ValueColumn].SetValue("secret")
	m = run(t, m, m.moveFocus(1))

	if len(p.calls) != 2 || !cmp.Equal(p.calls[1], call{Path: "/api/v1/nvs/network", Body: `{"wifi_pass":"secret"}`}) {
		t.Errorf("got calls %v\n", p.calls)
	}

	// A row whose namespace cell was cleared is not sent.
	m.rows[1].cells[editsync.NamespaceColumn].SetValue("")
	if cmd := m.commit(1, editsync.ValueColumn); cmd != nil {
		t.Errorf("got a commit for a row without a namespace\n")
	}
}

func TestOutcome_Rejected(t *testing.T) {
	m := newLoaded(t, &fakePoster{status: 200}, false)

	updated, _ := m.Update(outcomeMsg{outcome: editsync.Outcome{
		Kind:       editsync.Rejected,
		Field:      editsync.Field{Namespace: "app", Name: "timeout"},
		StatusCode: 400,
		Body:       "value out of range",
	}})
	m = updated.(Model)

	if len(m.alerts) != 1 || !strings.Contains(m.alerts[0], "400") {
		t.Fatalf("got alerts %v, expected one alert with the status\n", m.alerts)
	}
	if !strings.Contains(m.View(), "Invalid Entry") {
		t.Errorf("alert is not shown\n")
	}

	// The alert blocks navigation.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focusRow != 0 {
		t.Errorf("focus moved while an alert was shown\n")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if len(m.alerts) != 0 {
		t.Errorf("alert was not dismissed\n")
	}
	if m.loading {
		t.Errorf("a rejected edit must not reload\n")
	}
}

func TestOutcome_ConnectionLost(t *testing.T) {
	p := &fakePoster{err: errors.New("EOF")}
	m := newLoaded(t, p, false)

	m = run(t, m, m.moveRow(1))

	got := []interface{}{len(p.calls), len(m.alerts), m.loading, m.reloadPending}
	expected := []interface{}{1, 1, true, false}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}

	// The reload rebuilds the table from the server, discarding local edits.
	m.rows[1].cells[editsync.ValueColumn].SetValue("unsaved")
	updated, _ := m.Update(m.load()())
	m = updated.(Model)
	if got := m.rows[1].cells[editsync.ValueColumn].Value(); got != "MyNetwork" {
		t.Errorf("got value %q after reload, expected MyNetwork\n", got)
	}
}

func TestOutcome_SavedWithListing(t *testing.T) {
	m := newLoaded(t, &fakePoster{status: 200}, false)

	listing := commons.Listing{Contents: []commons.Entry{
		{Namespace: "app", Key: "timeout", Value: "99", DType: commons.DTypeU8, Size: 1},
		{Namespace: "network", Key: "wifi_ssid", Value: "Office", DType: commons.DTypeString, Size: 7},
		{Namespace: "network", Key: "port", Value: "80", DType: commons.DTypeU16, Size: 2},
	}}

	updated, _ := m.Update(outcomeMsg{outcome: editsync.Outcome{Kind: editsync.Saved, StatusCode: 200, Listing: &listing}})
	m = updated.(Model)

	got := []string{
		m.rows[0].cells[editsync.ValueColumn].Value(),
		m.rows[1].cells[editsync.ValueColumn].Value(),
		m.rows[2].entry.Key,
	}
	// The focused first row keeps what the user is typing.
	expected := []string{"30", "Office", "port"}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}
	if len(m.alerts) != 0 {
		t.Errorf("got alerts %v for a saved edit\n", m.alerts)
	}
}

func TestChangeMsg(t *testing.T) {
	m := newLoaded(t, &fakePoster{status: 200}, false)

	updated, _ := m.Update(ChangeMsg{Entry: commons.Entry{Namespace: "network", Key: "wifi_ssid", Value: "Cafe", DType: commons.DTypeString, Size: 5}})
	m = updated.(Model)

	if got := m.rows[1].cells[editsync.ValueColumn].Value(); got != "Cafe" {
		t.Errorf("got value %q, expected Cafe\n", got)
	}
	if !strings.Contains(m.StatusMsg, "network/wifi_ssid") {
		t.Errorf("got status %q\n", m.StatusMsg)
	}
}

func TestQuit(t *testing.T) {
	m := newLoaded(t, &fakePoster{status: 200}, false)

	m.Alert("first")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.Quitting || len(m.alerts) != 0 {
		t.Fatalf("esc should dismiss the alert before quitting\n")
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if !m.Quitting || cmd == nil {
		t.Errorf("esc did not quit\n")
	}
}
