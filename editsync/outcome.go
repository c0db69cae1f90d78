package editsync

import (
	"fmt"
	"strings"

	"github.com/burntcarrot/nvspad/commons"
)

// Kind classifies the result of committing an edit.
type Kind int

const (
	// Skipped means no request was sent: the commit was not an edit, or the field had no key.
	Skipped Kind = iota

	// Saved means the server answered 200.
	Saved

	// Rejected means the server answered with any other status.
	Rejected

	// ConnectionLost means no response arrived at all.
	ConnectionLost
)

func (k Kind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case Saved:
		return "saved"
	case Rejected:
		return "rejected"
	case ConnectionLost:
		return "connection lost"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of committing a single edit.
type Outcome struct {
	Kind  Kind
	Field Field
	Path  string

	// StatusCode is 0 unless a response arrived.
	StatusCode int
	Body       string

	// Listing is set when a 200 response carried a listing to re-render from.
	Listing *commons.Listing

	// Err is the reason for a skipped or lost edit.
	Err error
}

const (
	invalidEntryMsg     = "Invalid Entry"
	connectionClosedMsg = "Server closed the connection"
)

// AlertText returns the message shown to the user for this outcome, or "" when nothing should be shown.
func (o Outcome) AlertText() string {
	switch o.Kind {
	case Rejected:
		msg := fmt.Sprintf("%s (status %d)", invalidEntryMsg, o.StatusCode)
		if body := strings.TrimSpace(o.Body); body != "" {
			msg += ": " + body
		}
		return msg
	case ConnectionLost:
		return connectionClosedMsg
	}
	return ""
}

// Presenter reflects the outcome of edits to the user.
type Presenter interface {
	// Render re-renders the settings from a listing returned by the server.
	Render(listing commons.Listing)

	// Alert shows a blocking message.
	Alert(msg string)

	// Reload discards local state and reads everything from the server again.
	Reload()
}

// Apply reflects o on p.
// A rejected edit raises one alert. A lost connection raises one alert followed by one reload.
// A saved edit renders the returned listing, if there was one, and is silent otherwise.
func Apply(o Outcome, p Presenter) {
	switch o.Kind {
	case Saved:
		if o.Listing != nil {
			p.Render(*o.Listing)
		}
	case Rejected:
		p.Alert(o.AlertText())
	case ConnectionLost:
		p.Alert(o.AlertText())
		p.Reload()
	}
}
