package commons

import "github.com/google/uuid"

// Message represents a change-feed message sent over the websocket.
type Message struct {
	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID is the UUID of the client the message concerns. For change messages, it is the client that made the edit.
	ID uuid.UUID `json:"ID"`

	// Entry is the entry after the change was applied.
	Entry Entry `json:"entry"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, two message types are sent by the server:
// - hello (sent once after connecting, carries the client's ID)
// - change (an entry was updated by some client)

const (
	HelloMessage  MessageType = "hello"
	ChangeMessage MessageType = "change"
)

// ClientIDHeader carries the client's UUID on edit requests, so that the server does not echo changes back to their origin.
const ClientIDHeader = "X-Client-ID"

// RequestIDHeader carries a per-request UUID used to correlate client and server logs.
const RequestIDHeader = "X-Request-ID"
