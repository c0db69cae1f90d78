package main

import (
	"net/http"
	"sync"

	"github.com/burntcarrot/nvspad/commons"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// hub keeps the change-feed connections and broadcasts applied edits to them.
type hub struct {
	// Upgrader instance to upgrade all HTTP connections to a WebSocket.
	upgrader websocket.Upgrader

	// Currently active client connections. Only run writes to them, after the hello message.
	mu            sync.Mutex
	activeClients map[*websocket.Conn]uuid.UUID

	// Channel for change messages.
	messageChan chan commons.Message

	logger *logrus.Logger
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{
		activeClients: make(map[*websocket.Conn]uuid.UUID),
		messageChan:   make(chan commons.Message, 64),
		logger:        logger,
	}
}

// handleConn upgrades the connection, greets the client with its ID and keeps it registered until it goes away.
// Clients may choose their ID with the "id" query parameter, so that their own edits are not echoed back.
func (h *hub) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("error upgrading connection to websocket: %v", err)
		return
	}
	defer conn.Close()

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		id = uuid.New()
	}

	// The hello goes out before the connection is registered, so that run is its only writer afterwards.
	if err := conn.WriteJSON(commons.Message{Type: commons.HelloMessage, ID: id}); err != nil {
		h.logger.Errorf("error greeting client %v: %v", id, err)
		return
	}

	h.mu.Lock()
	h.activeClients[conn] = id
	h.mu.Unlock()

	h.logger.WithField("client", id).Info("client subscribed")

	// Clients do not send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.activeClients, conn)
	h.mu.Unlock()

	h.logger.WithField("client", id).Info("client unsubscribed")
}

// broadcast queues a message for every client except its origin.
func (h *hub) broadcast(msg commons.Message) {
	h.messageChan <- msg
}

// run listens to messageChan and sends each message to the other clients.
func (h *hub) run() {
	for msg := range h.messageChan {
		h.mu.Lock()
		for client, id := range h.activeClients {
			// Check the UUID to prevent sending messages to their origin.
			if msg.ID == id {
				continue
			}
			if err := client.WriteJSON(msg); err != nil {
				h.logger.Errorf("error sending message to client %v: %v", id, err)
				client.Close()
				delete(h.activeClients, client)
			}
		}
		h.mu.Unlock()
	}
}
