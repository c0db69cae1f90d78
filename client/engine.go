package main

import (
	"context"

	"github.com/burntcarrot/nvspad/client/table"
	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/editsync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// listingLoader reads the table's listing from the server.
type listingLoader struct {
	poster *editsync.HTTPPoster
	path   string
}

func (l listingLoader) Load(ctx context.Context) (commons.Listing, error) {
	return l.poster.Fetch(ctx, l.path)
}

// listingPath returns the path the table is loaded from.
func listingPath(base, namespace string) string {
	if namespace == "" {
		return base
	}
	return editsync.Endpoint(base, namespace)
}

// Sender delivers messages to a running program.
type Sender interface {
	Send(msg tea.Msg)
}

// getMsgChan returns a message channel that repeatedly reads from a websocket connection.
// The channel is closed when the connection goes away.
func getMsgChan(conn *websocket.Conn, logger logrus.FieldLogger) chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		defer close(messageChan)
		for {
			var msg commons.Message

			// Read message.
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				return
			}

			logger.Debugf("message received: %+v", msg)

			// send message through channel
			messageChan <- msg
		}
	}()
	return messageChan
}

// watch forwards changes from the feed to the table until the feed closes.
func watch(msgs <-chan commons.Message, namespace string, p Sender, logger logrus.FieldLogger) {
	for msg := range msgs {
		switch msg.Type {
		case commons.HelloMessage:
			logger.Infof("subscribed to the change feed as %v", msg.ID)

		case commons.ChangeMessage:
			if namespace != "" && msg.Entry.Namespace != namespace {
				continue
			}
			p.Send(table.ChangeMsg{Entry: msg.Entry})
		}
	}

	logger.Warn("change feed closed")
}
