package websocket

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/models"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

var (
	clients    = make(map[uuid.UUID]Conn)
	clientsMu  sync.RWMutex
	Register   = make(chan *Client)
	Unregister = make(chan *Client)
	Broadcast  = make(chan *models.Message, 64)
)

// RunHub owns client registration and pushes each new message to its recipient.
func RunHub() {
	for {
		select {
		case client := <-Register:
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
			logrus.WithField("user_id", client.UserID).Debug("Websocket client registered")
		case client := <-Unregister:
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
			logrus.WithField("user_id", client.UserID).Debug("Websocket client unregistered")
		case message := <-Broadcast:
			deliver(message)
		}
	}
}

func deliver(message *models.Message) {
	clientsMu.RLock()
	conn, ok := clients[message.ToUserID]
	clientsMu.RUnlock()
	if !ok {
		return
	}

	if err := conn.WriteJSON(message); err != nil {
		logrus.WithError(err).WithField("user_id", message.ToUserID).Warn("Failed to push message, dropping client")
		_ = conn.Close()
		clientsMu.Lock()
		if clients[message.ToUserID] == conn {
			delete(clients, message.ToUserID)
		}
		clientsMu.Unlock()
	}
}

// Publish queues a message for realtime delivery without blocking the caller.
func Publish(message *models.Message) {
	select {
	case Broadcast <- message:
	default:
		logrus.WithField("message_id", message.ID).Warn("Websocket broadcast queue full, message not pushed")
	}
}

func IsOnline(userID uuid.UUID) bool {
	clientsMu.RLock()
	defer clientsMu.RUnlock()
	_, ok := clients[userID]
	return ok
}
