package eventhub

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/metrics"
	"complaintdesk/backend/internal/models"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// WebSocketClient streams events to one admin console connection.
// The connection is receive-only from the console's side.
type WebSocketClient struct {
	ID    string
	Actor string
	Conn  *websocket.Conn
	Hub   *Hub
	Send  chan models.Event

	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, id, actor string) *WebSocketClient {
	metrics.WSConnectionsActive.Inc()
	return &WebSocketClient{
		ID:    id,
		Actor: actor,
		Conn:  conn,
		Hub:   hub,
		Send:  make(chan models.Event, sendBuffer),
	}
}

func (c *WebSocketClient) GetID() string                       { return c.ID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and closes the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
		metrics.WSConnectionsActive.Dec()
	})
}

// readPump only handles control frames; any read error ends the session.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("client", c.ID).Msg("event stream closed unexpectedly")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				logging.Error().Err(err).Str("client", c.ID).Msg("error encoding event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
