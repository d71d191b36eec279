// internal/server/handlers/websocket.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/location"
	"livetrack/internal/service/tracking"
)

// Client frame types
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgLocation    = "location"
)

// Server frame types
const (
	msgSubscribed   = "subscribed"
	msgUnsubscribed = "unsubscribed"
	msgError        = "error"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outgoing frames buffered per connection before updates are dropped
	SendBuffer int

	// Bound on a single ingest issued over the socket
	IngestTimeout time.Duration

	// Origins allowed to open a socket; "*" allows any
	AllowedOrigins []string
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		IngestTimeout:  5 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// clientMessage is a frame received from a client
type clientMessage struct {
	Type    string `json:"type"`
	TrackID string `json:"trackId"`
}

// serverMessage is an acknowledgement or error frame
type serverMessage struct {
	Type         string `json:"type"`
	TrackID      string `json:"trackId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	Message      string `json:"message,omitempty"`
}

// WebSocketHub accepts push connections and routes their frames to the
// subscription registry and the ingest path
type WebSocketHub struct {
	registry *tracking.Registry
	ingestor location.Ingestor
	config   WebSocketConfig
	origins  *cors.Cors
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHub creates a new hub
func NewWebSocketHub(
	registry *tracking.Registry,
	ingestor location.Ingestor,
	config WebSocketConfig,
	logger *zap.Logger,
) *WebSocketHub {
	h := &WebSocketHub{
		registry: registry,
		ingestor: ingestor,
		config:   config,
		origins:  cors.New(cors.Options{AllowedOrigins: config.AllowedOrigins}),
		logger:   logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin applies the API's CORS origin list to upgrades, which never
// go through a preflight. Requests without an Origin are not from browsers.
func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return true
	}
	return h.origins.OriginAllowed(r)
}

// ServeHTTP upgrades the request and starts the connection pumps
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &wsClient{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
		done:   make(chan struct{}),
		hub:    h,
	}
	client.logger = h.logger.With(zap.String("connection_id", client.id))

	go client.writePump()
	go client.readPump()

	client.logger.Debug("WebSocket connected", zap.String("remote_addr", r.RemoteAddr))
}

// wsClient is one push connection. It implements tracking.Subscriber.
type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	hub       *WebSocketHub
	logger    *zap.Logger
}

// ID returns the connection id
func (c *wsClient) ID() string {
	return c.id
}

// Send queues a frame without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *wsClient) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// close tears the connection down once. The send channel is never closed so
// concurrent Send calls stay safe.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump owns the connection lifetime: when it returns, the client is
// removed from every track it subscribed to.
func (c *wsClient) readPump() {
	config := c.hub.config

	defer func() {
		tracks := c.hub.registry.TracksOf(c)
		c.hub.registry.Disconnect(c)
		c.close()
		c.logger.Debug("WebSocket disconnected", zap.Int("tracks", len(tracks)))
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		c.processIncomingMessage(message)
	}
}

// writePump pumps queued frames to the WebSocket connection
func (c *wsClient) writePump() {
	config := c.hub.config
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage dispatches one client frame
func (c *wsClient) processIncomingMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply(serverMessage{Type: msgError, Message: "invalid message"})
		return
	}

	switch msg.Type {
	case msgSubscribe:
		if msg.TrackID == "" {
			c.reply(serverMessage{Type: msgError, Message: "trackId is required"})
			return
		}
		c.hub.registry.Subscribe(c, msg.TrackID)
		c.reply(serverMessage{Type: msgSubscribed, TrackID: msg.TrackID, ConnectionID: c.id})

	case msgUnsubscribe:
		if msg.TrackID == "" {
			c.reply(serverMessage{Type: msgError, Message: "trackId is required"})
			return
		}
		c.hub.registry.Unsubscribe(c, msg.TrackID)
		c.reply(serverMessage{Type: msgUnsubscribed, TrackID: msg.TrackID})

	case msgLocation:
		c.handleLocation(message)

	default:
		c.reply(serverMessage{Type: msgError, Message: "unknown message type: " + msg.Type})
	}
}

// handleLocation ingests a fix sent over the socket. Success is observable
// through the regular locationUpdated push.
func (c *wsClient) handleLocation(message []byte) {
	var in location.FixInput
	if err := json.Unmarshal(message, &in); err != nil {
		c.reply(serverMessage{Type: msgError, Message: "invalid location"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.hub.config.IngestTimeout)
	defer cancel()

	if _, err := c.hub.ingestor.Ingest(ctx, in); err != nil {
		msg := "failed to save location"
		if apperr.IsValidation(err) {
			msg = err.Error()
		}
		c.reply(serverMessage{Type: msgError, Message: msg})
	}
}

func (c *wsClient) reply(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !c.Send(data) {
		c.logger.Debug("Dropped reply", zap.String("type", msg.Type))
	}
}
