package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradepro/internal/orchestrator"
	"github.com/ajitpratap0/tradepro/internal/validation"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	clientBuffer = 32
)

// ErrHubStopped is returned by Publish once the hub has shut down.
var ErrHubStopped = errors.New("stream hub stopped")

// MessageType identifies a stream message.
type MessageType string

const (
	MessageTypeAnalysis MessageType = "analysis"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
)

// Message is the envelope of every frame on /agent/stream.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type broadcast struct {
	ticker  string
	payload []byte
}

type streamClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// Empty means every ticker.
	tickers map[string]bool
}

func (c *streamClient) wants(ticker string) bool {
	return len(c.tickers) == 0 || c.tickers[ticker]
}

// Hub pushes completed analyses to websocket subscribers. It implements
// orchestrator.Publisher.
type Hub struct {
	clients    map[*streamClient]struct{}
	broadcast  chan broadcast
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*streamClient]struct{}),
		broadcast:  make(chan broadcast, 256),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "stream_hub").Logger(),
	}
}

// Run delivers broadcasts until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.log.Info().Msg("Stream hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("total_clients", n).Msg("Stream client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("total_clients", n).Msg("Stream client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.ticker) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a for every subscriber of its ticker.
func (h *Hub) Publish(ctx context.Context, a *orchestrator.Analysis) error {
	payload, err := encodeMessage(MessageTypeAnalysis, a)
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- broadcast{ticker: a.Ticker, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) attach(conn *websocket.Conn, tickers []string) {
	client := &streamClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, clientBuffer),
		tickers: make(map[string]bool, len(tickers)),
	}
	for _, t := range tickers {
		client.tickers[t] = true
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func encodeMessage(t MessageType, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: t, Timestamp: time.Now().UTC(), Data: raw})
}

// readPump consumes client frames until the connection fails.
func (c *streamClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Msg("Stream read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump sends queued frames and keepalive pings. It exits when the hub
// closes the send channel.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.log.Debug().Err(err).Msg("Ignoring malformed stream message")
		return
	}

	if msg.Type != MessageTypePing {
		c.hub.log.Debug().Str("type", string(msg.Type)).Msg("Ignoring stream message")
		return
	}

	pong, err := encodeMessage(MessageTypePong, struct{}{})
	if err != nil {
		return
	}
	// The hub owns the channel; a send on a closed channel would panic.
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- pong:
	default:
	}
}

// parseTickers splits a comma separated filter.
func parseTickers(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v := validation.NewValidator()
	var out []string
	for _, part := range strings.Split(raw, ",") {
		out = append(out, v.Symbol("tickers", part))
	}
	return out, v.Err()
}

func (s *Server) handleStream(c *gin.Context) {
	tickers, err := parseTickers(c.Query("tickers"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.deps.Stream.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already replied.
		s.log.Debug().Err(err).Msg("Stream upgrade failed")
		return
	}
	s.deps.Stream.attach(conn, tickers)
}
