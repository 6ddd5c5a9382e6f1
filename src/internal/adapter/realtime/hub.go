package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 45 * time.Second
)

type client struct {
	conn      *websocket.Conn
	accountID string
	out       chan []byte
	done      chan struct{}
}

// Hub keeps the connected websocket clients. Events addressed to an account
// only reach that account's connections; events without an account reach
// everyone. The latest broadcast of each type is replayed to new clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  map[domain.EventType][]byte
}

// NewHub uses checkOrigin to vet upgrades. A nil checkOrigin only accepts
// same-host origins.
func NewHub(checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = OriginChecker(nil)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:       checkOrigin,
			EnableCompression: true,
		},
		clients: make(map[*client]struct{}),
		latest:  make(map[domain.EventType][]byte),
	}
}

func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if event.AccountID == "" {
		h.latest[event.Type] = data
	}
	for c := range h.clients {
		if event.AccountID != "" && event.AccountID != c.accountID {
			continue
		}
		select {
		case c.out <- data:
		default:
		}
	}
	h.mu.Unlock()
	return nil
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, accountID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.Fields{"accountId": accountID, "error": err.Error()})
		return
	}
	defer conn.Close()

	c := &client{
		conn:      conn,
		accountID: accountID,
		out:       make(chan []byte, clientBuffer),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	for _, data := range h.latest {
		c.out <- data
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	logger.Info("websocket client connected", logger.Fields{"accountId": accountID})

	go c.writeLoop()
	c.readLoop()

	close(c.done)
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	logger.Info("websocket client disconnected", logger.Fields{"accountId": accountID})
}

func (c *client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop discards client messages; it exists to process control frames and
// notice disconnects.
func (c *client) readLoop() {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
