package api

import (
	"context"
	"net/http"
	"sync"

	"TG_rewards_bot/internal/model"
	"TG_rewards_bot/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventHub fans the ledger event feed out to connected admin websockets.
// A slow or dead client is dropped rather than allowed to back up the feed.
type EventHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run drains the ledger feed until the context is cancelled.
func (h *EventHub) Run(ctx context.Context, events <-chan model.LedgerEvent) {
	for {
		select {
		case ev := <-events:
			h.broadcast(ev)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// the feed is one-way; reading only detects the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *EventHub) broadcast(ev model.LedgerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Logger().Warn("failed to marshal ledger event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients, conn)
}

func (h *EventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
