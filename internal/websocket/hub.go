// Package websocket pushes dashboard snapshots to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts"
	"silverpulse/pkg/contracts/events"
)

const broadcastQueue = 64

// SnapshotFunc returns the latest snapshot, if any, for newly connected clients
type SnapshotFunc func() (interface{}, bool)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	logger   *slog.Logger
	snapshot SnapshotFunc

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit    chan struct{}
	running bool
}

// HubStats is a point-in-time view of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
	}
}

// SetSnapshotFunc sets the source of the snapshot sent on connect
func (h *Hub) SetSnapshotFunc(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Start starts the hub loop
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			snapshot := h.snapshot
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := infrastructure.WithTraceID(context.Background(), client.traceID)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(ctx, client, snapshot)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) greet(ctx context.Context, client *Client, snapshot SnapshotFunc) {
	var state interface{}
	hasSnapshot := false
	if snapshot != nil {
		state, hasSnapshot = snapshot()
	}

	connect := events.NewMessage(events.MessageTypeConnect, events.ConnectData{
		Status:      "connected",
		Version:     contracts.Version,
		HasSnapshot: hasSnapshot,
	})
	connect.TraceID = client.traceID
	h.sendTo(ctx, client, connect)

	if hasSnapshot {
		h.sendTo(ctx, client, events.NewMessage(events.MessageTypeDashboardUpdate, state))
	}
}

func (h *Hub) sendTo(ctx context.Context, client *Client, msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "Client buffer full, message dropped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	failed := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			failed++
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("clients", len(clients)),
		slog.Int("failed", failed),
		slog.Int("bytes", len(message)))
}

// Broadcast sends a typed message to every client. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	msg := events.NewMessage(events.MessageType(messageType), data)
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling broadcast",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("Broadcast queue full, message dropped", slog.String("type", messageType))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
	}
}

// Stop stops the hub loop, which closes every client
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}
