// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// NotificationHub pushes live anomaly/contradiction/job-completion
// events to connected UI clients over WebSocket, falling back to a
// per-client Redis mailbox when the client is offline. Adapted from
// the teacher's WebSocketManager (ping/pong keepalive, Redis mailbox
// fallback), retargeted from a generic NotificationMessage to the
// Frame's bus.Event payloads.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/mantisfury/arkham-core/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Notification is one event pushed to a UI client.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// NotificationHub manages WebSocket connections and the offline mailbox.
type NotificationHub struct {
	clients   map[string]*websocket.Conn
	clientsMu sync.RWMutex
	redis     *redis.Client
	ping      *time.Ticker
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewNotificationHub constructs a hub; redisClient may be nil, in which
// case offline clients simply miss notifications rather than queuing them.
func NewNotificationHub(redisClient *redis.Client) *NotificationHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &NotificationHub{
		clients: make(map[string]*websocket.Conn),
		redis:   redisClient,
		ping:    time.NewTicker(30 * time.Second),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.pingLoop()
	return h
}

func (h *NotificationHub) pingLoop() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.ping.C:
			h.pingAllClients()
		}
	}
}

func (h *NotificationHub) pingAllClients() {
	h.clientsMu.RLock()
	clients := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		clients[id] = conn
	}
	h.clientsMu.RUnlock()

	for clientID, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
			logger.Warnf("notification hub: failed to ping client %s, dropping: %v", clientID, err)
			h.clientsMu.Lock()
			delete(h.clients, clientID)
			h.clientsMu.Unlock()
			conn.Close()
			continue
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

// ServeWebSocket upgrades the connection and registers it under
// client_id, draining any mailbox backlog before streaming live events.
func (h *NotificationHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("notification hub: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.clientsMu.Lock()
	h.clients[clientID] = conn
	h.clientsMu.Unlock()
	logger.Printf("notification hub: client %s connected", clientID)

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, clientID)
		h.clientsMu.Unlock()
		logger.Printf("notification hub: client %s disconnected", clientID)
	}()

	if h.redis != nil {
		h.drainMailbox(clientID, conn)
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

// Send delivers a notification to clientID: live over WebSocket when
// connected, or queued to a Redis mailbox for later delivery otherwise.
func (h *NotificationHub) Send(clientID string, n Notification) error {
	h.clientsMu.RLock()
	conn, online := h.clients[clientID]
	h.clientsMu.RUnlock()

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	if online {
		if err := conn.WriteMessage(websocket.TextMessage, body); err == nil {
			return nil
		}
		logger.Warnf("notification hub: write to %s failed, falling back to mailbox", clientID)
	}

	if h.redis == nil {
		return nil
	}
	key := "mailbox:" + clientID
	if err := h.redis.LPush(context.Background(), key, body).Err(); err != nil {
		return err
	}
	return h.redis.Expire(context.Background(), key, 7*24*time.Hour).Err()
}

// Broadcast sends n to every currently connected client, the delivery
// mode used for bus events with no single addressed recipient.
func (h *NotificationHub) Broadcast(n Notification) {
	h.clientsMu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.clientsMu.RUnlock()
	for _, id := range ids {
		if err := h.Send(id, n); err != nil {
			logger.Warnf("notification hub: broadcast to %s failed: %v", id, err)
		}
	}
}

func (h *NotificationHub) drainMailbox(clientID string, conn *websocket.Conn) {
	key := "mailbox:" + clientID
	ctx := context.Background()
	for {
		result, err := h.redis.RPop(ctx, key).Result()
		if err == redis.Nil {
			return
		}
		if err != nil {
			logger.Warnf("notification hub: mailbox drain for %s failed: %v", clientID, err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(result)); err != nil {
			h.redis.LPush(ctx, key, result)
			return
		}
	}
}

// Stop tears down the ping loop and every open connection.
func (h *NotificationHub) Stop() {
	h.cancel()
	h.ping.Stop()
	h.clientsMu.Lock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
	h.clientsMu.Unlock()
}
