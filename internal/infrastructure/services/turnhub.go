// Package services provides infrastructure services.
package services

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/fanout"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

const sendBufferSize = 256

// TurnSubscriber is the part of the turn service the hub needs.
type TurnSubscriber interface {
	Subscribe(l fanout.Listener) fanout.Handle
	Unsubscribe(h fanout.Handle)
}

// TurnHub tracks websocket clients listening for the available turn.
type TurnHub struct {
	subscriber TurnSubscriber

	clients   map[uint64]*TurnHubConn
	clientsMu sync.RWMutex
	nextID    uint64

	logger logger.Interface
}

// TurnHubConn is one websocket client. Its write pump drains Send.
type TurnHubConn struct {
	ID          uint64
	Conn        *websocket.Conn
	Send        chan dto.TurnReference
	ConnectedAt time.Time

	handle fanout.Handle
	mu     sync.Mutex
	closed bool
	logger logger.Interface
}

func NewTurnHub(subscriber TurnSubscriber, log logger.Interface) *TurnHub {
	return &TurnHub{
		subscriber: subscriber,
		clients:    make(map[uint64]*TurnHubConn),
		logger:     log.Named("turn-hub"),
	}
}

// Register adds conn and subscribes it to turn changes. The current turn,
// if any, is queued on Send before Register returns.
func (h *TurnHub) Register(conn *websocket.Conn, remote string) *TurnHubConn {
	h.clientsMu.Lock()
	h.nextID++
	client := &TurnHubConn{
		ID:          h.nextID,
		Conn:        conn,
		Send:        make(chan dto.TurnReference, sendBufferSize),
		ConnectedAt: time.Now(),
		logger:      h.logger.With("client_id", h.nextID),
	}
	h.clients[client.ID] = client
	count := len(h.clients)
	h.clientsMu.Unlock()

	client.handle = h.subscriber.Subscribe(client)

	h.logger.Infow("turn listener connected",
		"client_id", client.ID,
		"remote", remote,
		"clients", count,
	)
	return client
}

// Unregister stops deliveries to client and closes its Send channel.
func (h *TurnHub) Unregister(client *TurnHubConn) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	delete(h.clients, client.ID)
	count := len(h.clients)
	h.clientsMu.Unlock()

	if !ok {
		return
	}

	h.subscriber.Unsubscribe(client.handle)
	client.close()

	h.logger.Infow("turn listener disconnected",
		"client_id", client.ID,
		"clients", count,
	)
}

// Count returns the number of connected clients.
func (h *TurnHub) Count() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// CloseAll unregisters every client. Write pumps then send a close frame.
func (h *TurnHub) CloseAll() {
	h.clientsMu.RLock()
	clients := make([]*TurnHubConn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// Deliver queues ref without blocking the notifier.
func (c *TurnHubConn) Deliver(ref dto.TurnReference) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fanout.ErrListenerClosed
	}

	select {
	case c.Send <- ref:
		return nil
	default:
		c.logger.Warnw("turn listener send buffer full, dropping update",
			"next_available_turn", ref.NextAvailableTurn,
		)
		return ErrSendChannelFull
	}
}

func (c *TurnHubConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// HubErrors defines turn hub related errors.
var (
	ErrSendChannelFull = &HubError{Code: "SEND_CHANNEL_FULL", Message: "send channel full"}
)

// HubError represents a turn hub error.
type HubError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *HubError) Error() string {
	return e.Message
}
