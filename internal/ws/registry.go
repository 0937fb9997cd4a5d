package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event is the envelope for non-alert frames (greeting, echo, snapshots).
type Event struct {
	Event   string `json:"event"`
	Message string `json:"message,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Registry tracks the live push channels per user and delivers messages to them.
// A user owns zero or more concurrent channels (multi-device). Registration and
// delivery-triggered cleanup race freely, so every mutation happens under the lock.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register files client under its user. Always succeeds once the handshake did.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.clients[c.UserID] = set
	}
	set[c] = struct{}{}

	r.logger.Info("WebSocket client registered",
		zap.String("connection_id", c.ID),
		zap.Int64("user_id", c.UserID),
		zap.Int("user_connections", len(set)),
	)
}

// Unregister removes client from its user's entry and drops the entry when it
// becomes empty. Safe to call repeatedly: the second call is a no-op.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(r.clients, c.UserID)
	}
	// Membership is gone, so no new sends can reach this channel; closing it
	// lets the write pump flush and shut the connection down.
	close(c.send)

	r.logger.Info("WebSocket client unregistered",
		zap.String("connection_id", c.ID),
		zap.Int64("user_id", c.UserID),
	)
}

// Send delivers payload to a single registered client. Returns false when the
// client is no longer registered or its send buffer is full.
func (r *Registry) Send(c *Client, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal WebSocket payload", zap.Error(err))
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trySendLocked(c, data)
}

// DeliverToUser sends payload to every channel currently registered for userID.
// No entry is a no-op. Channels that cannot accept the message are unregistered
// as a side effect; a broken channel never blocks delivery to the others.
// Returns the number of channels the message was handed to.
func (r *Registry) DeliverToUser(userID int64, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal WebSocket payload",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return 0
	}

	delivered, failed := r.fanOut(userID, data)
	for _, c := range failed {
		r.logger.Warn("WebSocket delivery failed, removing client",
			zap.String("connection_id", c.ID),
			zap.Int64("user_id", userID),
			zap.String("reason", "send_buffer_full_or_closed"),
		)
		r.Unregister(c)
		c.closeConn()
	}

	return delivered
}

// DeliverToAll sends payload to every registered user, one DeliverToUser at a
// time. Same best-effort, no-retry semantics.
func (r *Registry) DeliverToAll(payload any) int {
	total := 0
	for _, userID := range r.ConnectedUsers() {
		total += r.DeliverToUser(userID, payload)
	}
	return total
}

func (r *Registry) fanOut(userID int64, data []byte) (int, []*Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	var failed []*Client
	for c := range r.clients[userID] {
		select {
		case c.send <- data:
			delivered++
		default:
			failed = append(failed, c)
		}
	}
	return delivered, failed
}

// trySendLocked enqueues data for a client. Caller holds at least the read lock,
// which guarantees the send channel cannot be closed concurrently.
func (r *Registry) trySendLocked(c *Client, data []byte) bool {
	set, ok := r.clients[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// CountForUser returns the number of live channels for one user.
func (r *Registry) CountForUser(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients[userID])
}

// TotalConnections returns the number of live channels across all users.
func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, set := range r.clients {
		total += len(set)
	}
	return total
}

// ConnectedUsers returns the ids of users with at least one live channel.
func (r *Registry) ConnectedUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]int64, 0, len(r.clients))
	for userID := range r.clients {
		users = append(users, userID)
	}
	return users
}
