package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains event_id -> set of subscribed connections and fans accepted
// scans out to them. Redis pub/sub bridges instances: scans are published to
// Redis and every instance's subscription delivers to its local clients, so
// each client sees each scan exactly once.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per event
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes scan events for cross-instance broadcast.
type RedisPublisher interface {
	PublishEventFeed(eventID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an event's feed channel and invokes handler
// for incoming messages.
type RedisSubscriber interface {
	SubscribeEventFeed(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a scan-feed hub. redisPub and redisSub may be nil for
// single-instance deployments.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to an event room, starting the Redis subscription
// when it is the room's first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeEventFeed(c.EventID, func(event string, payload []byte) {
				h.broadcastLocal(c.EventID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.EventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined scan feed",
		zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client, cancelling the Redis subscription when the
// last client leaves the room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left scan feed",
		zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// BroadcastScan pushes an accepted scan to the event's feed. With Redis the
// message is publish-only: the subscription callback performs the one local
// broadcast, so clients on this instance are not delivered twice.
func (h *Hub) BroadcastScan(eventID uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishEventFeed(eventID, "scan", data); err == nil {
			return
		}
		h.logger.Warn("scan feed publish failed, falling back to local broadcast",
			zap.String("event_id", eventID.String()))
	}
	h.broadcastLocal(eventID, "scan", json.RawMessage(data))
}

func (h *Hub) broadcastLocal(eventID uuid.UUID, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[eventID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// SubscriberCount returns the number of connected clients for an event.
func (h *Hub) SubscriberCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}
