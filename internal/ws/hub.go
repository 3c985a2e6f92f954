package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ourclass/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "fanout"

// Event is a real-time event pushed over WebSocket
type Event struct {
	Type    string      `json:"type"`    // "message", "group_message", "notification"
	Payload interface{} `json:"payload"` // event-specific data
}

// Event types
const (
	EventMessage      = "message"
	EventGroupMessage = "group_message"
	EventNotification = "notification"
)

// Channel keys. A client always sits on its user channel; room
// channels are joined only while the client is viewing that room.
func UserChannel(userID string) string       { return "user:" + userID }
func DirectRoomChannel(roomID uint64) string { return fmt.Sprintf("chat:%d", roomID) }
func GroupRoomChannel(roomID uint64) string  { return fmt.Sprintf("group:%d", roomID) }

// Authorizer decides whether a user may join a channel
type Authorizer func(userID, channel string) bool

// Hub manages WebSocket clients grouped by channel and broadcasts
// events to them. Publishing to a channel with no subscribers is a
// no-op; durable state lives in the store, not here.
type Hub struct {
	// Registered clients grouped by channel key
	clients map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscription
	unsubscribe chan *subscription
	broadcast   chan *channelEvent

	authorize   Authorizer
	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscription struct {
	Client  *Client
	Channel string
}

type channelEvent struct {
	Channel string
	Event   *Event
}

// NewHub creates a new Hub. authorize may be nil, in which case only
// the client's own user channel is joinable.
func NewHub(redisClient *redis.Client, authorize Authorizer) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *subscription, 64),
		unsubscribe: make(chan *subscription, 64),
		broadcast:   make(chan *channelEvent, 256),
		authorize:   authorize,
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub on its own user channel
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	// Start Redis subscriber if Redis is available
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.join(client, UserChannel(client.userID))

		case client := <-h.unregister:
			h.evict(client)

		case sub := <-h.subscribe:
			if h.canJoin(sub.Client, sub.Channel) {
				h.join(sub.Client, sub.Channel)
			}

		case sub := <-h.unsubscribe:
			h.leave(sub.Client, sub.Channel)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients[msg.Channel] {
				select {
				case client.send <- data:
				default:
					// Slow client: drop it rather than block the loop
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.evict(client)
			}

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) canJoin(client *Client, channel string) bool {
	if channel == UserChannel(client.userID) {
		return true
	}
	if h.authorize == nil {
		return false
	}
	return h.authorize(client.userID, channel)
}

func (h *Hub) join(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel] == nil {
		h.clients[channel] = make(map[*Client]bool)
	}
	h.clients[channel][client] = true
	client.channels[channel] = true
}

// evict removes a client from every channel it joined and closes its
// send channel exactly once. Both the unregister path and the
// slow-client drop land here; a second eviction of the same client
// finds no channels left and does nothing.
func (h *Hub) evict(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(client.channels) == 0 {
		return
	}
	for channel := range client.channels {
		delete(client.channels, channel)
		if clients, ok := h.clients[channel]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, channel)
			}
		}
	}
	close(client.send)
}

func (h *Hub) leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(client.channels, channel)
	if clients, ok := h.clients[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// Publish sends an event to every subscriber of a channel, locally and
// via Redis for other instances. Best-effort: no subscribers, no work.
func (h *Hub) Publish(channel string, event *Event) {
	select {
	case h.broadcast <- &channelEvent{Channel: channel, Event: event}:
	case <-h.ctx.Done():
		return
	}

	if h.redisClient != nil {
		msg := &redisMessage{Channel: channel, Event: event}
		data, err := json.Marshal(msg)
		if err == nil {
			if err := h.redisClient.Publish(h.ctx, redisPubSubChannel, data).Err(); err != nil {
				logger.GetLogger().Warn().Err(err).Str("channel", channel).Msg("redis publish failed")
			}
		}
	}
}

type redisMessage struct {
	Channel string `json:"channel"`
	Event   *Event `json:"event"`
}

// subscribeRedis listens for events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err == nil {
				// Only local broadcast (don't re-publish to Redis)
				h.broadcast <- &channelEvent{Channel: rm.Channel, Event: rm.Event}
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
