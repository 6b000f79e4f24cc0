// Package eventhub fans committed mutations out to staff listeners. With
// Redis configured, events go through a pub/sub channel so every service
// instance delivers them to its own clients.
package eventhub

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/metrics"
	"complaintdesk/backend/internal/models"
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher accepts events after a successful write. Publish never blocks
// the caller on slow listeners.
type Publisher interface {
	Publish(ctx context.Context, e models.Event)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, models.Event) {}

const (
	// DefaultChannel is the Redis pub/sub channel shared by all instances.
	DefaultChannel = "complaintdesk:events"
	broadcastQueue = 256
)

// Hub owns the set of registered clients. All client bookkeeping happens
// on the Run goroutine.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	broadcastCh chan models.Event
	done        chan struct{}

	Redis   *redis.Client
	Channel string
}

// NewHub builds a hub. rdb may be nil for a single-instance deployment.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.Event, broadcastQueue),
		done:         make(chan struct{}),
		Redis:        rdb,
		Channel:      DefaultChannel,
	}
}

// Publish sends e to every listener, through Redis when configured.
func (h *Hub) Publish(ctx context.Context, e models.Event) {
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()

	if h.Redis != nil {
		err := h.publishRedis(ctx, e)
		if err == nil {
			return
		}
		logging.Ctx(ctx).Warn().Err(err).Str("type", string(e.Type)).Msg("redis publish failed, delivering locally")
	}
	h.enqueue(e)
}

func (h *Hub) enqueue(e models.Event) {
	select {
	case h.broadcastCh <- e:
	default:
		metrics.EventsDropped.Inc()
		logging.Warn().Str("type", string(e.Type)).Msg("event queue full, dropping event")
	}
}

// Register adds c and reports whether the hub accepted it. A stopped hub
// closes c and returns false.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		c.Close()
		return false
	}
}

// Unregister removes c, returning immediately if the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.Redis != nil {
		h.StartPubSubListener(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.Clients {
				c.Close()
				delete(h.Clients, id)
			}
			metrics.WSConnectionsActive.Set(0)
			return

		case c := <-h.RegisterCh:
			if old, ok := h.Clients[c.GetID()]; ok {
				old.Close()
			}
			h.Clients[c.GetID()] = c
			logging.Debug().Str("client", c.GetID()).Msg("event client registered")

		case c := <-h.UnregisterCh:
			if current, ok := h.Clients[c.GetID()]; ok && current == c {
				delete(h.Clients, c.GetID())
				c.Close()
				logging.Debug().Str("client", c.GetID()).Msg("event client unregistered")
			}

		case e := <-h.broadcastCh:
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e models.Event) {
	for id, c := range h.Clients {
		select {
		case c.GetSendChannel() <- e:
		default:
			// Slow client: drop it rather than stall everyone else.
			logging.Warn().Str("client", id).Msg("event client too slow, disconnecting")
			delete(h.Clients, id)
			c.Close()
		}
	}
}
