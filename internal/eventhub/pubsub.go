package eventhub

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"context"
	"encoding/json"
	"fmt"
)

func (h *Hub) publishRedis(ctx context.Context, e models.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return h.Redis.Publish(ctx, h.Channel, payload).Err()
}

// StartPubSubListener starts a goroutine that feeds events published by any
// instance into this hub's broadcast queue.
func (h *Hub) StartPubSubListener(ctx context.Context) {
	pubsub := h.Redis.Subscribe(ctx, h.Channel)

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					logging.Error().Err(err).Msg("error unmarshalling redis event")
					continue
				}
				h.enqueue(e)
			}
		}
	}()
}
