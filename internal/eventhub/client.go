package eventhub

import "complaintdesk/backend/internal/models"

// Client is any listener the hub fans events out to (a WebSocket
// connection from the admin console, the Telegram notifier).
type Client interface {
	// GetID returns a key that is unique among registered clients.
	GetID() string

	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's goroutines.
	Run()
	// Close releases the client. The hub calls it exactly once, when the
	// client is unregistered or falls too far behind.
	Close()
}
