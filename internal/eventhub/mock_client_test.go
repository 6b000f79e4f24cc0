package eventhub_test

import (
	"complaintdesk/backend/internal/models"
	"sync"
)

type MockClient struct {
	id          string
	RecvChannel chan models.Event
	closed      chan struct{}
	once        sync.Once
}

func newMockClient(id string, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		RecvChannel: make(chan models.Event, buffer),
		closed:      make(chan struct{}),
	}
}

func (c *MockClient) GetID() string {
	return c.id
}

func (c *MockClient) GetSendChannel() chan<- models.Event {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *MockClient) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
