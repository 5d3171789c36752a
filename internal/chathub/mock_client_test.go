package chathub_test

import (
	"sync"

	"pairchat/backend/internal/models"
)

// MockClient records every event delivered to it.
type MockClient struct {
	userID string
	lang   string

	mu     sync.Mutex
	events []models.Event
	closed bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{userID: userID}
}

func (c *MockClient) GetUserID() string { return c.userID }
func (c *MockClient) Language() string  { return c.lang }
func (c *MockClient) Run()              {}

func (c *MockClient) Deliver(evt models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.events = append(c.events, evt)
	return true
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockClient) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Named returns the events called name, in delivery order.
func (c *MockClient) Named(name string) []models.Event {
	var out []models.Event
	for _, evt := range c.Events() {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

func (c *MockClient) Names() []string {
	var out []string
	for _, evt := range c.Events() {
		out = append(out, evt.Name)
	}
	return out
}

func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
