package chathub

import "pairchat/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket).
// It abstracts the underlying transport so the engine never depends on one.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// Deliver queues an event for the client without blocking. It reports false when
	// the event could not be queued (connection closed or its buffer is full).
	Deliver(evt models.Event) bool
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. It is safe to call more than once.
	Close()
}

// languageAware is implemented by clients that know their user's preferred language.
type languageAware interface {
	Language() string
}
