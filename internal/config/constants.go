package config

import "time"

const (
	// Queue
	DefaultQueueTimeout = 45 * time.Second
	MaxInterests        = 20
	MaxInterestLength   = 40

	// Session
	DefaultSessionRetention = 10 * time.Minute
	MaxMessageLength        = 2000

	// Transport
	DefaultSendBufferSize = 256
	TokenTTL              = 72 * time.Hour
)

var Genders = []string{"male", "female", "other"}
