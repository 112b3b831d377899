package server

import "time"

// Config holds session tuning knobs.
type Config struct {
	// ReadTimeout is the deadline for each websocket read.
	ReadTimeout time.Duration

	// WriteTimeout is the deadline for each websocket write.
	WriteTimeout time.Duration

	// HeartbeatInterval is how often the server pings the client.
	HeartbeatInterval time.Duration

	// MaxEventQueue caps queued client events per session. Events
	// arriving on a full queue are dropped with an error frame.
	MaxEventQueue int

	// MaxMessageSize caps inbound websocket message size in bytes.
	MaxMessageSize int64
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxEventQueue:     256,
		MaxMessageSize:    1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.MaxEventQueue <= 0 {
		c.MaxEventQueue = d.MaxEventQueue
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}
