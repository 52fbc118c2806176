package chathub

import "chatmitra/backend/internal/models"

// Client is the interface for any type of connection. It abstracts the
// underlying transport, allowing the hub to manage WebSocket connections and
// test doubles uniformly.
type Client interface {
	// GetAnonID returns the anonymous identifier for the connection.
	GetAnonID() string

	// GetSendChannel returns the channel through which the hub delivers
	// events destined for this client. It is a send-only channel.
	GetSendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's outbound channel, stopping its write pump.
	Close()
}
