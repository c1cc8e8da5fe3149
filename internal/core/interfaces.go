// Package core holds the seams between the sync engine and its external
// collaborators: relay transport, peer-connection subsystem, media capture
// and the playback widget. Concrete implementations live under
// internal/adapters; tests substitute their own.
package core

import "github.com/JPKrishna28/yt-sync/internal/protocol"

// Frame is a raw wire payload.
type Frame []byte

// Relay is the client side of the message relay. Delivery is at-least-once
// within a connection; ordering holds per sender only.
type Relay interface {
	// Emit sends one named event with a JSON payload.
	Emit(event string, payload any) error
	// Events yields inbound envelopes. The channel is closed when the
	// connection dies; there is no application-level reconnect behind it.
	Events() <-chan protocol.Envelope
	Close() error
}

// SignalConnection abstracts a relay-server-side endpoint for one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
