// Package constants defines the cross-cutting default values from spec §21-equivalent
// tuning knobs: timing, protocol version, and default ports.
package constants

import "time"

// Timing defaults (spec §4.4, §5)
const (
	// HeartbeatInterval is the default gossip heartbeat period (spec §4.4: 10s).
	HeartbeatInterval = 10 * time.Second

	// MaxClockSkew bounds how far a remote timestamp may drift from local time
	// before a frame is treated with suspicion (spec §9 Q3: not strictly
	// enforced, kept as a sanity bound only).
	MaxClockSkew = 120 * time.Second

	// ShutdownDeadline is the bound on graceful actor teardown (spec §5).
	ShutdownDeadline = 8 * time.Second

	// LeavingSendTimeout bounds the best-effort Leaving broadcast during shutdown.
	LeavingSendTimeout = 500 * time.Millisecond
)

// Protocol defaults
const (
	// ProtocolVersion is the wire envelope/message protocol version.
	ProtocolVersion = 1

	// DefaultQUICPort is the default mesh listen port (QUIC primary).
	DefaultQUICPort = 27511

	// DefaultTCPPort is the default mesh listen port for the TCP+TLS fallback.
	DefaultTCPPort = 27512

	// TopicByteLen is the fixed zero-padded topic identifier length (spec §6).
	TopicByteLen = 32
)

// Mailbox/backpressure defaults (spec §5)
const (
	// DefaultMailboxSize bounds each actor's inbound channel.
	DefaultMailboxSize = 256
)
