// Package transport provides the transport-layer abstraction the gossip mesh
// bus is built on. Two implementations are registered: QUIC (primary) and
// TCP+TLS (fallback), mirroring the teacher's own transport split.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// Transport represents a transport protocol (QUIC or TCP)
type Transport interface {
	// Listen starts listening for incoming connections on the given address
	Listen(ctx context.Context, addr string, tlsConfig *tls.Config) (Listener, error)

	// Dial establishes a connection to the given address
	Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (Conn, error)

	// Name returns the transport name (e.g., "quic", "tcp")
	Name() string

	// DefaultPort returns the default port for this transport
	DefaultPort() int
}

// Listener represents a transport listener
type Listener interface {
	// Accept waits for and returns the next connection
	Accept(ctx context.Context) (Conn, error)

	// Close closes the listener
	Close() error

	// Addr returns the listener's network address
	Addr() net.Addr
}

// Conn represents a transport connection
type Conn interface {
	// Read reads data from the connection
	Read(b []byte) (n int, err error)

	// Write writes data to the connection
	Write(b []byte) (n int, err error)

	// Close closes the connection
	Close() error

	// LocalAddr returns the local network address
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address
	RemoteAddr() net.Addr

	// SetDeadline sets the read and write deadlines
	SetDeadline(t time.Time) error

	// SetReadDeadline sets the read deadline
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline sets the write deadline
	SetWriteDeadline(t time.Time) error

	// ConnectionState returns the TLS connection state
	ConnectionState() tls.ConnectionState
}

// Config holds transport configuration
type Config struct {
	// TLS configuration
	TLSConfig *tls.Config

	// ALPN protocols to negotiate
	ALPNProtocols []string

	// Connection timeout
	ConnectTimeout time.Duration

	// Keep-alive settings
	KeepAlive time.Duration

	// Maximum idle timeout
	MaxIdleTimeout time.Duration
}

// DefaultConfig returns a default transport configuration
func DefaultConfig() *Config {
	return &Config{
		ALPNProtocols:  []string{"warren/1"},
		ConnectTimeout: 30 * time.Second,
		KeepAlive:      30 * time.Second,
		MaxIdleTimeout: 5 * time.Minute,
	}
}

// ApplyTLSDefaults returns a clone of base (or a fresh *tls.Config if base
// is nil) with c's ALPN protocols and a TLS 1.3 floor filled in wherever
// the caller left them unset. Both pkg/transport/quic and pkg/transport/tcp
// call this rather than each hardcoding their own copy of the ALPN string
// and minimum version.
func (c *Config) ApplyTLSDefaults(base *tls.Config) *tls.Config {
	cfg := base.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = c.ALPNProtocols
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS13
	}
	return cfg
}

// Registry holds the two transports warren actually dials by name: QUIC
// (primary) and TCP+TLS (fallback). Unlike beenet's open-ended
// name-to-Transport map supporting arbitrary runtime registration, warren
// never selects among more than these two, so Registry is built directly
// from them rather than populated one Register call at a time.
type Registry struct {
	quic Transport
	tcp  Transport
}

// NewRegistry builds a Registry from the QUIC and TCP transport instances.
// Both pkg/transport/quic and pkg/transport/tcp import this package, so
// Registry cannot construct them itself without an import cycle — callers
// (cmd/warren) supply the instances.
func NewRegistry(quicTransport, tcpTransport Transport) *Registry {
	return &Registry{quic: quicTransport, tcp: tcpTransport}
}

// Get returns the transport matching name ("quic" or "tcp"; an empty name
// defaults to quic, the primary transport), or false if name matches
// neither.
func (r *Registry) Get(name string) (Transport, bool) {
	switch name {
	case "", r.quic.Name():
		return r.quic, true
	case r.tcp.Name():
		return r.tcp, true
	default:
		return nil, false
	}
}

// Names returns the two registered transport names, quic first.
func (r *Registry) Names() []string {
	return []string{r.quic.Name(), r.tcp.Name()}
}
