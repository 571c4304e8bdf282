// Package meshbus is the concrete binding of the mesh's abstract transport
// collaborator to a registered pkg/transport implementation, gated by a
// pkg/meshauth handshake. Its shape — SubscribeAndJoin, Broadcast, JoinPeers,
// an event stream pumped by a background receiver loop — mirrors
// original_source's iroh-gossip actor trio (actors/gossip/iroh.rs,
// gossip_sender.rs, gossip_receiver.rs): the Rust original splits sender and
// receiver across two linked actors talking to one iroh_gossip::api::Gossip
// handle; here both sides of that handle are folded into one Bus, with the
// receiver loop feeding a buffered Go channel in place of the original's
// async Stream/try_next pull.
package meshbus

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/warren-mesh/warren/pkg/identity"
	"github.com/warren-mesh/warren/pkg/meshauth"
	"github.com/warren-mesh/warren/pkg/transport"
	"github.com/warren-mesh/warren/pkg/wire"
)

// maxEnvelopeSize bounds a single framed message, guarding against a
// malicious or corrupt peer claiming an unbounded length prefix.
const maxEnvelopeSize = 1 << 20

// EventKind distinguishes the four event shapes the bus can emit, mirroring
// iroh_gossip::api::Event's four variants.
type EventKind int

const (
	EventReceived EventKind = iota
	EventNeighborUp
	EventNeighborDown
	EventLagged
)

// Event is one item from the bus's event stream.
type Event struct {
	Kind     EventKind
	Envelope *wire.Envelope // set when Kind == EventReceived
	NodeID   string         // set when Kind == EventReceived, EventNeighborUp, or EventNeighborDown
}

// Ticket is an operator-facing connection hint for a bootstrap peer: an
// address plus the node ID and recipient public key it claims, learned out
// of band (e.g. printed by `warren init` and passed to another node's
// `warren server` as a positional argument).
type Ticket struct {
	Addr         string
	NodeID       string
	RecipientKey []byte
}

// Bus is one node's connection to the mesh: a listener accepting admission
// handshakes plus a set of live peer connections messages are broadcast to
// and received from.
type Bus struct {
	transport transport.Transport
	tlsConfig *tls.Config
	identity  *identity.Identity
	listener  transport.Listener

	mu    sync.Mutex
	peers map[string]transport.Conn

	events chan Event
	lagged chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SubscribeAndJoin starts listening on listenAddr and dials every bootstrap
// ticket, returning a Bus whose event stream is ready to drain via TryNext.
func SubscribeAndJoin(ctx context.Context, tr transport.Transport, tlsConfig *tls.Config, id *identity.Identity, listenAddr string, bootstrap []Ticket) (*Bus, error) {
	listener, err := tr.Listen(ctx, listenAddr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	busCtx, cancel := context.WithCancel(ctx)
	bus := &Bus{
		transport: tr,
		tlsConfig: tlsConfig,
		identity:  id,
		listener:  listener,
		peers:     make(map[string]transport.Conn),
		events:    make(chan Event, 256),
		lagged:    make(chan struct{}, 1),
		ctx:       busCtx,
		cancel:    cancel,
	}

	bus.wg.Add(1)
	go bus.acceptLoop()

	if err := bus.JoinPeers(ctx, bootstrap); err != nil {
		bus.Close()
		return nil, err
	}

	return bus, nil
}

// JoinPeers dials each ticket not already connected, performing the Noise-IK
// admission handshake before admitting the connection to the mesh.
func (b *Bus) JoinPeers(ctx context.Context, tickets []Ticket) error {
	for _, t := range tickets {
		if b.hasPeer(t.NodeID) {
			continue
		}
		conn, err := b.transport.Dial(ctx, t.Addr, b.tlsConfig)
		if err != nil {
			return fmt.Errorf("dial %s: %w", t.Addr, err)
		}
		if err := b.admitOutbound(conn, t); err != nil {
			conn.Close()
			return fmt.Errorf("admit outbound connection to %s: %w", t.NodeID, err)
		}
	}
	return nil
}

// Broadcast sends env to every connected peer, dropping (and logging via the
// returned error being ignored by callers that choose to) any individual
// send failure so one dead peer cannot block delivery to the rest.
func (b *Bus) Broadcast(ctx context.Context, env *wire.Envelope) error {
	data, err := wire.MarshalEnvelope(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	b.mu.Lock()
	conns := make([]transport.Conn, 0, len(b.peers))
	for _, c := range b.peers {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	var firstErr error
	for _, conn := range conns {
		if err := writeFrame(conn, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TryNext returns the next event, blocking until one arrives or ctx is
// cancelled — the Go rendering of the original's async try_next pull.
func (b *Bus) TryNext(ctx context.Context) (*Event, error) {
	select {
	case ev, ok := <-b.events:
		if !ok {
			return nil, io.EOF
		}
		return &ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the listener, every peer connection, and the background
// loops.
func (b *Bus) Close() error {
	b.cancel()
	b.listener.Close()

	b.mu.Lock()
	for _, c := range b.peers {
		c.Close()
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *Bus) hasPeer(nodeID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.peers[nodeID]
	return ok
}

func (b *Bus) addPeer(nodeID string, conn transport.Conn) {
	b.mu.Lock()
	b.peers[nodeID] = conn
	b.mu.Unlock()
	b.emit(Event{Kind: EventNeighborUp, NodeID: nodeID})
}

func (b *Bus) removePeer(nodeID string) {
	b.mu.Lock()
	delete(b.peers, nodeID)
	b.mu.Unlock()
	b.emit(Event{Kind: EventNeighborDown, NodeID: nodeID})
}

func (b *Bus) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		select {
		case b.lagged <- struct{}{}:
			b.events <- Event{Kind: EventLagged}
		default:
		}
	}
}

func (b *Bus) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept(b.ctx)
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.admitInbound(conn); err != nil {
				conn.Close()
			}
		}()
	}
}

// admitInbound runs the responder side of the admission handshake against a
// freshly accepted connection: first the Noise IK exchange proving
// possession of the claimed recipient static key, then a signed
// ClientHello/ServerHello exchange binding the connection to the peer's
// Ed25519 node identity (spec §1/§3 "long-lived cryptographic identity").
// The connection is admitted to the mesh under the ClientHello's verified
// NodeID, never the transport-level remote address.
func (b *Bus) admitInbound(conn transport.Conn) error {
	hs, err := meshauth.NewResponderHandshake(b.identity)
	if err != nil {
		return fmt.Errorf("create responder handshake: %w", err)
	}

	msg1, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read handshake message 1: %w", err)
	}
	if _, err := hs.ReadMessage(msg1); err != nil {
		return fmt.Errorf("process handshake message 1: %w", err)
	}

	msg2, err := hs.WriteMessage(nil)
	if err != nil {
		return fmt.Errorf("create handshake message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return fmt.Errorf("send handshake message 2: %w", err)
	}

	helloData, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read client hello: %w", err)
	}
	var ch meshauth.ClientHello
	if err := ch.Unmarshal(helloData); err != nil {
		return fmt.Errorf("decode client hello: %w", err)
	}
	peerKey, err := meshauth.NodeIDToPublicKey(ch.NodeID)
	if err != nil {
		return fmt.Errorf("decode client hello node ID: %w", err)
	}
	if err := ch.Verify(peerKey); err != nil {
		return fmt.Errorf("verify client hello: %w", err)
	}

	sh := meshauth.ServerHello{
		Version:  meshauth.ProtocolVersion,
		NodeID:   b.identity.NodeID(),
		NoiseKey: b.identity.RecipientPublicKey[:],
	}
	if err := sh.Sign(b.identity.SigningPrivateKey); err != nil {
		return fmt.Errorf("sign server hello: %w", err)
	}
	shData, err := sh.Marshal()
	if err != nil {
		return fmt.Errorf("encode server hello: %w", err)
	}
	if err := writeFrame(conn, shData); err != nil {
		return fmt.Errorf("send server hello: %w", err)
	}

	nodeID := ch.NodeID
	b.addPeer(nodeID, conn)
	b.wg.Add(1)
	go b.readLoop(nodeID, conn)
	return nil
}

// admitOutbound runs the initiator side of the admission handshake against a
// freshly dialed connection to t: the Noise IK exchange against t's
// advertised recipient key, then a signed ClientHello/ServerHello exchange
// that must return exactly t.NodeID, signed by the matching Ed25519 key,
// before the connection is admitted.
func (b *Bus) admitOutbound(conn transport.Conn, t Ticket) error {
	hs, err := meshauth.NewInitiatorHandshake(b.identity, t.RecipientKey)
	if err != nil {
		return fmt.Errorf("create initiator handshake: %w", err)
	}

	msg1, err := hs.WriteMessage(nil)
	if err != nil {
		return fmt.Errorf("create handshake message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return fmt.Errorf("send handshake message 1: %w", err)
	}

	msg2, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read handshake message 2: %w", err)
	}
	if _, err := hs.ReadMessage(msg2); err != nil {
		return fmt.Errorf("process handshake message 2: %w", err)
	}

	ch := meshauth.ClientHello{
		Version:  meshauth.ProtocolVersion,
		NodeID:   b.identity.NodeID(),
		Ticket:   EncodeTicket(t),
		NoiseKey: b.identity.RecipientPublicKey[:],
	}
	if err := ch.Sign(b.identity.SigningPrivateKey); err != nil {
		return fmt.Errorf("sign client hello: %w", err)
	}
	chData, err := ch.Marshal()
	if err != nil {
		return fmt.Errorf("encode client hello: %w", err)
	}
	if err := writeFrame(conn, chData); err != nil {
		return fmt.Errorf("send client hello: %w", err)
	}

	helloData, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read server hello: %w", err)
	}
	var sh meshauth.ServerHello
	if err := sh.Unmarshal(helloData); err != nil {
		return fmt.Errorf("decode server hello: %w", err)
	}
	if sh.NodeID != t.NodeID {
		return fmt.Errorf("server hello node ID %q does not match ticket node ID %q", sh.NodeID, t.NodeID)
	}
	peerKey, err := meshauth.NodeIDToPublicKey(sh.NodeID)
	if err != nil {
		return fmt.Errorf("decode server hello node ID: %w", err)
	}
	if err := sh.Verify(peerKey); err != nil {
		return fmt.Errorf("verify server hello: %w", err)
	}

	b.addPeer(sh.NodeID, conn)
	b.wg.Add(1)
	go b.readLoop(sh.NodeID, conn)
	return nil
}

func (b *Bus) readLoop(nodeID string, conn transport.Conn) {
	defer b.wg.Done()
	defer b.removePeer(nodeID)

	for {
		data, err := readFrame(conn)
		if err != nil {
			return
		}

		env, err := wire.UnmarshalEnvelope(data)
		if err != nil {
			continue
		}
		b.emit(Event{Kind: EventReceived, Envelope: env, NodeID: nodeID})
	}
}

func writeFrame(conn transport.Conn, data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := conn.Write(header[:]); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readFrame(conn transport.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxEnvelopeSize {
		return nil, fmt.Errorf("frame length %d exceeds maximum %d", length, maxEnvelopeSize)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, err
	}
	return data, nil
}
