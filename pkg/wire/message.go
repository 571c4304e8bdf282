// Package wire implements the gossip-mesh wire envelope and the PeerMessage
// tagged union carried inside it, as specified in §4.1 and §6.
package wire

// MessageType is the internally-tagged union discriminator carried in a
// PeerMessage's "type" field.
type MessageType string

const (
	TypeJoined            MessageType = "JOINED"
	TypeLeaving           MessageType = "LEAVING"
	TypeHeartbeat         MessageType = "HEARTBEAT"
	TypeIntroduction      MessageType = "INTRODUCTION"
	TypeSecret            MessageType = "SECRET"
	TypeSecretDelete      MessageType = "SECRET_DELETE"
	TypeSecretSyncRequest MessageType = "SECRET_SYNC_REQUEST"
)

// PeerMessage is the typed payload signed and carried inside an Envelope.
// Exactly one of the type-specific field groups is populated, selected by
// Type; this mirrors spec §6's internally-tagged union without resorting to
// the teacher's generic-over-payload phantom-type pattern (dropped per the
// spec's own redesign guidance).
type PeerMessage struct {
	Type MessageType `json:"type"`

	// Joined / Leaving / Heartbeat / Introduction fields.
	NodeID       string `json:"node_id,omitempty"`
	Ticket       string `json:"ticket,omitempty"`
	Time         int64  `json:"time,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	RecipientKey []byte `json:"recipient_key,omitempty"`

	// Secret / SecretDelete fields.
	Name         string `json:"name,omitempty"`
	Ciphertext   []byte `json:"ciphertext,omitempty"`
	Hash         string `json:"hash,omitempty"`
	TargetNodeID string `json:"target_node_id,omitempty"`
}

// Joined builds a Joined announcement.
func Joined(nodeID, ticket, hostname string, recipientKey []byte, now int64) PeerMessage {
	return PeerMessage{
		Type:         TypeJoined,
		NodeID:       nodeID,
		Ticket:       ticket,
		Time:         now,
		Hostname:     hostname,
		RecipientKey: recipientKey,
	}
}

// Leaving builds a graceful-departure announcement.
func Leaving(nodeID, ticket string, now int64) PeerMessage {
	return PeerMessage{
		Type:   TypeLeaving,
		NodeID: nodeID,
		Ticket: ticket,
		Time:   now,
	}
}

// Heartbeat builds a keep-alive message.
func Heartbeat(nodeID string, recipientKey []byte, now int64) PeerMessage {
	return PeerMessage{
		Type:         TypeHeartbeat,
		NodeID:       nodeID,
		Time:         now,
		RecipientKey: recipientKey,
	}
}

// Introduction builds a reply to NeighborUp, carrying identity metadata.
func Introduction(nodeID, ticket, hostname string, recipientKey []byte, now int64) PeerMessage {
	return PeerMessage{
		Type:         TypeIntroduction,
		NodeID:       nodeID,
		Ticket:       ticket,
		Time:         now,
		Hostname:     hostname,
		RecipientKey: recipientKey,
	}
}

// Secret builds a secret replica message targeted at targetNodeID.
func Secret(name string, ciphertext []byte, hash, targetNodeID string, now int64) PeerMessage {
	return PeerMessage{
		Type:         TypeSecret,
		Name:         name,
		Ciphertext:   ciphertext,
		Hash:         hash,
		TargetNodeID: targetNodeID,
		Time:         now,
	}
}

// SecretDelete builds an authoritative tombstone message.
func SecretDelete(name, hash, targetNodeID string, now int64) PeerMessage {
	return PeerMessage{
		Type:         TypeSecretDelete,
		Name:         name,
		Hash:         hash,
		TargetNodeID: targetNodeID,
		Time:         now,
	}
}

// SecretSyncRequest builds a self-addressed resync request.
func SecretSyncRequest(nodeID string, now int64) PeerMessage {
	return PeerMessage{
		Type:   TypeSecretSyncRequest,
		NodeID: nodeID,
		Time:   now,
	}
}
