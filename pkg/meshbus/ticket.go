package meshbus

import (
	"encoding/base64"
	"fmt"

	"github.com/warren-mesh/warren/pkg/apperr"
	"github.com/warren-mesh/warren/pkg/codec/canonjson"
)

// ticketWire is Ticket's on-the-wire shape, carrying the recipient key as a
// JSON byte string (base64) so the whole thing round-trips through a single
// opaque base64 string an operator can copy out of `warren init` and pass to
// another node's `warren server` as a positional argument (the Go stand-in
// for iroh_base::ticket::NodeTicket).
type ticketWire struct {
	Addr         string `json:"addr"`
	NodeID       string `json:"node_id"`
	RecipientKey []byte `json:"recipient_key"`
}

// EncodeTicket renders t as an opaque, copy-pasteable string.
func EncodeTicket(t Ticket) string {
	data, err := canonjson.Marshal(ticketWire{Addr: t.Addr, NodeID: t.NodeID, RecipientKey: t.RecipientKey})
	if err != nil {
		// ticketWire is a fixed, json-safe shape; this cannot fail.
		panic(fmt.Sprintf("meshbus: encode ticket: %v", err))
	}
	return base64.URLEncoding.EncodeToString(data)
}

// ParseTicket decodes a string produced by EncodeTicket.
func ParseTicket(s string) (Ticket, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return Ticket{}, apperr.Wrap(apperr.InvalidInput, "decode ticket", err)
	}

	var w ticketWire
	if err := canonjson.Unmarshal(data, &w); err != nil {
		return Ticket{}, apperr.Wrap(apperr.InvalidInput, "decode ticket", err)
	}
	if w.Addr == "" || w.NodeID == "" {
		return Ticket{}, apperr.New(apperr.InvalidInput, "ticket missing address or node ID")
	}

	return Ticket{Addr: w.Addr, NodeID: w.NodeID, RecipientKey: w.RecipientKey}, nil
}
