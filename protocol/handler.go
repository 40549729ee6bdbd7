package protocol

import (
	"encoding/json"

	"github.com/mcblakeb/retro-relay/domain"
)

// Publisher mirrors a locally received payload to other relay instances.
type Publisher interface {
	Publish(room, senderID string, data []byte, binary, includeSender bool)
}

// Handler classifies inbound payloads and fans them out. Payloads are
// forwarded verbatim in their original framing; classification only
// decides whether the sender hears its own message back.
type Handler struct {
	broadcaster domain.Broadcaster
	publisher   Publisher
	metrics     domain.Metrics
}

func NewHandler(b domain.Broadcaster, p Publisher, m domain.Metrics) *Handler {
	if m == nil {
		m = domain.NopMetrics{}
	}
	return &Handler{broadcaster: b, publisher: p, metrics: m}
}

func (h *Handler) Handle(conn domain.Connection, data []byte, binary bool) {
	h.metrics.MessageReceived()

	include := Inclusive(data)
	if h.publisher != nil {
		h.publisher.Publish(conn.Room(), conn.ID(), data, binary, include)
	}
	h.broadcaster.Broadcast(conn, data, binary, include)
}

// Classify returns the envelope type of a payload, or "" when the payload
// is not a JSON envelope or carries no type. Untyped payloads are still
// relayed; they just take the default everyone-but-the-sender class.
func Classify(data []byte) string {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Type
}

// Inclusive reports whether the payload's type echoes back to the sender.
func Inclusive(data []byte) bool {
	switch Classify(data) {
	case domain.EventRetroItemLiked, domain.EventRetroItemUnliked:
		return true
	}
	return false
}
