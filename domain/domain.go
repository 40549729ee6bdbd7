package domain

import "encoding/json"

// Envelope is the structured wire format for retro events. Only Type is
// inspected by the relay; Data is forwarded to recipients verbatim.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event types echoed back to the sender in addition to the rest of the room.
const (
	EventRetroItemLiked   = "retro_item_liked"
	EventRetroItemUnliked = "retro_item_unliked"
)

type Connection interface {
	ID() string
	Room() string
	Send(data []byte, binary bool) error
	Close() error
}

type Broadcaster interface {
	Register(conn Connection)
	Unregister(conn Connection)
	Broadcast(sender Connection, data []byte, binary bool, includeSender bool)
	Stats() (rooms, clients int)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte, binary bool)
}

type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomOpened()
	RoomClosed()
	MessageReceived()
	MessageDelivered()
	DeliveryDropped()
	HandshakeRejected()
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ConnectionOpened()  {}
func (NopMetrics) ConnectionClosed()  {}
func (NopMetrics) RoomOpened()        {}
func (NopMetrics) RoomClosed()        {}
func (NopMetrics) MessageReceived()   {}
func (NopMetrics) MessageDelivered()  {}
func (NopMetrics) DeliveryDropped()   {}
func (NopMetrics) HandshakeRejected() {}

// interface checks
var _ Metrics = NopMetrics{}
