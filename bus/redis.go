package bus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Message is the cross-instance fan-out envelope. Origin identifies the
// publishing process so instances skip their own messages; SenderID lets
// the receiving side keep honoring the sender-exclusion rule.
type Message struct {
	Room          string `json:"room"`
	SenderID      string `json:"senderId"`
	Payload       []byte `json:"payload"`
	Binary        bool   `json:"binary"`
	IncludeSender bool   `json:"includeSender"`
	Origin        string `json:"origin"`
}

type Bus struct {
	rdb    *redis.Client
	log    *slog.Logger
	origin string
}

func New(ctx context.Context, addr string, db int, log *slog.Logger) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bus{rdb: rdb, log: log, origin: uuid.New().String()}, nil
}

// Publish mirrors a locally received payload to the other instances.
// Best-effort: failures are logged and the local broadcast proceeds.
func (b *Bus) Publish(room, senderID string, data []byte, binary, includeSender bool) {
	raw, err := json.Marshal(Message{
		Room:          room,
		SenderID:      senderID,
		Payload:       data,
		Binary:        binary,
		IncludeSender: includeSender,
		Origin:        b.origin,
	})
	if err != nil {
		return
	}
	if err := b.rdb.Publish(context.Background(), channel(room), raw).Err(); err != nil {
		b.log.Warn("bus publish failed", "session", room, "error", err)
	}
}

// Subscribe replays messages from other instances into the local rooms
// until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, forward func(room, senderID string, data []byte, binary, includeSender bool)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.log.Warn("bus decode failed", "error", err)
				continue
			}
			if m.Origin == b.origin || m.Room == "" {
				continue
			}
			forward(m.Room, m.SenderID, m.Payload, m.Binary, m.IncludeSender)
		}
	}
}

func (b *Bus) Close() { _ = b.rdb.Close() }

func channel(room string) string { return "retro:" + room }
