package protocol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcblakeb/retro-relay/domain"
)

type mockConn struct {
	id   string
	room string
}

func (m *mockConn) ID() string   { return m.id }
func (m *mockConn) Room() string { return m.room }

func (m *mockConn) Send(data []byte, b bool) error { return nil }
func (m *mockConn) Close() error                   { return nil }

type broadcastCall struct {
	senderID      string
	data          []byte
	binary        bool
	includeSender bool
}

type mockBroadcaster struct {
	broadcasts []broadcastCall
	mu         sync.Mutex
}

func (m *mockBroadcaster) Register(conn domain.Connection)   {}
func (m *mockBroadcaster) Unregister(conn domain.Connection) {}
func (m *mockBroadcaster) Stats() (int, int)                 { return 0, 0 }

func (m *mockBroadcaster) Broadcast(sender domain.Connection, data []byte, binary bool, includeSender bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, broadcastCall{
		senderID:      sender.ID(),
		data:          data,
		binary:        binary,
		includeSender: includeSender,
	})
}

func (m *mockBroadcaster) getBroadcasts() []broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasts
}

type publishCall struct {
	room          string
	senderID      string
	data          []byte
	binary        bool
	includeSender bool
}

type mockPublisher struct {
	calls []publishCall
	mu    sync.Mutex
}

func (m *mockPublisher) Publish(room, senderID string, data []byte, binary, includeSender bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, publishCall{room, senderID, data, binary, includeSender})
}

func TestHandler_Classification(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		binary      bool
		wantInclude bool
	}{
		{
			name:        "like echoes to sender",
			payload:     `{"type":"retro_item_liked","data":{"itemId":"42"}}`,
			wantInclude: true,
		},
		{
			name:        "unlike echoes to sender",
			payload:     `{"type":"retro_item_unliked","data":{"itemId":"42"}}`,
			wantInclude: true,
		},
		{
			name:        "other typed event excludes sender",
			payload:     `{"type":"retro_item_added","data":{"content":"ship it"}}`,
			wantInclude: false,
		},
		{
			name:        "typeless envelope takes the default class",
			payload:     `{"data":{"content":"ship it"}}`,
			wantInclude: false,
		},
		{
			name:        "plain text takes the default class",
			payload:     "hello",
			wantInclude: false,
		},
		{
			name:        "malformed json takes the default class",
			payload:     `{"type":`,
			wantInclude: false,
		},
		{
			name:        "binary payload takes the default class",
			payload:     "\x01\x02\x03",
			binary:      true,
			wantInclude: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broadcaster := &mockBroadcaster{}
			handler := NewHandler(broadcaster, nil, nil)
			conn := &mockConn{id: "client1", room: "demo-1"}

			handler.Handle(conn, []byte(tt.payload), tt.binary)

			broadcasts := broadcaster.getBroadcasts()
			require.Len(t, broadcasts, 1)
			assert.Equal(t, "client1", broadcasts[0].senderID)
			assert.Equal(t, tt.wantInclude, broadcasts[0].includeSender)
			assert.Equal(t, tt.binary, broadcasts[0].binary, "framing must pass through")
			// the relay never re-encodes
			assert.Equal(t, []byte(tt.payload), broadcasts[0].data)
		})
	}
}

func TestHandler_PublisherMirrorsBroadcast(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	publisher := &mockPublisher{}
	handler := NewHandler(broadcaster, publisher, nil)
	conn := &mockConn{id: "client1", room: "demo-1"}

	payload := []byte(`{"type":"retro_item_liked","data":{}}`)
	handler.Handle(conn, payload, false)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "demo-1", publisher.calls[0].room)
	assert.Equal(t, "client1", publisher.calls[0].senderID)
	assert.Equal(t, payload, publisher.calls[0].data)
	assert.True(t, publisher.calls[0].includeSender)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "retro_item_liked", Classify([]byte(`{"type":"retro_item_liked"}`)))
	assert.Equal(t, "", Classify([]byte(`{"data":{}}`)))
	assert.Equal(t, "", Classify([]byte("not json")))
	assert.Equal(t, "", Classify(nil))
}
