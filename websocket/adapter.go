package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcblakeb/retro-relay/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
)

// ErrSlowClient is returned by Send when the outbound buffer is full;
// the client is closed and the message dropped.
var ErrSlowClient = errors.New("send buffer full, dropping slow client")

type frame struct {
	data   []byte
	binary bool
}

// Conn is the live session for one participant: its room assignment is
// fixed at construction and it owns the read/write pumps for the
// underlying connection.
type Conn struct {
	id          string
	room        string
	ws          *websocket.Conn
	send        chan frame
	broadcaster domain.Broadcaster
	handler     domain.MessageHandler

	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

func NewConn(id, room string, ws *websocket.Conn, b domain.Broadcaster, h domain.MessageHandler) *Conn {
	return &Conn{
		id:          id,
		room:        room,
		ws:          ws,
		send:        make(chan frame, 256),
		broadcaster: b,
		handler:     h,
		done:        make(chan struct{}),
	}
}

func (c *Conn) ID() string   { return c.id }
func (c *Conn) Room() string { return c.room }

// Send queues an outbound frame, preserving its binary/text framing.
// Sending to a closed session is a silent no-op so a broadcast racing a
// concurrent close never surfaces an error to the fan-out loop.
func (c *Conn) Send(data []byte, binary bool) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closeMu.Unlock()

	select {
	case c.send <- frame{data: data, binary: binary}:
		return nil
	default:
		go c.Close()
		return ErrSlowClient
	}
}

// Close transitions the session to closed exactly once and removes it
// from its room, whether the closure was client- or error-initiated.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.closeMu.Unlock()

	c.broadcaster.Unregister(c)
	return c.ws.Close()
}

func (c *Conn) Start() {
	c.broadcaster.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, data, mt == websocket.BinaryMessage)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			mt := websocket.TextMessage
			if f.binary {
				mt = websocket.BinaryMessage
			}
			if err := c.ws.WriteMessage(mt, f.data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
