package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"notesync/internal/models"
)

// sendBuffer bounds how many frames a slow client may fall behind before
// broadcasts to it are dropped.
const sendBuffer = 64

// Client is one live connection participating in a room.
type Client struct {
	ID       string
	Username string

	conn *websocket.Conn
	out  chan models.WSFrame
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	hook func(models.WSFrame)
}

func NewClient(id, username string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		Username: username,
		conn:     conn,
		out:      make(chan models.WSFrame, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Member returns the client's public identity.
func (c *Client) Member() models.Member {
	return models.Member{ID: c.ID, Username: c.Username}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send queues a frame for delivery. It never blocks: if the client's buffer
// is full the frame is dropped for that client only. Delivery is best-effort;
// frames queued after Close are never written.
func (c *Client) Send(frame models.WSFrame) {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(frame)
		return
	}
	select {
	case c.out <- frame:
	default:
	}
}

// WritePump drains queued frames to the connection in order. It returns when
// Close is called or a write fails. Run it in its own goroutine.
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for {
		select {
		case frame := <-c.out:
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}
