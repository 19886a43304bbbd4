package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var ErrClosed = errors.New("websocket connection closed")

// Conn is a channel transport over a WebSocket to a sandbox running in a
// web view. Injected scripts are queued without bound and written as text
// frames by a single writer goroutine, in order.
type Conn struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	mu    sync.Mutex
	queue []string
	wake  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps conn and starts its writer.
func NewConn(conn *websocket.Conn, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Conn{
		id:   uuid.New().String(),
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	c.logger = logger.With(zap.String("conn", c.id))
	go c.writeLoop()
	return c
}

// ID returns the connection ID.
func (c *Conn) ID() string { return c.id }

// Inject queues script for the web view. It never blocks and only fails
// once the connection is closed.
func (c *Conn) Inject(script string) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClosed
	default:
	}
	c.queue = append(c.queue, script)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Queued returns the number of scripts not yet handed to the socket.
func (c *Conn) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close stops the writer and closes the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.done }

// ReadLoop hands every text frame to receive until the peer goes away.
// A normal close returns nil.
func (c *Conn) ReadLoop(receive func(data []byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text frame", zap.Int("kind", kind))
			continue
		}
		receive(data)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.wake:
			if !c.flush() {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("WebSocket ping failed", zap.Error(err))
			}
		case <-c.done:
			return
		}
	}
}

// flush writes everything queued so far. It reports false once the
// connection can no longer be written.
func (c *Conn) flush() bool {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, script := range batch {
		select {
		case <-c.done:
			return false
		default:
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(script)); err != nil {
			c.logger.Warn("WebSocket write failed", zap.Error(err), zap.Int("pending", len(batch)))
			_ = c.Close()
			return false
		}
	}
	return true
}
