// Package control implements the sideband status/command channel. spec
// treats the pub/sub broker as an out-of-scope collaborator and specifies
// only its contract; here that contract rides over a websocket connection
// rather than a literal MQTT broker (see DESIGN.md).
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HCL-Hbot/edge-vox/internal/metrics"
	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
)

// reconnectBackoff is the delay between automatic reconnect attempts after
// an unexpected read failure.
const reconnectBackoff = 500 * time.Millisecond

// StatusCallback receives every forwarded status payload as a UTF-8
// string, including the synthesized "Connected" event on a successful
// connect.
type StatusCallback func(status string)

// envelope is the wire message carrying both command publishes and status
// deliveries.
type envelope struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Channel connects to a broker-like endpoint, publishes command strings on
// a command topic, and forwards every received status payload to the
// current callback. An unexpected read failure triggers automatic
// reconnect attempts against the last dialed (host, port) until an
// explicit Disconnect.
type Channel struct {
	log          *zap.Logger
	commandTopic string
	statusTopic  string

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	closing   bool
	host      string
	port      int
	cb        StatusCallback

	ctx    context.Context
	cancel context.CancelFunc
}

// NewChannel constructs an unconnected channel bound to the given topics.
func NewChannel(log *zap.Logger, commandTopic, statusTopic string) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{log: log, commandTopic: commandTopic, statusTopic: statusTopic}
}

// Connect dials (host, port), and on success synthesizes a "Connected"
// status callback per the broker contract before returning.
func (c *Channel) Connect(host string, port int) error {
	c.mu.Lock()
	c.closing = false
	c.host, c.port = host, port
	c.mu.Unlock()
	return c.dialAndStart(host, port)
}

// dialAndStart performs the actual websocket handshake, installs the read
// loop, and emits the synthesized "Connected" status. Used by both Connect
// and the automatic reconnect loop.
func (c *Channel) dialAndStart(host string, port int) error {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", host, port), Path: "/control"}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrSocketOpen, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.ctx = ctx
	c.cancel = cancel
	c.mu.Unlock()

	go c.readLoop(conn, ctx)

	c.emit("Connected")
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn, ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug("control channel read ended", zap.Error(err))
			c.handleReadFailure()
			return
		}
		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("dropping malformed control message", zap.Error(err))
			continue
		}
		if msg.Topic != "" && msg.Topic != c.statusTopic {
			continue
		}
		c.emit(msg.Payload)
	}
}

// handleReadFailure tears down the dead connection and, unless the channel
// is being explicitly disconnected, starts the automatic reconnect loop.
func (c *Channel) handleReadFailure() {
	c.mu.Lock()
	closing := c.closing
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if closing {
		return
	}
	go c.reconnectLoop()
}

// reconnectLoop retries dialAndStart against the last known (host, port)
// until it succeeds or Disconnect is called, counting every attempt.
func (c *Channel) reconnectLoop() {
	for {
		c.mu.RLock()
		closing, host, port := c.closing, c.host, c.port
		c.mu.RUnlock()
		if closing {
			return
		}

		metrics.ControlReconnectsTotal.Inc()
		if err := c.dialAndStart(host, port); err == nil {
			return
		}
		time.Sleep(reconnectBackoff)
	}
}

func (c *Channel) emit(status string) {
	c.mu.RLock()
	cb := c.cb
	c.mu.RUnlock()
	if cb != nil {
		cb(status)
	}
}

// SetStatusCallback atomically replaces the status callback.
func (c *Channel) SetStatusCallback(cb StatusCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

// PublishCommand sends cmd on the command topic.
func (c *Channel) PublishCommand(cmd string) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return xerrors.ErrNotRunning
	}
	msg := envelope{Topic: c.commandTopic, Payload: cmd}
	return conn.WriteJSON(msg)
}

// IsConnected reports the connection state.
func (c *Channel) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Disconnect closes the connection idempotently and stops any in-flight
// automatic reconnect attempts.
func (c *Channel) Disconnect() error {
	c.mu.Lock()
	c.closing = true
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
