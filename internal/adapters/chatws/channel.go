// Package chatws implements the secure messaging channel over a
// websocket, independent of the media transport.
package chatws

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
	"github.com/curaline/consult/internal/metrics"
)

const writeWait = 5 * time.Second

type Options struct {
	URL                string
	SendBuffer         int
	ReconnectAttempts  int
	ReconnectBaseDelay time.Duration
}

func (o *Options) withDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}
	if o.ReconnectBaseDelay <= 0 {
		o.ReconnectBaseDelay = 500 * time.Millisecond
	}
}

// Factory builds one Channel per session.
type Factory struct {
	Opts Options
}

func (f *Factory) New(sctx domain.SessionContext, sink core.EventSink) core.ChatChannel {
	opts := f.Opts
	opts.withDefaults()
	c := &Channel{
		sctx:   sctx,
		opts:   opts,
		sink:   sink,
		send:   make(chan []byte, opts.SendBuffer),
		closed: make(chan struct{}),
	}
	// Not connected until Connect succeeds.
	c.health.Store(int32(domain.HealthDisconnected))
	return c
}

// Channel owns its socket exclusively. Owner Close is terminal; only
// an unexpected close triggers the bounded reconnect policy.
type Channel struct {
	sctx domain.SessionContext
	opts Options
	sink core.EventSink

	send   chan []byte
	closed chan struct{}

	health    atomic.Int32
	closeOnce sync.Once
	dialer    *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Channel) Health() domain.ConnectionHealth {
	return domain.ConnectionHealth(c.health.Load())
}

func (c *Channel) setHealth(h domain.ConnectionHealth, err error) {
	c.health.Store(int32(h))
	if c.sink != nil {
		c.sink(core.ChannelStateEvent{Health: h, Err: err})
	}
}

// Connect dials the signaling endpoint. A missing credential fails
// fast without any dial attempt.
func (c *Channel) Connect(ctx context.Context) error {
	if c.sctx.Credential == "" {
		c.health.Store(int32(domain.HealthDisconnected))
		return core.ErrNoCredential
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.health.Store(int32(domain.HealthDisconnected))
		return fmt.Errorf("chat connect: %w", err)
	}

	c.setHealth(domain.HealthConnected, nil)
	log.Info().Str("module", "adapters.chatws").Str("session", string(c.sctx.SessionID)).Msg("channel connected")
	go c.run(conn)
	return nil
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	q := url.Values{}
	q.Set("token", c.sctx.Credential)
	q.Set("sessionId", string(c.sctx.SessionID))
	endpoint := c.opts.URL + "?" + q.Encode()

	d := c.dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, _, err := d.DialContext(ctx, endpoint, nil)
	return conn, err
}

// Send queues the envelope for transmission. A full buffer drops the
// payload rather than blocking the controller loop.
func (c *Channel) Send(env core.Envelope) error {
	if c.Health() != domain.HealthConnected {
		return core.ErrChannelClosed
	}
	raw, err := marshalEnvelope(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- raw:
		return nil
	default:
		return core.ErrBackpressure
	}
}

// Close is owner-initiated and terminal: no reconnect follows.
// Closing the live socket unblocks the read pump so the run goroutine
// exits promptly.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
		c.health.Store(int32(domain.HealthDisconnected))
		log.Info().Str("module", "adapters.chatws").Str("session", string(c.sctx.SessionID)).Msg("channel closed")
	})
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// run owns the socket for its lifetime, restarting the pumps across
// reconnects. One run goroutine exists per channel.
func (c *Channel) run(conn *websocket.Conn) {
	for {
		c.setConn(conn)
		if c.isClosed() {
			_ = conn.Close()
			return
		}
		connDone := make(chan struct{})
		go c.writePump(conn, connDone)
		err := c.readPump(conn)
		close(connDone)
		_ = conn.Close()

		if c.isClosed() {
			return
		}

		next, rerr := c.reconnect(err)
		if next == nil {
			c.setHealth(domain.HealthDisconnected, rerr)
			return
		}
		conn = next
		c.setHealth(domain.HealthConnected, nil)
	}
}

func (c *Channel) writePump(conn *websocket.Conn, connDone chan struct{}) {
	for {
		select {
		case <-c.closed:
			return
		case <-connDone:
			return
		case data := <-c.send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "adapters.chatws").Msg("set write deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "adapters.chatws").Msg("write error")
				return
			}
		}
	}
}

// readPump returns the error that ended the connection, or nil when
// the owner closed the channel.
func (c *Channel) readPump(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return nil
			}
			return err
		}
		msg, perr := parseEnvelope(data)
		if perr != nil {
			// Malformed payloads never affect connection health.
			log.Warn().Err(perr).Str("module", "adapters.chatws").Msg("dropping malformed payload")
			continue
		}
		if c.sink != nil {
			c.sink(core.ChatReceivedEvent{Message: msg})
		}
	}
}

// reconnect applies the bounded backoff policy. Returns a live
// connection or nil when attempts are exhausted.
func (c *Channel) reconnect(cause error) (*websocket.Conn, error) {
	if c.opts.ReconnectAttempts == 0 {
		return nil, cause
	}
	c.setHealth(domain.HealthReconnecting, cause)

	delay := c.opts.ReconnectBaseDelay
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-c.closed:
			return nil, cause
		case <-time.After(delay):
		}
		metrics.ChannelReconnects.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			log.Info().Str("module", "adapters.chatws").Int("attempt", attempt).Msg("reconnected")
			return conn, nil
		}
		log.Warn().Err(err).Str("module", "adapters.chatws").Int("attempt", attempt).Msg("reconnect failed")
		cause = err
		delay *= 2
	}
	return nil, cause
}
