// Package natsclient manages the NATS connection and JetStream key-value
// buckets backing the distributed cache tier.
package natsclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/agentbridge/errors"
)

// Client wraps a NATS connection with JetStream access.
type Client struct {
	url  string
	conn *nats.Conn
	js   jetstream.JetStream

	clientName    string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	logger        *slog.Logger

	connectedGauge prometheus.Gauge

	mu     sync.RWMutex
	closed bool
}

// Option configures the client.
type Option func(*Client)

// WithName sets the client connection name visible to the NATS server.
func WithName(name string) Option {
	return func(c *Client) { c.clientName = name }
}

// WithMaxReconnects sets the reconnect attempt limit (-1 for infinite).
func WithMaxReconnects(n int) Option {
	return func(c *Client) { c.maxReconnects = n }
}

// WithReconnectWait sets the wait between reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) { c.reconnectWait = d }
}

// WithTimeout sets the dial and default operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithConnectedGauge wires a gauge that tracks connection status (0/1).
func WithConnectedGauge(g prometheus.Gauge) Option {
	return func(c *Client) { c.connectedGauge = g }
}

// Connect dials the NATS server and initializes JetStream.
func Connect(url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:           url,
		clientName:    "agentbridge",
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := nats.Connect(url,
		nats.Name(c.clientName),
		nats.Timeout(c.timeout),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.setConnected(false)
			c.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.setConnected(true)
			c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.setConnected(false)
			c.logger.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "natsclient", "Connect", "dial "+url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "natsclient", "Connect", "initialize jetstream")
	}

	c.conn = conn
	c.js = js
	c.setConnected(true)
	c.logger.Info("NATS connected", "url", url, "client", c.clientName)
	return c, nil
}

func (c *Client) setConnected(up bool) {
	if c.connectedGauge == nil {
		return
	}
	if up {
		c.connectedGauge.Set(1)
	} else {
		c.connectedGauge.Set(0)
	}
}

// Conn exposes the raw connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// IsConnected reports whether the underlying connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && c.conn.IsConnected()
}

// EnsureKeyValue creates or opens a KV bucket with the given TTL. TTL zero
// means entries never expire.
func (c *Client) EnsureKeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	if c.js == nil {
		return nil, errors.Wrap(errors.ErrCacheUnavailable, "natsclient", "EnsureKeyValue", "jetstream not initialized")
	}
	kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, errors.Wrap(err, "natsclient", "EnsureKeyValue", "create bucket "+bucket)
	}
	return kv, nil
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("NATS drain failed, closing hard", "error", err)
			c.conn.Close()
		}
	}
	c.setConnected(false)
}
