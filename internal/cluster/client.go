package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/reef-labs/reefd/internal/config"
)

// frame is one newline-delimited JSON message on the control socket.
// Outbound frames carry commands; inbound frames carry command completions
// and cluster map updates.
type frame struct {
	Type    string          `json:"type"`
	Tag     string          `json:"tag,omitempty"`
	Command Command         `json:"command,omitempty"`
	Result  *int            `json:"result,omitempty"`
	Output  string          `json:"output,omitempty"`
	Name    string          `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	frameCommand    = "command"
	frameCompletion = "completion"
	frameMap        = "map"
)

// CompletionHandler receives the eventual outcome of a dispatched command.
// The manager invokes it exactly once per accepted command, from the read
// loop goroutine.
type CompletionHandler func(tag string, succeeded bool)

// Client speaks the manager's control socket protocol. Send hands a command
// to the manager and returns immediately; the outcome arrives later as a
// completion frame keyed by the same tag.
type Client struct {
	addr         string
	dialTimeout  time.Duration
	maxBackoff   time.Duration
	store        *StateStore
	logger       *slog.Logger
	onCompletion CompletionHandler

	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
}

// ClientConfig holds configuration for the control socket client.
type ClientConfig struct {
	Cluster config.ClusterConfig
	Store   *StateStore
	Logger  *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Cluster.Address == "" {
		return nil, fmt.Errorf("cluster address is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dialTimeout := time.Duration(cfg.Cluster.DialTimeoutSeconds) * time.Second
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}
	maxBackoff := time.Duration(cfg.Cluster.ReconnectSeconds) * time.Second
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	return &Client{
		addr:        cfg.Cluster.Address,
		dialTimeout: dialTimeout,
		maxBackoff:  maxBackoff,
		store:       cfg.Store,
		logger:      cfg.Logger,
	}, nil
}

// OnCompletion registers the completion handler. Must be called before Start.
func (c *Client) OnCompletion(h CompletionHandler) {
	c.onCompletion = h
}

// Start runs the connect/read loop until the context is cancelled. Reconnects
// with exponential backoff capped at the configured maximum.
func (c *Client) Start(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
		if err != nil {
			c.logger.Error("Failed to connect to cluster manager",
				"address", c.addr,
				"retry_in", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		c.logger.Info("Connected to cluster manager", "address", c.addr)

		c.mu.Lock()
		c.conn = conn
		c.enc = json.NewEncoder(conn)
		c.mu.Unlock()

		// Close the socket when the context ends so readLoop unblocks
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		connected := time.Now()
		c.readLoop(conn)
		stop()

		c.mu.Lock()
		c.conn = nil
		c.enc = nil
		c.mu.Unlock()
		_ = conn.Close()

		// A connection that held for a while earns a fresh backoff. One the
		// peer dropped straight away keeps growing it, so a manager that
		// accepts and immediately hangs up cannot drive a tight redial loop.
		if time.Since(connected) >= time.Minute {
			backoff = time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// Send dispatches one command to the manager. Fire-and-forget: a nil error
// means the command was written to the socket, not that it succeeded.
func (c *Client) Send(cmd Command, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enc == nil {
		return fmt.Errorf("not connected to cluster manager")
	}

	if err := c.enc.Encode(frame{
		Type:    frameCommand,
		Tag:     tag,
		Command: cmd,
	}); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd.Prefix(), err)
	}

	return nil
}

func (c *Client) readLoop(conn net.Conn) {
	dec := json.NewDecoder(conn)

	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			c.logger.Warn("Cluster manager connection closed", "error", err)
			return
		}

		switch f.Type {
		case frameCompletion:
			if c.onCompletion == nil {
				c.logger.Warn("Dropping completion, no handler registered", "tag", f.Tag)
				continue
			}
			succeeded := f.Result != nil && *f.Result == 0
			c.onCompletion(f.Tag, succeeded)
		case frameMap:
			if err := c.store.Apply(f.Name, f.Data); err != nil {
				c.logger.Warn("Failed to apply cluster map update",
					"map", f.Name,
					"error", err)
			}
		default:
			c.logger.Debug("Ignoring unknown frame type", "type", f.Type)
		}
	}
}
