// Package client is the CDBMS command façade: databases, tables and row
// operations over a single synchronous session.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/schema"
	"github.com/dan-strohschein/cdbms-driver/transport"
	"github.com/dan-strohschein/cdbms-driver/transport/tcp"
)

// Client owns one session to a CDBMS server. Commands are strictly
// sequential: concurrent callers are serialized by the transport.
type Client struct {
	opts      ClientOptions
	transport transport.Transport
	codec     protocol.Codec
	stateMgr  *StateManager
	logger    Logger
	debugMode atomic.Bool
	hooks     []Hook
	hooksMu   sync.RWMutex
}

// NewClient creates an unopened client. If opts is nil, default options are
// used. No network activity happens until Open.
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(opts.LogLevel, nil)
	}

	t := opts.Transport
	if t == nil {
		session, err := tcp.NewSession(opts.SessionOptions())
		if err != nil {
			return nil, err
		}
		t = session
	}

	c := &Client{
		opts:      *opts,
		transport: t,
		codec:     protocol.NewCodec(),
		stateMgr:  NewStateManager(),
		logger:    logger.WithFields(String("address", opts.Address)),
	}
	c.debugMode.Store(opts.DebugMode)

	if opts.Metrics != nil {
		name := opts.SessionName
		if name == "" {
			name = opts.Address
		}
		opts.Metrics.Watch(name, t)
		c.RegisterHook(NewMetricsHook(opts.Metrics))
	}

	if opts.OnConnected != nil || opts.OnDisconnected != nil {
		c.stateMgr.OnStateChange(func(transition StateTransition) {
			switch transition.To {
			case CONNECTED:
				if opts.OnConnected != nil {
					opts.OnConnected(transition)
				}
			case DISCONNECTED:
				if transition.From != CONNECTING && opts.OnDisconnected != nil {
					opts.OnDisconnected(transition)
				}
			}
		})
	}

	return c, nil
}

// Open connects and sends the handshake. Opening an open client is a no-op.
// A rejected login is not detected here; it surfaces on the first command.
func (c *Client) Open(ctx context.Context) error {
	if c.stateMgr.GetState() == CONNECTED {
		return nil
	}

	c.logger.Info("opening session", String("username", c.opts.Username))
	if err := c.stateMgr.TransitionTo(CONNECTING, nil, map[string]interface{}{
		"reason":  "user_initiated",
		"address": c.opts.Address,
	}); err != nil {
		return err
	}

	if err := c.transport.Open(ctx); err != nil {
		c.logger.Error("failed to open session", Error("error", err))
		c.stateMgr.TransitionTo(DISCONNECTED, err, map[string]interface{}{
			"reason":  "error",
			"address": c.opts.Address,
		})
		return err
	}

	c.stateMgr.TransitionTo(CONNECTED, nil, map[string]interface{}{
		"reason":  "user_initiated",
		"address": c.opts.Address,
	})
	c.logger.Info("session opened")
	return nil
}

// Close closes the session. Closing a closed client is a no-op.
func (c *Client) Close() error {
	if c.stateMgr.GetState() != CONNECTED {
		return nil
	}

	if err := c.stateMgr.TransitionTo(DISCONNECTING, nil, map[string]interface{}{
		"reason": "user_initiated",
	}); err != nil {
		return err
	}

	closeErr := c.transport.Close()
	if closeErr != nil {
		c.logger.Warn("error during close", Error("error", closeErr))
	} else {
		c.logger.Info("session closed")
	}

	c.stateMgr.TransitionTo(DISCONNECTED, closeErr, map[string]interface{}{
		"reason": "user_initiated",
	})
	return closeErr
}

// markLost records that a fatal transport error closed the session.
func (c *Client) markLost(cause error) {
	if c.stateMgr.GetState() != CONNECTED {
		return
	}
	c.logger.Warn("session lost", Error("error", cause))
	meta := map[string]interface{}{"reason": "error"}
	c.stateMgr.TransitionTo(DISCONNECTING, cause, meta)
	c.transport.Close()
	c.stateMgr.TransitionTo(DISCONNECTED, cause, meta)
}

// GetState returns the current connection state.
func (c *Client) GetState() ConnectionState {
	return c.stateMgr.GetState()
}

// GetLastTransition returns the most recent state transition.
func (c *Client) GetLastTransition() StateTransition {
	return c.stateMgr.GetLastTransition()
}

// OnStateChange registers a handler to be called on state transitions.
func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.stateMgr.OnStateChange(handler)
}

// GetVersion returns the build version of the client.
func (c *Client) GetVersion() string {
	return Version
}

// SetDebugMode toggles raw command logging and verbose error formatting.
func (c *Client) SetDebugMode(enabled bool) {
	c.debugMode.Store(enabled)
}

// IsDebugMode reports whether debug mode is on.
func (c *Client) IsDebugMode() bool {
	return c.debugMode.Load()
}

// TransportMetrics returns the session's counters.
func (c *Client) TransportMetrics() transport.Metrics {
	return c.transport.GetMetrics()
}

// Exec sends a raw command and returns the raw response. The NUL
// terminator is appended here.
func (c *Client) Exec(ctx context.Context, command string) ([]byte, error) {
	var out []byte
	err := c.execute(ctx, &HookContext{Command: command, Verb: "raw"}, func(hc *HookContext) error {
		out = hc.Response
		return nil
	})
	return out, err
}

// CreateDatabase creates a database on the server and returns its handle.
func (c *Client) CreateDatabase(ctx context.Context, name string) (*Database, error) {
	if err := schema.ValidateName("database", name); err != nil {
		return nil, err
	}
	if _, err := c.mutate(ctx, &HookContext{
		Command:  schema.SerializeCreateDatabase(name),
		Verb:     "create_database",
		Database: name,
	}); err != nil {
		return nil, err
	}
	return &Database{name: name, client: c}, nil
}

// SelectDatabase returns a handle to an existing database. No command is sent.
func (c *Client) SelectDatabase(name string) (*Database, error) {
	if err := schema.ValidateName("database", name); err != nil {
		return nil, err
	}
	return &Database{name: name, client: c}, nil
}

// DeleteDatabase removes a database on the server.
func (c *Client) DeleteDatabase(ctx context.Context, name string) (Result, error) {
	if err := schema.ValidateName("database", name); err != nil {
		return Result{}, err
	}
	return c.mutate(ctx, &HookContext{
		Command:  schema.SerializeDeleteDatabase(name),
		Verb:     "delete_database",
		Database: name,
	})
}

// mutate sends a command and interprets the first response byte as status.
func (c *Client) mutate(ctx context.Context, hc *HookContext) (Result, error) {
	var res Result
	err := c.execute(ctx, hc, func(hc *HookContext) error {
		status, err := c.codec.DecodeStatus(hc.Response)
		if err != nil {
			return c.queryError(hc, 0, err)
		}
		s := int8(status)
		hc.Status = &s
		if err := status.Err(); err != nil {
			return c.queryError(hc, status, err)
		}
		res = Result{Status: status, Command: hc.Command, TraceID: hc.TraceID}
		return nil
	})
	res.Duration = hc.Duration
	return res, err
}

func (c *Client) queryError(hc *HookContext, status protocol.StatusCode, cause error) *QueryError {
	return &QueryError{
		Command:  hc.Command,
		Verb:     hc.Verb,
		Database: hc.Database,
		Table:    hc.Table,
		Status:   status,
		TraceID:  hc.TraceID,
		Cause:    cause,
	}
}

// execute runs one command through the hook chain. interpret turns the raw
// response into the caller's result; its error is what After hooks see.
func (c *Client) execute(ctx context.Context, hc *HookContext, interpret func(*HookContext) error) error {
	if state := c.stateMgr.GetState(); state != CONNECTED {
		return ErrInvalidState(hc.Verb, CONNECTED, state)
	}

	if _, ok := ctx.Deadline(); !ok && c.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	hc.StartTime = time.Now()
	hc.TraceID = uuid.New().String()
	hc.Metadata = make(map[string]interface{})

	if err := c.executeBeforeHooks(ctx, hc); err != nil {
		return err
	}

	debugMode := c.IsDebugMode()
	if debugMode {
		c.logger.Debug("sending raw command",
			String("command", hc.Command),
			String("trace_id", hc.TraceID))
	}

	resp, err := c.transport.Send(ctx, c.codec.Encode(hc.Command))
	hc.Response = resp
	if err == nil {
		err = interpret(hc)
	}
	hc.Error = err
	hc.Duration = time.Since(hc.StartTime)

	if debugMode {
		c.logger.Debug("received raw response",
			String("trace_id", hc.TraceID),
			Int("bytes", len(resp)),
			Duration("elapsed", hc.Duration),
			Bool("success", err == nil))
	}

	if hookErr := c.executeAfterHooks(ctx, hc); hookErr != nil {
		err = hookErr
	}

	var pe *protocol.Error
	if errors.As(hc.Error, &pe) && pe.IsFatal() {
		c.markLost(hc.Error)
	}
	return err
}
