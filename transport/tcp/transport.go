// Package tcp implements the CDBMS session over a single TCP connection.
package tcp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/transport"
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultDrainWindow = 50 * time.Microsecond
)

// Options configures a Session
type Options struct {
	// Address is the server address (host:port)
	Address string

	// Credentials sent in the handshake
	Username string
	Password string

	// DialTimeout bounds connection establishment
	DialTimeout time.Duration

	// DrainWindow is how long Send waits for stale bytes before writing
	DrainWindow time.Duration

	// BufferSize caps the single receive per command
	BufferSize int

	// TLS configuration
	UseTLS     bool
	CertPath   string
	KeyPath    string
	SkipVerify bool
}

// Session owns one TCP connection and enforces the single-outstanding-request
// contract. It is safe for concurrent use; concurrent Sends are serialized.
type Session struct {
	opts    Options
	codec   protocol.Codec
	metrics sessionMetrics

	mu   sync.Mutex
	conn net.Conn
	open bool
}

// sessionMetrics tracks transport performance
type sessionMetrics struct {
	totalRequests      atomic.Int64
	totalErrors        atomic.Int64
	bytesSent          atomic.Int64
	bytesReceived      atomic.Int64
	bytesDrained       atomic.Int64
	connectionsCreated atomic.Int64
	latencySum         atomic.Int64 // nanoseconds
	lastError          error
	lastErrorTime      time.Time
	mu                 sync.RWMutex
}

// NewSession creates an unopened session. No network activity happens until Open.
func NewSession(opts Options) (*Session, error) {
	if opts.Address == "" {
		return nil, errors.New("address is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.DrainWindow <= 0 {
		opts.DrainWindow = DefaultDrainWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = protocol.MaxResponseSize
	}

	return &Session{
		opts:  opts,
		codec: protocol.NewCodec(),
	}, nil
}

// Factory returns a transport.Factory producing independent sessions.
func Factory(opts Options) transport.Factory {
	return func() (transport.Transport, error) {
		return NewSession(opts)
	}
}

// Address returns the configured server address
func (s *Session) Address() string { return s.opts.Address }

// Open dials the server and writes the handshake. It does not wait for an
// acknowledgement; a rejected login surfaces on the first command.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	conn, err := s.dial(ctx)
	if err != nil {
		s.recordError(err)
		return err
	}
	s.metrics.connectionsCreated.Add(1)

	hello := s.codec.EncodeHandshake(s.opts.Username, s.opts.Password)
	if err := s.applyDeadline(ctx, conn); err != nil {
		conn.Close()
		s.recordError(err)
		return err
	}
	if _, err := conn.Write(hello); err != nil {
		conn.Close()
		wrapped := s.transportError(protocol.ErrorCodeSendFailed, errors.Wrap(err, "write handshake"), "handshake write failed")
		s.recordError(wrapped)
		return wrapped
	}
	s.metrics.bytesSent.Add(int64(len(hello)))

	s.conn = conn
	s.open = true
	return nil
}

// Send drains stale bytes, writes payload and performs exactly one read of
// at most BufferSize bytes.
//
// A zero-byte read is reported as ErrPeerClosed and leaves the session open.
// Any other failure closes the connection and marks the session unopened.
func (s *Session) Send(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, protocol.NotOpenError("send")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.metrics.totalRequests.Add(1)

	s.drain()

	if err := s.applyDeadline(ctx, s.conn); err != nil {
		s.closeLocked()
		s.recordError(err)
		return nil, err
	}

	if _, err := s.conn.Write(payload); err != nil {
		s.closeLocked()
		wrapped := s.transportError(protocol.ErrorCodeSendFailed, errors.Wrap(err, "write command"), "command write failed")
		s.recordError(wrapped)
		return nil, wrapped
	}
	s.metrics.bytesSent.Add(int64(len(payload)))

	buf := make([]byte, s.opts.BufferSize)
	n, err := s.conn.Read(buf)
	if n > 0 {
		s.metrics.bytesReceived.Add(int64(n))
		s.recordLatency(time.Since(start))
		return buf[:n], nil
	}
	if err == nil || err == io.EOF {
		closed := protocol.PeerClosedError(s.opts.Address)
		s.recordError(closed)
		return nil, closed
	}

	s.closeLocked()
	wrapped := s.transportError(protocol.ErrorCodeReceiveFailed, errors.Wrap(err, "read response"), "response read failed")
	s.recordError(wrapped)
	return nil, wrapped
}

// Close implements transport.Transport
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// IsOpen implements transport.Transport
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// GetMetrics implements transport.Transport
func (s *Session) GetMetrics() transport.Metrics {
	s.metrics.mu.RLock()
	lastErr := s.metrics.lastError
	lastErrTime := s.metrics.lastErrorTime
	s.metrics.mu.RUnlock()

	totalReqs := s.metrics.totalRequests.Load()
	avgLatency := time.Duration(0)
	if totalReqs > 0 {
		avgLatency = time.Duration(s.metrics.latencySum.Load() / totalReqs)
	}

	return transport.Metrics{
		TotalRequests:      totalReqs,
		TotalErrors:        s.metrics.totalErrors.Load(),
		AverageLatency:     avgLatency,
		LastError:          lastErr,
		LastErrorTime:      lastErrTime,
		BytesSent:          s.metrics.bytesSent.Load(),
		BytesReceived:      s.metrics.bytesReceived.Load(),
		BytesDrained:       s.metrics.bytesDrained.Load(),
		ConnectionsCreated: s.metrics.connectionsCreated.Load(),
	}
}

func (s *Session) closeLocked() error {
	s.open = false
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// drain discards whatever the server left unread from a previous exchange.
// It reads until the drain window expires, then clears the read deadline
// whatever the outcome.
func (s *Session) drain() {
	defer s.conn.SetReadDeadline(time.Time{})

	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.DrainWindow)); err != nil {
		return
	}

	buf := make([]byte, s.opts.BufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.metrics.bytesDrained.Add(int64(n))
		}
		if err != nil || n == 0 {
			return
		}
	}
}

// applyDeadline maps a context deadline onto the socket, or clears it.
func (s *Session) applyDeadline(ctx context.Context, conn net.Conn) error {
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return s.transportError(protocol.ErrorCodeSendFailed, errors.Wrap(err, "set deadline"), "could not set socket deadline")
	}
	return nil
}

// dial creates a TCP connection with optional TLS
func (s *Session) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.opts.Address)
	if err != nil {
		return nil, protocol.ConnectionError("failed to connect to "+s.opts.Address, errors.Wrap(err, "dial"), map[string]interface{}{
			"address": s.opts.Address,
			"timeout": s.opts.DialTimeout.String(),
		})
	}

	if !s.opts.UseTLS {
		return conn, nil
	}

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		conn.Close()
		return nil, err
	}
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		tlsConn.Close()
		return nil, protocol.ConnectionError("TLS handshake failed", errors.Wrap(err, "tls handshake"), map[string]interface{}{
			"address": s.opts.Address,
		})
	}
	return tlsConn, nil
}

// buildTLSConfig creates a TLS configuration
func (s *Session) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: s.opts.SkipVerify,
	}

	serverName := s.opts.Address
	if idx := strings.LastIndex(s.opts.Address, ":"); idx >= 0 {
		serverName = s.opts.Address[:idx]
	}
	tlsConfig.ServerName = serverName

	if s.opts.CertPath != "" && s.opts.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(s.opts.CertPath, s.opts.KeyPath)
		if err != nil {
			return nil, protocol.ConnectionError("failed to load TLS certificate", errors.Wrap(err, "load key pair"), map[string]interface{}{
				"certPath": s.opts.CertPath,
				"keyPath":  s.opts.KeyPath,
			})
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// transportError classifies a socket failure, promoting timeouts.
func (s *Session) transportError(code protocol.ErrorCode, cause error, msg string) *protocol.Error {
	var ne net.Error
	if errors.As(cause, &ne) && ne.Timeout() {
		code = protocol.ErrorCodeTimeout
		msg = "socket deadline exceeded"
	}
	return protocol.Wrap(code, cause, msg, map[string]interface{}{"address": s.opts.Address})
}

// recordError records an error in metrics
func (s *Session) recordError(err error) {
	s.metrics.totalErrors.Add(1)
	s.metrics.mu.Lock()
	s.metrics.lastError = err
	s.metrics.lastErrorTime = time.Now()
	s.metrics.mu.Unlock()
}

// recordLatency records latency in metrics
func (s *Session) recordLatency(latency time.Duration) {
	s.metrics.latencySum.Add(int64(latency))
}
