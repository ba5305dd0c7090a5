// Package transport defines the session abstraction for CDBMS
package transport

import (
	"context"
	"time"
)

// Transport is a single synchronous request/response channel to the server.
// At most one Send may be in flight; implementations serialize callers.
type Transport interface {
	// Open connects and authenticates. Calling Open on an open transport is a no-op.
	Open(ctx context.Context) error

	// Send writes one NUL-terminated payload and returns the raw response
	Send(ctx context.Context, payload []byte) ([]byte, error)

	// Close closes the connection and marks the transport unopened
	Close() error

	// IsOpen reports whether the transport holds a live connection
	IsOpen() bool

	// GetMetrics returns transport performance metrics
	GetMetrics() Metrics
}

// Metrics contains performance counters for one transport
type Metrics struct {
	// TotalRequests is the total number of payloads sent
	TotalRequests int64

	// TotalErrors is the total number of failed exchanges
	TotalErrors int64

	// AverageLatency is the average round-trip latency
	AverageLatency time.Duration

	// LastError is the most recent error encountered
	LastError error

	// LastErrorTime is when the last error occurred
	LastErrorTime time.Time

	// BytesSent is the total bytes written, handshakes included
	BytesSent int64

	// BytesReceived is the total response bytes returned to callers
	BytesReceived int64

	// BytesDrained is the total stale bytes discarded before sends
	BytesDrained int64

	// ConnectionsCreated is the total number of successful dials
	ConnectionsCreated int64
}

// Factory creates new unopened transports. Used where each worker needs its
// own session.
type Factory func() (Transport, error)
