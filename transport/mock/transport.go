package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/transport"
)

// MockTransport implements transport.Transport for testing. Responses are
// served from a FIFO script; when the script is empty the default response
// is returned.
type MockTransport struct {
	// Behavior configuration
	openErr         error
	sendErr         error
	responses       []response
	defaultResponse []byte
	sendDelay       time.Duration

	// Call tracking
	openCalls  atomic.Int32
	sendCalls  atomic.Int32
	closeCalls atomic.Int32

	// Metrics
	metrics     mockMetrics
	mu          sync.RWMutex
	open        bool
	sendHistory [][]byte
}

type response struct {
	data []byte
	err  error
}

type mockMetrics struct {
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
	connections   atomic.Int64
}

// NewMockTransport creates a new mock transport. Its default response is a
// single zero status byte.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		defaultResponse: []byte{0},
		sendHistory:     make([][]byte, 0),
	}
}

// WithOpenError configures the transport to fail Open
func (m *MockTransport) WithOpenError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
	return m
}

// WithSendError configures the transport to return an error on every Send
func (m *MockTransport) WithSendError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
	return m
}

// WithResponse queues a response for the next unanswered Send
func (m *MockTransport) WithResponse(data []byte) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response{data: data})
	return m
}

// WithStatus queues a single status byte response
func (m *MockTransport) WithStatus(code int8) *MockTransport {
	return m.WithResponse([]byte{byte(code)})
}

// WithResponseError queues an error for the next unanswered Send
func (m *MockTransport) WithResponseError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response{err: err})
	return m
}

// WithDefaultResponse changes the response used once the queue is empty
func (m *MockTransport) WithDefaultResponse(data []byte) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = data
	return m
}

// WithSendDelay adds a delay to Send operations
func (m *MockTransport) WithSendDelay(delay time.Duration) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = delay
	return m
}

// Open implements transport.Transport
func (m *MockTransport) Open(ctx context.Context) error {
	m.openCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return nil
	}
	if m.openErr != nil {
		m.metrics.totalErrors.Add(1)
		return m.openErr
	}
	m.open = true
	m.metrics.connections.Add(1)
	return nil
}

// Send implements transport.Transport
func (m *MockTransport) Send(ctx context.Context, data []byte) ([]byte, error) {
	m.sendCalls.Add(1)
	m.metrics.totalRequests.Add(1)

	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return nil, protocol.NotOpenError("send")
	}
	delay := m.sendDelay
	sendErr := m.sendErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if sendErr != nil {
		m.metrics.totalErrors.Add(1)
		return nil, sendErr
	}

	m.mu.Lock()
	recorded := make([]byte, len(data))
	copy(recorded, data)
	m.sendHistory = append(m.sendHistory, recorded)

	resp := response{data: m.defaultResponse}
	if len(m.responses) > 0 {
		resp = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	m.metrics.bytesSent.Add(int64(len(data)))
	if resp.err != nil {
		m.metrics.totalErrors.Add(1)
		return nil, resp.err
	}
	m.metrics.bytesReceived.Add(int64(len(resp.data)))
	return resp.data, nil
}

// Close implements transport.Transport
func (m *MockTransport) Close() error {
	m.closeCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// IsOpen implements transport.Transport
func (m *MockTransport) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// GetMetrics implements transport.Transport
func (m *MockTransport) GetMetrics() transport.Metrics {
	return transport.Metrics{
		TotalRequests:      m.metrics.totalRequests.Load(),
		TotalErrors:        m.metrics.totalErrors.Load(),
		BytesSent:          m.metrics.bytesSent.Load(),
		BytesReceived:      m.metrics.bytesReceived.Load(),
		ConnectionsCreated: m.metrics.connections.Load(),
	}
}

// GetOpenCallCount returns the number of times Open was called
func (m *MockTransport) GetOpenCallCount() int {
	return int(m.openCalls.Load())
}

// GetSendCallCount returns the number of times Send was called
func (m *MockTransport) GetSendCallCount() int {
	return int(m.sendCalls.Load())
}

// GetCloseCallCount returns the number of times Close was called
func (m *MockTransport) GetCloseCallCount() int {
	return int(m.closeCalls.Load())
}

// GetSendHistory returns all payloads sent through this transport
func (m *MockTransport) GetSendHistory() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([][]byte, len(m.sendHistory))
	copy(history, m.sendHistory)
	return history
}

// LastCommand returns the most recent payload without its NUL terminator
func (m *MockTransport) LastCommand() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.sendHistory) == 0 {
		return ""
	}
	last := m.sendHistory[len(m.sendHistory)-1]
	if n := len(last); n > 0 && last[n-1] == protocol.NUL {
		last = last[:n-1]
	}
	return string(last)
}

// Reset clears all state and call counts
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openErr = nil
	m.sendErr = nil
	m.responses = nil
	m.defaultResponse = []byte{0}
	m.open = false
	m.sendDelay = 0

	m.openCalls.Store(0)
	m.sendCalls.Store(0)
	m.closeCalls.Store(0)

	m.metrics.totalRequests.Store(0)
	m.metrics.totalErrors.Store(0)
	m.metrics.bytesSent.Store(0)
	m.metrics.bytesReceived.Store(0)
	m.metrics.connections.Store(0)

	m.sendHistory = make([][]byte, 0)
}

var _ transport.Transport = (*MockTransport)(nil)
