package client

import (
	"time"

	"github.com/dan-strohschein/cdbms-driver/metrics"
	"github.com/dan-strohschein/cdbms-driver/transport"
	"github.com/dan-strohschein/cdbms-driver/transport/tcp"
)

// ClientOptions configures the CDBMS client behavior.
type ClientOptions struct {
	// Address is the server address (host:port).
	Address string

	// Username and Password are sent once, in the handshake.
	Username string
	Password string

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration

	// DrainWindow is how long each command waits for stale bytes before it
	// is written. Every command pays this latency.
	// Default: 50µs
	DrainWindow time.Duration

	// BufferSize caps the single receive performed per command.
	// Default: 4096
	BufferSize int

	// CommandTimeout is applied to commands whose context has no deadline.
	// Zero means commands block until the server answers.
	// Default: 0
	CommandTimeout time.Duration

	// DebugMode enables verbose error serialization and raw command logging.
	// Default: false
	DebugMode bool

	// TLSEnabled wraps the connection in TLS.
	// Default: false
	TLSEnabled bool

	// TLSInsecureSkipVerify skips certificate validation (for development only).
	TLSInsecureSkipVerify bool

	// TLSCertFile and TLSKeyFile hold a client certificate.
	TLSCertFile string
	TLSKeyFile  string

	// Logger is the logger implementation to use.
	// If nil, a zerolog logger writing to stderr is used.
	Logger Logger

	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Default: "INFO"
	LogLevel string

	// Metrics, when set, receives one observation per command.
	Metrics *metrics.Collector

	// SessionName labels the session's exported counters.
	// Default: Address
	SessionName string

	// Transport overrides the TCP session. Used by tests and by callers that
	// bring their own channel.
	Transport transport.Transport

	// OnConnected is called when the session is opened.
	OnConnected func(StateTransition)

	// OnDisconnected is called when the session is closed or lost.
	OnDisconnected func(StateTransition)
}

// DefaultOptions returns ClientOptions with default values.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Address:     "127.0.0.1:7777",
		DialTimeout: 5 * time.Second,
		DrainWindow: 50 * time.Microsecond,
		BufferSize:  4096,
		LogLevel:    "INFO",
	}
}

// SessionOptions returns the TCP session settings carried by o.
func (o ClientOptions) SessionOptions() tcp.Options {
	return tcp.Options{
		Address:     o.Address,
		Username:    o.Username,
		Password:    o.Password,
		DialTimeout: o.DialTimeout,
		DrainWindow: o.DrainWindow,
		BufferSize:  o.BufferSize,
		UseTLS:      o.TLSEnabled,
		CertPath:    o.TLSCertFile,
		KeyPath:     o.TLSKeyFile,
		SkipVerify:  o.TLSInsecureSkipVerify,
	}
}
