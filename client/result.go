package client

import (
	"time"

	"github.com/dan-strohschein/cdbms-driver/protocol"
)

// Result is the outcome of a mutation the server accepted.
type Result struct {
	// Status is the first response byte. Any value outside the failure set
	// is a success; its meaning is command specific.
	Status   protocol.StatusCode
	Command  string
	TraceID  string
	Duration time.Duration
}

// OK reports whether the status byte is a success code.
func (r Result) OK() bool {
	return !r.Status.IsFailure()
}
