package client

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dan-strohschein/cdbms-driver/protocol"
)

// ErrRowNotFound is returned by GetByIndex when the server answers with no rows.
var ErrRowNotFound = errors.New("row not found")

// QueryError records a command the server rejected or whose response could
// not be interpreted. Cause is the *protocol.Error for the status byte, or
// the codec error raised while decoding rows.
type QueryError struct {
	Command  string              `json:"command"`
	Verb     string              `json:"verb"`
	Database string              `json:"database,omitempty"`
	Table    string              `json:"table,omitempty"`
	Status   protocol.StatusCode `json:"status"`
	TraceID  string              `json:"trace_id,omitempty"`
	Cause    error               `json:"-"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	target := e.Database
	if e.Table != "" {
		target = e.Database + "." + e.Table
	}
	if target != "" {
		return fmt.Sprintf("%s on %s failed: %v", e.Verb, target, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Verb, e.Cause)
}

// FormatError formats the error based on debug mode.
// When debugMode=false: returns the short Error() text.
// When debugMode=true: returns indented JSON including the command and cause.
func (e *QueryError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}

	errorData := map[string]interface{}{
		"verb":     e.Verb,
		"command":  e.Command,
		"database": e.Database,
		"status":   int8(e.Status),
	}
	if e.Table != "" {
		errorData["table"] = e.Table
	}
	if e.TraceID != "" {
		errorData["trace_id"] = e.TraceID
	}
	if pe, ok := e.Cause.(*protocol.Error); ok {
		errorData["cause"] = map[string]interface{}{
			"code":    pe.Code,
			"kind":    pe.Kind,
			"message": pe.Message,
			"details": pe.Details,
		}
	} else if e.Cause != nil {
		errorData["cause"] = map[string]interface{}{"message": e.Cause.Error()}
	}

	b, _ := json.MarshalIndent(errorData, "", "  ")
	return string(b)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// StateError represents invalid state for an operation.
type StateError struct {
	Operation string          `json:"operation"`
	Required  ConnectionState `json:"-"`
	Actual    ConnectionState `json:"-"`
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s (requires %s)", e.Operation, e.Actual, e.Required)
}

// FormatError formats the error based on debug mode.
func (e *StateError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}
	b, _ := json.MarshalIndent(map[string]interface{}{
		"type":      "STATE_ERROR",
		"operation": e.Operation,
		"required":  e.Required.String(),
		"actual":    e.Actual.String(),
	}, "", "  ")
	return string(b)
}

// ErrInvalidState creates a StateError for operations attempted in wrong state.
func ErrInvalidState(operation string, required, actual ConnectionState) error {
	return &StateError{Operation: operation, Required: required, Actual: actual}
}

// IsTransportError reports whether err came from the connection itself.
func IsTransportError(err error) bool { return kindOf(err) == protocol.KindTransport }

// IsProtocolError reports whether err is a server rejection.
func IsProtocolError(err error) bool { return kindOf(err) == protocol.KindProtocol }

// IsCodecError reports whether err came from encoding or decoding rows.
func IsCodecError(err error) bool { return kindOf(err) == protocol.KindCodec }

func kindOf(err error) protocol.Kind {
	var pe *protocol.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// FormatError is a helper to format any error with debug mode support.
// In debug mode errors carrying a pkg/errors stack are printed with it.
func FormatError(err error, debugMode bool) string {
	if err == nil {
		return ""
	}

	type formatter interface {
		FormatError(debugMode bool) string
	}

	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.FormatError(debugMode)
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.FormatError(debugMode)
	}
	if f, ok := err.(formatter); ok {
		return f.FormatError(debugMode)
	}
	if debugMode {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}
