// Package protocol provides error codes and types for the CDBMS protocol
package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents standardized error codes across the client layers
type ErrorCode int

const (
	// Transport errors (1000-1099)
	ErrorCodeConnectionRefused ErrorCode = 1001
	ErrorCodeSendFailed        ErrorCode = 1002
	ErrorCodeReceiveFailed     ErrorCode = 1003
	ErrorCodePeerClosed        ErrorCode = 1004
	ErrorCodeNotOpen           ErrorCode = 1005
	ErrorCodeTimeout           ErrorCode = 1006

	// Server status errors (2000-2099)
	ErrorCodeAccessDenied       ErrorCode = 2003
	ErrorCodeTableNotFound      ErrorCode = 2004
	ErrorCodeWrongSignature     ErrorCode = 2012
	ErrorCodeTableType          ErrorCode = 2014
	ErrorCodePrimaryViolation   ErrorCode = 2020
	ErrorCodeMalformedQuery     ErrorCode = 2005
	ErrorCodeUnexpectedResponse ErrorCode = 2099

	// Codec errors (3000-3099)
	ErrorCodeShortBuffer       ErrorCode = 3001
	ErrorCodeNonNumeric        ErrorCode = 3002
	ErrorCodeMisalignedPayload ErrorCode = 3003
	ErrorCodeFieldOverflow     ErrorCode = 3004
	ErrorCodeUnsupportedValue  ErrorCode = 3005
	ErrorCodeInvalidLiteral    ErrorCode = 3006

	// Descriptor errors (4000-4099)
	ErrorCodeUnknownColumn ErrorCode = 4001
	ErrorCodeInvalidColumn ErrorCode = 4002
	ErrorCodeInvalidName   ErrorCode = 4003
	ErrorCodeInvalidExpr   ErrorCode = 4004
)

// Kind groups error codes into the three failure families.
type Kind string

const (
	KindTransport  Kind = "TRANSPORT_ERROR"
	KindProtocol   Kind = "PROTOCOL_ERROR"
	KindCodec      Kind = "CODEC_ERROR"
	KindDescriptor Kind = "DESCRIPTOR_ERROR"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrConnectionRefused = &Error{Code: ErrorCodeConnectionRefused}
	ErrSendFailed        = &Error{Code: ErrorCodeSendFailed}
	ErrReceiveFailed     = &Error{Code: ErrorCodeReceiveFailed}
	ErrPeerClosed        = &Error{Code: ErrorCodePeerClosed}
	ErrNotOpen           = &Error{Code: ErrorCodeNotOpen}
	ErrTimeout           = &Error{Code: ErrorCodeTimeout}

	ErrAccessDenied       = &Error{Code: ErrorCodeAccessDenied}
	ErrTableNotFound      = &Error{Code: ErrorCodeTableNotFound}
	ErrWrongSignature     = &Error{Code: ErrorCodeWrongSignature}
	ErrTableType          = &Error{Code: ErrorCodeTableType}
	ErrPrimaryViolation   = &Error{Code: ErrorCodePrimaryViolation}
	ErrMalformedQuery     = &Error{Code: ErrorCodeMalformedQuery}
	ErrUnexpectedResponse = &Error{Code: ErrorCodeUnexpectedResponse}

	ErrShortBuffer       = &Error{Code: ErrorCodeShortBuffer}
	ErrNonNumeric        = &Error{Code: ErrorCodeNonNumeric}
	ErrMisalignedPayload = &Error{Code: ErrorCodeMisalignedPayload}
	ErrFieldOverflow     = &Error{Code: ErrorCodeFieldOverflow}
	ErrUnsupportedValue  = &Error{Code: ErrorCodeUnsupportedValue}
	ErrInvalidLiteral    = &Error{Code: ErrorCodeInvalidLiteral}

	ErrUnknownColumn = &Error{Code: ErrorCodeUnknownColumn}
	ErrInvalidColumn = &Error{Code: ErrorCodeInvalidColumn}
	ErrInvalidName   = &Error{Code: ErrorCodeInvalidName}
	ErrInvalidExpr   = &Error{Code: ErrorCodeInvalidExpr}
)

// Error represents an error with a structured error code
type Error struct {
	Code        ErrorCode              `json:"code"`
	Kind        Kind                   `json:"kind"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	IsRetryable bool                   `json:"isRetryable"`
	Cause       error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		detailsJSON, _ := json.Marshal(e.Details)
		msg = fmt.Sprintf("%s (details: %s)", msg, string(detailsJSON))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same error code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsFatal reports whether the error leaves the session unusable until it is
// reopened.
func (e *Error) IsFatal() bool {
	switch e.Code {
	case ErrorCodeConnectionRefused, ErrorCodeSendFailed, ErrorCodeReceiveFailed, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}

// NewError creates a new error, deriving kind and retryability from the code
func NewError(code ErrorCode, message string, details map[string]interface{}) *Error {
	return &Error{
		Code:        code,
		Kind:        kindOf(code),
		Message:     message,
		Details:     details,
		IsRetryable: isRetryable(code),
	}
}

// Wrap creates a new error with an underlying cause.
func Wrap(code ErrorCode, cause error, message string, details map[string]interface{}) *Error {
	e := NewError(code, message, details)
	e.Cause = cause
	return e
}

func kindOf(code ErrorCode) Kind {
	switch {
	case code < 2000:
		return KindTransport
	case code < 3000:
		return KindProtocol
	case code < 4000:
		return KindCodec
	default:
		return KindDescriptor
	}
}

// isRetryable determines if an error code represents a retryable error
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrorCodeConnectionRefused,
		ErrorCodeTimeout,
		ErrorCodePeerClosed,
		ErrorCodeSendFailed,
		ErrorCodeReceiveFailed:
		return true
	default:
		return false
	}
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error, details map[string]interface{}) *Error {
	return Wrap(ErrorCodeConnectionRefused, cause, message, details)
}

// PeerClosedError reports a zero-length receive.
func PeerClosedError(address string) *Error {
	return NewError(ErrorCodePeerClosed, "connection closed by peer", map[string]interface{}{
		"address": address,
	})
}

// NotOpenError reports an operation on a session that has not been opened.
func NotOpenError(operation string) *Error {
	return NewError(ErrorCodeNotOpen, "session is not open", map[string]interface{}{
		"operation": operation,
	})
}

// CodecError creates a codec error for a column.
func CodecError(code ErrorCode, column, message string) *Error {
	details := map[string]interface{}{}
	if column != "" {
		details["column"] = column
	}
	return NewError(code, message, details)
}

// ToJSON serializes the error to JSON
func (e *Error) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
