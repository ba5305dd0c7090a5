package client

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/dan-strohschein/cdbms-driver/protocol"
)

func TestQueryError(t *testing.T) {
	err := &QueryError{
		Command:  "dbtest append row pigs values \"x\"",
		Verb:     "append",
		Database: "dbtest",
		Table:    "pigs",
		Status:   protocol.StatusPrimaryViolation,
		Cause:    protocol.StatusPrimaryViolation.Err(),
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "append on dbtest.pigs failed:") {
		t.Errorf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "primary key") {
		t.Errorf("message should carry the cause, got: %s", msg)
	}
}

func TestQueryErrorWithoutTable(t *testing.T) {
	err := &QueryError{Verb: "sync", Database: "dbtest", Cause: errors.New("boom")}
	if got := err.Error(); got != "sync on dbtest failed: boom" {
		t.Errorf("unexpected message: %s", got)
	}

	err = &QueryError{Verb: "raw", Cause: errors.New("boom")}
	if got := err.Error(); got != "raw failed: boom" {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestQueryErrorUnwrap(t *testing.T) {
	err := &QueryError{
		Verb:   "delete_table",
		Status: protocol.StatusTableNotFound,
		Cause:  protocol.StatusTableNotFound.Err(),
	}

	if !errors.Is(err, protocol.ErrTableNotFound) {
		t.Error("expected errors.Is to match ErrTableNotFound")
	}
	if errors.Is(err, protocol.ErrAccessDenied) {
		t.Error("did not expect errors.Is to match ErrAccessDenied")
	}

	var pe *protocol.Error
	if !errors.As(err, &pe) {
		t.Fatal("expected errors.As to find the protocol error")
	}
	if pe.Code != protocol.ErrorCodeTableNotFound {
		t.Errorf("expected code %d, got %d", protocol.ErrorCodeTableNotFound, pe.Code)
	}
}

func TestQueryErrorFormatError(t *testing.T) {
	err := &QueryError{
		Command:  "dbtest sync",
		Verb:     "sync",
		Database: "dbtest",
		Status:   protocol.StatusAccessDenied,
		TraceID:  "trace-1",
		Cause:    protocol.StatusAccessDenied.Err(),
	}

	if short := err.FormatError(false); short != err.Error() {
		t.Errorf("non-debug format should equal Error(), got %s", short)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(err.FormatError(true)), &parsed); jsonErr != nil {
		t.Fatalf("debug format should be valid JSON: %v", jsonErr)
	}
	if parsed["command"] != "dbtest sync" {
		t.Errorf("expected command in JSON, got %v", parsed["command"])
	}
	if parsed["status"] != float64(-3) {
		t.Errorf("expected status -3, got %v", parsed["status"])
	}
	if parsed["trace_id"] != "trace-1" {
		t.Errorf("expected trace_id, got %v", parsed["trace_id"])
	}
	cause, ok := parsed["cause"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected cause object, got %v", parsed["cause"])
	}
	if cause["kind"] != string(protocol.KindProtocol) {
		t.Errorf("expected kind %s, got %v", protocol.KindProtocol, cause["kind"])
	}
}

func TestStateError(t *testing.T) {
	err := ErrInvalidState("append", CONNECTED, DISCONNECTED)

	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StateError, got %T", err)
	}
	if se.Operation != "append" {
		t.Errorf("expected operation append, got %s", se.Operation)
	}
	if got := err.Error(); got != "cannot append while DISCONNECTED (requires CONNECTED)" {
		t.Errorf("unexpected message: %s", got)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(se.FormatError(true)), &parsed); jsonErr != nil {
		t.Fatalf("debug format should be valid JSON: %v", jsonErr)
	}
	if parsed["actual"] != "DISCONNECTED" {
		t.Errorf("expected actual=DISCONNECTED, got %v", parsed["actual"])
	}
}

func TestErrorKindPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transport bool
		proto     bool
		codec     bool
	}{
		{"peer closed", protocol.PeerClosedError("127.0.0.1:7777"), true, false, false},
		{"status", &QueryError{Cause: protocol.StatusWrongSignature.Err()}, false, true, false},
		{"misaligned", &QueryError{Cause: protocol.NewError(protocol.ErrorCodeMisalignedPayload, "x", nil)}, false, false, true},
		{"wrapped", pkgerrors.Wrap(protocol.NotOpenError("send"), "exec"), true, false, false},
		{"plain", errors.New("plain"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.transport {
				t.Errorf("IsTransportError = %v, want %v", got, tt.transport)
			}
			if got := IsProtocolError(tt.err); got != tt.proto {
				t.Errorf("IsProtocolError = %v, want %v", got, tt.proto)
			}
			if got := IsCodecError(tt.err); got != tt.codec {
				t.Errorf("IsCodecError = %v, want %v", got, tt.codec)
			}
		})
	}
}

func TestFormatErrorHelper(t *testing.T) {
	if FormatError(nil, true) != "" {
		t.Error("nil error should format as empty string")
	}

	qe := &QueryError{Verb: "sync", Database: "db", Cause: errors.New("boom")}
	if got := FormatError(qe, false); got != qe.Error() {
		t.Errorf("unexpected format: %s", got)
	}

	wrapped := pkgerrors.Wrap(qe, "outer")
	if got := FormatError(wrapped, false); got != qe.Error() {
		t.Errorf("wrapped QueryError should format through, got %s", got)
	}

	plain := pkgerrors.New("with stack")
	if got := FormatError(plain, false); got != "with stack" {
		t.Errorf("unexpected format: %s", got)
	}
	if got := FormatError(plain, true); !strings.Contains(got, "errors_test.go") {
		t.Errorf("debug format should include the stack trace, got %s", got)
	}
}
