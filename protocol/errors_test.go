package protocol

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind Kind
	}{
		{ErrorCodeSendFailed, KindTransport},
		{ErrorCodePeerClosed, KindTransport},
		{ErrorCodeTableNotFound, KindProtocol},
		{ErrorCodeMalformedQuery, KindProtocol},
		{ErrorCodeShortBuffer, KindCodec},
		{ErrorCodeNonNumeric, KindCodec},
		{ErrorCodeUnknownColumn, KindDescriptor},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewError(tt.code, "test", nil)
			if err.Kind != tt.kind {
				t.Errorf("code %d: expected kind %s, got %s", tt.code, tt.kind, err.Kind)
			}
		})
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	err := Wrap(ErrorCodeReceiveFailed, io.ErrUnexpectedEOF, "failed to read response", nil)
	wrapped := fmt.Errorf("get row: %w", err)

	if !errors.Is(wrapped, ErrReceiveFailed) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, ErrSendFailed) {
		t.Error("expected errors.Is not to match a different code")
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestErrorFatality(t *testing.T) {
	if !NewError(ErrorCodeSendFailed, "x", nil).IsFatal() {
		t.Error("send failure should be fatal")
	}
	if PeerClosedError("localhost:7777").IsFatal() {
		t.Error("peer closed should not be fatal")
	}
	if NewError(ErrorCodeTableNotFound, "x", nil).IsFatal() {
		t.Error("protocol errors should not be fatal")
	}
}

func TestErrorMessage(t *testing.T) {
	err := CodecError(ErrorCodeShortBuffer, "name", "buffer shorter than column width")
	msg := err.Error()
	if !strings.Contains(msg, "3001") || !strings.Contains(msg, "name") {
		t.Errorf("unexpected message: %s", msg)
	}

	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON failed: %v", jerr)
	}
	if !strings.Contains(string(data), `"kind":"CODEC_ERROR"`) {
		t.Errorf("unexpected JSON: %s", data)
	}
}
