package protocol

import (
	"errors"
	"testing"
)

func TestCodecEncode(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name     string
		command  string
		expected string
	}{
		{
			name:     "simple command",
			command:  "dbtest sync",
			expected: "dbtest sync\x00",
		},
		{
			name:     "get by expression",
			command:  "dbtest get row pigs by_exp column name eq Kitty limit 5",
			expected: "dbtest get row pigs by_exp column name eq Kitty limit 5\x00",
		},
		{
			name:     "empty command",
			command:  "",
			expected: "\x00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := codec.Encode(tt.command)
			if string(result) != tt.expected {
				t.Errorf("Encode() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestCodecEncodeHandshake(t *testing.T) {
	codec := NewCodec()

	got := string(codec.EncodeHandshake("root", "secret"))
	if got != "root:secret\x00" {
		t.Errorf("EncodeHandshake() = %q, want %q", got, "root:secret\x00")
	}
}

func TestCodecDecodeStatus(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name    string
		input   []byte
		want    StatusCode
		wantErr bool
	}{
		{"success byte", []byte{1}, 1, false},
		{"access denied", []byte{0xFD}, StatusAccessDenied, false},
		{"table not found", []byte{0xFC}, StatusTableNotFound, false},
		{"wrong signature", []byte{0xF4}, StatusWrongSignature, false},
		{"table type", []byte{0xF2}, StatusTableType, false},
		{"primary violation", []byte{0xEC}, StatusPrimaryViolation, false},
		{"malformed query", []byte{5}, StatusMalformedQuery, false},
		{"only first byte counts", []byte{0xFC, 1, 2}, StatusTableNotFound, false},
		{"empty response", []byte{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.DecodeStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusCodeErr(t *testing.T) {
	tests := []struct {
		status StatusCode
		want   error
	}{
		{StatusAccessDenied, ErrAccessDenied},
		{StatusTableNotFound, ErrTableNotFound},
		{StatusWrongSignature, ErrWrongSignature},
		{StatusTableType, ErrTableType},
		{StatusPrimaryViolation, ErrPrimaryViolation},
		{StatusMalformedQuery, ErrMalformedQuery},
	}

	seen := make(map[ErrorCode]bool)
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			err := tt.status.Err()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if perr.Kind != KindProtocol {
				t.Errorf("expected kind %s, got %s", KindProtocol, perr.Kind)
			}
			if seen[perr.Code] {
				t.Errorf("code %d mapped twice", perr.Code)
			}
			seen[perr.Code] = true
		})
	}
}

func TestStatusCodeSuccess(t *testing.T) {
	for _, s := range []StatusCode{0, 1, 2, -1, -2, -5, 4, 6, 127, -128} {
		if err := s.Err(); err != nil {
			t.Errorf("status %d: expected success, got %v", s, err)
		}
		if s.IsFailure() {
			t.Errorf("status %d: IsFailure() = true", s)
		}
	}
}
