package protocol

import "fmt"

// StatusCode is the first byte of a mutation response, read as a signed byte.
type StatusCode int8

const (
	StatusAccessDenied     StatusCode = -3
	StatusTableNotFound    StatusCode = -4
	StatusWrongSignature   StatusCode = -12
	StatusTableType        StatusCode = -14
	StatusPrimaryViolation StatusCode = -20
	StatusMalformedQuery   StatusCode = 5
)

var statusErrors = map[StatusCode]struct {
	code    ErrorCode
	message string
}{
	StatusAccessDenied:     {ErrorCodeAccessDenied, "access denied"},
	StatusTableNotFound:    {ErrorCodeTableNotFound, "table not found"},
	StatusWrongSignature:   {ErrorCodeWrongSignature, "wrong column signature, expected numeric"},
	StatusTableType:        {ErrorCodeTableType, "table type error"},
	StatusPrimaryViolation: {ErrorCodePrimaryViolation, "primary key constraint violation"},
	StatusMalformedQuery:   {ErrorCodeMalformedQuery, "malformed query"},
}

// IsFailure reports whether the status is one of the enumerated failures.
func (s StatusCode) IsFailure() bool {
	_, ok := statusErrors[s]
	return ok
}

// Err returns nil for success codes and a tagged error otherwise.
func (s StatusCode) Err() error {
	se, ok := statusErrors[s]
	if !ok {
		return nil
	}
	return NewError(se.code, se.message, map[string]interface{}{
		"status": int(s),
	})
}

// String returns a readable name for the status.
func (s StatusCode) String() string {
	if se, ok := statusErrors[s]; ok {
		return fmt.Sprintf("%s(%d)", se.message, int8(s))
	}
	return fmt.Sprintf("ok(%d)", int8(s))
}
