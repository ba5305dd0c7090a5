// Package protocol provides encoding/decoding for the CDBMS wire protocol
package protocol

import (
	"bytes"
	"sync"
)

const (
	// NUL terminates every command and the handshake
	NUL byte = 0x00

	// MaxResponseSize is the size of the single receive performed per command
	MaxResponseSize = 4096
)

// Codec handles encoding and decoding of protocol messages
type Codec interface {
	// Encode appends the NUL terminator to a command
	Encode(command string) []byte

	// EncodeHandshake creates the "user:pass\0" authentication preamble
	EncodeHandshake(username, password string) []byte

	// DecodeStatus reads the leading status byte of a mutation response
	DecodeStatus(data []byte) (StatusCode, error)
}

// CDBMSCodec implements the CDBMS wire protocol codec
type CDBMSCodec struct {
	// Buffer pool for encoding operations
	bufferPool sync.Pool
}

// NewCodec creates a new CDBMS protocol codec
func NewCodec() Codec {
	return &CDBMSCodec{
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Encode encodes a command into wire format
func (c *CDBMSCodec) Encode(command string) []byte {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	buf.WriteString(command)
	buf.WriteByte(NUL)

	// Return a copy since we're reusing the buffer
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result
}

// EncodeHandshake creates the authentication preamble
func (c *CDBMSCodec) EncodeHandshake(username, password string) []byte {
	return c.Encode(username + ":" + password)
}

// DecodeStatus parses the status byte of a mutation response
func (c *CDBMSCodec) DecodeStatus(data []byte) (StatusCode, error) {
	if len(data) == 0 {
		return 0, NewError(ErrorCodeUnexpectedResponse, "empty response where a status byte was expected", nil)
	}
	return StatusCode(int8(data[0])), nil
}
