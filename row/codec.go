package row

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dan-strohschein/cdbms-driver/mapper"
	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/schema"
)

var literals = mapper.NewResponseMapper()

// EncodeField renders one value into a field of exactly c.Width() bytes.
// Numbers are zero padded on the left after any sign, text is space padded
// on the left, and a nil value becomes a blank field.
func EncodeField(c schema.Column, value interface{}) ([]byte, error) {
	width := c.Width()
	if value == nil {
		return bytes.Repeat([]byte{' '}, width), nil
	}

	literal, textual, err := literals.FormatLiteral(value)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrorCodeUnsupportedValue, err,
			"value cannot be encoded into a fixed-width field",
			map[string]interface{}{"column": c.Name(), "type": fmt.Sprintf("%T", value)})
	}

	if len(literal) > width {
		return nil, protocol.NewError(protocol.ErrorCodeFieldOverflow,
			"value does not fit the column width",
			map[string]interface{}{"column": c.Name(), "width": width, "length": len(literal)})
	}

	if textual {
		if strings.ContainsAny(literal, "\"\x00") {
			return nil, protocol.CodecError(protocol.ErrorCodeInvalidLiteral, c.Name(),
				"text values cannot contain quotes or NUL bytes")
		}
		return []byte(strings.Repeat(" ", width-len(literal)) + literal), nil
	}

	pad := strings.Repeat("0", width-len(literal))
	if strings.HasPrefix(literal, "-") {
		return []byte("-" + pad + literal[1:]), nil
	}
	return []byte(pad + literal), nil
}

// Encode builds a full row in layout order. Columns without a value become
// blank fields.
func Encode(l *schema.Layout, values *Values) ([]byte, error) {
	if values == nil {
		values = NewValues()
	}
	if err := values.Validate(l); err != nil {
		return nil, err
	}

	out := make([]byte, 0, l.RowSize())
	for i := 0; i < l.Len(); i++ {
		c := l.Column(i)
		v, _ := values.Get(c.Name())
		field, err := EncodeField(c, v)
		if err != nil {
			return nil, err
		}
		out = append(out, field...)
	}
	return out, nil
}

// DecodeField trims one field and coerces it by column type. Blank numeric
// fields decode to nil.
func DecodeField(c schema.Column, field []byte) (interface{}, error) {
	text := strings.TrimSpace(string(field))
	if text == "" && c.Type().IsNumeric() {
		return nil, nil
	}

	switch c.Type() {
	case schema.Int:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, protocol.Wrap(protocol.ErrorCodeNonNumeric, err,
				"integer column holds non-numeric content",
				map[string]interface{}{"column": c.Name(), "content": text})
		}
		return v, nil
	case schema.Float:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, protocol.Wrap(protocol.ErrorCodeNonNumeric, err,
				"floating column holds non-numeric content",
				map[string]interface{}{"column": c.Name(), "content": text})
		}
		return v, nil
	default:
		return text, nil
	}
}

// Decode slices one row block by column widths. The block must be exactly
// one row long.
func Decode(l *schema.Layout, block []byte) (Row, error) {
	r := Row{Index: -1, columns: make([]string, l.Len()), values: make([]interface{}, l.Len())}

	for i := 0; i < l.Len(); i++ {
		c := l.Column(i)
		offset := l.Offset(i)
		if len(block)-offset < c.Width() {
			return Row{}, protocol.NewError(protocol.ErrorCodeShortBuffer,
				"row block is shorter than the declared column widths",
				map[string]interface{}{"column": c.Name(), "need": c.Width(), "have": len(block) - offset})
		}
		v, err := DecodeField(c, block[offset:offset+c.Width()])
		if err != nil {
			return Row{}, err
		}
		r.columns[i] = c.Name()
		r.values[i] = v
	}

	if len(block) != l.RowSize() {
		return Row{}, protocol.NewError(protocol.ErrorCodeMisalignedPayload,
			"row block is longer than the declared column widths",
			map[string]interface{}{"rowSize": l.RowSize(), "length": len(block)})
	}

	r.raw = make([]byte, len(block))
	copy(r.raw, block)
	return r, nil
}

// DecodeAll splits a multi-row payload into RowSize chunks. A payload whose
// length is not a multiple of the row size is rejected, never truncated.
func DecodeAll(l *schema.Layout, payload []byte) ([]Row, error) {
	size := l.RowSize()
	if len(payload)%size != 0 {
		return nil, protocol.NewError(protocol.ErrorCodeMisalignedPayload,
			"payload length is not a multiple of the row size",
			map[string]interface{}{"rowSize": size, "length": len(payload), "remainder": len(payload) % size})
	}

	rows := make([]Row, 0, len(payload)/size)
	for start := 0; start < len(payload); start += size {
		r, err := Decode(l, payload[start:start+size])
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}
