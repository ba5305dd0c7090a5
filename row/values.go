// Package row encodes column values into fixed-width CDBMS rows and decodes
// fixed-width byte blocks back into typed values.
package row

import (
	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/schema"
)

// Values is an ordered bag of column values used to build a row for writes.
// The zero value is an empty bag ready to use.
type Values struct {
	keys   []string
	values map[string]interface{}
}

// NewValues creates an empty value bag.
func NewValues() *Values {
	return &Values{values: make(map[string]interface{})}
}

// FromMap builds a value bag from a map. Key order is irrelevant because
// encoding follows the table layout.
func FromMap(m map[string]interface{}) *Values {
	v := NewValues()
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}

// Set assigns a column value and returns the bag for chaining.
func (v *Values) Set(column string, value interface{}) *Values {
	if v.values == nil {
		v.values = make(map[string]interface{})
	}
	if _, ok := v.values[column]; !ok {
		v.keys = append(v.keys, column)
	}
	v.values[column] = value
	return v
}

// Get returns the value stored for column.
func (v *Values) Get(column string) (interface{}, bool) {
	val, ok := v.values[column]
	return val, ok
}

// Keys returns the column names in insertion order.
func (v *Values) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Len returns the number of assigned columns.
func (v *Values) Len() int { return len(v.keys) }

// Validate checks every key against the layout.
func (v *Values) Validate(l *schema.Layout) error {
	for _, k := range v.keys {
		if _, ok := l.Lookup(k); !ok {
			return protocol.NewError(protocol.ErrorCodeUnknownColumn,
				"value supplied for a column the table does not declare",
				map[string]interface{}{"column": k})
		}
	}
	return nil
}
