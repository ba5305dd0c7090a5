package row

import (
	"fmt"

	"github.com/cespare/xxhash"
)

// Row is one decoded fixed-width row. Index is the ordinal the row was
// addressed by, or -1 when it came from an expression query.
type Row struct {
	Index   int
	columns []string
	values  []interface{}
	raw     []byte
}

// Columns returns the column names in layout order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Get returns the decoded value of a column.
func (r Row) Get(column string) (interface{}, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Int returns an integer column value.
func (r Row) Int(column string) (int64, error) {
	v, ok := r.Get(column)
	if !ok {
		return 0, fmt.Errorf("row has no column %q", column)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("column %q holds %T, not an integer", column, v)
	}
	return i, nil
}

// Float returns a floating column value.
func (r Row) Float(column string) (float64, error) {
	v, ok := r.Get(column)
	if !ok {
		return 0, fmt.Errorf("row has no column %q", column)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("column %q holds %T, not a float", column, v)
	}
	return f, nil
}

// String returns a textual column value.
func (r Row) String(column string) (string, error) {
	v, ok := r.Get(column)
	if !ok {
		return "", fmt.Errorf("row has no column %q", column)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q holds %T, not text", column, v)
	}
	return s, nil
}

// Map returns the row as a column-to-value map.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// Unmarshal copies the row into a struct using `cdbms:"column"` field tags.
func (r Row) Unmarshal(dst interface{}) error {
	return literals.ScanStruct(r.Map(), dst)
}

// Raw returns the undecoded row block.
func (r Row) Raw() []byte {
	out := make([]byte, len(r.raw))
	copy(out, r.raw)
	return out
}

// Fingerprint hashes the raw row block. Rows with identical content share a
// fingerprint regardless of Index.
func (r Row) Fingerprint() uint64 {
	return xxhash.Sum64(r.raw)
}

// Duplicates groups rows by fingerprint and returns the positions of every
// row whose content already appeared earlier in the slice.
func Duplicates(rows []Row) []int {
	seen := make(map[uint64]struct{}, len(rows))
	var dups []int
	for i, r := range rows {
		fp := r.Fingerprint()
		if _, ok := seen[fp]; ok {
			dups = append(dups, i)
			continue
		}
		seen[fp] = struct{}{}
	}
	return dups
}
