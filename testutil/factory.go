package testutil

import (
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dan-strohschein/cdbms-driver/row"
	"github.com/dan-strohschein/cdbms-driver/schema"
)

// Option overrides generated values before a row is returned.
type Option func(*row.Values)

// WithField pins one column to a fixed value.
func WithField(column string, value interface{}) Option {
	return func(v *row.Values) { v.Set(column, value) }
}

// WithFields pins several columns at once.
func WithFields(fields map[string]interface{}) Option {
	return func(v *row.Values) {
		for k, val := range fields {
			v.Set(k, val)
		}
	}
}

// RowFactory generates rows that always fit a layout. Primary integer
// columns draw from a shared sequence; every other column is random but
// sized to its width.
type RowFactory struct {
	layout *schema.Layout
	seq    atomic.Int64
	rng    *rand.Rand
}

// NewRowFactory creates a factory for l.
func NewRowFactory(l *schema.Layout) *RowFactory {
	return &RowFactory{
		layout: l,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Build creates one row. A RowFactory is not safe for concurrent Build
// calls because of its random source.
func (f *RowFactory) Build(options ...Option) *row.Values {
	v := row.NewValues()
	for _, c := range f.layout.Columns() {
		v.Set(c.Name(), f.generate(c))
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// BuildList creates count rows.
func (f *RowFactory) BuildList(count int, options ...Option) []*row.Values {
	out := make([]*row.Values, count)
	for i := range out {
		out[i] = f.Build(options...)
	}
	return out
}

func (f *RowFactory) generate(c schema.Column) interface{} {
	width := c.Width()
	switch c.Type() {
	case schema.Int:
		if c.IsPrimary() {
			return f.seq.Add(1) % pow10(width)
		}
		return f.rng.Int63n(pow10(width))
	case schema.Float:
		// one digit for the point
		if width < 3 {
			return float64(f.rng.Int63n(pow10(width)))
		}
		return float64(f.rng.Int63n(pow10(width-2))) + 0.5
	default:
		return RandomString(f.rng, 1+f.rng.Intn(width))
	}
}

func pow10(n int) int64 {
	if n > 18 {
		n = 18
	}
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns length characters from [a-zA-Z0-9].
func RandomString(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(charset[rng.Intn(len(charset))])
	}
	return b.String()
}
