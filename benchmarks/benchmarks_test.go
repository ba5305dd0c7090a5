// Package benchmarks measures the codec, the expression compiler and full
// command round trips against a loopback fake server.
package benchmarks

import (
	"context"
	"strings"
	"testing"

	"github.com/dan-strohschein/cdbms-driver/client"
	"github.com/dan-strohschein/cdbms-driver/expr"
	"github.com/dan-strohschein/cdbms-driver/row"
	"github.com/dan-strohschein/cdbms-driver/schema"
	"github.com/dan-strohschein/cdbms-driver/testutil"
)

var plain = []schema.Flag{schema.NotPrimary, schema.NoAutoIncrement}

const pigRow = "0001" + "0001" + "             Pig" + "0120"

func pigLayout(b *testing.B) *schema.Layout {
	b.Helper()
	l, err := schema.NewLayout(
		schema.MustColumn("uid", schema.Int, plain, 4),
		schema.MustColumn("huid", schema.Int, plain, 4),
		schema.MustColumn("name", schema.Str, plain, 16),
		schema.MustColumn("weight", schema.Int, plain, 4),
	)
	if err != nil {
		b.Fatal(err)
	}
	return l
}

// BenchmarkEncodeRow measures fixed-width encoding of one row.
func BenchmarkEncodeRow(b *testing.B) {
	l := pigLayout(b)
	values := row.NewValues().Set("uid", 1).Set("huid", 1).Set("name", "Pig").Set("weight", 120)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := row.Encode(l, values); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecodeAll measures decoding a full 4096 byte receive buffer.
func BenchmarkDecodeAll(b *testing.B) {
	l := pigLayout(b)
	payload := []byte(strings.Repeat(pigRow, 4096/len(pigRow)))

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := row.DecodeAll(l, payload); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompileExpression measures compiling a three-statement filter.
func BenchmarkCompileExpression(b *testing.B) {
	e := expr.Where(expr.S("uid", expr.MoreThan, 1)).
		And(expr.S("weight", expr.LessThan, 100)).
		Or(expr.S("name", expr.StrEquals, "Pig"))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = expr.Compile(e)
	}
}

func openBenchClient(b *testing.B, srv *testutil.FakeServer) *client.Client {
	b.Helper()
	opts := client.DefaultOptions()
	opts.Address = srv.Addr()
	opts.Logger = client.NewNoopLogger()
	c, err := client.NewClient(&opts)
	if err != nil {
		b.Fatal(err)
	}
	if err := c.Open(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { c.Close() })
	return c
}

// BenchmarkSessionOpen measures dial plus handshake.
func BenchmarkSessionOpen(b *testing.B) {
	srv := testutil.NewFakeServer(b)

	opts := client.DefaultOptions()
	opts.Address = srv.Addr()
	opts.Logger = client.NewNoopLogger()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c, err := client.NewClient(&opts)
		if err != nil {
			b.Fatal(err)
		}
		if err := c.Open(context.Background()); err != nil {
			b.Fatal(err)
		}
		c.Close()
	}
}

// BenchmarkAppend measures one append round trip including the drain window.
func BenchmarkAppend(b *testing.B) {
	srv := testutil.NewFakeServer(b)

	c := openBenchClient(b, srv)
	db, _ := c.SelectDatabase("bench")
	tbl, err := db.GetTable("pigs", "admin", pigLayout(b).Columns()...)
	if err != nil {
		b.Fatal(err)
	}
	rows := testutil.NewRowFactory(tbl.Layout()).BuildList(64)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := tbl.Append(ctx, rows[i%len(rows)]); err != nil {
			b.Fatal(err)
		}
	}
}
