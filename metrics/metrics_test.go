package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dan-strohschein/cdbms-driver/transport/mock"
)

func TestObserveCommand(t *testing.T) {
	c := NewCollector("")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	c.ObserveCommand("append", OutcomeOK, 2*time.Millisecond, 40, 1)
	c.ObserveCommand("append", OutcomeProtocol, time.Millisecond, 40, 1)
	c.ObserveCommand("get_exp", OutcomeOK, time.Millisecond, 60, 56)
	c.ObserveRows(2)

	if got := testutil.ToFloat64(c.CommandsTotal.WithLabelValues("append", OutcomeOK)); got != 1 {
		t.Errorf("expected 1 ok append, got %v", got)
	}
	if got := testutil.ToFloat64(c.CommandsTotal.WithLabelValues("append", OutcomeProtocol)); got != 1 {
		t.Errorf("expected 1 failed append, got %v", got)
	}
	if got := testutil.ToFloat64(c.BytesSent); got != 140 {
		t.Errorf("expected 140 bytes sent, got %v", got)
	}
	if got := testutil.ToFloat64(c.BytesReceived); got != 58 {
		t.Errorf("expected 58 bytes received, got %v", got)
	}
	if got := testutil.ToFloat64(c.RowsDecoded); got != 2 {
		t.Errorf("expected 2 rows, got %v", got)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	c := NewCollector("dup")
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := c.Register(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestWatchTransport(t *testing.T) {
	c := NewCollector("")
	m := mock.NewMockTransport()
	m.Open(context.Background())
	c.Watch("main", m)

	tc := newTransportCollector(c)
	if n := testutil.CollectAndCount(tc); n != 4 {
		t.Errorf("expected 4 session metrics, got %d", n)
	}

	c.Unwatch("main")
	if n := testutil.CollectAndCount(tc); n != 0 {
		t.Errorf("expected no session metrics after unwatch, got %d", n)
	}
}
