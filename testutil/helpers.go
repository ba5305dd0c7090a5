// Package testutil provides helpers for testing code that talks to CDBMS.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

var nameCounter uint64

// ServerAddr returns the address of a live server from CDBMS_TEST_ADDR, or
// skips the test.
//
// Example:
//
//	export CDBMS_TEST_ADDR="127.0.0.1:7777"
//	addr := testutil.ServerAddr(t)
func ServerAddr(t *testing.T) string {
	t.Helper()

	addr := os.Getenv("CDBMS_TEST_ADDR")
	if addr == "" {
		t.Skip("CDBMS_TEST_ADDR not set, skipping integration test")
	}
	return addr
}

// TestDBName generates a unique database name for testing.
// Format: <prefix>_<timestamp>_<counter>
func TestDBName(prefix string) string {
	if prefix == "" {
		prefix = "test"
	}
	n := atomic.AddUint64(&nameCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().Unix(), n)
}

// TestTableName generates a unique table name for testing.
func TestTableName(prefix string) string {
	if prefix == "" {
		prefix = "t"
	}
	n := atomic.AddUint64(&nameCounter, 1)
	return fmt.Sprintf("%s%d", prefix, n)
}

// WithTimeout creates a context with timeout for tests.
// Default timeout is 10 seconds.
func WithTimeout(t *testing.T, timeout ...time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	duration := 10 * time.Second
	if len(timeout) > 0 {
		duration = timeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx, cancel
}

// WaitFor polls condition until it holds or timeout passes.
//
// Example:
//
//	testutil.WaitFor(t, time.Second, 5*time.Millisecond, func() bool {
//	    return len(srv.Handshakes()) == 1
//	})
func WaitFor(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}

	t.Errorf("condition not met within timeout %v", timeout)
	return false
}

// Eventually is an alias for WaitFor (Jest-style naming).
func Eventually(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	t.Helper()
	return WaitFor(t, timeout, interval, condition)
}
