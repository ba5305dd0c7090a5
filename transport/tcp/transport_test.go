package tcp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dan-strohschein/cdbms-driver/protocol"
	"github.com/dan-strohschein/cdbms-driver/testutil"
)

func newSession(t *testing.T, addr string) *Session {
	t.Helper()
	s, err := NewSession(Options{Address: addr, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	if _, err := NewSession(Options{}); err == nil {
		t.Fatal("expected error for missing address")
	}

	s, err := NewSession(Options{Address: "127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if s.opts.DrainWindow != DefaultDrainWindow {
		t.Errorf("expected drain window %v, got %v", DefaultDrainWindow, s.opts.DrainWindow)
	}
	if s.opts.BufferSize != protocol.MaxResponseSize {
		t.Errorf("expected buffer size %d, got %d", protocol.MaxResponseSize, s.opts.BufferSize)
	}
	if s.IsOpen() {
		t.Error("new session must not be open")
	}
}

func TestOpenSendsHandshake(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	s := newSession(t, srv.Addr())

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("second Open failed: %v", err)
	}

	testutil.WaitFor(t, time.Second, 5*time.Millisecond, func() bool {
		return len(srv.Handshakes()) == 1
	})
	if hs := srv.Handshakes(); len(hs) != 1 || hs[0] != "admin:secret" {
		t.Errorf("expected one admin:secret handshake, got %v", hs)
	}
	if got := s.GetMetrics().ConnectionsCreated; got != 1 {
		t.Errorf("expected 1 connection, got %d", got)
	}
}

func TestSendReturnsResponse(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.Expect("db sync").ReplyStatus(-20)
	s := newSession(t, srv.Addr())

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	resp, err := s.Send(context.Background(), []byte("db sync\x00"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(resp) != 1 || int8(resp[0]) != -20 {
		t.Errorf("expected status -20, got %v", resp)
	}

	m := s.GetMetrics()
	if m.TotalRequests != 1 || m.BytesReceived != 1 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestSendWithoutOpen(t *testing.T) {
	s := newSession(t, "127.0.0.1:1")
	_, err := s.Send(context.Background(), []byte("db sync\x00"))
	if !errors.Is(err, protocol.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestSendDrainsStaleBytes(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.Expect("first").ReplyStatus(0).ThenSend([]byte("stale-junk"), 5*time.Millisecond)
	srv.Expect("second").Reply([]byte("fresh"))
	s := newSession(t, srv.Addr())

	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Send(ctx, []byte("first\x00")); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	resp, err := s.Send(ctx, []byte("second\x00"))
	if err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if string(resp) != "fresh" {
		t.Errorf("expected fresh response, got %q", resp)
	}
	if got := s.GetMetrics().BytesDrained; got != int64(len("stale-junk")) {
		t.Errorf("expected %d drained bytes, got %d", len("stale-junk"), got)
	}
}

func TestSendPeerClosedKeepsSessionOpen(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.Expect("db sync").Hangup()
	s := newSession(t, srv.Addr())

	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err := s.Send(context.Background(), []byte("db sync\x00"))
	if !errors.Is(err, protocol.ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}

	var pe *protocol.Error
	if errors.As(err, &pe) && pe.IsFatal() {
		t.Error("peer closed must not be fatal")
	}
	if !s.IsOpen() {
		t.Error("session should stay open after a zero-byte read")
	}
}

func TestSendFailureClosesSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		conn.Read(buf)
		time.Sleep(200 * time.Millisecond)
	}()

	s := newSession(t, ln.Addr().String())
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = s.Send(ctx, []byte("db sync\x00"))
	if !errors.Is(err, protocol.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if s.IsOpen() {
		t.Error("session should be closed after a receive failure")
	}
	if s.GetMetrics().LastError == nil {
		t.Error("expected last error to be recorded")
	}
}

func TestOpenRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newSession(t, addr)
	err = s.Open(context.Background())
	if !errors.Is(err, protocol.ErrConnectionRefused) {
		t.Fatalf("expected ErrConnectionRefused, got %v", err)
	}
	if s.IsOpen() {
		t.Error("session must not be open after a failed dial")
	}
}

func TestCloseAndReopen(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	s := newSession(t, srv.Addr())
	ctx := context.Background()

	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.IsOpen() {
		t.Fatal("session should be closed")
	}
	if err := s.Open(ctx); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	testutil.WaitFor(t, time.Second, 5*time.Millisecond, func() bool {
		return len(srv.Handshakes()) == 2
	})
	if got := s.GetMetrics().ConnectionsCreated; got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestFactoryBuildsIndependentSessions(t *testing.T) {
	f := Factory(Options{Address: "127.0.0.1:1"})
	a, err := f()
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	b, _ := f()
	if a == b {
		t.Error("factory must return distinct sessions")
	}
}
