package testutil_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dan-strohschein/cdbms-driver/testutil"
)

func TestTestDBName(t *testing.T) {
	a := testutil.TestDBName("pigs")
	b := testutil.TestDBName("pigs")
	if a == b {
		t.Errorf("expected unique names, got %q twice", a)
	}
	if !strings.HasPrefix(a, "pigs_") {
		t.Errorf("expected prefix pigs_, got %q", a)
	}
}

func TestTestTableName(t *testing.T) {
	name := testutil.TestTableName("")
	if !strings.HasPrefix(name, "t") || strings.ContainsAny(name, " \t") {
		t.Errorf("unexpected table name %q", name)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, _ := testutil.WithTimeout(t, 50*time.Millisecond)
	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("expected a deadline within 50ms, got %v", deadline)
	}
}

func TestWaitFor(t *testing.T) {
	start := time.Now()
	ok := testutil.WaitFor(t, time.Second, time.Millisecond, func() bool {
		return time.Since(start) > 10*time.Millisecond
	})
	if !ok {
		t.Error("expected condition to be met")
	}
}

func dialFake(t *testing.T, srv *testutil.FakeServer) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func TestFakeServerScriptedReplies(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.Expect("db sync").ReplyStatus(-4)
	srv.ExpectPrefix("db get row").ReplyRows("0001", "0002")

	conn, r := dialFake(t, srv)
	if _, err := conn.Write([]byte("admin:secret\x00db sync\x00")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if int8(b) != -4 {
		t.Errorf("expected status -4, got %d", int8(b))
	}

	if _, err := conn.Write([]byte("db get row t by_index 0\x00")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	buf := make([]byte, 8)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != "00010002" {
		t.Errorf("expected rows payload, got %q", buf)
	}

	if hs := srv.Handshakes(); len(hs) != 1 || hs[0] != "admin:secret" {
		t.Errorf("unexpected handshakes %v", hs)
	}
	cmds := srv.Commands()
	if len(cmds) != 2 || cmds[0] != "db sync" {
		t.Errorf("unexpected commands %v", cmds)
	}
	srv.VerifyExpectations(t)
}

func TestFakeServerDefaultReply(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	srv.SetDefaultReply([]byte{5})

	conn, r := dialFake(t, srv)
	conn.Write([]byte("u:p\x00anything\x00"))

	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if b != 5 {
		t.Errorf("expected default reply 5, got %d", b)
	}
}
