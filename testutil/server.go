package testutil

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeServer is a scripted stand-in for a CDBMS server. It accepts TCP
// connections, records the handshake and every NUL-terminated command, and
// answers from a list of expectations.
//
// Example usage:
//
//	srv := testutil.NewFakeServer(t)
//	srv.Expect("dbtest sync").ReplyStatus(0)
//	srv.ExpectPrefix("dbtest get row pigs").ReplyRows(pigRow1, pigRow2)
//
// Commands with no matching expectation get the default reply, a single
// zero status byte.
type FakeServer struct {
	ln net.Listener

	mu           sync.Mutex
	expectations []*Expectation
	handshakes   []string
	commands     []string
	defaultReply []byte
	conns        map[net.Conn]struct{}
	closed       bool

	wg sync.WaitGroup
}

// Expectation is one scripted reply.
type Expectation struct {
	command string
	prefix  bool

	reply   []byte
	hangup  bool
	trailer []byte
	delay   time.Duration

	times       int // -1 = any
	actualCalls int
}

// NewFakeServer starts a server on a loopback port. It is closed by t.Cleanup.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &FakeServer{
		ln:           ln,
		defaultReply: []byte{0},
		conns:        make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *FakeServer) Addr() string {
	return s.ln.Addr().String()
}

// Expect scripts a reply for an exact command (without the NUL).
func (s *FakeServer) Expect(command string) *Expectation {
	return s.add(&Expectation{command: command, times: 1})
}

// ExpectPrefix scripts a reply for any command starting with prefix.
func (s *FakeServer) ExpectPrefix(prefix string) *Expectation {
	return s.add(&Expectation{command: prefix, prefix: true, times: 1})
}

// SetDefaultReply changes the reply used when no expectation matches.
func (s *FakeServer) SetDefaultReply(reply []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultReply = reply
}

func (s *FakeServer) add(e *Expectation) *Expectation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectations = append(s.expectations, e)
	return e
}

// Reply sets the raw response bytes.
func (e *Expectation) Reply(b []byte) *Expectation {
	e.reply = b
	return e
}

// ReplyStatus answers with a single signed status byte.
func (e *Expectation) ReplyStatus(code int8) *Expectation {
	e.reply = []byte{byte(code)}
	return e
}

// ReplyRows answers with the concatenation of fixed-width row blocks.
func (e *Expectation) ReplyRows(rows ...string) *Expectation {
	e.reply = []byte(strings.Join(rows, ""))
	return e
}

// Hangup half-closes the connection instead of replying, so the client
// reads zero bytes.
func (e *Expectation) Hangup() *Expectation {
	e.hangup = true
	return e
}

// ThenSend writes extra bytes after the reply, once delay has elapsed. The
// client never asked for them and must drain them before its next command.
func (e *Expectation) ThenSend(b []byte, delay time.Duration) *Expectation {
	e.trailer = b
	e.delay = delay
	return e
}

// Times sets how many commands this expectation answers.
func (e *Expectation) Times(n int) *Expectation {
	e.times = n
	return e
}

// AnyTimes lets the expectation answer any number of commands.
func (e *Expectation) AnyTimes() *Expectation {
	e.times = -1
	return e
}

// Handshakes returns every "user:pass" preamble received.
func (s *FakeServer) Handshakes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.handshakes))
	copy(out, s.handshakes)
	return out
}

// Commands returns every command received, in order, without terminators.
func (s *FakeServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// VerifyExpectations fails the test if any counted expectation went unused.
func (s *FakeServer) VerifyExpectations(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.expectations {
		if e.times > 0 && e.actualCalls < e.times {
			t.Errorf("expectation %q called %d times, expected %d", e.command, e.actualCalls, e.times)
		}
	}
}

// Close stops the listener and drops every connection.
func (s *FakeServer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *FakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *FakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	r := bufio.NewReader(conn)

	hello, err := r.ReadString(0)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.handshakes = append(s.handshakes, strings.TrimSuffix(hello, "\x00"))
	s.mu.Unlock()

	for {
		msg, err := r.ReadString(0)
		if err != nil {
			return
		}
		command := strings.TrimSuffix(msg, "\x00")

		e, reply := s.match(command)
		if e != nil && e.hangup {
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.CloseWrite()
			}
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
		if e != nil && e.trailer != nil {
			time.Sleep(e.delay)
			if _, err := conn.Write(e.trailer); err != nil {
				return
			}
		}
	}
}

func (s *FakeServer) match(command string) (*Expectation, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, command)

	for _, e := range s.expectations {
		if e.times >= 0 && e.actualCalls >= e.times {
			continue
		}
		hit := e.command == command
		if e.prefix {
			hit = strings.HasPrefix(command, e.command)
		}
		if hit {
			e.actualCalls++
			return e, e.reply
		}
	}
	return nil, s.defaultReply
}
