package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/protocol"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

// fakeConn is an in-memory Conn for session tests.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	reads   chan []byte
	done    chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg, ok := <-c.reads:
		if !ok {
			return 0, nil, io.EOF
		}
		return 2, msg, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.mu.Lock()
	c.written = append(c.written, buf)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// waitFrames polls until the connection has at least n frames.
func waitFrames(t *testing.T, c *fakeConn, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fs := c.frames(); len(fs) >= n {
			return fs
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, have %d", n, len(c.frames()))
	return nil
}

func counterApp(c *vdom.Ctx) any {
	count := 0
	return vdom.RenderFunc(func(c *vdom.Ctx) any {
		return vdom.Button(
			vdom.OnClick(func(e *dom.Event) {
				count++
				c.Update()
			}),
			vdom.Textf("count: %d", count),
		)
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, el *vdom.Element) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s, err := NewSession("test", conn, el, WithSessionLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s, conn
}

func TestInitFrameCarriesAnnotatedHTML(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))

	fs := conn.frames()
	if len(fs) != 1 {
		t.Fatalf("%d frames after setup, want 1", len(fs))
	}
	html, err := protocol.DecodeInit(fs[0])
	if err != nil {
		t.Fatalf("DecodeInit: %v", err)
	}
	if !strings.Contains(html, "count: 0") {
		t.Errorf("init html = %q, want initial count", html)
	}
	if !strings.Contains(html, "data-rmx-id=") {
		t.Errorf("init html = %q, want id annotations on listener hosts", html)
	}
	if muts := s.Document().Mutations(); len(muts) != 0 {
		t.Errorf("%d mutations recorded before any event: %v", len(muts), muts)
	}
}

func TestEventProducesPatchFrame(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))

	btn := s.Document().NodeByID(s.body.FirstChild().ID())
	if btn == nil || btn.Tag() != "button" {
		t.Fatalf("button node not found")
	}
	s.handleEvent(protocol.Event{Target: btn.ID(), Type: "click"})

	fs := conn.frames()
	if len(fs) != 2 {
		t.Fatalf("%d frames after click, want init + patch", len(fs))
	}
	muts, err := protocol.DecodePatch(fs[1])
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	found := false
	for _, m := range muts {
		if m.Op == dom.MutSetText && m.Value == "count: 1" {
			found = true
		}
	}
	if !found {
		t.Errorf("patch %v missing SetText to %q", muts, "count: 1")
	}
	if got := btn.FirstChild().Data(); got != "count: 1" {
		t.Errorf("server tree text = %q, want %q", got, "count: 1")
	}
}

func TestEventForUnknownNodeIsIgnored(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))
	s.handleEvent(protocol.Event{Target: 9999, Type: "click"})
	if fs := conn.frames(); len(fs) != 1 {
		t.Errorf("%d frames, want only init", len(fs))
	}
}

func TestEventRoundTripThroughLoops(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))
	s.Start()

	btn := s.body.FirstChild()
	conn.reads <- protocol.EncodeEvent(protocol.Event{Target: btn.ID(), Type: "click"})

	fs := waitFrames(t, conn, 2)
	muts, err := protocol.DecodePatch(fs[1])
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if len(muts) == 0 {
		t.Error("empty patch after click")
	}
}

func TestDispatchFlushesServerDrivenUpdates(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))
	s.Start()

	btn := s.body.FirstChild()
	s.Dispatch(func() { btn.SetAttr("data-marked", "yes") })

	fs := waitFrames(t, conn, 2)
	muts, err := protocol.DecodePatch(fs[1])
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if len(muts) != 1 || muts[0].Op != dom.MutSetAttr || muts[0].Name != "data-marked" {
		t.Errorf("patch = %v, want single SetAttr data-marked", muts)
	}
}

func TestEventPayloadReachesHandler(t *testing.T) {
	var gotValue string
	app := func(c *vdom.Ctx) any {
		return vdom.Input(vdom.On("input", func(e *dom.Event) {
			gotValue, _ = e.Payload["value"].(string)
		}))
	}
	s, _ := newTestSession(t, vdom.Comp(app))

	input := s.body.FirstChild()
	payload, _ := json.Marshal(map[string]any{"value": "abc"})
	s.handleEvent(protocol.Event{Target: input.ID(), Type: "input", Payload: payload})
	if gotValue != "abc" {
		t.Errorf("payload value = %q, want %q", gotValue, "abc")
	}
}

func TestBadEventFrameGetsErrorFrame(t *testing.T) {
	s, conn := newTestSession(t, vdom.Comp(counterApp))
	s.Start()

	conn.reads <- []byte{byte(protocol.FrameEvent), 0xFF} // truncated

	fs := waitFrames(t, conn, 2)
	msg, err := protocol.DecodeError(fs[1])
	if err != nil {
		t.Fatalf("DecodeError: %v", err)
	}
	if !strings.Contains(msg, "invalid event") {
		t.Errorf("error message = %q", msg)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t, vdom.Comp(counterApp))
	s.Close()
	s.Close()
	select {
	case <-s.Done():
	default:
		t.Error("Done not closed after Close")
	}
}
