package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/protocol"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

const tracerName = "rmx"

// Conn is the subset of *websocket.Conn a session needs. Tests install
// an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session runs one component tree for one connected client. The tree is
// mounted on a server-side document; client events are dispatched into
// it, and the resulting mutation log is encoded and shipped back as
// patch frames. All tree access happens on the session's event loop.
type Session struct {
	id      string
	conn    Conn
	config  Config
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	doc  *dom.Document
	body *dom.Node
	root *vdom.Root

	events     chan protocol.Event
	dispatchCh chan func()
	done       chan struct{}

	mu        sync.Mutex // guards conn writes
	closed    atomic.Bool
	closeOnce sync.Once

	rootOpts []vdom.RootOption
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithSessionConfig overrides the default tuning knobs.
func WithSessionConfig(c Config) SessionOption {
	return func(s *Session) { s.config = c.withDefaults() }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = log }
}

// WithSessionMetrics sets the metrics instruments.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithRootOptions passes extra options to the underlying root, for
// style processors or frame resolvers.
func WithRootOptions(opts ...vdom.RootOption) SessionOption {
	return func(s *Session) { s.rootOpts = append(s.rootOpts, opts...) }
}

// NewSession mounts el on a fresh document and sends the init frame
// carrying the annotated initial HTML. Call Start to begin the read and
// event loops.
func NewSession(id string, conn Conn, el *vdom.Element, opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:     id,
		conn:   conn,
		config: DefaultConfig(),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", id)
	s.events = make(chan protocol.Event, s.config.MaxEventQueue)
	s.dispatchCh = make(chan func(), s.config.MaxEventQueue)
	s.done = make(chan struct{})

	s.doc = dom.NewDocument()
	s.body = s.doc.CreateElement("body")
	rootOpts := append([]vdom.RootOption{vdom.WithLogger(s.logger)}, s.rootOpts...)
	s.root = vdom.NewRoot(s.body, rootOpts...)

	// Server-driven updates wake the event loop instead of flushing
	// on the goroutine that requested them.
	s.root.Scheduler().SetDefer(func(flush func()) {
		s.Dispatch(flush)
	})

	if err := s.root.Render(el); err != nil {
		return nil, fmt.Errorf("session %s: initial render: %w", id, err)
	}

	// Everything after the init snapshot travels as patches.
	s.doc.SetRecording(true)

	if err := s.writeFrame(protocol.EncodeInit(s.body.AnnotatedHTML())); err != nil {
		return nil, fmt.Errorf("session %s: init frame: %w", id, err)
	}
	s.metrics.sessionOpened()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Document returns the session's server-side document.
func (s *Session) Document() *dom.Document { return s.doc }

// Start launches the read and event loops.
func (s *Session) Start() {
	go s.readLoop()
	go s.eventLoop()
	go s.heartbeatLoop()
}

// Dispatch queues fn to run on the event loop. Mutation patches
// produced by fn are flushed after it returns. Safe from any goroutine;
// a no-op once the session is closed.
func (s *Session) Dispatch(fn func()) {
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// Close tears down the session. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.conn.Close()
		s.metrics.sessionClosed()
		s.logger.Info("session closed")
	})
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) readLoop() {
	defer s.Close()
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.metrics.wsError("read")
			}
			return
		}
		if int64(len(msg)) > s.config.MaxMessageSize {
			s.logger.Warn("oversized message dropped", "bytes", len(msg))
			s.metrics.wsError("oversized")
			continue
		}

		ft, err := protocol.PeekFrameType(msg)
		if err != nil {
			s.logger.Warn("empty frame dropped")
			continue
		}
		switch ft {
		case protocol.FrameEvent:
			ev, err := protocol.DecodeEvent(msg)
			if err != nil {
				s.logger.Error("event decode error", "error", err)
				s.sendError("invalid event frame")
				continue
			}
			select {
			case s.events <- ev:
			default:
				s.logger.Warn("event queue full, dropping", "type", ev.Type)
				s.metrics.eventHandled(ev.Type, "dropped", 0)
				s.sendError("event queue full")
			}
		default:
			s.logger.Warn("unexpected frame type", "type", ft.String())
		}
	}
}

func (s *Session) eventLoop() {
	defer s.root.Unmount()
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case fn := <-s.dispatchCh:
			s.runDispatched(fn)
		case <-s.done:
			return
		}
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// handleEvent dispatches one client event into the document, flushes
// any re-renders it scheduled, and ships the resulting mutations.
func (s *Session) handleEvent(ev protocol.Event) {
	start := time.Now()
	_, span := s.tracer.Start(context.Background(), "rmx.event",
		trace.WithAttributes(
			attribute.String("event.type", ev.Type),
			attribute.Int64("event.target", int64(ev.Target)),
		))
	defer span.End()

	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			s.logger.Error("event panic", "type", ev.Type,
				"panic", r, "stack", string(debug.Stack()))
		}
		s.metrics.eventHandled(ev.Type, status, time.Since(start).Seconds())
	}()

	node := s.doc.NodeByID(ev.Target)
	if node == nil {
		status = "stale"
		s.logger.Debug("event for unknown node", "target", ev.Target, "type", ev.Type)
		return
	}

	var payload map[string]any
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			status = "invalid"
			s.logger.Warn("event payload decode error", "error", err)
			return
		}
	}

	node.Dispatch(ev.Type, payload)
	s.root.Flush()
	s.sendPatches()
}

func (s *Session) runDispatched(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic", "panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
	s.sendPatches()
}

// sendPatches drains the mutation log and writes one patch frame.
// No-op when the log is empty.
func (s *Session) sendPatches() {
	muts := s.doc.TakeMutations()
	if len(muts) == 0 {
		return
	}
	buf := protocol.EncodePatch(muts)
	if err := s.writeFrame(buf); err != nil {
		s.logger.Error("patch write error", "error", err)
		s.metrics.wsError("write")
		s.Close()
		return
	}
	s.metrics.patchSent(len(muts), len(buf))
}

func (s *Session) sendError(msg string) {
	if err := s.writeFrame(protocol.EncodeError(msg)); err != nil {
		s.logger.Error("error frame write error", "error", err)
	}
}

func (s *Session) writeFrame(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, buf)
}
