package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rmx-dev/rmx/pkg/vdom"
)

// LiveHandler upgrades HTTP requests to websocket sessions. Each
// connection gets its own document and root built from RenderFunc.
type LiveHandler struct {
	// RenderFunc produces the root element for a new session.
	RenderFunc func(r *http.Request) *vdom.Element

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics instruments sessions when set.
	Metrics *Metrics

	// Config tunes session behavior. Zero fields use defaults.
	Config Config

	// RootOptions are passed to each session's root.
	RootOptions []vdom.RootOption

	// CheckOrigin overrides the upgrader's origin check.
	CheckOrigin func(r *http.Request) bool

	// OnSession is called after a session starts, for tests and
	// server-side bookkeeping.
	OnSession func(s *Session)
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	sess, err := NewSession(newSessionID(), conn, h.RenderFunc(r),
		WithSessionConfig(h.Config),
		WithSessionLogger(log),
		WithSessionMetrics(h.Metrics),
		WithRootOptions(h.RootOptions...),
	)
	if err != nil {
		log.Error("session setup failed", "error", err)
		conn.Close()
		return
	}
	sess.Start()
	if h.OnSession != nil {
		h.OnSession(sess)
	}
}

func newSessionID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
