package server

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rmx-dev/rmx/pkg/render"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

// Handler streams server-rendered HTML. The shell chunk is written and
// flushed as soon as it is ready; async frame chunks follow in
// settlement order on the same response.
type Handler struct {
	// RenderFunc produces the root element for a request.
	RenderFunc func(r *http.Request) *vdom.Element

	// Options configure the renderer (frame resolver, style
	// processor, error hook).
	Options render.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics instruments renders when set.
	Metrics *Metrics
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(r.Context(), "rmx.render",
		trace.WithAttributes(attribute.String("http.path", r.URL.Path)))
	defer span.End()

	start := time.Now()
	stream := render.RenderToStream(ctx, h.RenderFunc(r), h.Options)

	flusher, _ := w.(http.Flusher)
	wrote := false
	chunks := 0
	for chunk := range stream.Chunks() {
		if !wrote {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			wrote = true
		}
		if _, err := w.Write(chunk); err != nil {
			log.Warn("response write error", "error", err)
			span.SetStatus(codes.Error, "write error")
			go render.Drain(stream)
			return
		}
		chunks++
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := stream.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render error")
		log.Error("render error", "path", r.URL.Path, "error", err)
		if !wrote {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	h.Metrics.renderDone(time.Since(start).Seconds(), chunks)
}
