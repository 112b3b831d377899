package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rmx-dev/rmx/pkg/assets"
	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/render"
	"github.com/rmx-dev/rmx/pkg/server"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		manifest string
		prefix   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application server",
		Long: `Serve a small demo application: a streamed page with an async
frame, plus a live websocket counter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, manifest, prefix)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&manifest, "manifest", "", "asset manifest.json path (optional)")
	cmd.Flags().StringVar(&prefix, "asset-prefix", "/static/", "URL prefix for resolved assets")

	return cmd
}

func runServe(addr, manifestPath, prefix string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var resolver assets.Resolver
	if manifestPath != "" {
		m, err := assets.LoadFile(manifestPath)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		log.Info("asset manifest loaded", "path", manifestPath, "entries", m.Len())
		resolver = assets.NewResolver(m, prefix)
	} else {
		resolver = assets.NewPassthroughResolver(prefix)
	}

	metrics := server.NewMetrics(server.MetricsConfig{})

	page := &server.Handler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return demoPage(resolver)
		},
		Options: render.Options{
			Resolve: demoResolver,
			Logger:  log,
		},
		Logger:  log,
		Metrics: metrics,
	}
	live := &server.LiveHandler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return vdom.Comp(counter)
		},
		Logger:  log,
		Metrics: metrics,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/live", live)
	r.Handle("/*", page)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// demoPage is a full document with a styled shell, a hydration island,
// and a non-blocking async frame.
func demoPage(resolver assets.Resolver) *vdom.Element {
	return vdom.Html(
		vdom.Head(
			vdom.Title(vdom.Text("rmx demo")),
		),
		vdom.Body(
			vdom.H("h1", vdom.Text("rmx")),
			vdom.Hydrated(resolver.Asset("islands/counter.js"), "Counter", counter),
			vdom.Frame("/tips",
				vdom.Fallback(vdom.P(vdom.Text("Loading tips..."))),
			),
		),
	)
}

// demoResolver fakes a slow backend for the /tips frame.
func demoResolver(ctx context.Context, src string) (any, error) {
	select {
	case <-time.After(150 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return vdom.Ul(
		vdom.Li(vdom.Text("Frames stream when they settle.")),
		vdom.Li(vdom.Text("Events run on the server.")),
	), nil
}

// counter is the live demo component.
func counter(c *vdom.Ctx) any {
	count := 0
	return vdom.RenderFunc(func(c *vdom.Ctx) any {
		return vdom.Div(
			vdom.P(vdom.Textf("count: %d", count)),
			vdom.Button(
				vdom.OnClick(func(e *dom.Event) {
					count++
					c.Update()
				}),
				vdom.Text("increment"),
			),
		)
	})
}
