package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rmx-dev/rmx/pkg/render"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

func TestHandlerServesRenderedHTML(t *testing.T) {
	h := &Handler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return vdom.Div(vdom.Text("hello"))
		},
		Logger: quietLogger(),
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "<div>hello</div>") {
		t.Errorf("body = %q", body)
	}
}

func TestHandlerStreamsFrameChunks(t *testing.T) {
	h := &Handler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return vdom.Div(
				vdom.Frame("/slow", vdom.Fallback(vdom.Div(vdom.Text("Loading...")))),
			)
		},
		Options: render.Options{
			Resolve: func(ctx context.Context, src string) (any, error) {
				return vdom.Div(vdom.Text("Resolved")), nil
			},
		},
		Logger: quietLogger(),
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "Loading...") {
		t.Errorf("body missing fallback: %q", body)
	}
	if !strings.Contains(body, `<template id="f1"><div>Resolved</div></template>`) {
		t.Errorf("body missing settled template chunk: %q", body)
	}
	if !rec.Flushed {
		t.Error("response was never flushed")
	}
}

func TestHandlerRejectedRenderIs500(t *testing.T) {
	h := &Handler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return vdom.Frame("/boom")
		},
		Options: render.Options{
			Resolve: func(ctx context.Context, src string) (any, error) {
				return nil, errors.New("backend down")
			},
		},
		Logger: quietLogger(),
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandlerOverLiveServer(t *testing.T) {
	h := &Handler{
		RenderFunc: func(r *http.Request) *vdom.Element {
			return vdom.Div(vdom.Text(r.URL.Path))
		},
		Logger: quietLogger(),
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/page")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<div>/page</div>") {
		t.Errorf("body = %q", body)
	}
}
