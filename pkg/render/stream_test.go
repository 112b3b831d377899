package render

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rmx-dev/rmx/pkg/vdom"
)

func collectChunks(t *testing.T, s *Stream) []string {
	t.Helper()
	var chunks []string
	for c := range s.Chunks() {
		chunks = append(chunks, string(c))
	}
	return chunks
}

func TestNonBlockingFrameStreamsInTwoChunks(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		return vdom.Div(vdom.Text("Resolved")), nil
	}
	s := RenderToStream(context.Background(),
		vdom.Frame("/x", vdom.Fallback(vdom.Div(vdom.Text("Loading...")))),
		Options{Resolve: resolve})
	chunks := collectChunks(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("%d chunks, want 2: %v", len(chunks), chunks)
	}
	first, second := chunks[0], chunks[1]
	if !strings.Contains(first, "<!-- frame:start:f1 --><div>Loading...</div><!-- frame:end:f1 -->") {
		t.Errorf("first chunk = %q, want marked fallback", first)
	}
	if !strings.Contains(first, `rmx-frame="f1"`) || !strings.Contains(first, `"status":"pending"`) {
		t.Errorf("first chunk missing pending metadata: %q", first)
	}
	if second != `<template id="f1"><div>Resolved</div></template>` {
		t.Errorf("second chunk = %q", second)
	}
}

func TestDeferredFrameKeepsHoistablesInline(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		return vdom.Fragment(
			vdom.Title(vdom.Text("Late Title")),
			vdom.Div(vdom.Text("late body")),
		), nil
	}
	s := RenderToStream(context.Background(),
		vdom.Frame("/x", vdom.Fallback(vdom.Div(vdom.Text("Loading...")))),
		Options{Resolve: resolve})
	chunks := collectChunks(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("%d chunks, want 2", len(chunks))
	}
	want := `<template id="f1"><title>Late Title</title><div>late body</div></template>`
	if chunks[1] != want {
		t.Errorf("deferred chunk = %q, want %q", chunks[1], want)
	}
	if strings.Contains(chunks[0], "Late Title") {
		t.Errorf("shell chunk leaked deferred head content: %q", chunks[0])
	}
}

func TestBlockingFrameRendersInline(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		return vdom.Div(vdom.Text("Inline")), nil
	}
	s := RenderToStream(context.Background(), vdom.Frame("/x"), Options{Resolve: resolve})
	chunks := collectChunks(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("%d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0], "<div>Inline</div>") {
		t.Errorf("chunk = %q, want inline content", chunks[0])
	}
	if !strings.Contains(chunks[0], `"status":"resolved"`) {
		t.Errorf("chunk missing resolved metadata: %q", chunks[0])
	}
}

func TestSiblingFramesEmitInSettlementOrder(t *testing.T) {
	release := make(chan struct{})
	resolve := func(ctx context.Context, src string) (any, error) {
		if src == "/slow" {
			<-release
			return vdom.Div(vdom.Text("slow")), nil
		}
		return vdom.Div(vdom.Text("fast")), nil
	}
	fb := func() vdom.Attr { return vdom.Fallback(vdom.Span(vdom.Text("..."))) }
	s := RenderToStream(context.Background(), vdom.Div(
		vdom.Frame("/slow", fb()),
		vdom.Frame("/fast", fb()),
	), Options{Resolve: resolve})

	var chunks []string
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for c := range s.Chunks() {
			mu.Lock()
			chunks = append(chunks, string(c))
			mu.Unlock()
		}
	}()

	// The fast frame's chunk lands while the slow one is still pending.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(chunks)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the fast frame chunk")
		case <-time.After(time.Millisecond):
		}
	}
	close(release)
	<-done
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("%d chunks, want 3", len(chunks))
	}
	if !strings.Contains(chunks[1], `id="f2"`) || !strings.Contains(chunks[1], "fast") {
		t.Errorf("second chunk = %q, want the fast frame (f2) first", chunks[1])
	}
	if !strings.Contains(chunks[2], `id="f1"`) || !strings.Contains(chunks[2], "slow") {
		t.Errorf("third chunk = %q, want the slow frame (f1) last", chunks[2])
	}
}

func TestNestedFramesNumberHierarchically(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		if src == "/outer" {
			return vdom.Div(
				vdom.Frame("/inner", vdom.Fallback(vdom.Span(vdom.Text("...")))),
			), nil
		}
		return vdom.Div(vdom.Text("inner done")), nil
	}
	s := RenderToStream(context.Background(),
		vdom.Frame("/outer", vdom.Fallback(vdom.Span(vdom.Text("...")))),
		Options{Resolve: resolve})
	chunks := collectChunks(t, s)
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("%d chunks, want 3: %v", len(chunks), chunks)
	}
	if !strings.Contains(chunks[1], `<template id="f1">`) {
		t.Errorf("outer template chunk = %q", chunks[1])
	}
	if !strings.Contains(chunks[1], "frame:start:f1-1") {
		t.Errorf("outer content = %q, want nested frame id f1-1", chunks[1])
	}
	if !strings.Contains(chunks[2], `<template id="f1-1">`) {
		t.Errorf("nested template chunk = %q", chunks[2])
	}
}

func TestFrameResolutionErrorRejectsStream(t *testing.T) {
	var sunk error
	resolve := func(ctx context.Context, src string) (any, error) {
		return nil, errors.New("backend down")
	}
	s := RenderToStream(context.Background(),
		vdom.Frame("/x", vdom.Fallback(vdom.Div(vdom.Text("...")))),
		Options{Resolve: resolve, OnError: func(err error) { sunk = err }})
	collectChunks(t, s)
	err := s.Err()
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("stream err = %v, want the resolution failure", err)
	}
	if sunk == nil {
		t.Error("OnError not called for the stream failure")
	}
}

func TestBlockingFrameErrorRejectsRender(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		return nil, errors.New("boom")
	}
	_, err := RenderToString(context.Background(), vdom.Frame("/x"), Options{Resolve: resolve})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want the blocking failure", err)
	}
}

func TestContextCancellationRejectsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	resolve := func(ctx context.Context, src string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := RenderToStream(ctx,
		vdom.Frame("/x", vdom.Fallback(vdom.Div(vdom.Text("...")))),
		Options{Resolve: resolve})
	<-s.Chunks() // shell
	cancel()
	collectChunks(t, s)
	if s.Err() == nil {
		t.Error("cancelled stream reported no error")
	}
}

func TestDrainConcatenatesChunks(t *testing.T) {
	resolve := func(ctx context.Context, src string) (any, error) {
		return vdom.Div(vdom.Text("late")), nil
	}
	out, err := RenderToString(context.Background(), vdom.Div(
		vdom.Text("early"),
		vdom.Frame("/x", vdom.Fallback(vdom.Span(vdom.Text("...")))),
	), Options{Resolve: resolve})
	if err != nil {
		t.Fatalf("RenderToString: %v", err)
	}
	if !strings.Contains(out, "early") || !strings.Contains(out, `<template id="f1"><div>late</div></template>`) {
		t.Errorf("out = %q", out)
	}
}
