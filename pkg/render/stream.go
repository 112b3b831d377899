package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rmx-dev/rmx/pkg/vdom"
)

// Stream is a chunked render in progress. The first chunk is the
// document shell; later chunks carry frame content in settlement order.
// After the chunk channel closes, Err reports whether the render
// completed or was rejected.
type Stream struct {
	ch chan []byte

	mu  sync.Mutex
	err error
}

// Chunks returns the chunk channel. It closes when the render settles
// or fails.
func (s *Stream) Chunks() <-chan []byte { return s.ch }

// Err reports the render failure, if any. Valid after Chunks closes.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Drain consumes a stream to completion and concatenates its chunks.
func Drain(s *Stream) (string, error) {
	var sb strings.Builder
	for chunk := range s.Chunks() {
		sb.Write(chunk)
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderToStream renders el as a chunked HTML stream. The synchronous
// part of the tree, head synthesis included, forms the first chunk;
// each non-blocking frame contributes a later template chunk when its
// resolution settles. The stream is rejected on the first uncaught
// error.
func RenderToStream(ctx context.Context, el *vdom.Element, opts Options) *Stream {
	s := &Stream{ch: make(chan []byte, 1)}
	j := newJob(ctx, opts)
	go j.run(s, el)
	return s
}

// RenderToString renders el to a complete HTML string, waiting for
// every frame to settle.
func RenderToString(ctx context.Context, el *vdom.Element, opts Options) (string, error) {
	return Drain(RenderToStream(ctx, el, opts))
}

func (j *job) run(s *Stream, el *vdom.Element) {
	defer close(s.ch)

	var shell bytes.Buffer
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if e, ok := rec.(error); ok {
					err = e
				} else {
					err = fmt.Errorf("%v", rec)
				}
			}
		}()
		return j.renderNode(&shell, el, "", "", false)
	}()
	if err != nil {
		j.reject(s, err)
		return
	}

	s.ch <- j.assemble(&shell)

	for j.pending > 0 {
		select {
		case <-j.ctx.Done():
			j.reject(s, j.ctx.Err())
			return
		case settled := <-j.settled:
			j.pending--
			if settled.err != nil {
				j.reject(s, fmt.Errorf("render: frame %s (%s): %w", settled.id, settled.src, settled.err))
				return
			}
			var tmp bytes.Buffer
			fmt.Fprintf(&tmp, `<template id="%s">`, settled.id)
			// The head chunk is already flushed; hoistables in
			// deferred content render in place.
			if err := j.renderNode(&tmp, vdom.ToElement(settled.content), "", settled.id, true); err != nil {
				j.reject(s, err)
				return
			}
			tmp.WriteString("</template>")
			s.ch <- tmp.Bytes()
		}
	}
}

// reject marks the stream failed and drains outstanding resolutions so
// their goroutines can exit.
func (j *job) reject(s *Stream, err error) {
	s.fail(err)
	if j.opts.OnError != nil {
		j.opts.OnError(err)
	}
	if n := j.pending; n > 0 {
		go func() {
			for i := 0; i < n; i++ {
				<-j.settled
			}
		}()
	}
	j.pending = 0
}

// assemble builds the first chunk: doctype, shell, and the synthesized
// or spliced head content.
func (j *job) assemble(shell *bytes.Buffer) []byte {
	var headContent bytes.Buffer
	if len(j.styles) > 0 {
		headContent.WriteString(`<style data-rmx-styles>`)
		for _, rule := range j.styles {
			headContent.WriteString(rule)
		}
		headContent.WriteString("</style>")
	}
	headContent.Write(j.head.Bytes())

	body := shell.Bytes()
	var out bytes.Buffer
	out.Grow(len(body) + headContent.Len() + 64)

	isHTML := j.firstTag == "html"
	if isHTML {
		out.WriteString("<!doctype html>")
	}

	switch {
	case headContent.Len() == 0:
		out.Write(body)
	case j.sawHead:
		out.Write(body[:j.headAt])
		out.Write(headContent.Bytes())
		out.Write(body[j.headAt:])
	case isHTML:
		out.Write(body[:j.htmlAt])
		out.WriteString("<head>")
		out.Write(headContent.Bytes())
		out.WriteString("</head>")
		out.Write(body[j.htmlAt:])
	default:
		out.WriteString("<head>")
		out.Write(headContent.Bytes())
		out.WriteString("</head>")
		out.Write(body)
	}
	return out.Bytes()
}

type frameMeta struct {
	ID     string `json:"id"`
	Src    string `json:"src"`
	Status string `json:"status"`
	Name   string `json:"name,omitempty"`
}

func (j *job) renderFrame(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	src, _ := el.Props[vdom.PropSrc].(string)
	name, _ := el.Props[vdom.PropName].(string)
	id := j.nextFrameID(frameID)
	_, nonBlocking := el.Props[vdom.PropFallback]

	fmt.Fprintf(buf, "<!-- frame:start:%s -->", id)

	status := "resolved"
	if nonBlocking && j.opts.Resolve != nil {
		status = "pending"
		if err := j.renderNode(buf, vdom.FallbackFor(el, nil), ns, id, inHead); err != nil {
			return err
		}
		j.pending++
		go func() {
			content, err := j.opts.Resolve(j.ctx, src)
			j.settled <- settledFrame{id: id, src: src, content: content, err: err}
		}()
	} else if j.opts.Resolve != nil {
		content, err := j.opts.Resolve(j.ctx, src)
		if err != nil {
			return fmt.Errorf("render: frame %s (%s): %w", id, src, err)
		}
		if err := j.renderNode(buf, vdom.ToElement(content), ns, id, inHead); err != nil {
			return err
		}
	} else {
		// No resolver: the fallback is all the content there is.
		if err := j.renderNode(buf, vdom.FallbackFor(el, nil), ns, id, inHead); err != nil {
			return err
		}
	}

	fmt.Fprintf(buf, "<!-- frame:end:%s -->", id)

	meta, err := json.Marshal(frameMeta{ID: id, Src: src, Status: status, Name: name})
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, `<script type="application/json" rmx-frame="%s">%s</script>`, id, meta)
	return nil
}
