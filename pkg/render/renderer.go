package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/style"
	"github.com/rmx-dev/rmx/pkg/vdom"
)

// FrameResolver resolves a frame's src to renderable content. Blocking
// frames call it inline; non-blocking frames call it concurrently and
// ship the result as a later chunk.
type FrameResolver func(ctx context.Context, src string) (any, error)

// Options configures a render.
type Options struct {
	// Resolve supplies frame content. Rendering a Frame with no
	// resolver configured falls back to the frame's fallback prop.
	Resolve FrameResolver

	// Processor resolves css props. Defaults to the style package's
	// content-hashing processor.
	Processor style.Processor

	// OnError receives errors recovered by Catch boundaries during the
	// render, after the fallback was emitted.
	OnError func(error)

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Processor == nil {
		o.Processor = style.NewCache(style.NewProcessor())
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// job is the state of one render: hydration and frame id counters,
// collected styles, and hoisted head content. A job is driven by a
// single goroutine; only frame resolvers run concurrently, and they
// hand their results back over the settled channel.
type job struct {
	ctx  context.Context
	opts Options

	hid       int
	frameSeq  map[string]int
	styleSeen map[string]bool
	styles    []string

	head    bytes.Buffer
	sawHead bool
	headAt  int
	htmlAt  int

	firstTag string

	pending int
	settled chan settledFrame
}

type settledFrame struct {
	id      string
	src     string
	content any
	err     error
}

func newJob(ctx context.Context, opts Options) *job {
	opts.defaults()
	return &job{
		ctx:       ctx,
		opts:      opts,
		frameSeq:  make(map[string]int),
		styleSeen: make(map[string]bool),
		settled:   make(chan settledFrame),
	}
}

func (j *job) nextFrameID(parent string) string {
	j.frameSeq[parent]++
	if parent == "" {
		return fmt.Sprintf("f%d", j.frameSeq[parent])
	}
	return fmt.Sprintf("%s-%d", parent, j.frameSeq[parent])
}

// renderNode serializes el into buf. ns carries the namespace down the
// tree, frameID the enclosing frame's id for nested frame numbering,
// and inHead whether an explicit head element encloses this position.
func (j *job) renderNode(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	if el == nil {
		return nil
	}
	switch el.Kind {
	case vdom.ElemText:
		buf.WriteString(dom.EscapeText(el.Text))
		return nil
	case vdom.ElemFragment:
		for _, c := range el.Children {
			if err := j.renderNode(buf, c, ns, frameID, inHead); err != nil {
				return err
			}
		}
		return nil
	case vdom.ElemComponent:
		return j.renderComponent(buf, el, ns, frameID, inHead)
	case vdom.ElemCatch:
		return j.renderCatch(buf, el, ns, frameID, inHead)
	case vdom.ElemFrame:
		return j.renderFrame(buf, el, ns, frameID, inHead)
	case vdom.ElemHost:
		return j.renderHost(buf, el, ns, frameID, inHead)
	default:
		return fmt.Errorf("render: unknown element kind %s", el.Kind)
	}
}

func (j *job) renderHost(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	tag := el.Tag
	if !inHead && isHoistable(el) {
		return j.renderOpenTagAndChildren(&j.head, el, ns, frameID, true)
	}
	if j.firstTag == "" {
		j.firstTag = tag
	}
	return j.renderOpenTagAndChildren(buf, el, ns, frameID, inHead)
}

func (j *job) renderOpenTagAndChildren(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	tag := el.Tag
	if tag == "svg" {
		ns = "svg"
	}

	buf.WriteByte('<')
	buf.WriteString(tag)
	j.renderAttributes(buf, el, ns == "svg")
	buf.WriteByte('>')

	if tag == "html" {
		j.htmlAt = buf.Len()
	}
	if dom.IsVoidElement(tag) {
		return nil
	}

	childHead := inHead || tag == "head"
	raw := tag == "script" || tag == "style"
	for _, c := range el.Children {
		if raw && c.Kind == vdom.ElemText {
			buf.WriteString(c.Text)
			continue
		}
		if err := j.renderNode(buf, c, ns, frameID, childHead); err != nil {
			return err
		}
	}

	if tag == "head" {
		j.sawHead = true
		j.headAt = buf.Len()
	}
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
	return nil
}

// isHoistable reports whether an element belongs in the document head
// regardless of where it was authored.
func isHoistable(el *vdom.Element) bool {
	switch el.Tag {
	case "title", "meta", "link":
		return true
	case "script":
		t, _ := el.Props["type"].(string)
		return t == "application/ld+json"
	}
	return false
}

func (j *job) renderAttributes(buf *bytes.Buffer, el *vdom.Element, svg bool) {
	if len(el.Props) == 0 {
		return
	}
	keys := make([]string, 0, len(el.Props))
	for k := range el.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	class, _ := el.Props["class"].(string)
	if cssVal, ok := el.Props[vdom.PropCSS]; ok && cssVal != nil {
		cls, rule := j.opts.Processor.Process(cssVal)
		if cls != "" {
			if !j.styleSeen[cls] {
				j.styleSeen[cls] = true
				j.styles = append(j.styles, rule)
			}
			if class == "" {
				class = cls
			} else {
				class += " " + cls
			}
		}
	}
	if class != "" {
		fmt.Fprintf(buf, ` class="%s"`, dom.EscapeAttr(class))
	}

	for _, key := range keys {
		switch key {
		case vdom.PropKey, vdom.PropChildren, vdom.PropOn, vdom.PropCSS,
			vdom.PropConnect, vdom.PropFallback, vdom.PropOnError, "class":
			continue
		}
		val := el.Props[key]
		if val == nil {
			continue
		}
		if reflect.ValueOf(val).Kind() == reflect.Func {
			continue
		}
		name := vdom.AttrName(key, svg)
		switch v := val.(type) {
		case bool:
			if v {
				buf.WriteByte(' ')
				buf.WriteString(name)
			}
		case map[string]any:
			if key == "style" {
				if decls := style.Declarations(v); decls != "" {
					fmt.Fprintf(buf, ` style="%s"`, dom.EscapeAttr(decls))
				}
				continue
			}
			fmt.Fprintf(buf, ` %s="%s"`, name, dom.EscapeAttr(attrToString(v)))
		default:
			fmt.Fprintf(buf, ` %s="%s"`, name, dom.EscapeAttr(attrToString(val)))
		}
	}
}

func attrToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (j *job) renderComponent(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	if el.Hy != nil {
		return j.renderHydrated(buf, el, ns, frameID, inHead)
	}
	out := vdom.RenderOnce(el, j.opts.Logger)
	return j.renderNode(buf, vdom.ToElement(out), ns, frameID, inHead)
}

func (j *job) renderHydrated(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	j.hid++
	id := fmt.Sprintf("h%d", j.hid)

	buf.WriteString("<!-- " + vdom.HydrationMarkerStart + " -->")
	out := vdom.RenderOnce(el, j.opts.Logger)
	if err := j.renderNode(buf, vdom.ToElement(out), ns, frameID, inHead); err != nil {
		return err
	}
	buf.WriteString("<!-- " + vdom.HydrationMarkerEnd + " -->")

	payload := struct {
		ModuleURL  string         `json:"moduleUrl"`
		ExportName string         `json:"exportName"`
		Props      map[string]any `json:"props"`
		ID         string         `json:"id"`
	}{el.Hy.ModuleURL, el.Hy.ExportName, serializeProps(el.Props), id}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("render: hydration props for %s#%s: %w", el.Hy.ModuleURL, el.Hy.ExportName, err)
	}
	buf.WriteString(`<script type="application/json" ` + vdom.HydrationScriptAttr + `>`)
	buf.Write(raw)
	buf.WriteString("</script>")
	return nil
}

// serializeProps deep-serializes props for a hydration payload. Element
// values become {$rmx, type, props} literals; function values drop.
func serializeProps(props vdom.Props) map[string]any {
	if len(props) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch k {
		case vdom.PropKey, vdom.PropChildren, vdom.PropOn, vdom.PropConnect:
			continue
		}
		if sv, ok := serializeValue(v); ok {
			out[k] = sv
		}
	}
	return out
}

func serializeValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case *vdom.Element:
		return serializeElement(t), true
	case []*vdom.Element:
		items := make([]any, 0, len(t))
		for _, el := range t {
			items = append(items, serializeElement(el))
		}
		return items, true
	}
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return nil, false
	}
	return v, true
}

func serializeElement(el *vdom.Element) any {
	if el == nil {
		return nil
	}
	if el.Kind == vdom.ElemText {
		return el.Text
	}
	typ := el.Tag
	if el.Kind == vdom.ElemComponent {
		typ = el.FnName
	}
	props := serializeProps(el.Props)
	if len(el.Children) > 0 {
		kids := make([]any, 0, len(el.Children))
		for _, c := range el.Children {
			kids = append(kids, serializeElement(c))
		}
		props["children"] = kids
	}
	return map[string]any{"$rmx": true, "type": typ, "props": props}
}

func (j *job) renderCatch(buf *bytes.Buffer, el *vdom.Element, ns, frameID string, inHead bool) error {
	var tmp bytes.Buffer
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
		for _, c := range el.Children {
			if err := j.renderNode(&tmp, c, ns, frameID, inHead); err != nil {
				return err
			}
		}
		return nil
	}()
	if err == nil {
		buf.Write(tmp.Bytes())
		return nil
	}
	fb := vdom.FallbackFor(el, err)
	if rerr := j.renderNode(buf, fb, ns, frameID, inHead); rerr != nil {
		return rerr
	}
	if sink, ok := el.Props[vdom.PropOnError].(func(error)); ok && sink != nil {
		sink(err)
	} else if j.opts.OnError != nil {
		j.opts.OnError(err)
	} else {
		j.opts.Logger.Error("render: boundary caught error", "err", err)
	}
	return nil
}
