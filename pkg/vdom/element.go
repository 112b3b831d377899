package vdom

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// ElemKind is the element type discriminator.
type ElemKind uint8

const (
	ElemHost      ElemKind = iota // <div>, <button>, etc.
	ElemText                      // plain text
	ElemComponent                 // component function
	ElemFragment                  // grouping without a wrapper
	ElemCatch                     // error boundary
	ElemFrame                     // async boundary (SSR frame)
)

// String returns the string representation of the ElemKind.
func (k ElemKind) String() string {
	switch k {
	case ElemHost:
		return "Host"
	case ElemText:
		return "Text"
	case ElemComponent:
		return "Component"
	case ElemFragment:
		return "Fragment"
	case ElemCatch:
		return "Catch"
	case ElemFrame:
		return "Frame"
	default:
		return "Unknown"
	}
}

// Props holds attributes, listeners, and framework-reserved keys.
type Props map[string]any

// Reserved prop keys. These are framework-owned and never forwarded to
// host output.
const (
	PropKey      = "key"
	PropChildren = "children"
	PropOn       = "on"
	PropCSS      = "css"
	PropConnect  = "connect"
	PropFallback = "fallback"
	PropSrc      = "src"
	PropName     = "name"
	PropOnError  = "onError"
)

// ComponentFunc is a component. It is called once per instance with the
// instance's Ctx to run setup; the returned value is either terminal
// renderable content, or a RenderFunc to be re-invoked on every update.
type ComponentFunc func(c *Ctx) any

// RenderFunc is the render phase of a stateful component.
type RenderFunc func(c *Ctx) any

// ConnectFunc receives the committed host node. The context is cancelled
// when the node is removed or the connect prop changes.
type ConnectFunc func(ctx context.Context, n *dom.Node)

// Listeners is the value shape of the reserved "on" prop.
type Listeners map[string]dom.Handler

// HydrationRef marks a component for client hydration during SSR.
type HydrationRef struct {
	ModuleURL  string
	ExportName string
}

// Element is one node of the declarative UI tree. Elements are
// immutable once constructed; the reconciler never writes to them.
type Element struct {
	Kind     ElemKind
	Tag      string        // ElemHost
	Text     string        // ElemText
	Fn       ComponentFunc // ElemComponent
	FnName   string        // component name for diagnostics
	Props    Props
	Key      string
	Children []*Element
	Hy       *HydrationRef // non-nil when hydration-marked
}

// Attr is a single attribute for the variadic element constructors.
type Attr struct {
	Name  string
	Value any
}

// H creates a host element. Args may be nil (skipped), Attr, []Attr,
// Props, *Element, []*Element, string (text child), or any other value
// (stringified text child).
func H(tag string, args ...any) *Element {
	e := &Element{Kind: ElemHost, Tag: tag, Props: make(Props)}
	applyArgs(e, args)
	return e
}

// Text creates a text element.
func Text(s string) *Element {
	return &Element{Kind: ElemText, Text: s}
}

// Textf creates a formatted text element.
func Textf(format string, args ...any) *Element {
	return Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a wrapper element.
func Fragment(args ...any) *Element {
	e := &Element{Kind: ElemFragment, Props: make(Props)}
	applyArgs(e, args)
	return e
}

// Comp creates a component element.
func Comp(fn ComponentFunc, args ...any) *Element {
	e := &Element{Kind: ElemComponent, Fn: fn, FnName: funcName(fn), Props: make(Props)}
	applyArgs(e, args)
	return e
}

// Hydrated creates a component element marked for client hydration. The
// streaming renderer brackets its output in rmx:h markers and serializes
// props so the client can re-mount it from moduleURL/exportName.
func Hydrated(moduleURL, exportName string, fn ComponentFunc, args ...any) *Element {
	e := Comp(fn, args...)
	e.FnName = exportName
	e.Hy = &HydrationRef{ModuleURL: moduleURL, ExportName: exportName}
	return e
}

// Catch creates an error boundary. The fallback prop (set with
// Fallback) replaces the children when any descendant raises.
func Catch(args ...any) *Element {
	e := &Element{Kind: ElemCatch, Props: make(Props)}
	applyArgs(e, args)
	return e
}

// Frame creates an async boundary resolved by the frame resolver. With a
// fallback prop the frame is non-blocking during streaming; without one
// the stream waits for resolution.
func Frame(src string, args ...any) *Element {
	e := &Element{Kind: ElemFrame, Props: Props{PropSrc: src}}
	applyArgs(e, args)
	return e
}

func applyArgs(e *Element, args []any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Allows conditional children/attributes.
		case Attr:
			applyAttr(e, v)
		case []Attr:
			for _, a := range v {
				applyAttr(e, a)
			}
		case Props:
			for name, val := range v {
				applyAttr(e, Attr{Name: name, Value: val})
			}
		case *Element:
			if v != nil {
				e.Children = append(e.Children, v)
			}
		case []*Element:
			for _, child := range v {
				if child != nil {
					e.Children = append(e.Children, child)
				}
			}
		case string:
			e.Children = append(e.Children, Text(v))
		default:
			e.Children = append(e.Children, Text(fmt.Sprintf("%v", v)))
		}
	}
}

func applyAttr(e *Element, a Attr) {
	if a.Name == "" {
		return
	}
	switch a.Name {
	case PropKey:
		if s, ok := a.Value.(string); ok {
			e.Key = s
		} else {
			e.Key = fmt.Sprintf("%v", a.Value)
		}
	case PropOn:
		// Merge listener maps so repeated On(...) attrs accumulate.
		add, ok := a.Value.(Listeners)
		if !ok {
			return
		}
		cur, _ := e.Props[PropOn].(Listeners)
		if cur == nil {
			cur = make(Listeners, len(add))
			e.Props[PropOn] = cur
		}
		for typ, fn := range add {
			cur[typ] = fn
		}
	default:
		e.Props[a.Name] = a.Value
	}
}

// ToElement normalizes a renderable value to an element tree: nil is
// dropped, strings become text, slices become fragments.
func ToElement(v any) *Element {
	switch val := v.(type) {
	case nil:
		return nil
	case *Element:
		return val
	case string:
		return Text(val)
	case []*Element:
		return &Element{Kind: ElemFragment, Children: val}
	case []any:
		frag := &Element{Kind: ElemFragment}
		for _, item := range val {
			if el := ToElement(item); el != nil {
				frag.Children = append(frag.Children, el)
			}
		}
		return frag
	default:
		return Text(fmt.Sprintf("%v", val))
	}
}

// SameComponent reports whether two component functions are the same
// function, which is the component identity used by the reconciler.
func SameComponent(a, b ComponentFunc) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func funcName(fn ComponentFunc) string {
	if fn == nil {
		return ""
	}
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		full = full[i+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}
