package vdom

import (
	"github.com/rmx-dev/rmx/pkg/dom"
)

// Key sets the reconciliation key.
func Key(k string) Attr { return Attr{Name: PropKey, Value: k} }

// Class sets the class attribute.
func Class(class string) Attr { return Attr{Name: "class", Value: class} }

// ID sets the id attribute.
func ID(id string) Attr { return Attr{Name: "id", Value: id} }

// Href sets the href attribute.
func Href(href string) Attr { return Attr{Name: "href", Value: href} }

// Src sets the src attribute.
func Src(src string) Attr { return Attr{Name: "src", Value: src} }

// Type sets the type attribute.
func Type(t string) Attr { return Attr{Name: "type", Value: t} }

// Name sets the name attribute.
func Name(n string) Attr { return Attr{Name: "name", Value: n} }

// Value sets the value property.
func Value(v string) Attr { return Attr{Name: "value", Value: v} }

// Placeholder sets the placeholder attribute.
func Placeholder(p string) Attr { return Attr{Name: "placeholder", Value: p} }

// Disabled sets the disabled state.
func Disabled(d bool) Attr { return Attr{Name: "disabled", Value: d} }

// Checked sets the checked property.
func Checked(c bool) Attr { return Attr{Name: "checked", Value: c} }

// Data sets a data-* attribute.
func Data(suffix, value string) Attr { return Attr{Name: "data-" + suffix, Value: value} }

// Style sets the style attribute from a declaration string or a
// map[string]any property map.
func Style(v any) Attr { return Attr{Name: "style", Value: v} }

// CSS sets the css prop, resolved through the style processor to a
// generated class plus an inserted rule.
func CSS(v any) Attr { return Attr{Name: PropCSS, Value: v} }

// On registers an event listener. Repeated On attrs on one element merge
// into a single listener map.
func On(typ string, fn dom.Handler) Attr {
	return Attr{Name: PropOn, Value: Listeners{typ: fn}}
}

// OnClick registers a click listener.
func OnClick(fn dom.Handler) Attr { return On("click", fn) }

// OnInput registers an input listener.
func OnInput(fn dom.Handler) Attr { return On("input", fn) }

// OnSubmit registers a submit listener.
func OnSubmit(fn dom.Handler) Attr { return On("submit", fn) }

// Connect registers a host lifecycle callback. The context cancels when
// the node is removed or the connect prop changes.
func Connect(fn ConnectFunc) Attr { return Attr{Name: PropConnect, Value: fn} }

// Fallback sets a boundary fallback: a *Element, or a func(error)
// *Element invoked with the raised error.
func Fallback(v any) Attr { return Attr{Name: PropFallback, Value: v} }

// OnError sets a Catch boundary's error sink.
func OnError(fn func(error)) Attr { return Attr{Name: PropOnError, Value: fn} }
