package vdom

import "log/slog"

// RenderOnce runs a component element's setup and first render outside a
// live root. The throwaway instance is torn down immediately, so
// teardown signals registered during setup fire before this returns.
// Server rendering uses it to evaluate components without a document.
func RenderOnce(el *Element, log *slog.Logger) *Element {
	if el == nil || el.Kind != ElemComponent {
		return el
	}
	in := newInstance(0, el, log)
	out := in.renderElement(el)
	in.remove()
	return out
}

// FallbackFor resolves an element's fallback prop against an error:
// a literal element, or a func(error) variant invoked with err.
func FallbackFor(el *Element, err error) *Element {
	return fallbackElement(el, err)
}
