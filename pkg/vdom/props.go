package vdom

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/style"
)

// attrPreferred lists names that map to attributes even though the node
// exposes a same-named property. Static identity and layout names
// serialize as attributes so markup round-trips; live state names
// (value, checked, selected, disabled, open) stay properties.
var attrPreferred = map[string]bool{
	"id": true, "title": true, "lang": true, "dir": true, "type": true,
	"name": true, "href": true, "src": true, "alt": true, "width": true,
	"height": true, "placeholder": true, "tabIndex": true, "target": true,
	"rel": true, "download": true, "min": true, "max": true, "step": true,
	"pattern": true, "rowSpan": true, "colSpan": true, "list": true,
	"form": true, "role": true, "popover": true, "htmlFor": true,
}

// svgCaseNames keeps the camelCase SVG attribute names that must not be
// kebab-cased.
var svgCaseNames = map[string]bool{
	"viewBox": true, "preserveAspectRatio": true, "patternUnits": true,
	"patternContentUnits": true, "patternTransform": true,
	"gradientUnits": true, "gradientTransform": true, "spreadMethod": true,
	"markerWidth": true, "markerHeight": true, "markerUnits": true,
	"refX": true, "refY": true, "clipPathUnits": true, "maskUnits": true,
	"maskContentUnits": true, "primitiveUnits": true, "filterUnits": true,
	"baseFrequency": true, "numOctaves": true, "stdDeviation": true,
	"tableValues": true, "stitchTiles": true, "surfaceScale": true,
	"specularConstant": true, "specularExponent": true, "diffuseConstant": true,
	"pointsAtX": true, "pointsAtY": true, "pointsAtZ": true,
	"limitingConeAngle": true, "kernelMatrix": true, "kernelUnitLength": true,
	"edgeMode": true, "xChannelSelector": true, "yChannelSelector": true,
	"startOffset": true, "textLength": true, "lengthAdjust": true,
	"repeatCount": true, "repeatDur": true, "keyTimes": true,
	"keySplines": true, "keyPoints": true, "calcMode": true,
	"attributeName": true, "attributeType": true, "baseProfile": true,
	"systemLanguage": true, "requiredExtensions": true, "requiredFeatures": true,
}

var svgAliasNames = map[string]string{
	"xlinkHref": "xlink:href",
	"xmlLang":   "xml:lang",
	"xmlSpace":  "xml:space",
}

// AttrName maps a prop key to the attribute name it serializes as. SVG
// names kebab-case except the camelCase set the SVG grammar defines;
// xlink and xml prefixes are restored from their camelCase aliases.
func AttrName(name string, svg bool) string {
	if !svg {
		return name
	}
	if alias, ok := svgAliasNames[name]; ok {
		return alias
	}
	if svgCaseNames[name] {
		return name
	}
	return style.CSSName(name)
}

// applyProps commits next.El.Props onto a freshly created or adopted
// node, correcting any attribute the server markup got wrong.
func (r *Root) applyProps(next *VNode) {
	r.diffProps(nil, next.El.Props, next)
}

// diffProps reconciles the prop maps of two same-tag host vnodes. next
// already carries the committed node.
func (r *Root) diffProps(prev, nextProps Props, next *VNode) {
	n := next.node
	svg := n.Namespace() == "svg"

	for name := range prev {
		if _, ok := nextProps[name]; ok {
			continue
		}
		switch name {
		case PropKey, PropChildren:
		case PropOn:
			if next.container != nil {
				next.container.Dispose()
				next.container = nil
			}
		case PropCSS:
			r.clearStyleClass(next)
		case PropConnect:
			if next.connectCancel != nil {
				next.connectCancel()
				next.connectCancel = nil
			}
		case "style":
			n.RemoveAttr("style")
		case "class":
			n.RemoveAttr("class")
			if next.styleClass != "" {
				n.AddClass(next.styleClass)
			}
		default:
			r.clearProp(n, name, svg)
		}
	}

	for name, val := range nextProps {
		switch name {
		case PropKey, PropChildren:
		case PropOn:
			r.applyListeners(next, val)
		case PropCSS:
			r.applyCSS(next, prev[name], val)
		case PropConnect:
			r.applyConnect(next, prev[name], val)
		case "style":
			r.applyStyle(n, val)
		case "class":
			r.applyClass(next, val)
		default:
			r.applyProp(n, name, val, svg)
		}
	}
}

func (r *Root) applyProp(n *dom.Node, name string, val any, svg bool) {
	if reflect.ValueOf(val).Kind() == reflect.Func {
		return
	}
	switch v := val.(type) {
	case nil:
		r.clearProp(n, name, svg)
	case bool:
		if n.HasProp(name) && !attrPreferred[name] {
			n.SetProp(name, v)
		} else if v {
			n.SetAttr(AttrName(name, svg), "")
		} else {
			n.RemoveAttr(AttrName(name, svg))
		}
	default:
		if n.HasProp(name) && !attrPreferred[name] {
			n.SetProp(name, val)
		} else {
			n.SetAttr(AttrName(name, svg), propText(val))
		}
	}
}

func (r *Root) clearProp(n *dom.Node, name string, svg bool) {
	if n.HasProp(name) && !attrPreferred[name] {
		n.DeleteProp(name)
		return
	}
	n.RemoveAttr(AttrName(name, svg))
}

func propText(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// applyClass writes the class attribute, keeping the css-derived class
// appended when one is active.
func (r *Root) applyClass(next *VNode, val any) {
	cls := propText(val)
	if next.styleClass != "" {
		if cls == "" {
			cls = next.styleClass
		} else {
			cls += " " + next.styleClass
		}
	}
	next.node.SetAttr("class", cls)
}

func (r *Root) applyListeners(next *VNode, val any) {
	handlers, _ := val.(Listeners)
	if len(handlers) == 0 {
		if next.container != nil {
			next.container.Dispose()
			next.container = nil
		}
		return
	}
	if next.container == nil {
		v := next
		next.container = r.factory(next.node, func(err error) {
			r.raiseFrom(v, err)
		})
	}
	next.container.Set(map[string]dom.Handler(handlers))
}

// applyCSS resolves the css prop through the processor and swaps the
// sheet reference when the rule changed.
func (r *Root) applyCSS(next *VNode, prevVal, val any) {
	if val == nil {
		r.clearStyleClass(next)
		return
	}
	class, rule := r.proc.Process(val)
	if class == "" {
		r.clearStyleClass(next)
		return
	}
	if class == next.styleClass {
		return
	}
	r.clearStyleClass(next)
	r.sheet.Insert(class, rule)
	next.styleClass = class
	next.node.AddClass(class)
}

func (r *Root) clearStyleClass(next *VNode) {
	if next.styleClass == "" {
		return
	}
	next.node.RemoveClass(next.styleClass)
	r.sheet.Remove(next.styleClass)
	next.styleClass = ""
}

// applyConnect runs the connect callback once per distinct function,
// cancelling the previous one when the function identity changes.
func (r *Root) applyConnect(next *VNode, prevVal, val any) {
	fn, _ := val.(ConnectFunc)
	if fn == nil {
		if f, ok := val.(func(context.Context, *dom.Node)); ok {
			fn = f
		}
	}
	if fn == nil {
		if next.connectCancel != nil {
			next.connectCancel()
			next.connectCancel = nil
		}
		return
	}
	if prevFn, ok := prevVal.(ConnectFunc); ok && sameFunc(prevFn, fn) && next.connectCancel != nil {
		return
	}
	if next.connectCancel != nil {
		next.connectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	next.connectCancel = cancel
	fn(ctx, next.node)
}

func sameFunc(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// applyStyle serializes the style prop. Maps are written in sorted
// declaration order so output is stable.
func (r *Root) applyStyle(n *dom.Node, val any) {
	switch v := val.(type) {
	case nil:
		n.RemoveAttr("style")
	case string:
		n.SetAttr("style", v)
	default:
		decls := style.Declarations(val)
		if decls == "" {
			n.RemoveAttr("style")
			return
		}
		n.SetAttr("style", decls)
	}
}
