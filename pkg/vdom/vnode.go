package vdom

import (
	"context"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/events"
)

// VKind is the virtual-node type discriminator.
type VKind uint8

const (
	KText VKind = iota
	KHost
	KComponent
	KFragment
	KCatch
	KFrame
	KRoot
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KText:
		return "Text"
	case KHost:
		return "Host"
	case KComponent:
		return "Component"
	case KFragment:
		return "Fragment"
	case KCatch:
		return "Catch"
	case KFrame:
		return "Frame"
	case KRoot:
		return "Root"
	default:
		return "Unknown"
	}
}

// VNode is the reconciler's stateful mirror of one tree position. A
// VNode is created uncommitted from an Element; committing attaches the
// live document handles. The parent link is a non-owning back-reference
// used only for ancestry walks (context lookup, catch-boundary lookup,
// anchor lookup); ownership and traversal order run strictly top-down.
type VNode struct {
	Kind   VKind
	El     *Element
	Key    string
	parent *VNode

	// KText and KHost: the committed document node.
	node *dom.Node
	// KHost only.
	container     events.Container
	connectCancel context.CancelFunc
	styleClass    string

	// KHost, KFragment, KCatch (happy path), KFrame, KRoot: ordered
	// child vnodes in render order.
	children []*VNode

	// KComponent.
	inst    *Instance
	content *VNode

	// KCatch.
	fallback *VNode
	tripped  bool

	// moved marks a prev vnode whose committed state was adopted by its
	// successor during a diff; remove() must not tear the state down a
	// second time.
	moved bool

	// KFrame: comment anchors delimiting the frame's document range.
	start, end *dom.Node
}

// Node returns the committed document node for text and host vnodes.
func (v *VNode) Node() *dom.Node { return v.node }

// Instance returns the component instance for component vnodes.
func (v *VNode) Instance() *Instance { return v.inst }

// Content returns the vnode produced by a component's latest render.
func (v *VNode) Content() *VNode { return v.content }

// Tripped reports whether a Catch boundary is showing its fallback.
func (v *VNode) Tripped() bool { return v.tripped }

// Parent returns the parent vnode.
func (v *VNode) Parent() *VNode { return v.parent }

// newVNode creates an uncommitted vnode mirroring el.
func newVNode(el *Element) *VNode {
	if el == nil {
		return nil
	}
	var kind VKind
	switch el.Kind {
	case ElemText:
		kind = KText
	case ElemHost:
		kind = KHost
	case ElemComponent:
		kind = KComponent
	case ElemFragment:
		kind = KFragment
	case ElemCatch:
		kind = KCatch
	case ElemFrame:
		kind = KFrame
	}
	return &VNode{Kind: kind, El: el, Key: el.Key}
}

// sameType reports whether prev can be updated in place for next: the
// dispatch rule's type-stability check, including key stability.
func sameType(prev *VNode, next *VNode) bool {
	if prev.Kind != next.Kind || prev.Key != next.Key {
		return false
	}
	switch next.Kind {
	case KHost:
		return prev.El.Tag == next.El.Tag
	case KComponent:
		return SameComponent(prev.El.Fn, next.El.Fn)
	default:
		return true
	}
}

// firstNode returns the first committed document node in v's subtree,
// used to derive insertion anchors.
func firstNode(v *VNode) *dom.Node {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KText, KHost:
		return v.node
	case KComponent:
		return firstNode(v.content)
	case KFrame:
		return v.start
	case KCatch:
		if v.tripped {
			return firstNode(v.fallback)
		}
		fallthrough
	default:
		for _, c := range v.children {
			if n := firstNode(c); n != nil {
				return n
			}
		}
		return nil
	}
}

// hostParent returns the document node that v's own nodes live under.
func hostParent(v *VNode) *dom.Node {
	for p := v.parent; p != nil; p = p.parent {
		if p.Kind == KHost || p.Kind == KRoot {
			return p.node
		}
	}
	return nil
}

// nextAnchor returns the first committed document node after v within
// the same host parent, or nil if v's nodes are last.
func nextAnchor(v *VNode) *dom.Node {
	for cur := v; cur != nil; {
		p := cur.parent
		if p == nil {
			return nil
		}
		sibs := p.siblingsOf(cur)
		for _, sib := range sibs {
			if n := firstNode(sib); n != nil {
				return n
			}
		}
		if p.Kind == KHost || p.Kind == KRoot {
			return nil
		}
		cur = p
	}
	return nil
}

// siblingsOf returns the children of p that follow child.
func (p *VNode) siblingsOf(child *VNode) []*VNode {
	list := p.children
	if p.Kind == KComponent {
		// Component content has no siblings within the component.
		return nil
	}
	for i, c := range list {
		if c == child {
			return list[i+1:]
		}
	}
	return nil
}

// nearestCatch returns the closest committed, untripped Catch ancestor.
func nearestCatch(v *VNode) *VNode {
	for p := v; p != nil; p = p.parent {
		if p.Kind == KCatch && !p.tripped {
			return p
		}
	}
	return nil
}
