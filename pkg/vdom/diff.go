package vdom

import (
	"github.com/rmx-dev/rmx/pkg/dom"
)

// diff transforms the committed prev into next, applying minimal
// mutations under parent. A nil prev inserts; a type change replaces;
// otherwise state moves from prev into next per kind. anchor is the
// document node next's content must precede (nil appends). cur is the
// hydration cursor, only non-nil during initial adoption.
func (r *Root) diff(prev, next *VNode, parent *dom.Node, vparent *VNode, anchor *dom.Node, cur *cursor) {
	next.parent = vparent
	if prev == nil {
		r.insert(next, parent, vparent, anchor, cur)
		return
	}
	if !sameType(prev, next) {
		r.replace(prev, next, parent, vparent)
		return
	}
	switch next.Kind {
	case KText:
		r.diffText(prev, next)
	case KHost:
		r.diffHost(prev, next)
	case KComponent:
		r.diffComponent(prev, next, parent, anchor)
	case KFragment:
		r.diffChildrenOf(prev, next, parent, anchor)
	case KCatch:
		r.diffCatch(prev, next, parent, vparent, anchor)
	case KFrame:
		r.diffFrame(prev, next, parent)
	}
}

// replace inserts next at prev's position, then removes prev.
func (r *Root) replace(prev, next *VNode, parent *dom.Node, vparent *VNode) {
	anchor := firstNode(prev)
	if anchor == nil {
		anchor = nextAnchor(prev)
	}
	r.insert(next, parent, vparent, anchor, nil)
	r.remove(prev, true)
}

func (r *Root) diffText(prev, next *VNode) {
	next.node = prev.node
	prev.moved = true
	if prev.El.Text != next.El.Text {
		next.node.SetData(next.El.Text)
	}
}

func (r *Root) diffHost(prev, next *VNode) {
	next.node = prev.node
	next.container = prev.container
	next.connectCancel = prev.connectCancel
	next.styleClass = prev.styleClass
	prev.moved = true

	// Children first, then props.
	nextChildren := childVNodes(next.El)
	r.diffChildren(prev.children, nextChildren, next.node, next, nil)
	next.children = nextChildren

	r.diffProps(prev.El.Props, next.El.Props, next)
}

func (r *Root) diffComponent(prev, next *VNode, parent *dom.Node, anchor *dom.Node) {
	in := prev.inst
	next.inst = in
	in.vnode = next
	prev.moved = true

	contentEl := in.renderElement(next.El)
	contentNext := r.normalizeTop(contentEl)
	r.diff(prev.content, contentNext, parent, next, anchor, nil)
	next.content = contentNext
	r.sched.EnqueueTasks(in.takeTasks())
}

// diffChildrenOf handles fragments: children diff positionally against
// the region's tail anchor.
func (r *Root) diffChildrenOf(prev, next *VNode, parent *dom.Node, anchor *dom.Node) {
	prev.moved = true
	tail := nextAnchor(prev)
	if tail == nil {
		tail = anchor
	}
	nextChildren := childVNodes(next.El)
	r.diffChildren(prev.children, nextChildren, parent, next, tail)
	next.children = nextChildren
}

func (r *Root) diffCatch(prev, next *VNode, parent *dom.Node, vparent *VNode, anchor *dom.Node) {
	if prev.tripped {
		// A tripped boundary is not re-attempted in place: the whole
		// subtree is rebuilt from scratch.
		r.replace(prev, next, parent, vparent)
		return
	}
	prev.moved = true
	tail := nextAnchor(prev)
	if tail == nil {
		tail = anchor
	}
	nextChildren := childVNodes(next.El)
	err := r.guard(func() {
		r.diffChildren(prev.children, nextChildren, parent, next, tail)
	})
	if err == nil {
		next.children = nextChildren
		return
	}
	// Tear down whatever either list still holds, then show fallback.
	for _, c := range nextChildren {
		r.remove(c, true)
	}
	for _, c := range prev.children {
		r.remove(c, true)
	}
	fb := r.normalizeTop(fallbackElement(next.El, err))
	r.insert(fb, parent, next, tail, nil)
	next.fallback = fb
	next.tripped = true
	r.sink(next, err)
}

func (r *Root) diffFrame(prev, next *VNode, parent *dom.Node) {
	next.start, next.end = prev.start, prev.end
	prev.moved = true

	prevSrc, _ := prev.El.Props[PropSrc].(string)
	nextSrc, _ := next.El.Props[PropSrc].(string)
	if prevSrc == nextSrc {
		// Same source resolves to the same content; adopt it.
		next.children = prev.children
		for _, c := range next.children {
			c.parent = next
		}
		return
	}
	content := r.normalizeTop(r.resolveFrameContent(next))
	if len(prev.children) > 0 {
		r.diff(prev.children[0], content, parent, next, next.end, nil)
	} else {
		r.insert(content, parent, next, next.end, nil)
	}
	next.children = []*VNode{content}
}

// guard runs fn, converting a panic into the returned error.
func (r *Root) guard(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()
	fn()
	return nil
}

// childVNodes builds uncommitted vnodes for an element's children.
func childVNodes(el *Element) []*VNode {
	out := make([]*VNode, 0, len(el.Children))
	for _, c := range el.Children {
		if v := newVNode(c); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// diffChildren reconciles two ordered child lists. Matching is strictly
// positional unless a key appears in either list; keys match prev
// children out of position, preserving node and instance identity, and
// a reposition pass re-anchors the document ranges in next order.
func (r *Root) diffChildren(prev, next []*VNode, parent *dom.Node, vparent *VNode, anchor *dom.Node) {
	if hasKeys(prev) || hasKeys(next) {
		r.diffKeyedChildren(prev, next, parent, vparent, anchor)
		return
	}
	n := len(prev)
	if len(next) > n {
		n = len(next)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(next):
			r.remove(prev[i], true)
		case i >= len(prev):
			r.diff(nil, next[i], parent, vparent, anchor, nil)
		default:
			r.diff(prev[i], next[i], parent, vparent, anchor, nil)
		}
	}
}

func (r *Root) diffKeyedChildren(prev, next []*VNode, parent *dom.Node, vparent *VNode, anchor *dom.Node) {
	prevByKey := make(map[string]*VNode)
	for _, p := range prev {
		if p.Key != "" {
			prevByKey[p.Key] = p
		}
	}
	used := make(map[*VNode]bool)

	// Unkeyed next children fall back to positional matching against
	// unkeyed prev children.
	var unkeyedPrev []*VNode
	for _, p := range prev {
		if p.Key == "" {
			unkeyedPrev = append(unkeyedPrev, p)
		}
	}
	unkeyedIdx := 0

	for _, nx := range next {
		var p *VNode
		if nx.Key != "" {
			if cand := prevByKey[nx.Key]; cand != nil && !used[cand] && sameType(cand, nx) {
				p = cand
			}
		} else if unkeyedIdx < len(unkeyedPrev) {
			p = unkeyedPrev[unkeyedIdx]
			unkeyedIdx++
		}
		if p != nil {
			used[p] = true
		}
		r.diff(p, nx, parent, vparent, anchor, nil)
	}
	for _, p := range prev {
		if !used[p] && !p.moved {
			r.remove(p, true)
		}
	}
	// Reposition pass: walk next in reverse, anchoring each child's
	// document range before the one after it.
	a := anchor
	for i := len(next) - 1; i >= 0; i-- {
		nodes := domRange(next[i])
		for j := len(nodes) - 1; j >= 0; j-- {
			parent.InsertBefore(nodes[j], a)
			a = nodes[j]
		}
	}
}

// domRange collects the top-level document nodes of v's subtree in
// order.
func domRange(v *VNode) []*dom.Node {
	switch v.Kind {
	case KText, KHost:
		if v.node != nil {
			return []*dom.Node{v.node}
		}
		return nil
	case KComponent:
		if v.content != nil {
			return domRange(v.content)
		}
		return nil
	case KFrame:
		var out []*dom.Node
		if v.start != nil {
			out = append(out, v.start)
		}
		for _, c := range v.children {
			out = append(out, domRange(c)...)
		}
		if v.end != nil {
			out = append(out, v.end)
		}
		return out
	case KCatch:
		if v.tripped {
			if v.fallback != nil {
				return domRange(v.fallback)
			}
			return nil
		}
		fallthrough
	default:
		var out []*dom.Node
		for _, c := range v.children {
			out = append(out, domRange(c)...)
		}
		return out
	}
}

func hasKeys(list []*VNode) bool {
	for _, v := range list {
		if v.Key != "" {
			return true
		}
	}
	return false
}
