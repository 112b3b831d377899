package vdom

import (
	"strings"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// insert commits next under parent, before anchor. When cur is non-nil
// the inserter first tries to adopt the cursor's node (hydration)
// instead of creating a fresh one.
func (r *Root) insert(next *VNode, parent *dom.Node, vparent *VNode, anchor *dom.Node, cur *cursor) {
	next.parent = vparent
	switch next.Kind {
	case KText:
		r.insertText(next, parent, anchor, cur)
	case KHost:
		r.insertHost(next, parent, anchor, cur)
	case KComponent:
		r.insertComponent(next, parent, anchor, cur)
	case KFragment:
		next.children = childVNodes(next.El)
		for _, c := range next.children {
			r.insert(c, parent, next, anchor, cur)
		}
	case KCatch:
		r.insertCatch(next, parent, anchor, cur)
	case KFrame:
		r.insertFrame(next, parent, anchor, cur)
	}
}

func (r *Root) insertText(next *VNode, parent *dom.Node, anchor *dom.Node, cur *cursor) {
	if c := cur.peek(); c != nil {
		if c.Kind() == dom.TextNode {
			next.node = c
			if c.Data() != next.El.Text {
				r.log.Warn("hydration text mismatch",
					"server", c.Data(), "client", next.El.Text)
				c.SetData(next.El.Text)
			}
			cur.take()
			return
		}
		r.log.Warn("hydration mismatch: expected text node",
			"got", c.Kind().String(), "tag", c.Tag())
		cur.abandon(r.log)
	}
	next.node = parent.Document().CreateText(next.El.Text)
	parent.InsertBefore(next.node, anchor)
}

func (r *Root) insertHost(next *VNode, parent *dom.Node, anchor *dom.Node, cur *cursor) {
	el := next.El
	adopted := false
	if c := cur.peek(); c != nil {
		if c.Kind() == dom.ElementNode && strings.EqualFold(c.Tag(), el.Tag) {
			next.node = c
			adopted = true
			cur.take()
		} else {
			r.log.Warn("hydration mismatch: tag",
				"server", c.Tag(), "client", el.Tag)
			cur.abandon(r.log)
		}
	}
	if !adopted {
		doc := parent.Document()
		if el.Tag == "svg" || parent.Namespace() == "svg" {
			next.node = doc.CreateElementNS(el.Tag, "svg")
		} else {
			next.node = doc.CreateElement(el.Tag)
		}
	}

	r.applyProps(next)

	var childCur *cursor
	if adopted {
		childCur = newCursor(next.node)
	}
	next.children = childVNodes(el)
	for _, c := range next.children {
		r.insert(c, next.node, next, nil, childCur)
	}
	if adopted {
		childCur.removeExcess(r.log)
	} else {
		parent.InsertBefore(next.node, anchor)
	}
}

func (r *Root) insertComponent(next *VNode, parent *dom.Node, anchor *dom.Node, cur *cursor) {
	r.nextInstID++
	in := newInstance(r.nextInstID, next.El, r.log)
	in.scheduleUpdate = func() { r.sched.Enqueue(in.vnode) }
	in.queueTask = func(t func()) { r.sched.EnqueueTasks([]func(){t}) }
	in.raise = func(err error) { r.raiseFrom(in.vnode, err) }
	next.inst = in
	in.vnode = next

	contentEl := in.renderElement(next.El)
	content := r.normalizeTop(contentEl)
	next.content = content
	r.insert(content, parent, next, anchor, cur)
	r.sched.EnqueueTasks(in.takeTasks())
}

func (r *Root) insertCatch(next *VNode, parent *dom.Node, anchor *dom.Node, cur *cursor) {
	children := childVNodes(next.El)
	inserted := 0
	err := r.guard(func() {
		for _, c := range children {
			r.insert(c, parent, next, anchor, cur)
			inserted++
		}
	})
	if err == nil {
		next.children = children
		return
	}
	// Remove everything this pass inserted, including the child that
	// failed partway, then show the fallback at the boundary position.
	for i := 0; i <= inserted && i < len(children); i++ {
		r.remove(children[i], true)
	}
	fb := r.normalizeTop(fallbackElement(next.El, err))
	r.insert(fb, parent, next, anchor, nil)
	next.fallback = fb
	next.tripped = true
	r.sink(next, err)
}

func (r *Root) insertFrame(next *VNode, parent *dom.Node, anchor *dom.Node, cur *cursor) {
	src, _ := next.El.Props[PropSrc].(string)
	doc := parent.Document()
	next.start = doc.CreateComment("frame:start:" + src)
	next.end = doc.CreateComment("frame:end:" + src)
	hydrating := cur.peek() != nil
	if hydrating {
		// The frame's content was server-rendered between marker
		// comments the cursor skips. Append fresh markers, adopt the
		// content, then pull the markers around it.
		anchor = nil
	}
	parent.InsertBefore(next.start, anchor)
	parent.InsertBefore(next.end, anchor)

	content := r.normalizeTop(r.resolveFrameContent(next))
	if hydrating {
		r.insert(content, parent, next, nil, cur)
	} else {
		r.insert(content, parent, next, next.end, cur)
	}
	next.children = []*VNode{content}
	if hydrating {
		if nodes := domRange(content); len(nodes) > 0 {
			parent.InsertBefore(next.start, nodes[0])
			parent.InsertBefore(next.end, nodes[len(nodes)-1].NextSibling())
		}
	}
}

// resolveFrameContent resolves a frame's content, falling back to the
// fallback prop when no resolver is configured or resolution fails.
func (r *Root) resolveFrameContent(v *VNode) *Element {
	src, _ := v.El.Props[PropSrc].(string)
	if r.resolve != nil {
		out, err := r.resolve(src)
		if err == nil {
			return ToElement(out)
		}
		r.log.Warn("frame resolution failed", "src", src, "err", err)
	}
	return fallbackElement(v.El, nil)
}

// remove discards a committed vnode: event containers disposed, connect
// contexts cancelled, style references released, component instances
// torn down. detach controls whether the vnode's own document nodes are
// unlinked; false for subtrees whose host ancestor is being detached
// anyway.
func (r *Root) remove(v *VNode, detach bool) {
	if v == nil || v.moved {
		return
	}
	switch v.Kind {
	case KText:
		if detach && v.node != nil && v.node.Parent() != nil {
			v.node.Parent().RemoveChild(v.node)
		}
	case KHost:
		if v.container != nil {
			v.container.Dispose()
			v.container = nil
		}
		if v.connectCancel != nil {
			v.connectCancel()
			v.connectCancel = nil
		}
		if v.styleClass != "" {
			r.sheet.Remove(v.styleClass)
			v.styleClass = ""
		}
		for _, c := range v.children {
			r.remove(c, false)
		}
		if detach && v.node != nil && v.node.Parent() != nil {
			v.node.Parent().RemoveChild(v.node)
		}
	case KComponent:
		if v.inst != nil {
			r.sched.EnqueueTasks(v.inst.remove())
		}
		r.remove(v.content, detach)
	case KFragment:
		for _, c := range v.children {
			r.remove(c, detach)
		}
	case KCatch:
		if v.tripped {
			r.remove(v.fallback, detach)
		} else {
			for _, c := range v.children {
				r.remove(c, detach)
			}
		}
	case KFrame:
		for _, c := range v.children {
			r.remove(c, detach)
		}
		if detach {
			for _, n := range []*dom.Node{v.start, v.end} {
				if n != nil && n.Parent() != nil {
					n.Parent().RemoveChild(n)
				}
			}
		}
	}
}
