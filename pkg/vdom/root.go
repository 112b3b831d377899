package vdom

import (
	"fmt"
	"log/slog"

	"github.com/rmx-dev/rmx/pkg/dom"
	"github.com/rmx-dev/rmx/pkg/events"
	"github.com/rmx-dev/rmx/pkg/style"
)

// FrameResolver resolves a Frame's src to renderable content.
type FrameResolver func(src string) (any, error)

// Root mounts an element tree into a container node and reconciles
// subsequent renders against the committed tree. Style sheet, style
// processor, and event-container factory are injected so independent
// roots never share state.
type Root struct {
	container *dom.Node
	vnode     *VNode
	sched     *Scheduler
	ownSched  bool
	sheet     style.Sheet
	proc      style.Processor
	factory   events.Factory
	resolve   FrameResolver
	onError   func(error)
	log       *slog.Logger

	nextInstID uint64
}

// RootOption configures a Root.
type RootOption func(*Root)

// WithLogger sets the diagnostic logger.
func WithLogger(log *slog.Logger) RootOption {
	return func(r *Root) { r.log = log }
}

// WithSheet sets the style sheet service.
func WithSheet(s style.Sheet) RootOption {
	return func(r *Root) { r.sheet = s }
}

// WithProcessor sets the css prop processor.
func WithProcessor(p style.Processor) RootOption {
	return func(r *Root) { r.proc = p }
}

// WithEventFactory sets the event-container factory.
func WithEventFactory(f events.Factory) RootOption {
	return func(r *Root) { r.factory = f }
}

// WithErrorSink sets the sink for errors that reach a Catch boundary
// without a boundary-local onError handler.
func WithErrorSink(fn func(error)) RootOption {
	return func(r *Root) { r.onError = fn }
}

// WithFrameResolver sets the Frame content resolver.
func WithFrameResolver(fn FrameResolver) RootOption {
	return func(r *Root) { r.resolve = fn }
}

// WithScheduler shares an existing scheduler, so one Flush drains
// several roots (sub-frames created from a parent share the parent's).
func WithScheduler(s *Scheduler) RootOption {
	return func(r *Root) {
		r.sched = s
		r.ownSched = false
	}
}

// NewRoot creates a root over the container node.
func NewRoot(container *dom.Node, opts ...RootOption) *Root {
	r := &Root{
		container: container,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sheet == nil {
		r.sheet = style.NewSheet()
	}
	if r.proc == nil {
		r.proc = style.NewCache(style.NewProcessor())
	}
	if r.factory == nil {
		r.factory = events.NewContainer
	}
	if r.sched == nil {
		r.sched = NewScheduler(r.rerenderComponent)
		r.ownSched = true
	} else if r.sched.rerender == nil {
		r.sched.rerender = r.rerenderComponent
	}
	r.vnode = &VNode{Kind: KRoot, node: container}
	return r
}

// Scheduler returns the root's scheduler.
func (r *Root) Scheduler() *Scheduler { return r.sched }

// Sheet returns the root's style sheet service.
func (r *Root) Sheet() style.Sheet { return r.sheet }

// Container returns the container node.
func (r *Root) Container() *dom.Node { return r.container }

// content returns the committed top-level vnode, or nil before the
// first render.
func (r *Root) content() *VNode {
	if len(r.vnode.children) == 0 {
		return nil
	}
	return r.vnode.children[0]
}

// Render reconciles the element tree against the committed tree. An
// error raised with no enclosing Catch boundary is returned.
func (r *Root) Render(el *Element) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()
	next := r.normalizeTop(el)
	r.diff(r.content(), next, r.container, r.vnode, nil, nil)
	r.vnode.children = []*VNode{next}
	return nil
}

// Hydrate mounts the element tree by adopting the container's existing
// children instead of creating fresh nodes. Mismatches recover locally
// and are logged.
func (r *Root) Hydrate(el *Element) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()
	if r.content() != nil {
		return fmt.Errorf("hydrate on a non-empty root")
	}
	next := r.normalizeTop(el)
	cur := newCursor(r.container)
	r.insert(next, r.container, r.vnode, nil, cur)
	cur.removeExcess(r.log)
	r.vnode.children = []*VNode{next}
	return nil
}

// Flush synchronously drains pending scheduled updates and tasks.
func (r *Root) Flush() { r.sched.Flush() }

// Unmount removes the committed tree, tearing down instances, event
// containers, and style references.
func (r *Root) Unmount() {
	if c := r.content(); c != nil {
		r.remove(c, true)
	}
	r.vnode.children = nil
}

func (r *Root) normalizeTop(el *Element) *VNode {
	if el == nil {
		el = &Element{Kind: ElemFragment}
	}
	return newVNode(el)
}

// rerenderComponent re-renders one scheduled component in place. A
// render error walks to the nearest Catch boundary; with none, it goes
// to the error sink.
func (r *Root) rerenderComponent(v *VNode) {
	defer func() {
		if rec := recover(); rec != nil {
			r.raiseFrom(v.parent, recoveredError(rec))
		}
	}()
	in := v.inst
	contentEl := in.renderElement(v.El)
	next := r.normalizeTop(contentEl)
	parent := hostParent(v)
	anchor := nextAnchor(v)
	r.diff(v.content, next, parent, v, anchor, nil)
	v.content = next
	r.sched.EnqueueTasks(in.takeTasks())
}

// raiseFrom routes an error raised outside a render scope (event
// handler, explicit Raise) to the nearest committed, untripped Catch
// ancestor. With no boundary the error goes to the sink.
func (r *Root) raiseFrom(v *VNode, err error) {
	if c := nearestCatch(v); c != nil {
		r.tripCatch(c, err)
		return
	}
	r.sink(nil, err)
}

// sink dispatches a caught error to the boundary's onError prop, or the
// root's error sink, or the log.
func (r *Root) sink(boundary *VNode, err error) {
	if boundary != nil {
		if fn, ok := boundary.El.Props[PropOnError].(func(error)); ok {
			fn(err)
			return
		}
	}
	if r.onError != nil {
		r.onError(err)
		return
	}
	r.log.Error("unhandled render error", "err", err)
}

// tripCatch replaces a committed boundary's children with its fallback.
func (r *Root) tripCatch(c *VNode, err error) {
	parent := hostParent(c)
	anchor := nextAnchor(c)
	for _, child := range c.children {
		r.remove(child, true)
	}
	c.children = nil
	fb := r.normalizeTop(fallbackElement(c.El, err))
	r.insert(fb, parent, c, anchor, nil)
	c.fallback = fb
	c.tripped = true
	r.sink(c, err)
}

// fallbackElement resolves a boundary's fallback prop for an error.
func fallbackElement(el *Element, err error) *Element {
	switch fb := el.Props[PropFallback].(type) {
	case *Element:
		return fb
	case func(error) *Element:
		return fb(err)
	case func(error) any:
		return ToElement(fb(err))
	case nil:
		return nil
	default:
		return ToElement(fb)
	}
}

func recoveredError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("render: %v", rec)
}
