package vdom

import (
	"context"
	"log/slog"
)

// Ctx is the capability surface a component function receives. It is
// stable for the life of the instance; props and children are refreshed
// before every render.
type Ctx struct {
	inst     *Instance
	props    Props
	children []*Element
}

// ID returns the stable per-instance id.
func (c *Ctx) ID() uint64 { return c.inst.id }

// Props returns the props of the current render.
func (c *Ctx) Props() Props { return c.props }

// Children returns the element children of the current render.
func (c *Ctx) Children() []*Element { return c.children }

// Update requests a re-render of this component, enqueueing any given
// tasks to run after the update is applied. Calling Update after the
// instance was torn down is a no-op that logs a diagnostic.
func (c *Ctx) Update(tasks ...func()) {
	in := c.inst
	if in.removed {
		in.log.Warn("update on removed component", "component", in.name, "id", in.id)
		return
	}
	in.tasks = append(in.tasks, tasks...)
	if in.scheduleUpdate != nil {
		in.scheduleUpdate()
	}
}

// QueueTask enqueues a task to run after the next flush without forcing
// a re-render.
func (c *Ctx) QueueTask(task func()) {
	in := c.inst
	if in.removed {
		in.log.Warn("queueTask on removed component", "component", in.name, "id", in.id)
		return
	}
	in.queueTask(task)
}

// Raise reports an out-of-band error to the nearest Catch boundary.
func (c *Ctx) Raise(err error) {
	if c.inst.raise != nil {
		c.inst.raise(err)
	}
}

// SetContext publishes a context value readable by descendants. It may
// be set once per render; later calls in the same render overwrite.
func (c *Ctx) SetContext(v any) {
	c.inst.ctxVal = v
	c.inst.hasCtxVal = true
}

// Signal returns the teardown signal: cancelled exactly once, when the
// instance is permanently removed. Long-lived subscriptions registered
// during setup must bind their cleanup to it.
func (c *Ctx) Signal() context.Context { return c.inst.life }

// RenderSignal returns the supersession signal of the current render:
// cancelled the instant a newer render of this instance begins. Async
// work tied to one render must check it before touching state.
func (c *Ctx) RenderSignal() context.Context { return c.inst.renderCtx }

// LookupContext walks the ancestry for the nearest published context
// value assignable to T.
func LookupContext[T any](c *Ctx) (T, bool) {
	for p := c.inst.vnode; p != nil; p = p.parent {
		if p.Kind != KComponent || p.inst == nil || p.inst == c.inst {
			continue
		}
		if !p.inst.hasCtxVal {
			continue
		}
		if val, ok := p.inst.ctxVal.(T); ok {
			return val, true
		}
	}
	var zero T
	return zero, false
}

// Instance is the long-lived state of one component tree position.
type Instance struct {
	id   uint64
	name string
	fn   ComponentFunc
	ctx  *Ctx
	log  *slog.Logger

	// Setup decision: after the first setup call the instance is either
	// stateful (render re-invoked per update) or stateless (setup re-run
	// from scratch per update).
	decided bool
	render  RenderFunc

	// Teardown signal, cancelled once at permanent removal.
	life       context.Context
	lifeCancel context.CancelFunc

	// Supersession signal of the current render.
	renderCtx    context.Context
	renderCancel context.CancelFunc

	tasks   []func()
	removed bool

	ctxVal    any
	hasCtxVal bool

	vnode          *VNode
	scheduleUpdate func()
	queueTask      func(func())
	raise          func(error)
}

func newInstance(id uint64, el *Element, log *slog.Logger) *Instance {
	life, cancel := context.WithCancel(context.Background())
	in := &Instance{
		id:         id,
		name:       el.FnName,
		fn:         el.Fn,
		log:        log,
		life:       life,
		lifeCancel: cancel,
	}
	in.ctx = &Ctx{inst: in}
	return in
}

// Name returns the component's name, used in diagnostics.
func (in *Instance) Name() string { return in.name }

// ID returns the stable instance id.
func (in *Instance) ID() uint64 { return in.id }

// renderElement runs one render cycle: supersedes the previous render's
// signal, refreshes props, and invokes setup or the stored render phase.
// A render panic propagates to the enclosing Catch scope.
func (in *Instance) renderElement(el *Element) *Element {
	if in.removed {
		in.log.Warn("render on removed component", "component", in.name, "id", in.id)
		return nil
	}
	if in.renderCancel != nil {
		in.renderCancel()
	}
	in.renderCtx, in.renderCancel = context.WithCancel(context.Background())
	in.ctx.props = el.Props
	in.ctx.children = el.Children
	in.ctxVal, in.hasCtxVal = nil, false

	var out any
	if in.decided && in.render != nil {
		out = in.render(in.ctx)
	} else {
		out = in.fn(in.ctx)
		if rf, ok := out.(RenderFunc); ok {
			in.render = rf
			out = rf(in.ctx)
		} else if ff, ok := out.(func(c *Ctx) any); ok {
			in.render = RenderFunc(ff)
			out = ff(in.ctx)
		}
		in.decided = true
	}
	return ToElement(out)
}

// remove tears the instance down: the teardown signal fires once, and
// any pending tasks are returned for deferred execution.
func (in *Instance) remove() []func() {
	if in.removed {
		return nil
	}
	in.removed = true
	if in.renderCancel != nil {
		in.renderCancel()
	}
	in.lifeCancel()
	tasks := in.tasks
	in.tasks = nil
	return tasks
}

// takeTasks drains tasks accumulated by Update calls during a render.
func (in *Instance) takeTasks() []func() {
	t := in.tasks
	in.tasks = nil
	return t
}
