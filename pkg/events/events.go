// Package events provides the per-host-node event container capability.
// The reconciler attaches one container to each committed host node whose
// element carries an "on" prop; Set replaces the active listener map in
// place so handler identity changes never detach and reattach DOM
// listeners, and Dispose detaches everything when the node is removed.
package events

import (
	"fmt"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// Container manages the live listeners of one host node.
type Container interface {
	// Set replaces the active listener map.
	Set(listeners map[string]dom.Handler)
	// Dispose detaches all listeners. The container is unusable after.
	Dispose()
}

// Factory creates containers. Injected into the reconciler so tests can
// observe attachment.
type Factory func(node *dom.Node, onError func(error)) Container

// NewContainer creates the default container. Handler panics are
// recovered and routed to onError instead of unwinding the dispatch.
func NewContainer(node *dom.Node, onError func(error)) Container {
	return &container{node: node, onError: onError, active: make(map[string]dom.Handler)}
}

type container struct {
	node     *dom.Node
	onError  func(error)
	active   map[string]dom.Handler
	handles  map[string]*dom.ListenerHandle
	disposed bool
}

func (c *container) Set(listeners map[string]dom.Handler) {
	if c.disposed {
		return
	}
	if c.handles == nil {
		c.handles = make(map[string]*dom.ListenerHandle)
	}
	// Detach types no longer present.
	for typ, h := range c.handles {
		if _, ok := listeners[typ]; !ok {
			h.Remove()
			delete(c.handles, typ)
			delete(c.active, typ)
		}
	}
	// Attach new types; existing types only swap the map entry.
	for typ, fn := range listeners {
		c.active[typ] = fn
		if _, ok := c.handles[typ]; !ok {
			typ := typ
			c.handles[typ] = c.node.AddListener(typ, func(ev *dom.Event) {
				c.invoke(typ, ev)
			})
		}
	}
}

func (c *container) invoke(typ string, ev *dom.Event) {
	fn := c.active[typ]
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && c.onError != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("event handler %q: %v", typ, r)
			}
			c.onError(err)
		}
	}()
	fn(ev)
}

func (c *container) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	for _, h := range c.handles {
		h.Remove()
	}
	c.handles = nil
	c.active = nil
}
