package dom

// Event is a dispatched document event. Events bubble from the target up
// the parent chain unless stopped.
type Event struct {
	Type    string
	Target  *Node
	Payload map[string]any

	stopped   bool
	prevented bool
}

// StopPropagation prevents further bubbling.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Handler handles a dispatched event.
type Handler func(*Event)

// listener pairs a handler with a removal token.
type listener struct {
	fn Handler
}

// ListenerHandle removes a previously added listener.
type ListenerHandle struct {
	node *Node
	typ  string
	l    *listener
}

// Remove detaches the listener. Safe to call more than once.
func (h *ListenerHandle) Remove() {
	if h == nil || h.node == nil {
		return
	}
	ls := h.node.listeners[h.typ]
	for i, l := range ls {
		if l == h.l {
			ls = append(ls[:i], ls[i+1:]...)
			if len(ls) == 0 {
				delete(h.node.listeners, h.typ)
			} else {
				h.node.listeners[h.typ] = ls
			}
			break
		}
	}
	h.node = nil
}

// AddListener registers an event handler on the node.
func (n *Node) AddListener(typ string, fn Handler) *ListenerHandle {
	if n.listeners == nil {
		n.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	n.listeners[typ] = append(n.listeners[typ], l)
	return &ListenerHandle{node: n, typ: typ, l: l}
}

// HasListeners reports whether the node has any listeners attached.
func (n *Node) HasListeners() bool { return len(n.listeners) > 0 }

// ListenerTypes returns the event types with at least one listener.
func (n *Node) ListenerTypes() []string {
	var types []string
	for typ, ls := range n.listeners {
		if len(ls) > 0 {
			types = append(types, typ)
		}
	}
	return types
}

// Dispatch fires an event at this node and bubbles it up the tree.
func (n *Node) Dispatch(typ string, payload map[string]any) *Event {
	ev := &Event{Type: typ, Target: n, Payload: payload}
	for node := n; node != nil && !ev.stopped; node = node.parent {
		ls := node.listeners[typ]
		for _, l := range append([]*listener(nil), ls...) {
			l.fn(ev)
			if ev.stopped {
				break
			}
		}
	}
	return ev
}
