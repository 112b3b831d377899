package vdom

import (
	"log/slog"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// cursor walks a parent's existing children during hydration so the
// inserter can adopt server-rendered nodes instead of creating new
// ones. Comment nodes are skipped: the server emits marker comments the
// element tree does not model. All methods accept a nil receiver, which
// behaves as an exhausted cursor.
type cursor struct {
	parent *dom.Node
	next   *dom.Node
	dead   bool
}

func newCursor(parent *dom.Node) *cursor {
	return &cursor{parent: parent, next: parent.FirstChild()}
}

// peek returns the next adoptable node, or nil when the cursor is
// exhausted or abandoned.
func (c *cursor) peek() *dom.Node {
	if c == nil || c.dead {
		return nil
	}
	for c.next != nil && c.next.Kind() == dom.CommentNode {
		c.next = c.next.NextSibling()
	}
	return c.next
}

// take consumes the node peek returned.
func (c *cursor) take() {
	if c == nil || c.next == nil {
		return
	}
	c.next = c.next.NextSibling()
}

// abandon stops adoption for the rest of this child list and drops the
// stale server markup immediately, so later inserts append into a clean
// list.
func (c *cursor) abandon(log *slog.Logger) {
	if c == nil || c.dead {
		return
	}
	c.dead = true
	c.drop(log)
}

// removeExcess drops server-rendered children the client tree did not
// claim, marker comments included.
func (c *cursor) removeExcess(log *slog.Logger) {
	if c == nil || c.dead {
		return
	}
	c.drop(log)
}

func (c *cursor) drop(log *slog.Logger) {
	n := c.next
	c.next = nil
	excess := 0
	for n != nil {
		sib := n.NextSibling()
		if n.Kind() != dom.CommentNode {
			excess++
		}
		c.parent.RemoveChild(n)
		n = sib
	}
	if excess > 0 && log != nil {
		log.Warn("hydration removed unclaimed server nodes",
			"tag", c.parent.Tag(), "count", excess)
	}
}
