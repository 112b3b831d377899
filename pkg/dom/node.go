package dom

import "strings"

// NodeKind is the node type discriminator.
type NodeKind uint8

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	default:
		return "Unknown"
	}
}

// Node is one node in a live document tree. All nodes belong to exactly
// one Document; structural mutations go through the parent's methods so
// the document's mutation log stays accurate.
type Node struct {
	doc  *Document
	id   uint64
	kind NodeKind

	// Element fields.
	tag       string
	namespace string // "" for HTML, "svg" for SVG subtrees
	attrs     map[string]string
	attrOrder []string
	props     map[string]any
	listeners map[string][]*listener

	// Text/Comment data.
	data string

	parent   *Node
	children []*Node
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.kind }

// Tag returns the element tag name (lowercase), or "" for non-elements.
func (n *Node) Tag() string { return n.tag }

// Namespace returns the element namespace ("" for HTML, "svg" for SVG).
func (n *Node) Namespace() string { return n.namespace }

// ID returns the document-unique node id.
func (n *Node) ID() uint64 { return n.id }

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the parent node, or nil for a detached node.
func (n *Node) Parent() *Node { return n.parent }

// Data returns the text or comment data.
func (n *Node) Data() string { return n.data }

// SetData replaces the text or comment data. Setting identical data is a
// no-op and records no mutation.
func (n *Node) SetData(data string) {
	if n.data == data {
		return
	}
	n.data = data
	n.doc.record(Mutation{Op: MutSetText, Target: n.id, Value: data})
}

// Children returns the ordered child list. The returned slice is the
// node's own backing array; callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

// FirstChild returns the first child, or nil.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// NextSibling returns the node immediately after n in its parent, or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	sibs := n.parent.children
	for i, c := range sibs {
		if c == n {
			if i+1 < len(sibs) {
				return sibs[i+1]
			}
			return nil
		}
	}
	return nil
}

// PrevSibling returns the node immediately before n in its parent, or nil.
func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	sibs := n.parent.children
	for i, c := range sibs {
		if c == n {
			if i > 0 {
				return sibs[i-1]
			}
			return nil
		}
	}
	return nil
}

// indexOf returns the index of child in n's child list, or -1.
func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AppendChild appends child to n, detaching it from any previous parent.
func (n *Node) AppendChild(child *Node) {
	n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref in n's child list. A nil ref
// appends. Inserting a node at the position it already occupies is a
// no-op. If child is attached elsewhere it is moved.
func (n *Node) InsertBefore(child, ref *Node) {
	if child == nil || child == ref {
		return
	}
	// Already in position?
	if child.parent == n {
		if ref == nil {
			if n.LastChild() == child {
				return
			}
		} else if child.NextSibling() == ref {
			return
		}
	}
	if child.parent != nil {
		child.parent.detach(child)
	}
	idx := len(n.children)
	if ref != nil {
		if i := n.indexOf(ref); i >= 0 {
			idx = i
		}
	}
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
	child.parent = n
	var refID uint64
	if ref != nil {
		refID = ref.id
	}
	n.doc.record(Mutation{Op: MutInsert, Target: child.id, Parent: n.id, Ref: refID})
}

// RemoveChild removes child from n. Removing a node that is not a child
// of n is a no-op.
func (n *Node) RemoveChild(child *Node) {
	if child == nil || child.parent != n {
		return
	}
	n.detach(child)
	if n.doc.active == child || (n.doc.active != nil && n.doc.active.hasAncestor(child)) {
		n.doc.active = nil
	}
	n.doc.record(Mutation{Op: MutRemove, Target: child.id})
}

// ReplaceChild replaces old with child in n's child list.
func (n *Node) ReplaceChild(child, old *Node) {
	if old == nil || old.parent != n {
		return
	}
	n.InsertBefore(child, old)
	n.RemoveChild(old)
}

// detach unlinks child without recording a mutation. Callers record.
func (n *Node) detach(child *Node) {
	if i := n.indexOf(child); i >= 0 {
		n.children = append(n.children[:i], n.children[i+1:]...)
	}
	child.parent = nil
}

// hasAncestor reports whether anc is on n's parent chain (or is n).
func (n *Node) hasAncestor(anc *Node) bool {
	for p := n; p != nil; p = p.parent {
		if p == anc {
			return true
		}
	}
	return false
}

// Attr returns the attribute value, or "" when unset.
func (n *Node) Attr(name string) string { return n.attrs[name] }

// HasAttr reports whether the attribute is set, including when set to "".
func (n *Node) HasAttr(name string) bool {
	_, ok := n.attrs[name]
	return ok
}

// AttrNames returns attribute names in set order.
func (n *Node) AttrNames() []string { return n.attrOrder }

// SetAttr sets an attribute. Setting an attribute to its current value is
// a no-op and records no mutation.
func (n *Node) SetAttr(name, value string) {
	if n.kind != ElementNode {
		return
	}
	if cur, ok := n.attrs[name]; ok && cur == value {
		return
	}
	if _, ok := n.attrs[name]; !ok {
		n.attrOrder = append(n.attrOrder, name)
	}
	n.attrs[name] = value
	n.doc.record(Mutation{Op: MutSetAttr, Target: n.id, Name: name, Value: value})
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	for i, a := range n.attrOrder {
		if a == name {
			n.attrOrder = append(n.attrOrder[:i], n.attrOrder[i+1:]...)
			break
		}
	}
	n.doc.record(Mutation{Op: MutRemoveAttr, Target: n.id, Name: name})
}

// Prop returns the element property value and whether it is set.
func (n *Node) Prop(name string) (any, bool) {
	v, ok := n.props[name]
	return v, ok
}

// SetProp sets an element property (runtime state, not serialized).
// Setting a property to an equal scalar value records no mutation.
func (n *Node) SetProp(name string, value any) {
	if n.kind != ElementNode {
		return
	}
	if cur, ok := n.props[name]; ok && cur == value {
		return
	}
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	n.doc.record(Mutation{Op: MutSetProp, Target: n.id, Name: name, Value: propString(value)})
}

// DeleteProp clears an element property.
func (n *Node) DeleteProp(name string) {
	if _, ok := n.props[name]; !ok {
		return
	}
	delete(n.props, name)
	n.doc.record(Mutation{Op: MutRemoveProp, Target: n.id, Name: name})
}

// HasProp reports whether name is a live property on this element: either
// explicitly set, or a standard property for its tag.
func (n *Node) HasProp(name string) bool {
	if n.kind != ElementNode {
		return false
	}
	if _, ok := n.props[name]; ok {
		return true
	}
	return standardProps[name]
}

// standardProps are properties that exist on elements before being set,
// mirroring the browser's element prototypes closely enough for the
// property-vs-attribute preference rule.
var standardProps = map[string]bool{
	"id": true, "className": true, "title": true, "lang": true, "dir": true,
	"value": true, "checked": true, "selected": true, "disabled": true,
	"readOnly": true, "multiple": true, "placeholder": true, "type": true,
	"name": true, "href": true, "src": true, "alt": true, "width": true,
	"height": true, "hidden": true, "tabIndex": true, "contentEditable": true,
	"draggable": true, "spellcheck": true, "autofocus": true, "required": true,
	"min": true, "max": true, "step": true, "pattern": true, "open": true,
	"download": true, "target": true, "rel": true, "htmlFor": true,
	"rowSpan": true, "colSpan": true, "list": true, "form": true,
	"role": true, "popover": true,
}

// Classes returns the class attribute split on whitespace.
func (n *Node) Classes() []string {
	cls, _ := n.attrs["class"]
	if cls == "" {
		return nil
	}
	return strings.Fields(cls)
}

// AddClass appends a class to the class attribute if not present.
func (n *Node) AddClass(class string) {
	if class == "" {
		return
	}
	for _, c := range n.Classes() {
		if c == class {
			return
		}
	}
	cur := n.attrs["class"]
	if cur == "" {
		n.SetAttr("class", class)
	} else {
		n.SetAttr("class", cur+" "+class)
	}
}

// RemoveClass removes a class from the class attribute.
func (n *Node) RemoveClass(class string) {
	classes := n.Classes()
	out := classes[:0]
	found := false
	for _, c := range classes {
		if c == class {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return
	}
	if len(out) == 0 {
		n.RemoveAttr("class")
		return
	}
	n.SetAttr("class", strings.Join(out, " "))
}

// Focus makes this element the document's active element.
func (n *Node) Focus() {
	if n.kind != ElementNode {
		return
	}
	n.doc.active = n
	n.doc.record(Mutation{Op: MutFocus, Target: n.id})
}
