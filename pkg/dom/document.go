package dom

import (
	"fmt"
	"strconv"
)

// Document owns a live node tree, assigns node ids, tracks focus, and
// accumulates the mutation log.
type Document struct {
	nextID    uint64
	nodes     map[uint64]*Node
	active    *Node
	mutations []Mutation
	recording bool
}

// NewDocument creates an empty document. Mutation recording starts off
// so baseline tree construction stays out of the log; enable it with
// SetRecording once the baseline is committed.
func NewDocument() *Document {
	return &Document{
		nodes: make(map[uint64]*Node),
	}
}

// CreateElement creates a detached HTML element node.
func (d *Document) CreateElement(tag string) *Node {
	return d.createElement(tag, "")
}

// CreateElementNS creates a detached element in the given namespace.
// The reconciler uses namespace "svg" for SVG subtrees.
func (d *Document) CreateElementNS(tag, namespace string) *Node {
	return d.createElement(tag, namespace)
}

func (d *Document) createElement(tag, namespace string) *Node {
	n := &Node{
		doc:       d,
		id:        d.nextNodeID(),
		kind:      ElementNode,
		tag:       tag,
		namespace: namespace,
		attrs:     make(map[string]string),
	}
	d.nodes[n.id] = n
	d.record(Mutation{Op: MutCreateElement, Target: n.id, Name: tag, Value: namespace})
	return n
}

// CreateText creates a detached text node.
func (d *Document) CreateText(data string) *Node {
	n := &Node{doc: d, id: d.nextNodeID(), kind: TextNode, data: data}
	d.nodes[n.id] = n
	d.record(Mutation{Op: MutCreateText, Target: n.id, Value: data})
	return n
}

// CreateComment creates a detached comment node.
func (d *Document) CreateComment(data string) *Node {
	n := &Node{doc: d, id: d.nextNodeID(), kind: CommentNode, data: data}
	d.nodes[n.id] = n
	d.record(Mutation{Op: MutCreateComment, Target: n.id, Value: data})
	return n
}

// NodeByID returns the node with the given id, or nil.
func (d *Document) NodeByID(id uint64) *Node { return d.nodes[id] }

// ActiveElement returns the currently focused element, or nil.
func (d *Document) ActiveElement() *Node { return d.active }

func (d *Document) nextNodeID() uint64 {
	d.nextID++
	return d.nextID
}

// record appends a mutation if recording is enabled.
func (d *Document) record(m Mutation) {
	if d.recording {
		d.mutations = append(d.mutations, m)
	}
}

// SetRecording toggles mutation recording. Parsing server HTML disables
// it so adoption baselines start from an empty log.
func (d *Document) SetRecording(on bool) { d.recording = on }

// TakeMutations returns the accumulated mutation log and clears it.
func (d *Document) TakeMutations() []Mutation {
	m := d.mutations
	d.mutations = nil
	return m
}

// Mutations returns the accumulated log without clearing it.
func (d *Document) Mutations() []Mutation { return d.mutations }

// MutationOp identifies a mutation record type.
type MutationOp uint8

const (
	MutCreateElement MutationOp = iota + 1
	MutCreateText
	MutCreateComment
	MutInsert
	MutRemove
	MutSetText
	MutSetAttr
	MutRemoveAttr
	MutSetProp
	MutRemoveProp
	MutFocus
)

// String returns the string representation of the MutationOp.
func (op MutationOp) String() string {
	switch op {
	case MutCreateElement:
		return "CreateElement"
	case MutCreateText:
		return "CreateText"
	case MutCreateComment:
		return "CreateComment"
	case MutInsert:
		return "Insert"
	case MutRemove:
		return "Remove"
	case MutSetText:
		return "SetText"
	case MutSetAttr:
		return "SetAttr"
	case MutRemoveAttr:
		return "RemoveAttr"
	case MutSetProp:
		return "SetProp"
	case MutRemoveProp:
		return "RemoveProp"
	case MutFocus:
		return "Focus"
	default:
		return "Unknown"
	}
}

// Mutation is one entry in the document's mutation log.
type Mutation struct {
	Op     MutationOp
	Target uint64 // node the mutation applies to
	Parent uint64 // for Insert
	Ref    uint64 // for Insert: node inserted before (0 = append)
	Name   string // attribute/property/tag name
	Value  string
}

// String returns a compact human-readable form, used in test failures.
func (m Mutation) String() string {
	s := m.Op.String() + " #" + strconv.FormatUint(m.Target, 10)
	if m.Name != "" {
		s += " " + m.Name
	}
	if m.Value != "" {
		s += "=" + strconv.Quote(m.Value)
	}
	return s
}

// propString renders a property value for the mutation log.
func propString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
