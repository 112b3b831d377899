package dom

import (
	"reflect"
	"strings"
	"testing"
)

func TestRecordingStartsOff(t *testing.T) {
	doc := NewDocument()
	body := doc.CreateElement("body")
	div := doc.CreateElement("div")
	div.AppendChild(doc.CreateText("x"))
	body.AppendChild(div)
	if muts := doc.Mutations(); len(muts) != 0 {
		t.Errorf("fresh document recorded %v, want nothing before SetRecording", muts)
	}
	doc.SetRecording(true)
	div.SetAttr("class", "on")
	if muts := doc.TakeMutations(); len(muts) != 1 {
		t.Errorf("after SetRecording: %v, want the single SetAttr", muts)
	}
}

func TestInsertBeforeMovesAndAppends(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("ul")
	a := doc.CreateElement("li")
	b := doc.CreateElement("li")
	c := doc.CreateElement("li")
	parent.AppendChild(a)
	parent.AppendChild(b)
	parent.AppendChild(c)

	// Move c before a.
	parent.InsertBefore(c, a)
	got := []*Node{parent.Children()[0], parent.Children()[1], parent.Children()[2]}
	want := []*Node{c, a, b}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order after move = %v, want %v", tags(got), tags(want))
	}
	if c.Parent() != parent || c.NextSibling() != a {
		t.Error("moved node links wrong")
	}
}

func tags(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Tag()
	}
	return out
}

func TestInsertBeforeInPositionIsNoOp(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("div")
	a := doc.CreateElement("span")
	b := doc.CreateElement("span")
	parent.AppendChild(a)
	parent.AppendChild(b)

	doc.SetRecording(true)
	parent.InsertBefore(a, b)
	parent.InsertBefore(b, nil)
	if muts := doc.TakeMutations(); len(muts) != 0 {
		t.Errorf("in-position inserts recorded %v", muts)
	}
}

func TestRemoveChildOfOtherParentIsNoOp(t *testing.T) {
	doc := NewDocument()
	p1 := doc.CreateElement("div")
	p2 := doc.CreateElement("div")
	a := doc.CreateElement("span")
	p1.AppendChild(a)

	p2.RemoveChild(a)
	if a.Parent() != p1 {
		t.Error("RemoveChild by a non-parent detached the node")
	}
}

func TestSetAttrSameValueRecordsNothing(t *testing.T) {
	doc := NewDocument()
	n := doc.CreateElement("div")
	n.SetAttr("class", "card")

	doc.SetRecording(true)
	n.SetAttr("class", "card")
	if muts := doc.TakeMutations(); len(muts) != 0 {
		t.Errorf("redundant SetAttr recorded %v", muts)
	}
	n.SetAttr("class", "list")
	muts := doc.TakeMutations()
	if len(muts) != 1 || muts[0].Op != MutSetAttr || muts[0].Value != "list" {
		t.Errorf("muts = %v", muts)
	}
}

func TestAttrAndHasAttr(t *testing.T) {
	doc := NewDocument()
	n := doc.CreateElement("div")
	n.SetAttr("hidden", "")
	if !n.HasAttr("hidden") {
		t.Error("HasAttr false for empty-valued attribute")
	}
	if n.Attr("hidden") != "" || n.Attr("missing") != "" {
		t.Error("Attr value mismatch")
	}
	n.RemoveAttr("hidden")
	if n.HasAttr("hidden") {
		t.Error("HasAttr true after RemoveAttr")
	}
}

func TestMutationLogCapturesTreeBuild(t *testing.T) {
	doc := NewDocument()
	body := doc.CreateElement("body")
	doc.SetRecording(true)

	div := doc.CreateElement("div")
	text := doc.CreateText("hi")
	div.AppendChild(text)
	body.AppendChild(div)
	div.Focus()
	body.RemoveChild(div)

	var ops []MutationOp
	for _, m := range doc.TakeMutations() {
		ops = append(ops, m.Op)
	}
	want := []MutationOp{MutCreateElement, MutCreateText, MutInsert, MutInsert, MutFocus, MutRemove}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
	if doc.ActiveElement() != nil {
		t.Error("active element survived removal")
	}
}

func TestTakeMutationsDrains(t *testing.T) {
	doc := NewDocument()
	doc.SetRecording(true)
	doc.CreateElement("div")
	if got := len(doc.TakeMutations()); got != 1 {
		t.Fatalf("first take = %d muts", got)
	}
	if got := len(doc.TakeMutations()); got != 0 {
		t.Errorf("second take = %d muts, want 0", got)
	}
}

func TestHasListenersFalseAfterRemoval(t *testing.T) {
	doc := NewDocument()
	n := doc.CreateElement("button")
	h := n.AddListener("click", func(e *Event) {})
	if !n.HasListeners() {
		t.Fatal("HasListeners false with a listener attached")
	}
	h.Remove()
	if n.HasListeners() {
		t.Error("HasListeners true after the only listener was removed")
	}
	if types := n.ListenerTypes(); len(types) != 0 {
		t.Errorf("ListenerTypes = %v after removal", types)
	}
	if strings.Contains(n.AnnotatedHTML(), "data-rmx-id") {
		t.Error("AnnotatedHTML stamped an id on a listener-free node")
	}
}

func TestEventBubblesAndStops(t *testing.T) {
	doc := NewDocument()
	outer := doc.CreateElement("div")
	inner := doc.CreateElement("button")
	outer.AppendChild(inner)

	var order []string
	inner.AddListener("click", func(e *Event) { order = append(order, "inner") })
	outer.AddListener("click", func(e *Event) { order = append(order, "outer") })

	inner.Dispatch("click", nil)
	if !reflect.DeepEqual(order, []string{"inner", "outer"}) {
		t.Errorf("bubble order = %v", order)
	}

	order = nil
	h := inner.AddListener("click", func(e *Event) { e.StopPropagation() })
	inner.Dispatch("click", nil)
	if !reflect.DeepEqual(order, []string{"inner"}) {
		t.Errorf("order with stopPropagation = %v", order)
	}

	h.Remove()
	h.Remove() // safe twice
	order = nil
	inner.Dispatch("click", nil)
	if !reflect.DeepEqual(order, []string{"inner", "outer"}) {
		t.Errorf("order after listener removal = %v", order)
	}
}
