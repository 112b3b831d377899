package vdom

import (
	"context"
	"testing"

	"github.com/rmx-dev/rmx/pkg/dom"
)

func TestValueGoesToPropertyNotAttribute(t *testing.T) {
	r, body := testRoot(t)
	if err := r.Render(Input(Type("text"), Value("draft"))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	input := body.FirstChild()
	got, ok := input.Prop("value")
	if !ok || got != "draft" {
		t.Errorf("value prop = %v (%v), want %q", got, ok, "draft")
	}
	if a := input.Attr("value"); a != "" {
		t.Errorf("value leaked into attributes: %q", a)
	}
}

func TestBooleanAttributeToggles(t *testing.T) {
	r, body := testRoot(t)
	if err := r.Render(Button(Disabled(true), Text("x"))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	btn := body.FirstChild()
	if got, ok := btn.Prop("disabled"); !ok || got != true {
		t.Errorf("disabled = %v (%v), want true", got, ok)
	}
	if err := r.Render(Button(Disabled(false), Text("x"))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, ok := btn.Prop("disabled"); !ok || got != false {
		t.Errorf("disabled after toggle = %v (%v), want false", got, ok)
	}
}

func TestStyleMapSerializesSorted(t *testing.T) {
	r, body := testRoot(t)
	err := r.Render(Div(Style(map[string]any{
		"zIndex":    3,
		"marginTop": 4,
		"color":     "red",
	})))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := body.FirstChild().Attr("style")
	want := "color:red;margin-top:4px;z-index:3;"
	if got != want {
		t.Errorf("style = %q, want %q", got, want)
	}
}

func TestCSSPropSharesRuleByContent(t *testing.T) {
	css := map[string]any{"color": "blue", "padding": 8}
	r, body := testRoot(t)
	err := r.Render(Div(
		Span(CSS(css), Text("a")),
		Span(CSS(css), Text("b")),
	))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := len(r.Sheet().Rules()); got != 1 {
		t.Fatalf("%d rules, want 1 shared rule", got)
	}
	kids := body.FirstChild().Children()
	ca, cb := kids[0].Attr("class"), kids[1].Attr("class")
	if ca == "" || ca != cb {
		t.Errorf("classes %q and %q, want one shared generated class", ca, cb)
	}

	// Dropping one holder keeps the rule; dropping both removes it.
	if err := r.Render(Div(Span(CSS(css), Text("a")))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := len(r.Sheet().Rules()); got != 1 {
		t.Errorf("%d rules after one holder left, want 1", got)
	}
	if err := r.Render(Div()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := len(r.Sheet().Rules()); got != 0 {
		t.Errorf("%d rules after all holders left, want 0", got)
	}
}

func TestCSSPropChangeSwapsClass(t *testing.T) {
	r, body := testRoot(t)
	if err := r.Render(Div(CSS(map[string]any{"color": "red"}))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	div := body.FirstChild()
	old := div.Attr("class")
	if err := r.Render(Div(CSS(map[string]any{"color": "green"}))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	now := div.Attr("class")
	if now == old || now == "" {
		t.Errorf("class %q unchanged after css change", now)
	}
	if got := len(r.Sheet().Rules()); got != 1 {
		t.Errorf("%d rules, want 1 (old rule released)", got)
	}
}

func TestListenerSwapKeepsSingleAttachment(t *testing.T) {
	var hits []string
	r, body := testRoot(t)
	if err := r.Render(Button(OnClick(func(e *dom.Event) { hits = append(hits, "first") }))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	btn := body.FirstChild()
	if err := r.Render(Button(OnClick(func(e *dom.Event) { hits = append(hits, "second") }))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	btn.Dispatch("click", nil)
	if len(hits) != 1 || hits[0] != "second" {
		t.Errorf("hits = %v, want only the latest handler once", hits)
	}
	if got := len(btn.ListenerTypes()); got != 1 {
		t.Errorf("%d listener types, want 1", got)
	}
}

func TestListenerRemovalDetaches(t *testing.T) {
	r, body := testRoot(t)
	if err := r.Render(Button(OnClick(func(e *dom.Event) {}))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	btn := body.FirstChild()
	if err := r.Render(Button()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if btn.HasListeners() {
		t.Error("listeners still attached after the on prop was dropped")
	}
}

func TestConnectRunsOnceAndCancelsOnRemoval(t *testing.T) {
	var connected *dom.Node
	var sig context.Context
	calls := 0
	fn := func(ctx context.Context, n *dom.Node) {
		calls++
		connected = n
		sig = ctx
	}
	r, body := testRoot(t)
	if err := r.Render(Div(Connect(fn))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if calls != 1 || connected != body.FirstChild() {
		t.Fatalf("connect calls = %d, node = %v", calls, connected)
	}
	if err := r.Render(Div(Connect(fn))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if calls != 1 {
		t.Errorf("connect reran for the same function, calls = %d", calls)
	}
	if sig.Err() != nil {
		t.Fatal("connect context cancelled while the prop is still set")
	}
	if err := r.Render(Div()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if sig.Err() == nil {
		t.Error("connect context still live after the prop was dropped")
	}
}

func TestSVGAttributeNames(t *testing.T) {
	r, body := testRoot(t)
	err := r.Render(Svg(
		Props{"viewBox": "0 0 10 10"},
		H("path", Props{"strokeWidth": "2", "xlinkHref": "#a"}),
	))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	svg := body.FirstChild()
	if got := svg.Attr("viewBox"); got != "0 0 10 10" {
		t.Errorf("viewBox = %q, want camelCase preserved", got)
	}
	path := svg.FirstChild()
	if path.Namespace() != "svg" {
		t.Errorf("path namespace = %q, want svg inherited", path.Namespace())
	}
	if got := path.Attr("stroke-width"); got != "2" {
		t.Errorf("stroke-width = %q, want kebab-cased", got)
	}
	if got := path.Attr("xlink:href"); got != "#a" {
		t.Errorf("xlink:href = %q, want aliased", got)
	}
}
