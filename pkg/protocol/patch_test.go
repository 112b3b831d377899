package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rmx-dev/rmx/pkg/dom"
)

func TestPatchRoundTrip(t *testing.T) {
	muts := []dom.Mutation{
		{Op: dom.MutCreateElement, Target: 2, Name: "div", Value: ""},
		{Op: dom.MutCreateElement, Target: 3, Name: "path", Value: "svg"},
		{Op: dom.MutCreateText, Target: 4, Value: "hello"},
		{Op: dom.MutCreateComment, Target: 5, Value: "frame:start:f1"},
		{Op: dom.MutInsert, Target: 2, Parent: 1, Ref: 0},
		{Op: dom.MutInsert, Target: 4, Parent: 2, Ref: 3},
		{Op: dom.MutSetText, Target: 4, Value: "changed"},
		{Op: dom.MutSetAttr, Target: 2, Name: "class", Value: "card"},
		{Op: dom.MutRemoveAttr, Target: 2, Name: "hidden"},
		{Op: dom.MutSetProp, Target: 2, Name: "value", Value: "draft"},
		{Op: dom.MutRemoveProp, Target: 2, Name: "checked"},
		{Op: dom.MutFocus, Target: 2},
		{Op: dom.MutRemove, Target: 4},
	}
	buf := EncodePatch(muts)
	if ft, err := PeekFrameType(buf); err != nil || ft != FramePatch {
		t.Fatalf("frame type = %v, %v", ft, err)
	}
	got, err := DecodePatch(buf)
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if !reflect.DeepEqual(got, muts) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, muts)
	}
}

func TestPatchFromLiveDocument(t *testing.T) {
	doc := dom.NewDocument()
	body := doc.CreateElement("body")
	doc.SetRecording(true)
	div := doc.CreateElement("div")
	div.SetAttr("class", "x")
	text := doc.CreateText("hi")
	div.AppendChild(text)
	body.AppendChild(div)

	muts := doc.TakeMutations()
	if len(muts) == 0 {
		t.Fatal("no mutations recorded")
	}
	got, err := DecodePatch(EncodePatch(muts))
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if !reflect.DeepEqual(got, muts) {
		t.Errorf("live log round trip mismatch:\n got %v\nwant %v", got, muts)
	}
}

func TestDecodePatchRejectsUnknownOp(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(byte(FramePatch))
	e.WriteUvarint(1)
	e.WriteByte(0xEE)
	e.WriteUvarint(1)
	if _, err := DecodePatch(e.Bytes()); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("err = %v, want ErrUnknownOp", err)
	}
}

func TestDecodePatchRejectsHugeCount(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(byte(FramePatch))
	e.WriteUvarint(MaxCollectionCount + 1)
	if _, err := DecodePatch(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("err = %v, want ErrCollectionTooLarge", err)
	}
}

func TestDecodePatchRejectsTrailingBytes(t *testing.T) {
	buf := EncodePatch([]dom.Mutation{{Op: dom.MutRemove, Target: 1}})
	buf = append(buf, 0x00)
	if _, err := DecodePatch(buf); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("err = %v, want ErrTrailingBytes", err)
	}
}

func TestInitFrameRoundTrip(t *testing.T) {
	html := `<div data-rmx-id="2">hello</div>`
	got, err := DecodeInit(EncodeInit(html))
	if err != nil {
		t.Fatalf("DecodeInit: %v", err)
	}
	if got != html {
		t.Errorf("got %q, want %q", got, html)
	}
}

func TestFrameTypeMismatch(t *testing.T) {
	if _, err := DecodeInit(EncodePatch(nil)); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("err = %v, want ErrUnknownFrame", err)
	}
}

func TestEventRoundTrip(t *testing.T) {
	ev := Event{Target: 42, Type: "input", Payload: []byte(`{"value":"abc"}`)}
	got, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.Target != ev.Target || got.Type != ev.Type || string(got.Payload) != string(ev.Payload) {
		t.Errorf("got %+v, want %+v", got, ev)
	}

	bare := Event{Target: 7, Type: "click"}
	got, err = DecodeEvent(EncodeEvent(bare))
	if err != nil {
		t.Fatalf("DecodeEvent bare: %v", err)
	}
	if got.Payload != nil {
		t.Errorf("empty payload decoded as %q, want nil", got.Payload)
	}
}
