package protocol

import (
	"fmt"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// FrameType is the first byte of every message.
type FrameType uint8

const (
	// FrameInit carries the annotated initial document HTML,
	// server to client, once per session.
	FrameInit FrameType = 0x01

	// FramePatch carries a batch of document mutations, server to
	// client.
	FramePatch FrameType = 0x02

	// FrameEvent carries one user event, client to server.
	FrameEvent FrameType = 0x10

	// FrameError carries a terminal error message, server to client.
	FrameError FrameType = 0x7F
)

func (t FrameType) String() string {
	switch t {
	case FrameInit:
		return "Init"
	case FramePatch:
		return "Patch"
	case FrameEvent:
		return "Event"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// EncodeInit builds an init frame around the annotated document HTML.
func EncodeInit(html string) []byte {
	e := NewEncoderWithCap(len(html) + 8)
	e.WriteByte(byte(FrameInit))
	e.WriteString(html)
	return e.Bytes()
}

// DecodeInit parses an init frame.
func DecodeInit(buf []byte) (string, error) {
	d := NewDecoder(buf)
	if err := expectFrame(d, FrameInit); err != nil {
		return "", err
	}
	html, err := d.ReadString()
	if err != nil {
		return "", err
	}
	if !d.EOF() {
		return "", ErrTrailingBytes
	}
	return html, nil
}

// EncodeError builds an error frame.
func EncodeError(msg string) []byte {
	e := NewEncoderWithCap(len(msg) + 8)
	e.WriteByte(byte(FrameError))
	e.WriteString(msg)
	return e.Bytes()
}

// DecodeError parses an error frame.
func DecodeError(buf []byte) (string, error) {
	d := NewDecoder(buf)
	if err := expectFrame(d, FrameError); err != nil {
		return "", err
	}
	return d.ReadString()
}

// EncodePatch builds a patch frame from a mutation batch. Mutations
// are written in order; field layout depends on the op:
//
//	CreateElement        target, tag, namespace
//	CreateText, Comment  target, data
//	Insert               target, parent, ref (0 = append)
//	Remove, Focus        target
//	SetText              target, data
//	SetAttr, SetProp     target, name, value
//	RemoveAttr, RemoveProp  target, name
func EncodePatch(muts []dom.Mutation) []byte {
	e := NewEncoderWithCap(16 + len(muts)*8)
	e.WriteByte(byte(FramePatch))
	e.WriteUvarint(uint64(len(muts)))
	for _, m := range muts {
		e.WriteByte(byte(m.Op))
		e.WriteUvarint(m.Target)
		switch m.Op {
		case dom.MutCreateElement:
			e.WriteString(m.Name)
			e.WriteString(m.Value)
		case dom.MutCreateText, dom.MutCreateComment, dom.MutSetText:
			e.WriteString(m.Value)
		case dom.MutInsert:
			e.WriteUvarint(m.Parent)
			e.WriteUvarint(m.Ref)
		case dom.MutRemove, dom.MutFocus:
		case dom.MutSetAttr, dom.MutSetProp:
			e.WriteString(m.Name)
			e.WriteString(m.Value)
		case dom.MutRemoveAttr, dom.MutRemoveProp:
			e.WriteString(m.Name)
		}
	}
	return e.Bytes()
}

// DecodePatch parses a patch frame back into a mutation batch.
func DecodePatch(buf []byte) ([]dom.Mutation, error) {
	d := NewDecoder(buf)
	if err := expectFrame(d, FramePatch); err != nil {
		return nil, err
	}
	count, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if count > MaxCollectionCount {
		return nil, ErrCollectionTooLarge
	}
	muts := make([]dom.Mutation, 0, count)
	for i := uint64(0); i < count; i++ {
		m, err := decodeMutation(d)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		muts = append(muts, m)
	}
	if !d.EOF() {
		return nil, ErrTrailingBytes
	}
	return muts, nil
}

func decodeMutation(d *Decoder) (dom.Mutation, error) {
	var m dom.Mutation
	op, err := d.ReadByte()
	if err != nil {
		return m, err
	}
	m.Op = dom.MutationOp(op)
	if m.Target, err = d.ReadUvarint(); err != nil {
		return m, err
	}
	switch m.Op {
	case dom.MutCreateElement:
		if m.Name, err = d.ReadString(); err != nil {
			return m, err
		}
		m.Value, err = d.ReadString()
	case dom.MutCreateText, dom.MutCreateComment, dom.MutSetText:
		m.Value, err = d.ReadString()
	case dom.MutInsert:
		if m.Parent, err = d.ReadUvarint(); err != nil {
			return m, err
		}
		m.Ref, err = d.ReadUvarint()
	case dom.MutRemove, dom.MutFocus:
	case dom.MutSetAttr, dom.MutSetProp:
		if m.Name, err = d.ReadString(); err != nil {
			return m, err
		}
		m.Value, err = d.ReadString()
	case dom.MutRemoveAttr, dom.MutRemoveProp:
		m.Name, err = d.ReadString()
	default:
		return m, ErrUnknownOp
	}
	return m, err
}

func expectFrame(d *Decoder, want FrameType) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	if FrameType(b) != want {
		return fmt.Errorf("%w: got 0x%02x, want %s", ErrUnknownFrame, b, want)
	}
	return nil
}

// PeekFrameType returns the frame type of an encoded message.
func PeekFrameType(buf []byte) (FrameType, error) {
	if len(buf) == 0 {
		return 0, ErrUnknownFrame
	}
	return FrameType(buf[0]), nil
}
