package protocol

import "encoding/json"

// Event is one user interaction reported by the client: the node it
// targeted, the DOM event type, and an optional JSON payload with
// event-specific detail (input value, key, coordinates).
type Event struct {
	Target  uint64
	Type    string
	Payload json.RawMessage
}

// EncodeEvent builds an event frame.
func EncodeEvent(ev Event) []byte {
	e := NewEncoderWithCap(16 + len(ev.Type) + len(ev.Payload))
	e.WriteByte(byte(FrameEvent))
	e.WriteUvarint(ev.Target)
	e.WriteString(ev.Type)
	e.WriteLenBytes(ev.Payload)
	return e.Bytes()
}

// DecodeEvent parses an event frame.
func DecodeEvent(buf []byte) (Event, error) {
	var ev Event
	d := NewDecoder(buf)
	if err := expectFrame(d, FrameEvent); err != nil {
		return ev, err
	}
	var err error
	if ev.Target, err = d.ReadUvarint(); err != nil {
		return ev, err
	}
	if ev.Type, err = d.ReadString(); err != nil {
		return ev, err
	}
	payload, err := d.ReadLenBytes()
	if err != nil {
		return ev, err
	}
	if len(payload) > 0 {
		ev.Payload = payload
	}
	if !d.EOF() {
		return ev, ErrTrailingBytes
	}
	return ev, nil
}
