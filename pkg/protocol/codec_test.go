package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16383, 16384, 1<<32 - 1, 1<<64 - 1}
	e := NewEncoder()
	for _, v := range values {
		e.WriteUvarint(v)
	}
	d := NewDecoder(e.Bytes())
	for _, want := range values {
		got, err := d.ReadUvarint()
		if err != nil {
			t.Fatalf("ReadUvarint: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
	if !d.EOF() {
		t.Errorf("%d bytes left over", d.Remaining())
	}
}

func TestVarintOverflow(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, 11)
	if _, err := NewDecoder(buf).ReadUvarint(); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("err = %v, want ErrVarintOverflow", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteString("")
	e.WriteString("hello")
	e.WriteString("héllo wörld")
	d := NewDecoder(e.Bytes())
	for _, want := range []string{"", "hello", "héllo wörld"} {
		got, err := d.ReadString()
		if err != nil {
			t.Fatalf("ReadString: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestStringTruncated(t *testing.T) {
	e := NewEncoder()
	e.WriteString("hello")
	buf := e.Bytes()[:3]
	if _, err := NewDecoder(buf).ReadString(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestStringAllocationLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxAllocation + 1)
	if _, err := NewDecoder(e.Bytes()).ReadString(); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("err = %v, want ErrAllocationTooLarge", err)
	}
}

func TestBoolStrictness(t *testing.T) {
	d := NewDecoder([]byte{0x00, 0x01, 0x02})
	if v, err := d.ReadBool(); err != nil || v {
		t.Errorf("first = %v, %v", v, err)
	}
	if v, err := d.ReadBool(); err != nil || !v {
		t.Errorf("second = %v, %v", v, err)
	}
	if _, err := d.ReadBool(); !errors.Is(err, ErrInvalidBool) {
		t.Errorf("third err = %v, want ErrInvalidBool", err)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoder()
	e.WriteString("once")
	e.Reset()
	e.WriteByte(0x7)
	if e.Len() != 1 || e.Bytes()[0] != 0x7 {
		t.Errorf("after reset: len %d, bytes %v", e.Len(), e.Bytes())
	}
}
