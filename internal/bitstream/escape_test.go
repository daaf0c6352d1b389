package bitstream

import (
	"bytes"
	"testing"
)

// S2 from spec.md §8: raw RBSP [00 00 00 aa] escapes to [00 00 03 00 aa].
func TestEscape_S2(t *testing.T) {
	src := []byte{0x00, 0x00, 0x00, 0xaa}
	dst := make([]byte, MaxEscapedLen(len(src)))
	n := Escape(dst, src)
	got := dst[:n]
	want := []byte{0x00, 0x00, 0x03, 0x00, 0xaa}
	if !bytes.Equal(got, want) {
		t.Fatalf("Escape(%x) = %x, want %x", src, got, want)
	}
}

func TestEscape_NoLookbackOnFirstTwoBytes(t *testing.T) {
	// The first two bytes are copied unconditionally even though they are
	// themselves <= 0x03 and there is no preceding 00 00 to trigger on.
	src := []byte{0x02, 0x03, 0x00}
	dst := make([]byte, MaxEscapedLen(len(src)))
	n := Escape(dst, src)
	got := dst[:n]
	want := []byte{0x02, 0x03, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Escape(%x) = %x, want %x", src, got, want)
	}
}

func TestEscape_NoForbiddenSequences(t *testing.T) {
	cases := [][]byte{
		{0x00, 0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x01, 0x02, 0x03},
		{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x02},
		{0xaa, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00},
	}
	// 00 00 03 is the emulation-prevention sequence itself, so it may only
	// appear with the inserted 03 followed by a byte <= 0x03.
	forbidden := [][]byte{
		{0, 0, 0}, {0, 0, 1}, {0, 0, 2},
	}
	for _, src := range cases {
		dst := make([]byte, MaxEscapedLen(len(src)))
		n := Escape(dst, src)
		out := dst[:n]
		for _, f := range forbidden {
			if bytes.Contains(out, f) {
				t.Fatalf("Escape(%x) = %x contains forbidden sequence %x", src, out, f)
			}
		}
		for i := 0; i+2 < len(out); i++ {
			if out[i] == 0 && out[i+1] == 0 && out[i+2] == 3 && (i+3 >= len(out) || out[i+3] > 0x03) {
				t.Fatalf("Escape(%x) = %x has 00 00 03 at %d not followed by a byte <= 0x03", src, out, i)
			}
		}
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x01},
		{0x00},
		{0x00, 0x00},
		{0x00, 0x00, 0x00},
		{0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x01, 0x02, 0x03, 0x00, 0x00, 0x03},
		{0xff, 0xee, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0xab},
		bytes.Repeat([]byte{0x00}, 37),
	}
	for _, src := range cases {
		dst := make([]byte, MaxEscapedLen(len(src)))
		n := Escape(dst, src)
		escaped := dst[:n]

		unesc := make([]byte, len(escaped))
		m := Unescape(unesc, escaped)
		got := unesc[:m]

		if !bytes.Equal(got, src) {
			t.Fatalf("round trip failed for src=%x: escaped=%x, unescaped=%x", src, escaped, got)
		}
	}
}

func TestScalarEscapeMatchesEscape(t *testing.T) {
	src := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x02}
	a := make([]byte, MaxEscapedLen(len(src)))
	b := make([]byte, MaxEscapedLen(len(src)))
	na := Escape(a, src)
	nb := ScalarEscape(b, src)
	if na != nb || !bytes.Equal(a[:na], b[:nb]) {
		t.Fatalf("ScalarEscape diverged from Escape: %x vs %x", a[:na], b[:nb])
	}
}
