package refimpl

import (
	"testing"

	"github.com/zsiec/h264enc/internal/config"
	"github.com/zsiec/h264enc/internal/frame"
)

func makeTestFrame(w, h, border int) *frame.Frame {
	alloc := func(pw, ph, b int) frame.Plane {
		stride := pw + 2*b
		return frame.Plane{Data: make([]byte, stride*(ph+2*b)), Width: pw, Height: ph, Stride: stride, BorderWidth: b}
	}
	return &frame.Frame{
		Y: alloc(w, h, border),
		U: alloc(w/2, h/2, border/2),
		V: alloc(w/2, h/2, border/2),
	}
}

func TestFixedMbCodec_EncodeReconstructsMacroblock(t *testing.T) {
	fenc := makeTestFrame(16, 16, 32)
	fdec := makeTestFrame(16, 16, 32)
	for i := range fenc.Y.Data {
		fenc.Y.Data[i] = 0x77
	}

	c := NewFixedMbCodec(26)
	mb := frame.MbAddress{X: 0, Y: 0}
	a := c.Analyse(fenc, fdec, mb, frame.RefLists{}, frame.SliceI)
	if !a.Intra {
		t.Fatalf("expected intra analysis with no references")
	}

	bw := &captureBitWriter{}
	bits, err := c.Encode(fenc, fdec, mb, a, frame.SliceI, bw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bits == 0 {
		t.Fatalf("expected non-zero bit count")
	}

	if got := fdec.Y.At(0, 0); got != 0x77 {
		t.Fatalf("fdec not reconstructed from fenc: got %#x, want 0x77", got)
	}
}

type captureBitWriter struct{ bits []uint }

func (c *captureBitWriter) WriteBytes(b []byte)        {}
func (c *captureBitWriter) WriteBit(b uint)             { c.bits = append(c.bits, b) }
func (c *captureBitWriter) WriteBits(v uint32, n int)   {}
func (c *captureBitWriter) WriteUE(v uint32)            {}
func (c *captureBitWriter) WriteSE(v int32)             {}

func TestConstantQP_StartFrameAndStats(t *testing.T) {
	rc := NewConstantQP(28)
	if qp := rc.StartFrame(&frame.Frame{}, frame.SliceP); qp != 28 {
		t.Fatalf("StartFrame = %d, want 28", qp)
	}
	rc.MbDone(120)
	rc.MbDone(80)
	rc.EndFrame(frame.EncodeStats{Bytes: 25})
	if !rc.ReplayingStats() {
		t.Fatalf("ConstantQP must always report ReplayingStats, disabling scene-cut")
	}
	if stats := rc.Stats(); len(stats) != 1 || stats[0].Bytes != 25 {
		t.Fatalf("Stats = %v, want one entry with Bytes=25", stats)
	}
}

func TestFixedParameterSets_SPSAndPPSNonEmpty(t *testing.T) {
	ps, err := NewFixedParameterSets(config.Params{Width: 32, Height: 16})
	if err != nil {
		t.Fatalf("NewFixedParameterSets: %v", err)
	}
	if len(ps.SPS()) == 0 || len(ps.PPS()) == 0 {
		t.Fatalf("expected non-empty SPS/PPS")
	}
	// SPS()/PPS() are raw RBSP (no NAL header, no framing — NalWriter adds
	// those); the first byte is profile_idc, Baseline = 66.
	if ps.SPS()[0] != 66 {
		t.Fatalf("SPS first byte (profile_idc) = %d, want 66", ps.SPS()[0])
	}
}

func TestFixedParameterSets_RejectsUnalignedResolution(t *testing.T) {
	if _, err := NewFixedParameterSets(config.Params{Width: 33, Height: 16}); err == nil {
		t.Fatalf("expected error for non-macroblock-aligned width")
	}
}

func TestFixedParameterSets_RefreshEncodesSAR(t *testing.T) {
	ps, err := NewFixedParameterSets(config.Params{Width: 32, Height: 16})
	if err != nil {
		t.Fatalf("NewFixedParameterSets: %v", err)
	}
	plainLen := len(ps.SPS())

	if err := ps.Refresh(config.Params{Width: 32, Height: 16, VUI: config.VUI{SARWidth: 16, SARHeight: 9}}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(ps.SPS()) <= plainLen {
		t.Fatalf("expected SPS to grow once VUI/SAR is present, got %d bytes (was %d)", len(ps.SPS()), plainLen)
	}
}

func TestNoopPostfilter_ExpandBordersReplicatesEdges(t *testing.T) {
	f := makeTestFrame(16, 16, 4)
	for y := 0; y < f.Y.Height; y++ {
		f.Y.Data[(y+4)*f.Y.Stride+4] = 0x11          // left edge
		f.Y.Data[(y+4)*f.Y.Stride+4+f.Y.Width-1] = 0x22 // right edge
	}

	NoopPostfilter{}.ExpandBorders(f)

	if got := f.Y.Data[4*f.Y.Stride+0]; got != 0x11 {
		t.Fatalf("left border not replicated: got %#x", got)
	}
	if got := f.Y.Data[4*f.Y.Stride+4+f.Y.Width]; got != 0x22 {
		t.Fatalf("right border not replicated: got %#x", got)
	}
}

func TestScalarKernels_EscapeMatchesBitstreamScalar(t *testing.T) {
	esc := ScalarKernels{}.Escape()
	src := []byte{0x00, 0x00, 0x00, 0xaa}
	dst := make([]byte, 16)
	n := esc(dst, src)
	want := []byte{0x00, 0x00, 0x03, 0x00, 0xaa}
	if n != len(want) {
		t.Fatalf("escaped len = %d, want %d", n, len(want))
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("escaped[%d] = %#x, want %#x", i, dst[i], want[i])
		}
	}
}
