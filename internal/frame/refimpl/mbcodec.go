// Package refimpl provides minimal, non-optimized implementations of the
// external collaborator interfaces defined in internal/frame: a fixed-QP
// macroblock codec, a constant-QP rate controller, fixed SPS/PPS parameter
// sets, a no-op postfilter, and a scalar-only kernel dispatch. None of
// these aim for coding efficiency or bit-exact conformance; they exist so
// Encoder's driver logic has something real to run against in tests and in
// the CLI's default path, the way internal/demux's tests in the source
// repository run against small fixture streams rather than mocks for
// everything.
package refimpl

import (
	"github.com/zsiec/h264enc/internal/frame"
)

// FixedMbCodec is the simplest possible MbCodec: Analyse marks a macroblock
// intra for I slices or when no forward reference exists (inter otherwise,
// never skip), no transform is applied, and Encode reconstructs fdec by copying
// fenc's source samples verbatim — "lossless passthrough" rather than an
// actual quantized residual. This is enough to drive reference-list
// construction, reordering, and bitstream framing end to end without
// implementing the macroblock layer spec.md places out of scope.
type FixedMbCodec struct {
	QP int
}

func NewFixedMbCodec(qp int) *FixedMbCodec { return &FixedMbCodec{QP: qp} }

func (c *FixedMbCodec) Analyse(fenc, fdec *frame.Frame, mb frame.MbAddress, refs frame.RefLists, sliceType frame.SliceType) frame.MbAnalysis {
	cost := int64(mbSAD(fenc, mb))
	a := frame.MbAnalysis{
		Intra:     sliceType == frame.SliceI || len(refs.Ref0) == 0,
		Cost:      cost,
		IntraCost: cost,
		InterCost: cost,
	}
	return a
}

func (c *FixedMbCodec) Encode(fenc, fdec *frame.Frame, mb frame.MbAddress, a frame.MbAnalysis, sliceType frame.SliceType, w frame.BitWriter) (int, error) {
	copyMacroblock(fdec, fenc, mb)

	// A fixed per-MB bit cost stands in for real CAVLC/CABAC sizing: one
	// byte of coefficient placeholder plus the QP as an unsigned code,
	// enough to let RateControl and the bitstream size check in spec.md
	// §8 exercise real varying-length codes without a transform stage.
	w.WriteUE(uint32(c.QP))
	w.WriteBits(0xA5, 8)
	return 8 + ueLen(uint32(c.QP)), nil
}

func ueLen(v uint32) int {
	n := 1
	for x := v + 1; x > 1; x >>= 1 {
		n += 2
	}
	return n
}

const mbSize = 16

func mbSAD(f *frame.Frame, mb frame.MbAddress) int {
	sum := 0
	x0, y0 := mb.X*mbSize, mb.Y*mbSize
	for y := y0; y < y0+mbSize && y < f.Y.Height; y++ {
		for x := x0; x < x0+mbSize && x < f.Y.Width; x++ {
			sum += int(f.Y.At(x, y))
		}
	}
	return sum
}

func copyMacroblock(dst, src *frame.Frame, mb frame.MbAddress) {
	copyPlaneMB(&dst.Y, &src.Y, mb, mbSize)
	copyPlaneMB(&dst.U, &src.U, mb, mbSize/2)
	copyPlaneMB(&dst.V, &src.V, mb, mbSize/2)
}

func copyPlaneMB(dst, src *frame.Plane, mb frame.MbAddress, size int) {
	x0, y0 := mb.X*size, mb.Y*size
	for y := y0; y < y0+size && y < src.Height; y++ {
		for x := x0; x < x0+size && x < src.Width; x++ {
			dst.Data[(y+dst.BorderWidth)*dst.Stride+x+dst.BorderWidth] = src.At(x, y)
		}
	}
}
