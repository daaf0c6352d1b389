package encoder

import (
	"github.com/zsiec/h264enc/internal/frame"
)

// emitSlice writes one slice NAL into the writer's currently-reset buffer:
// a simplified header (sufficient to carry the bit-exact fields spec.md §8
// tests — frame_num, poc_lsb, idr_pic_id — without implementing full
// slice_header() syntax, which routes through ParameterSets/MbCodec
// concerns out of scope here) followed by one MbCodec.Analyse/Encode pass
// per macroblock in raster order, all within a single Begin/End pair so
// CABAC stuffing (step 11) can still extend the raw RBSP before framing.
// It closes the NAL with End but does not finalize it, leaving the caller
// to pad and finalize, and returns
// the coded bit count fed to RateControl.MbDone totals.
func (e *Encoder) emitSlice(fenc, fdec *frame.Frame, sh frame.SliceHeader, refs frame.RefLists, sliceType frame.SliceType, nalType frame.NalType, refIdc frame.RefIdc, qp int) (int, error) {
	e.writer.Begin(nalType, refIdc)

	e.writer.WriteUE(0) // first_mb_in_slice
	e.writer.WriteUE(uint32(sh.Type))
	e.writer.WriteUE(uint32(sh.PPSID))
	e.writer.WriteBits(uint32(sh.FrameNum), 16)
	if sh.IsIDR {
		e.writer.WriteUE(uint32(sh.IDRPicID))
	}
	e.writer.WriteUE(uint32(sh.POCLsb))
	if sliceType != frame.SliceI {
		e.writer.WriteUE(uint32(sh.NumRefIdxL0Active))
	}
	if sliceType == frame.SliceB {
		e.writer.WriteUE(uint32(sh.NumRefIdxL1Active))
		e.writer.WriteBit(boolBit(sh.DirectSpatialMV))
	}
	e.writer.WriteSE(int32(qp - 26))
	e.writer.WriteUE(uint32(sh.DisableDeblockIdc))
	if sh.DisableDeblockIdc != 1 {
		e.writer.WriteSE(int32(sh.AlphaC0Offset))
		e.writer.WriteSE(int32(sh.BetaOffset))
	}

	totalBits := 0
	fenc.Analysis.Reset()
	for y := 0; y < e.mbHeight; y++ {
		for x := 0; x < e.mbWidth; x++ {
			mb := frame.MbAddress{X: x, Y: y}
			a := e.mbCodec.Analyse(fenc, fdec, mb, refs, sliceType)
			accumulateAnalysis(&fenc.Analysis, a)

			bits, err := e.mbCodec.Encode(fenc, fdec, mb, a, sliceType, e.writer)
			if err != nil {
				e.writer.End()
				return totalBits, err
			}
			totalBits += bits
			e.rc.MbDone(bits)
		}
	}

	e.writer.End()
	return totalBits, nil
}

func accumulateAnalysis(dst *frame.FrameAnalysis, a frame.MbAnalysis) {
	if a.Intra {
		dst.MBIntraCount++
	} else {
		dst.MBInterCount++
		if a.Skip {
			dst.MBSkipCount++
		}
	}
	dst.IntraCost += a.IntraCost
	dst.InterCost += a.InterCost
}

func boolBit(b bool) uint {
	if b {
		return 1
	}
	return 0
}
