package encoder

import "github.com/zsiec/h264enc/internal/frame"

// emitCabacStuffing implements spec.md §4.5 step 11's stuffing formula.
// symCnt stands in for the true CABAC symbol count (arithmetic coding
// itself is MbCodec's concern, out of scope here); emitSlice's totalBits
// sum is used as the nearest available proxy, which is noted as an
// explicit simplification, not a conformance claim, in DESIGN.md.
func (e *Encoder) emitCabacStuffing(symCnt int) {
	bsBytes := len(e.writer.RawRBSP())
	word := (((3*symCnt - 3*96*e.mbWidth*e.mbHeight) / 32) - bsBytes) / 3
	for word > 0 {
		e.writer.PadRaw(2)
		word--
	}
}

// checkScenecut implements spec.md §4.5 step 12's bias-based scene-cut
// decision. It is only called for P slices when scene-cut is enabled and
// RateControl is not replaying a prior stat file.
func (e *Encoder) checkScenecut(fenc *frame.Frame) bool {
	mbTotal := e.mbWidth * e.mbHeight
	a := fenc.Analysis
	if a.MBSkipCount >= mbTotal {
		return false
	}

	intraCost := float64(a.IntraCost) * float64(mbTotal) / float64(mbTotal-a.MBSkipCount)
	interCost := float64(a.InterCost)

	keyintMin := float64(e.params.KeyintMin)
	keyintMax := float64(e.params.KeyintMax)
	threshMax := float64(e.params.ScenecutThreshold) / 100
	threshMin := threshMax
	if e.params.KeyintMin != e.params.KeyintMax {
		threshMin = threshMax * keyintMin / (4 * keyintMax)
	}

	gopSize := float64(fenc.FrameIndex - e.window.LastIDRFrameIndex())
	var bias float64
	switch {
	case gopSize < keyintMin/4:
		bias = threshMin / 4
	case gopSize <= keyintMin:
		bias = threshMin * gopSize / keyintMin
	default:
		bias = threshMin + (threshMax-threshMin)*(gopSize-keyintMin)/(keyintMax-keyintMin)
	}
	if bias > 1.0 {
		bias = 1.0
	}

	return interCost >= (1-bias)*intraCost
}
