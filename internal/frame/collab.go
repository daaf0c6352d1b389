package frame

import "github.com/zsiec/h264enc/internal/config"

// The types and interfaces in this file are the seams named in spec.md §1
// as out of scope for this repository: macroblock analysis/transform/
// entropy coding (MbCodec), rate control (RateControl), parameter set
// construction (ParameterSets), deblocking/border expansion (Postfilter),
// and SIMD kernel dispatch (KernelDispatch). Encoder and FrameWindow only
// ever talk to these interfaces; internal/frame/refimpl provides the
// reference implementations used by tests and the CLI default path.

// MbAddress identifies one macroblock in raster-scan order.
type MbAddress struct {
	X, Y int // macroblock column/row
}

// RefLists is the pair of reference-picture lists built by FrameWindow
// before each slice (spec.md §4.4 "reference list build").
type RefLists struct {
	Ref0 []*Frame // forward, closest-past first
	Ref1 []*Frame // backward, closest-future first
}

// MbAnalysis is the mode decision MbCodec.Analyse reports for one
// macroblock; Encoder forwards it to MbCodec.Encode and accumulates the
// cost fields into Frame.Analysis for the scene-cut decision.
type MbAnalysis struct {
	Intra     bool
	Skip      bool
	Cost      int64
	IntraCost int64
	InterCost int64
}

// BitWriter is the narrow slice of NalWriter that MbCodec needs: appending
// raw RBSP bytes for one macroblock's coded residual/header data. CAVLC and
// CABAC emission both funnel through this so MbCodec never touches framing.
type BitWriter interface {
	WriteBytes(b []byte)
	WriteBit(b uint)
	WriteBits(v uint32, n int)
	WriteUE(v uint32)
	WriteSE(v int32)
}

// MbCodec performs macroblock-level analysis and entropy coding. This is
// the single largest piece of an H.264 encoder by line count and is
// entirely out of scope here (spec.md §1); it is modeled as an interface so
// Encoder's driver logic can be built and tested against a reference
// implementation.
type MbCodec interface {
	// Analyse evaluates coding modes for one macroblock of fenc against
	// the reconstructed reference(s), without writing any bits.
	Analyse(fenc, fdec *Frame, mb MbAddress, refs RefLists, sliceType SliceType) MbAnalysis
	// Encode writes the final coded representation of one macroblock,
	// using the mode decision from a prior Analyse call, and reconstructs
	// it into fdec.
	Encode(fenc, fdec *Frame, mb MbAddress, a MbAnalysis, sliceType SliceType, w BitWriter) (bits int, err error)
}

// EncodeStats summarizes one finished frame's encode for RateControl. It
// supplements spec.md's terser
// "feed RateControl the final byte count" with the richer struct the
// original implementation's per-frame statistics actually carry.
type EncodeStats struct {
	FrameIndex int
	Type       FrameType
	QP         int
	Bytes      int
	SceneCut   bool
	Analysis   FrameAnalysis
}

// RateControl decides the starting QP for a frame and observes per-MB and
// per-frame costs. ReplayingStats mirrors spec.md §4.5 step 12's "rate
// control is replaying a prior stat file" condition, which disables
// scene-cut regardless of i_scenecut_threshold.
type RateControl interface {
	StartFrame(fenc *Frame, sliceType SliceType) (qp int)
	MbDone(bits int)
	EndFrame(stats EncodeStats)
	ReplayingStats() bool
}

// ParameterSets builds and serializes the active SPS/PPS RBSP (without NAL
// header or framing — NalWriter adds those). Refresh takes the full
// validated Params and rebuilds SPS/PPS from it; Encoder.Open calls it once
// construction-time validation (including VUI/SAR normalization) has run,
// so SPS reflects whatever CheckSAR actually kept rather than whatever the
// caller originally passed to the ParameterSets constructor.
type ParameterSets interface {
	SPS() []byte
	PPS() []byte
	PPSID() int
	Refresh(p config.Params) error
}

// Postfilter applies in-loop deblocking and border expansion to a just
// reconstructed frame, ahead of FrameWindow's reference-window update.
type Postfilter interface {
	Deblock(fdec *Frame, disableIdc, alphaC0Offset, betaOffset int)
	ExpandBorders(fdec *Frame)
}

// EscapeFunc is the capability signature for NAL emulation-prevention byte
// insertion (spec.md §4.1); exactly one implementation (scalar) ships here,
// with SIMD variants left to KernelDispatch per spec.md §9's "function
// pointer polymorphism" design note.
type EscapeFunc func(dst, src []byte) int

// KernelDispatch selects CPU-specific kernels, of which this repository
// models exactly the one the core touches directly: NAL escaping. It is
// a read-only capability selected once at Encoder construction and never
// mutated afterward (spec.md §5).
type KernelDispatch interface {
	Escape() EscapeFunc
}
