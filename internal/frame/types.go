// Package frame defines the core data types that flow through the encoder
// pipeline — pictures submitted by the caller, the pooled internal Frame
// representation, NAL descriptors, slice headers — along with the
// collaborator interfaces (MbCodec, RateControl, ParameterSets, Postfilter,
// KernelDispatch) that the macroblock/rate-control/bitstream layers out of
// scope for this repository must satisfy.
package frame

// FrameType is the picture-coding type assigned to a Frame by FrameWindow.
type FrameType int

const (
	TypeAuto FrameType = iota
	TypeI
	TypeIDR
	TypeP
	TypeB
)

func (t FrameType) String() string {
	switch t {
	case TypeAuto:
		return "AUTO"
	case TypeI:
		return "I"
	case TypeIDR:
		return "IDR"
	case TypeP:
		return "P"
	case TypeB:
		return "B"
	default:
		return "UNKNOWN"
	}
}

// IsReference reports whether a frame of this type updates the reference
// window when encoded (everything but B).
func (t FrameType) IsReference() bool {
	return t != TypeB
}

// SliceType is the coded slice type written into the slice header. It is
// distinct from FrameType because an IDR frame codes an I slice.
type SliceType int

const (
	SliceI SliceType = iota
	SliceP
	SliceB
)

func (t SliceType) String() string {
	switch t {
	case SliceI:
		return "I"
	case SliceP:
		return "P"
	case SliceB:
		return "B"
	default:
		return "?"
	}
}

// RefIdc is the nal_ref_idc field: the priority of a NAL unit for reference
// purposes. Four levels as named in spec.md, mapped onto the 2-bit
// bitstream field 0..3.
type RefIdc int

const (
	RefDisposable RefIdc = 0
	RefLow        RefIdc = 1
	RefHigh       RefIdc = 2
	RefHighest    RefIdc = 3
)

// NalType is the nal_unit_type field (ITU-T H.264 Table 7-1), restricted to
// the values this encoder emits.
type NalType int

const (
	NalSlice    NalType = 1
	NalIDRSlice NalType = 5
	NalSEI      NalType = 6
	NalSPS      NalType = 7
	NalPPS      NalType = 8
)

// Plane is one pooled pixel plane (Y, U, or V) with padded borders. Stride
// is in bytes and covers the full padded width.
type Plane struct {
	Data        []byte
	Width       int
	Height      int
	Stride      int
	BorderWidth int
}

// At returns the pixel at (x, y) in unpadded plane coordinates.
func (p *Plane) At(x, y int) byte {
	return p.Data[(y+p.BorderWidth)*p.Stride+x+p.BorderWidth]
}

// Picture is the input a caller submits to Encoder.Encode: pixel planes in
// 4:2:0, a presentation timestamp, and optional forced type/QP hints.
type Picture struct {
	Y, U, V  Plane
	PTS      int64
	TypeHint FrameType // TypeAuto means "no hint"
	// Keyframe, when set, forces TypeIDR regardless of TypeHint — mirrors
	// the external "KEYFRAME" hint value from spec.md §6, kept as a
	// separate bool so TypeHint stays a pure FrameType.
	Keyframe bool
	// QPPlusOne is qp_plus_one per spec.md §6; 0 means "no override".
	QPPlusOne int
}

// Frame is the pooled, owned internal representation of one picture: fixed
// planar buffers plus padded borders, with bookkeeping FrameWindow and
// Encoder need across the frame's lifetime. Frames are allocated once at
// Encoder.Open and recycled through the unused list for the Encoder's
// lifetime; they are never individually freed (spec.md §3).
type Frame struct {
	Y, U, V Plane

	// Slot is this frame's fixed index into the owning arena, stable for
	// the lifetime of the encoder (spec.md §9's "arena of frames").
	Slot int

	FrameIndex int // input order, monotonic, assigned by FrameWindow.Accept
	POC        int // picture order count, even, -1 if this reference slot is free
	Type       FrameType
	Hint       FrameType // caller-requested type from Picture.TypeHint/Keyframe, preserved for logging
	PTS        int64
	QPPlusOne  int

	// RefIdc and NalType are derived from Type by the encoder for the NAL
	// header of this frame's slice; stored here so FrameWindow's rollback
	// can be queried without recomputing from Type in two places.
	RefIdc  RefIdc
	NalType NalType

	// Analysis totals accumulated by MbCodec.Analyse during this frame's
	// encode, consumed by the scene-cut decision (spec.md §4.5 step 12).
	Analysis FrameAnalysis
}

// FrameAnalysis accumulates the per-macroblock costs and mode counts that
// Encoder needs after a P-slice encode to evaluate a scene cut.
type FrameAnalysis struct {
	MBIntraCount int
	MBInterCount int
	MBSkipCount  int
	IntraCost    int64
	InterCost    int64
}

// Reset clears accumulated analysis before re-encoding a frame (e.g. after
// a scene-cut retry changes its type).
func (a *FrameAnalysis) Reset() { *a = FrameAnalysis{} }

// NalDescriptor describes one finalized NAL unit's framing and its span
// within NalWriter's single shared bitstream buffer.
type NalDescriptor struct {
	RefIdc        RefIdc
	NalType       NalType
	LongStartCode bool
	PayloadStart  int
	PayloadLen    int
	PaddingLen    int
}

// Payload returns this descriptor's framed bytes from the backing buffer.
func (d NalDescriptor) Payload(buf []byte) []byte {
	return buf[d.PayloadStart : d.PayloadStart+d.PayloadLen]
}

// SliceHeader is a per-slice snapshot of encoder state, reconstructed
// before every emitted slice and never persisted (spec.md §3).
type SliceHeader struct {
	Type              SliceType
	PPSID             int
	FrameNum          int
	IDRPicID          int // only meaningful for IDR slices
	IsIDR             bool
	POCLsb            int
	NumRefIdxL0Active int
	NumRefIdxL1Active int
	CabacInitIdc      int
	QPDelta           int
	DisableDeblockIdc int
	AlphaC0Offset     int
	BetaOffset        int
	DirectSpatialMV   bool
	FirstMB           int
}
