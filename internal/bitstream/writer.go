package bitstream

import (
	"encoding/binary"
	"math/bits"

	"github.com/zsiec/h264enc/internal/frame"
)

// nalOverhead resolves the open question spec.md §9 leaves about
// NALU_OVERHEAD in the AVC-Intra padding formula. The reference encoder
// computes padding against nal->i_payload, which at that point in the C
// code is the RBSP length before escaping or framing, plus a fixed
// overhead term whose exact value depends on the AVC-Intra class table
// (out of scope here — ParameterSets/avcintra_class construction is an
// external collaborator). This layer treats the fixed per-class overhead
// as already folded into the padding argument Finalize receives, so no
// additional constant is added here.
const nalOverhead = 0

// Writer wraps NAL emulation-prevention escaping with start-code or
// length-prefix framing and NAL header emission. It owns a single output
// bitstream buffer and the NAL descriptor list that indexes into it,
// matching spec.md §4.2's contract and §3's "NalDescriptor" data model.
//
// Writer implements frame.BitWriter so MbCodec implementations can write
// coded macroblock data directly into the NAL currently open between
// Begin and End.
type Writer struct {
	out   []byte
	descs []frame.NalDescriptor

	escape frame.EscapeFunc

	rawBuf  []byte
	curByte byte
	curBits int
	nalType frame.NalType
	refIdc  frame.RefIdc
	open    bool
}

// NewWriter creates a Writer that uses escape for NAL emulation prevention.
// escape is selected once by the caller's KernelDispatch and never changed
// for the lifetime of the Writer (spec.md §5).
func NewWriter(escape frame.EscapeFunc) *Writer {
	if escape == nil {
		escape = ScalarEscape
	}
	return &Writer{escape: escape}
}

// Reset clears the output buffer and descriptor list for a new encode call.
// The backing arrays are kept and reused across calls.
func (w *Writer) Reset() {
	w.out = w.out[:0]
	w.descs = w.descs[:0]
}

// Bytes returns the shared bitstream buffer backing every descriptor
// returned by Finalize since the last Reset.
func (w *Writer) Bytes() []byte { return w.out }

// Descriptors returns the NAL descriptors finalized since the last Reset.
func (w *Writer) Descriptors() []frame.NalDescriptor { return w.descs }

// Begin aligns the writer to a byte boundary and starts a new NAL unit of
// the given type and reference priority. It must be followed by zero or
// more BitWriter calls, then End, then Finalize.
func (w *Writer) Begin(nalType frame.NalType, refIdc frame.RefIdc) {
	w.alignByte()
	w.rawBuf = w.rawBuf[:0]
	w.curByte = 0
	w.curBits = 0
	w.nalType = nalType
	w.refIdc = refIdc
	w.open = true
}

func (w *Writer) alignByte() {
	if w.curBits > 0 {
		w.rawBuf = append(w.rawBuf, w.curByte)
		w.curByte = 0
		w.curBits = 0
	}
}

// WriteBit appends a single bit to the currently open NAL's RBSP.
func (w *Writer) WriteBit(b uint) {
	w.curByte |= byte(b&1) << (7 - w.curBits)
	w.curBits++
	if w.curBits == 8 {
		w.rawBuf = append(w.rawBuf, w.curByte)
		w.curByte = 0
		w.curBits = 0
	}
}

// WriteBits appends the low n bits of v, most-significant bit first.
func (w *Writer) WriteBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(uint((v >> uint(i)) & 1))
	}
}

// WriteUE appends v as an Exp-Golomb unsigned code (ue(v)).
func (w *Writer) WriteUE(v uint32) {
	v1 := v + 1
	n := bits.Len32(v1)
	w.WriteBits(0, n-1)
	w.WriteBits(v1, n)
}

// WriteSE appends v as an Exp-Golomb signed code (se(v)): the standard
// zig-zag mapping onto ue(v).
func (w *Writer) WriteSE(v int32) {
	var ue uint32
	if v <= 0 {
		ue = uint32(-2 * int64(v))
	} else {
		ue = uint32(2*int64(v) - 1)
	}
	w.WriteUE(ue)
}

// WriteBytes byte-aligns, then appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.alignByte()
	w.rawBuf = append(w.rawBuf, b...)
}

// End byte-aligns the currently open NAL and returns its RBSP length.
func (w *Writer) End() int {
	w.alignByte()
	w.open = false
	return len(w.rawBuf)
}

// PadRaw appends n zero bytes directly to the RBSP of the NAL last closed
// by End, before Finalize escapes and frames it. Used for CABAC stuffing
// (spec.md §4.5 step 11), which must be applied to the raw bitstream ahead
// of emulation-prevention escaping.
func (w *Writer) PadRaw(n int) {
	for i := 0; i < n; i++ {
		w.rawBuf = append(w.rawBuf, 0)
	}
}

// RawRBSP returns the unescaped, unframed RBSP bytes written between the
// last Begin/End pair. It is for callers (ParameterSets implementations)
// that need raw SPS/PPS bytes without NAL framing, which Finalize applies
// unconditionally; it must be called before the next Begin, which reuses
// the backing array.
func (w *Writer) RawRBSP() []byte {
	return append([]byte(nil), w.rawBuf...)
}

// Finalize rewrites the NAL opened by the last Begin/End pair into framed
// form and appends it to the shared bitstream buffer, returning (and
// recording) its descriptor. annexb selects start-code framing;
// longStartcode requests the 4-byte 0x00000001 form (always used for SPS,
// PPS, and a picture's first slice, per spec.md §4.2). avcIntraClass != 0
// requests AVC-Intra padding of the NAL out to requestedPadding bytes past
// NALU_OVERHEAD (see nalOverhead).
func (w *Writer) Finalize(annexb, longStartcode bool, avcIntraClass, requestedPadding int) frame.NalDescriptor {
	escaped := make([]byte, MaxEscapedLen(len(w.rawBuf)))
	n := w.escape(escaped, w.rawBuf)
	escaped = escaped[:n]

	header := byte(w.refIdc)<<5 | byte(w.nalType)

	start := len(w.out)
	var lenFieldPos int
	if annexb {
		if longStartcode {
			w.out = append(w.out, 0x00, 0x00, 0x00, 0x01)
		} else {
			w.out = append(w.out, 0x00, 0x00, 0x01)
		}
	} else {
		lenFieldPos = len(w.out)
		w.out = append(w.out, 0x00, 0x00, 0x00, 0x00)
	}
	w.out = append(w.out, header)
	w.out = append(w.out, escaped...)

	padLen := 0
	if avcIntraClass != 0 {
		wantedTotal := len(w.rawBuf) + requestedPadding + nalOverhead
		currentSize := len(w.out) - start
		if d := wantedTotal - currentSize; d > 0 {
			padLen = d
			w.out = append(w.out, make([]byte, padLen)...)
		}
	}

	if !annexb {
		chunkSize := len(w.out) - lenFieldPos - 4
		binary.BigEndian.PutUint32(w.out[lenFieldPos:lenFieldPos+4], uint32(chunkSize))
	}

	desc := frame.NalDescriptor{
		RefIdc:        w.refIdc,
		NalType:       w.nalType,
		LongStartCode: longStartcode,
		PayloadStart:  start,
		PayloadLen:    len(w.out) - start,
		PaddingLen:    padLen,
	}
	w.descs = append(w.descs, desc)
	return desc
}
