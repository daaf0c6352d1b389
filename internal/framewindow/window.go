// Package framewindow implements picture reordering: accepting pictures in
// input order, assigning each a coding type (I/IDR/P/B) and picture order
// count, releasing them in coding order, and maintaining the fixed-size
// reference window consumed by reference-list construction.
//
// The frame pool itself — a fixed arena of *frame.Frame sized
// 1+max_bframes+frame_reference+2 at Open, recycled through an unused list
// rather than individually freed — follows spec.md §3/§9's "arena of
// frames" design note, modeled here as slot-index slices the same way
// internal/stream.Manager models its stream set as a mutex-guarded map.
package framewindow

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/zsiec/h264enc/internal/frame"
)

// borderWidth is the padded border, in pixels, reserved around every plane
// for motion-compensated prediction and deblocking (MbCodec/Postfilter
// concerns out of scope here; the border must still exist in the pool).
const borderWidth = 32

// Config is the subset of internal/config.Params that governs reordering.
type Config struct {
	FrameReference int
	MaxBFrames     int
	KeyintMax      int
	KeyintMin      int
}

// Window owns the frame arena, the unused/next/current slot lists, and the
// fixed reference array. All exported methods are safe for concurrent use;
// Encoder's driver goroutine and any pipelined lookahead submission path may
// call Accept concurrently with PopCodingOrder/UpdateReference.
type Window struct {
	log *slog.Logger
	cfg Config

	mu sync.Mutex

	arena []*frame.Frame

	unused  []int
	next    []int
	current []int

	// reference is the fixed-size, always-fully-populated reference array:
	// len(reference) == cfg.FrameReference+2 for the lifetime of the
	// Window. reference[0] is the most recently decoded reference frame;
	// reference[len-1] is the next frame due to be reconstructed into
	// (spec.md §9's frame-pool sizing note).
	reference []int

	inputCounter      int
	poc               int
	frameNum          int
	lastIDRFrameIndex int
	haveIDR           bool
}

// New allocates the frame arena (planes sized width x height, 4:2:0, padded
// by borderWidth) and the fixed reference array. cfg must already be
// validated (internal/config.Params.Validate).
func New(cfg Config, width, height int, log *slog.Logger) *Window {
	if log == nil {
		log = slog.Default()
	}
	total := 1 + cfg.MaxBFrames + cfg.FrameReference + 2

	w := &Window{
		log: log.With("component", "framewindow"),
		cfg: cfg,
	}
	w.arena = make([]*frame.Frame, total)
	for i := range w.arena {
		w.arena[i] = newPooledFrame(i, width, height)
	}

	refSize := cfg.FrameReference + 2
	w.reference = make([]int, refSize)
	for i := 0; i < refSize; i++ {
		w.reference[i] = i
		w.arena[i].POC = -1
	}
	for i := refSize; i < total; i++ {
		w.unused = append(w.unused, i)
	}
	return w
}

func newPooledFrame(slot, width, height int) *frame.Frame {
	return &frame.Frame{
		Slot: slot,
		Y:    allocPlane(width, height, borderWidth),
		U:    allocPlane(width/2, height/2, borderWidth/2),
		V:    allocPlane(width/2, height/2, borderWidth/2),
		POC:  -1,
	}
}

func allocPlane(w, h, border int) frame.Plane {
	stride := w + 2*border
	return frame.Plane{
		Data:        make([]byte, stride*(h+2*border)),
		Width:       w,
		Height:      h,
		Stride:      stride,
		BorderWidth: border,
	}
}

// Accept copies pic into a recycled frame and appends it to the reordering
// queue, returning whether enough pictures are now queued to run
// SelectCodingOrder (max_bframes+1, spec.md §4.4). It returns false without
// consuming a pooled frame if the pool is momentarily exhausted — callers
// are expected to have drained current/popped enough that this cannot
// happen under correct use, but Accept will not panic if it does.
func (w *Window) Accept(pic *frame.Picture) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.unused) == 0 {
		w.log.Warn("accept called with no unused pool slots available")
		return false
	}

	slot := w.unused[len(w.unused)-1]
	w.unused = w.unused[:len(w.unused)-1]

	f := w.arena[slot]
	copyPlane(&f.Y, &pic.Y)
	copyPlane(&f.U, &pic.U)
	copyPlane(&f.V, &pic.V)
	f.PTS = pic.PTS
	f.QPPlusOne = pic.QPPlusOne
	f.FrameIndex = w.inputCounter
	f.Analysis.Reset()

	hint := pic.TypeHint
	if pic.Keyframe {
		hint = frame.TypeIDR
	}
	f.Hint = hint
	f.Type = frame.TypeAuto

	w.inputCounter++
	w.next = append(w.next, slot)

	return len(w.next) >= w.cfg.MaxBFrames+1
}

func copyPlane(dst, src *frame.Plane) {
	for y := 0; y < src.Height; y++ {
		srcRow := src.Data[(y+src.BorderWidth)*src.Stride+src.BorderWidth:]
		dstRow := dst.Data[(y+dst.BorderWidth)*dst.Stride+dst.BorderWidth:]
		copy(dstRow[:dst.Width], srcRow[:src.Width])
	}
}

// SelectCodingOrder assigns types and POCs to a prefix of next and moves
// the resulting coding-order group (one non-B "head" followed by the B
// frames that preceded it in input order) into current. It must only be
// called when current is empty, and is a no-op if next is empty.
func (w *Window) SelectCodingOrder() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selectCodingOrderLocked()
}

func (w *Window) selectCodingOrderLocked() {
	if len(w.current) != 0 || len(w.next) == 0 {
		return
	}

	bCount := 0
	headPos := -1
	for i := 0; i < len(w.next); i++ {
		f := w.arena[w.next[i]]

		forceIDR := f.Hint == frame.TypeIDR || !w.haveIDR || f.FrameIndex-w.lastIDRFrameIndex >= w.cfg.KeyintMax
		if forceIDR {
			if i > 0 {
				prev := w.arena[w.next[i-1]]
				if prev.Type == frame.TypeB {
					// The pending B was about to extend this GOP, but the
					// IDR boundary lands here instead: close the GOP on
					// prev now (as its own head, no B's of its own) and
					// leave f for the next SelectCodingOrder call, where
					// it will hit this same forceIDR branch at i==0.
					w.log.Warn("closing GOP ahead of forced IDR, demoting pending B to P",
						"frame_index", prev.FrameIndex)
					prev.Type = frame.TypeP
					headPos = i - 1
					break
				}
			}
			if f.Hint != frame.TypeAuto && f.Hint != frame.TypeIDR {
				w.log.Warn("overriding conflicting frame type hint for forced IDR",
					"frame_index", f.FrameIndex, "hint", f.Hint)
			}
			f.Type = frame.TypeIDR
			w.poc = 0
			w.frameNum = 0
			w.haveIDR = true
			w.lastIDRFrameIndex = f.FrameIndex
			f.POC = w.poc
			w.poc += 2
			headPos = i
			break
		}

		atEnd := i+1 >= len(w.next)
		if f.Hint == frame.TypeI {
			f.Type = frame.TypeI
		} else if bCount == w.cfg.MaxBFrames || atEnd {
			f.Type = frame.TypeP
		} else {
			f.Type = frame.TypeB
			bCount++
			f.POC = w.poc
			w.poc += 2
			continue
		}
		f.POC = w.poc
		w.poc += 2
		headPos = i
		break
	}

	if headPos < 0 {
		// next was exhausted entirely by B assignments (can only happen if
		// the MaxBFrames/atEnd promotion rule above is unreachable, i.e.
		// never in practice) — leave everything queued for the next call.
		return
	}

	head := w.next[headPos]
	bs := append([]int(nil), w.next[:headPos]...)
	w.current = append([]int{head}, bs...)
	w.next = w.next[headPos+1:]
}

// PopCodingOrder removes and returns the next frame in coding order, or
// (nil, false) if current is empty.
func (w *Window) PopCodingOrder() (*frame.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.current) == 0 {
		return nil, false
	}
	slot := w.current[0]
	w.current = w.current[1:]
	return w.arena[slot], true
}

// HasCurrent reports whether a coding-order group is already buffered.
func (w *Window) HasCurrent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.current) > 0
}

// Recycle returns f's slot to the unused pool once its encode is fully
// finished and it will neither be referenced again nor reappear in next or
// current (B frames, and the discarded input copy of a reference frame
// whose reconstruction lives in a separate reference-array slot).
func (w *Window) Recycle(f *frame.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unused = append(w.unused, f.Slot)
}

// NextFdec returns the reference-array slot about to be evicted: the scratch
// target a reference (non-B) frame's reconstruction is written into before
// UpdateReference shifts it to the front of the window.
func (w *Window) NextFdec() *frame.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.arena[w.reference[len(w.reference)-1]]
}

// BuildRefLists builds the forward/backward reference-picture lists for
// fenc from the current reference window (spec.md §4.4): ref0 holds valid
// reference frames with POC less than fenc's, ordered closest-first and
// capped to FrameReference entries; ref1 holds the single nearest frame
// with greater POC, used only for B slices.
func (w *Window) BuildRefLists(fenc *frame.Frame) frame.RefLists {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ref0, ref1 []*frame.Frame
	for _, slot := range w.reference {
		f := w.arena[slot]
		if f.POC < 0 || f == fenc {
			continue
		}
		if f.POC < fenc.POC {
			ref0 = append(ref0, f)
		} else if f.POC > fenc.POC {
			ref1 = append(ref1, f)
		}
	}
	sort.Slice(ref0, func(i, j int) bool { return ref0[i].POC > ref0[j].POC })
	sort.Slice(ref1, func(i, j int) bool { return ref1[i].POC < ref1[j].POC })

	if len(ref0) > w.cfg.FrameReference {
		ref0 = ref0[:w.cfg.FrameReference]
	}
	if len(ref1) > 1 {
		ref1 = ref1[:1]
	}
	return frame.RefLists{Ref0: ref0, Ref1: ref1}
}

// UpdateReference runs the postfilter over fdec (a reference frame just
// reconstructed by MbCodec.Encode, already sitting in the evicted slot
// NextFdec returned) and shifts it to the front of the reference window.
func (w *Window) UpdateReference(fdec *frame.Frame, pf frame.Postfilter, disableIdc, alphaC0, beta int) {
	if pf != nil {
		pf.Deblock(fdec, disableIdc, alphaC0, beta)
		pf.ExpandBorders(fdec)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	oldest := len(w.reference) - 1
	for i := oldest; i > 0; i-- {
		w.reference[i] = w.reference[i-1]
	}
	w.reference[0] = fdec.Slot
}

// ResetReference invalidates every reference slot but the one just decoded
// (an IDR), matching spec.md §4.4's IDR reference-window reset.
func (w *Window) ResetReference(idr *frame.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, slot := range w.reference {
		if slot == idr.Slot {
			continue
		}
		w.arena[slot].POC = -1
	}
}

// FrameNum returns the current frame_num counter.
func (w *Window) FrameNum() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameNum
}

// LastIDRFrameIndex returns the input frame_index of the most recent IDR,
// used by the scene-cut bias calculation's gop_size term.
func (w *Window) LastIDRFrameIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastIDRFrameIndex
}

// IncrementFrameNum bumps frame_num for a just-emitted reference slice
// (spec.md §4.5 step 7: every slice except a B following a B).
func (w *Window) IncrementFrameNum() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frameNum++
}

// ScenecutRollback implements spec.md §4.5 step 12's retry: fenc (already
// popped from current) triggered a scene cut. If B frames are still queued
// in current, the last of them (the one immediately preceding fenc in
// display order) is swapped out to become the new candidate, retyped P,
// and fenc is pushed back into current to be coded after it. Otherwise (no
// pending Bs), fenc itself becomes the cut point: a new IDR if far enough
// past the last one to satisfy keyint_min, else a plain I.
func (w *Window) ScenecutRollback(fenc *frame.Frame) *frame.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.frameNum--

	if len(w.current) > 0 {
		lastIdx := len(w.current) - 1
		lastSlot := w.current[lastIdx]
		last := w.arena[lastSlot]
		w.current[lastIdx] = fenc.Slot
		last.Type = frame.TypeP
		return last
	}

	gopSize := fenc.FrameIndex - w.lastIDRFrameIndex
	if !w.haveIDR || gopSize >= w.cfg.KeyintMin {
		fenc.Type = frame.TypeIDR
		fenc.POC = 0
		w.poc = 2
		w.frameNum = 0
		w.haveIDR = true
		w.lastIDRFrameIndex = fenc.FrameIndex
	} else {
		fenc.Type = frame.TypeI
	}
	return fenc
}
