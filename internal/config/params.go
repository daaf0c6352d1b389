// Package config validates the parameter set an Encoder is opened with
// (spec.md §6), following internal/moq/errors.go's sentinel-plus-wrapping-
// struct pattern for reporting which field failed and why.
package config

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllocationFailure names the allocation-failure error kind (spec.md §7).
// Encoder.Open does not return it: the frame pool is allocated with make,
// so an allocation failure panics instead.
var ErrAllocationFailure = errors.New("h264enc: allocation failure")

// InvalidParameterError reports a single invalid field from Params.Validate.
type InvalidParameterError struct {
	Field string
	Err   error
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("h264enc: invalid parameter %s: %v", e.Field, e.Err)
}

func (e *InvalidParameterError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *InvalidParameterError {
	return &InvalidParameterError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Analyse mirrors spec.md §6's analyse.* parameter group.
type Analyse struct {
	SubpelRefine int // [1, 5]
	Inter        InterModeSet
}

// InterModeSet is analyse.inter's bitset of inter partition sizes the
// MbCodec collaborator is permitted to try. PSUB8x8 implies PSUB16x16
// (spec.md §6); Validate normalizes rather than rejecting this.
type InterModeSet uint8

const (
	InterP16x16 InterModeSet = 1 << iota
	InterP8x8
)

// Normalize applies the PSUB8x8-implies-PSUB16x16 rule.
func (m InterModeSet) Normalize() InterModeSet {
	if m&InterP8x8 != 0 {
		m |= InterP16x16
	}
	return m
}

// VUI mirrors spec.md §6's vui.* parameter group.
type VUI struct {
	SARWidth, SARHeight int
}

// RC mirrors spec.md §6's rc.* parameter group.
type RC struct {
	QBlur          float64
	ComplexityBlur float64
}

// Params is the full parameter set spec.md §6 enumerates.
type Params struct {
	Width, Height int

	FrameReference int
	KeyintMax      int
	KeyintMin      int // 0 means "derive from KeyintMax in Validate"
	BFrame         int

	AnnexB bool

	CABAC        bool
	CabacInitIdc int // [-1, 2], -1 = adaptive

	DeblockingFilter      bool
	DeblockingAlphaC0     int // [-6, 6]
	DeblockingBeta        int // [-6, 6]

	ScenecutThreshold int // [0, 100]; negative disables

	Analyse Analyse
	VUI     VUI
	RC      RC

	AvcIntraClass int // 0 disables padding
}

// MaxBFrames is the hard ceiling spec.md §6 names for `bframe`.
const MaxBFrames = 16

// Validate checks every field spec.md §6 constrains and derives KeyintMin
// when left zero. It mutates KeyintMin/Analyse.Inter in place on the
// receiver so callers don't have to repeat the derivation. VUI.SAR is
// intentionally left alone here: reducing it can itself be a degraded or
// invalid condition that spec.md §7 requires logging for (UnsupportedAspectRatio,
// InvalidSAR), and Validate has no logger on hand. Callers with a logger
// (Encoder.Open) call CheckSAR separately once Validate has passed.
func (p *Params) Validate() error {
	if p.Width <= 0 || p.Width%16 != 0 {
		return invalid("width", "must be a positive multiple of 16, got %d", p.Width)
	}
	if p.Height <= 0 || p.Height%16 != 0 {
		return invalid("height", "must be a positive multiple of 16, got %d", p.Height)
	}
	if p.FrameReference < 1 || p.FrameReference > 15 {
		return invalid("frame_reference", "must be in [1, 15], got %d", p.FrameReference)
	}
	if p.KeyintMax < 1 {
		return invalid("keyint_max", "must be >= 1, got %d", p.KeyintMax)
	}
	maxMin := p.KeyintMax/2 + 1
	if p.KeyintMin == 0 {
		p.KeyintMin = clamp(maxMin, 1, maxMin)
	} else if p.KeyintMin < 1 || p.KeyintMin > maxMin {
		return invalid("keyint_min", "must be in [1, %d], got %d", maxMin, p.KeyintMin)
	}
	if p.BFrame < 0 || p.BFrame > MaxBFrames {
		return invalid("bframe", "must be in [0, %d], got %d", MaxBFrames, p.BFrame)
	}
	if p.CabacInitIdc < -1 || p.CabacInitIdc > 2 {
		return invalid("cabac_init_idc", "must be in [-1, 2], got %d", p.CabacInitIdc)
	}
	if p.DeblockingAlphaC0 < -6 || p.DeblockingAlphaC0 > 6 {
		return invalid("deblocking_filter_alphac0", "must be in [-6, 6], got %d", p.DeblockingAlphaC0)
	}
	if p.DeblockingBeta < -6 || p.DeblockingBeta > 6 {
		return invalid("deblocking_filter_beta", "must be in [-6, 6], got %d", p.DeblockingBeta)
	}
	if p.ScenecutThreshold > 100 {
		return invalid("i_scenecut_threshold", "must be <= 100, got %d", p.ScenecutThreshold)
	}
	if p.Analyse.SubpelRefine < 1 || p.Analyse.SubpelRefine > 5 {
		return invalid("analyse.i_subpel_refine", "must be in [1, 5], got %d", p.Analyse.SubpelRefine)
	}
	p.Analyse.Inter = p.Analyse.Inter.Normalize()

	if p.RC.QBlur < 0 {
		p.RC.QBlur = 0
	}
	if p.RC.ComplexityBlur < 0 {
		p.RC.ComplexityBlur = 0
	}
	return nil
}

// ScenecutEnabled reports whether scene-cut detection is active for this
// configuration (spec.md §6: a negative threshold disables it).
func (p *Params) ScenecutEnabled() bool { return p.ScenecutThreshold >= 0 }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// reduceSAR reduces w:h by their GCD, then halves both until neither
// exceeds the 16-bit extended-SAR field width, per spec.md §6's
// vui.sar_width/height rule.
func reduceSAR(w, h int) (int, int) {
	if w == 0 || h == 0 {
		return w, h
	}
	g := gcd(w, h)
	w, h = w/g, h/g
	for w >= 65536 || h >= 65536 {
		w /= 2
		h /= 2
	}
	return w, h
}

// CheckSAR validates and reduces a VUI SAR pair, per spec.md §7's two
// non-fatal SAR error kinds: a structurally nonsensical pair (negative, or
// only one of the two zero) is InvalidSAR; a pair whose GCD reduction and
// halving (reduceSAR) floors one side to zero is UnsupportedAspectRatio
// ("degraded" — the encode proceeds, just without
// SAR signaling). Both are logged at Warn and both drop the SAR back to
// (0, 0) rather than erroring, matching ConflictingFrameHint's
// log-and-override treatment in internal/framewindow.
func CheckSAR(width, height int, log *slog.Logger) (int, int) {
	if width == 0 && height == 0 {
		return 0, 0
	}
	if width <= 0 || height <= 0 {
		log.Warn("invalid SAR parameters, dropping", "sar_width", width, "sar_height", height)
		return 0, 0
	}
	w, h := reduceSAR(width, height)
	if w <= 0 || h <= 0 || w >= 65536 || h >= 65536 {
		log.Warn("unsupported aspect ratio, dropping SAR", "sar_width", width, "sar_height", height)
		return 0, 0
	}
	return w, h
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
