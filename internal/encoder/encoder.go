// Package encoder implements the driver state machine tying together
// internal/framewindow's reordering, internal/bitstream's NAL emission, and
// the out-of-scope MbCodec/RateControl/ParameterSets/Postfilter
// collaborators, per spec.md §4.5's per-encode-call algorithm.
package encoder

import (
	"fmt"
	"log/slog"

	"github.com/zsiec/h264enc/internal/bitstream"
	"github.com/zsiec/h264enc/internal/config"
	"github.com/zsiec/h264enc/internal/frame"
	"github.com/zsiec/h264enc/internal/framewindow"
)

// Result is what one Encode call returns: the NAL descriptors produced for
// exactly one coded picture, backed by Buf (valid until the next Encode
// call, which resets and reuses the same buffer).
type Result struct {
	NALs []frame.NalDescriptor
	Buf  []byte
}

// Encoder is the single-goroutine driver: Encode is not safe to call
// concurrently on the same Encoder (spec.md §5).
type Encoder struct {
	params config.Params
	log    *slog.Logger

	window *framewindow.Window
	writer *bitstream.Writer

	mbCodec frame.MbCodec
	rc      frame.RateControl
	ps      frame.ParameterSets
	pf      frame.Postfilter
	kd      frame.KernelDispatch

	mbWidth, mbHeight int

	idrPicID      int
	lastSliceWasB bool
}

// Open validates params and allocates the frame pool. A non-nil error means
// no partial Encoder is returned (spec.md §7).
func Open(
	params config.Params,
	mbCodec frame.MbCodec,
	rc frame.RateControl,
	ps frame.ParameterSets,
	pf frame.Postfilter,
	kd frame.KernelDispatch,
	log *slog.Logger,
) (*Encoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "encoder")

	params.VUI.SARWidth, params.VUI.SARHeight = config.CheckSAR(params.VUI.SARWidth, params.VUI.SARHeight, log)
	if err := ps.Refresh(params); err != nil {
		return nil, fmt.Errorf("encoder: refresh parameter sets: %w", err)
	}

	win := framewindow.New(framewindow.Config{
		FrameReference: params.FrameReference,
		MaxBFrames:     params.BFrame,
		KeyintMax:      params.KeyintMax,
		KeyintMin:      params.KeyintMin,
	}, params.Width, params.Height, log)

	return &Encoder{
		params:   params,
		log:      log,
		window:   win,
		writer:   bitstream.NewWriter(kd.Escape()),
		mbCodec:  mbCodec,
		rc:       rc,
		ps:       ps,
		pf:       pf,
		kd:       kd,
		mbWidth:  params.Width / 16,
		mbHeight: params.Height / 16,
	}, nil
}

// Encode runs spec.md §4.5's per-encode-call algorithm once. pic may be nil
// to drain already-buffered pictures without submitting a new one. A nil
// Result with a nil error means no picture was ready to emit yet.
func (e *Encoder) Encode(pic *frame.Picture) (*Result, error) {
	ready := pic == nil
	if pic != nil {
		ready = e.window.Accept(pic)
	}
	if !e.window.HasCurrent() {
		if !ready {
			return nil, nil
		}
		e.window.SelectCodingOrder()
	}
	fenc, ok := e.window.PopCodingOrder()
	if !ok {
		return nil, nil
	}

	sceneCut := false
	for {
		sliceType, nalType, refIdc := deriveTypes(fenc.Type)
		fenc.RefIdc, fenc.NalType = refIdc, nalType

		var fdec *frame.Frame
		if fenc.Type.IsReference() {
			fdec = e.window.NextFdec()
			fdec.POC = fenc.POC
		} else {
			fdec = fenc
		}
		if fenc.Type == frame.TypeIDR {
			e.window.ResetReference(fdec)
		}

		qp := e.rc.StartFrame(fenc, sliceType)
		if fenc.QPPlusOne != 0 {
			qp = fenc.QPPlusOne - 1
		}

		var refs frame.RefLists
		if sliceType != frame.SliceI {
			refs = e.window.BuildRefLists(fenc)
		}

		if !(sliceType == frame.SliceB && e.lastSliceWasB) {
			e.window.IncrementFrameNum()
		}

		sh := e.buildSliceHeader(fenc, sliceType, refs)

		e.writer.Reset()
		if fenc.Type == frame.TypeIDR {
			e.emitParamSets()
		}

		bits, err := e.emitSlice(fenc, fdec, sh, refs, sliceType, nalType, refIdc, qp)
		if err != nil {
			return nil, fmt.Errorf("encoder: emit slice: %w", err)
		}

		if e.params.CABAC {
			e.emitCabacStuffing(bits)
		}
		// Long start codes mark an access unit boundary (spec.md §4.2); every
		// picture here is exactly one slice, so every slice NAL gets one.
		e.writer.Finalize(e.params.AnnexB, true, e.params.AvcIntraClass, 0)

		if sliceType == frame.SliceP && e.params.ScenecutEnabled() && !e.rc.ReplayingStats() {
			if e.checkScenecut(fenc) {
				e.log.Debug("scene cut detected, retrying", "frame_index", fenc.FrameIndex)
				fenc = e.window.ScenecutRollback(fenc)
				sceneCut = true
				continue
			}
		}

		e.lastSliceWasB = sliceType == frame.SliceB
		if fenc.Type.IsReference() {
			e.window.UpdateReference(fdec, e.pf, e.deblockDisableIdc(), e.params.DeblockingAlphaC0, e.params.DeblockingBeta)
		}
		e.window.Recycle(fenc)
		if fenc.Type == frame.TypeIDR {
			e.idrPicID = (e.idrPicID + 1) % 65536
		}

		e.rc.EndFrame(frame.EncodeStats{
			FrameIndex: fenc.FrameIndex,
			Type:       fenc.Type,
			QP:         qp,
			Bytes:      len(e.writer.Bytes()),
			SceneCut:   sceneCut,
			Analysis:   fenc.Analysis,
		})

		return &Result{NALs: e.writer.Descriptors(), Buf: e.writer.Bytes()}, nil
	}
}

func deriveTypes(t frame.FrameType) (sliceType frame.SliceType, nalType frame.NalType, refIdc frame.RefIdc) {
	switch t {
	case frame.TypeIDR:
		return frame.SliceI, frame.NalIDRSlice, frame.RefHighest
	case frame.TypeI:
		return frame.SliceI, frame.NalSlice, frame.RefHigh
	case frame.TypeP:
		return frame.SliceP, frame.NalSlice, frame.RefHigh
	default: // TypeB
		return frame.SliceB, frame.NalSlice, frame.RefDisposable
	}
}

func (e *Encoder) deblockDisableIdc() int {
	if e.params.DeblockingFilter {
		return 0
	}
	return 1
}

func (e *Encoder) buildSliceHeader(fenc *frame.Frame, sliceType frame.SliceType, refs frame.RefLists) frame.SliceHeader {
	sh := frame.SliceHeader{
		Type:              sliceType,
		PPSID:             e.ps.PPSID(),
		FrameNum:          e.window.FrameNum(),
		IsIDR:             fenc.Type == frame.TypeIDR,
		POCLsb:            fenc.POC,
		NumRefIdxL0Active: len(refs.Ref0),
		NumRefIdxL1Active: len(refs.Ref1),
		CabacInitIdc:      e.params.CabacInitIdc,
		DisableDeblockIdc: e.deblockDisableIdc(),
		AlphaC0Offset:     e.params.DeblockingAlphaC0,
		BetaOffset:        e.params.DeblockingBeta,
		DirectSpatialMV:   true,
	}
	if sh.IsIDR {
		sh.IDRPicID = e.idrPicID
	}
	return sh
}

func (e *Encoder) emitParamSets() {
	e.writer.Begin(frame.NalSPS, frame.RefHighest)
	e.writer.WriteBytes(e.ps.SPS())
	e.writer.End()
	e.writer.Finalize(e.params.AnnexB, true, 0, 0)

	e.writer.Begin(frame.NalPPS, frame.RefHighest)
	e.writer.WriteBytes(e.ps.PPS())
	e.writer.End()
	e.writer.Finalize(e.params.AnnexB, true, 0, 0)
}
