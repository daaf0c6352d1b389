package refimpl

import (
	"fmt"

	"github.com/zsiec/h264enc/internal/bitstream"
	"github.com/zsiec/h264enc/internal/config"
)

// FixedParameterSets builds a single, never-changing Baseline-profile SPS
// and PPS sized to one resolution. Refresh rebuilds both from the Params
// given to it; the only field that actually varies between calls in
// practice is VUI.SAR, since Encoder.Open may have normalized or dropped it
// after this type's constructor already built an initial SPS from the
// caller's raw values.
type FixedParameterSets struct {
	width, height       int
	sarWidth, sarHeight int
	ppsID               int

	sps, pps []byte
}

func NewFixedParameterSets(p config.Params) (*FixedParameterSets, error) {
	fp := &FixedParameterSets{}
	if err := fp.Refresh(p); err != nil {
		return nil, err
	}
	return fp, nil
}

func (p *FixedParameterSets) SPS() []byte { return p.sps }
func (p *FixedParameterSets) PPS() []byte { return p.pps }
func (p *FixedParameterSets) PPSID() int  { return p.ppsID }

func (p *FixedParameterSets) Refresh(params config.Params) error {
	if params.Width%16 != 0 || params.Height%16 != 0 {
		return fmt.Errorf("refimpl: width/height must be macroblock-aligned, got %dx%d", params.Width, params.Height)
	}
	p.width, p.height = params.Width, params.Height
	p.sarWidth, p.sarHeight = params.VUI.SARWidth, params.VUI.SARHeight
	mbWidth := p.width / 16
	mbHeight := p.height / 16

	w := bitstream.NewWriter(nil)

	w.Begin(7 /* SPS */, 3)
	w.WriteBits(66, 8) // profile_idc: Baseline
	w.WriteBits(0, 8)  // constraint flags + reserved
	w.WriteBits(30, 8) // level_idc
	w.WriteUE(0)       // seq_parameter_set_id
	w.WriteUE(0)       // log2_max_frame_num_minus4
	w.WriteUE(2)       // pic_order_cnt_type
	w.WriteUE(1)       // max_num_ref_frames
	w.WriteBit(0)      // gaps_in_frame_num_value_allowed_flag
	w.WriteUE(uint32(mbWidth - 1))
	w.WriteUE(uint32(mbHeight - 1))
	w.WriteBit(1) // frame_mbs_only_flag
	w.WriteBit(0) // direct_8x8_inference_flag
	w.WriteBit(0) // frame_cropping_flag
	if p.sarWidth != 0 && p.sarHeight != 0 {
		w.WriteBit(1) // vui_parameters_present_flag
		w.WriteBit(1) // aspect_ratio_info_present_flag
		w.WriteBits(255, 8) // aspect_ratio_idc: Extended_SAR
		w.WriteBits(uint32(p.sarWidth), 16)
		w.WriteBits(uint32(p.sarHeight), 16)
		w.WriteBit(0) // overscan_info_present_flag
		w.WriteBit(0) // video_signal_type_present_flag
		w.WriteBit(0) // chroma_loc_info_present_flag
		w.WriteBit(0) // timing_info_present_flag
		w.WriteBit(0) // nal_hrd_parameters_present_flag
		w.WriteBit(0) // vcl_hrd_parameters_present_flag
		w.WriteBit(0) // pic_struct_present_flag
		w.WriteBit(0) // bitstream_restriction_flag
	} else {
		w.WriteBit(0) // vui_parameters_present_flag
	}
	w.End()
	p.sps = w.RawRBSP()

	w.Reset()
	w.Begin(8 /* PPS */, 3)
	w.WriteUE(0) // pic_parameter_set_id
	w.WriteUE(0) // seq_parameter_set_id
	w.WriteBit(0) // entropy_coding_mode_flag (CAVLC)
	w.WriteBit(0) // bottom_field_pic_order_in_frame_present_flag
	w.WriteUE(0)  // num_slice_groups_minus1
	w.WriteUE(0)  // num_ref_idx_l0_default_active_minus1
	w.WriteUE(0)  // num_ref_idx_l1_default_active_minus1
	w.WriteBit(0) // weighted_pred_flag
	w.WriteBits(0, 2) // weighted_bipred_idc
	w.WriteSE(0)  // pic_init_qp_minus26
	w.WriteSE(0)  // pic_init_qs_minus26
	w.WriteSE(0)  // chroma_qp_index_offset
	w.WriteBit(1) // deblocking_filter_control_present_flag
	w.WriteBit(0) // constrained_intra_pred_flag
	w.WriteBit(0) // redundant_pic_cnt_present_flag
	w.End()
	p.pps = w.RawRBSP()
	p.ppsID = 0

	return nil
}
