package refimpl

import "github.com/zsiec/h264enc/internal/frame"

// ConstantQP is the simplest RateControl: every frame starts at the same
// QP regardless of type or observed cost. It always reports itself as
// replaying a prior stat file (spec.md §4.5 step 12), which disables
// scene-cut detection — ConstantQP's placeholder costs are not meant to
// drive that decision; internal/encoder's own tests exercise scene-cut
// directly with a fake RateControl that reports false here.
type ConstantQP struct {
	QP int

	bits  int
	stats []frame.EncodeStats
}

func NewConstantQP(qp int) *ConstantQP { return &ConstantQP{QP: qp} }

func (c *ConstantQP) StartFrame(fenc *frame.Frame, sliceType frame.SliceType) int {
	c.bits = 0
	return c.QP
}

func (c *ConstantQP) MbDone(bits int) { c.bits += bits }

func (c *ConstantQP) EndFrame(stats frame.EncodeStats) {
	c.stats = append(c.stats, stats)
}

func (c *ConstantQP) ReplayingStats() bool { return true }

// Stats returns every EncodeStats observed so far, for tests that need to
// inspect what the encoder reported per frame.
func (c *ConstantQP) Stats() []frame.EncodeStats { return c.stats }
