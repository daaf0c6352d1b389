package refimpl

import (
	"github.com/zsiec/h264enc/internal/bitstream"
	"github.com/zsiec/h264enc/internal/frame"
)

// ScalarKernels is the only KernelDispatch this repository ships: it always
// selects the portable scalar NAL-escape kernel. spec.md §9 leaves SIMD
// variant selection (by cpuid feature bits, the way the reference encoder's
// x264_cpu_detect does it) as a named but unimplemented extension point;
// ScalarKernels is where such a dispatcher would plug in.
type ScalarKernels struct{}

func (ScalarKernels) Escape() frame.EscapeFunc { return bitstream.ScalarEscape }
