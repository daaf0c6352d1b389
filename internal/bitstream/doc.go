// Package bitstream implements the H.264 Annex B / AVC1 output layer: NAL
// emulation-prevention byte insertion ([Escape]) and the [Writer] that
// wraps it with start-code or length-prefix framing and NAL header
// emission.
//
// The escape pass is a demuxer's emulation-prevention *removal* logic run
// in the opposite direction, and the framing produces length-prefixed
// output directly instead of re-wrapping Annex B.
package bitstream
