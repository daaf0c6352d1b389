package refimpl

import "github.com/zsiec/h264enc/internal/frame"

// NoopPostfilter skips deblocking entirely and only replicates plane edges
// into the padding border, the minimum needed for motion compensation
// against frames at the picture boundary to read defined pixels.
type NoopPostfilter struct{}

func (NoopPostfilter) Deblock(fdec *frame.Frame, disableIdc, alphaC0Offset, betaOffset int) {}

func (NoopPostfilter) ExpandBorders(fdec *frame.Frame) {
	expandPlane(&fdec.Y)
	expandPlane(&fdec.U)
	expandPlane(&fdec.V)
}

func expandPlane(p *frame.Plane) {
	b := p.BorderWidth
	if b == 0 {
		return
	}
	for y := 0; y < p.Height; y++ {
		row := p.Data[(y+b)*p.Stride:]
		left := row[b]
		right := row[b+p.Width-1]
		for x := 0; x < b; x++ {
			row[x] = left
			row[b+p.Width+x] = right
		}
	}
	top := p.Data[b*p.Stride : b*p.Stride+p.Stride]
	for y := 0; y < b; y++ {
		copy(p.Data[y*p.Stride:(y+1)*p.Stride], top)
	}
	bottom := p.Data[(b+p.Height-1)*p.Stride : (b+p.Height)*p.Stride]
	for y := b + p.Height; y < p.Height+2*b; y++ {
		copy(p.Data[y*p.Stride:(y+1)*p.Stride], bottom)
	}
}
