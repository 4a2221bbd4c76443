// Package sample reduces a pixel region to the single color a panel shows.
package sample

import (
	"image"
	"image/color"
	"math"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// Mean averages every pixel of img inside box (half-open, clipped to the image
// bounds) and rounds each channel to the nearest integer. ok is false when the
// box is inverted or the clipped box has no area; the returned color is then
// meaningless.
func Mean(img image.Image, box image.Rectangle) (c panel.Color, ok bool) {
	if box.Empty() {
		return panel.Color{}, false
	}
	r := box.Intersect(img.Bounds())
	if r.Empty() {
		return panel.Color{}, false
	}
	var sr, sg, sb uint64
	switch src := img.(type) {
	case *image.RGBA:
		sr, sg, sb = sumPix(src.Pix, src.Stride, src.PixOffset(r.Min.X, r.Min.Y), r.Dx(), r.Dy())
	case *image.NRGBA:
		sr, sg, sb = sumPix(src.Pix, src.Stride, src.PixOffset(r.Min.X, r.Min.Y), r.Dx(), r.Dy())
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				sr += uint64(px.R)
				sg += uint64(px.G)
				sb += uint64(px.B)
			}
		}
	}
	n := float64(r.Dx() * r.Dy())
	return panel.Color{
		R: uint8(math.Round(float64(sr) / n)),
		G: uint8(math.Round(float64(sg) / n)),
		B: uint8(math.Round(float64(sb) / n)),
	}, true
}

// sumPix walks a 4-byte-per-pixel buffer. Alpha is ignored; frames are opaque.
func sumPix(pix []uint8, stride, off, w, h int) (r, g, b uint64) {
	for y := 0; y < h; y++ {
		row := pix[off+y*stride : off+y*stride+w*4]
		for i := 0; i < len(row); i += 4 {
			r += uint64(row[i])
			g += uint64(row[i+1])
			b += uint64(row[i+2])
		}
	}
	return r, g, b
}

// Sampler wraps Mean with a per-panel memory. A box with no area after clipping
// keeps the panel's previous color, or black if it never had one.
type Sampler struct {
	prev map[int]panel.Color
}

func NewSampler() *Sampler { return &Sampler{prev: map[int]panel.Color{}} }

func (s *Sampler) Sample(id int, img image.Image, box image.Rectangle) panel.Color {
	c, ok := Mean(img, box)
	if !ok {
		return s.prev[id]
	}
	s.prev[id] = c
	return c
}

// Reset forgets all retained colors.
func (s *Sampler) Reset() { s.prev = map[int]panel.Color{} }
