package source

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/sequence"
)

// LoadGIF decodes every frame of the animation at path, composites it the way
// a viewer would (honouring disposal), scales it to vp and optionally mirrors
// it horizontally. Delays become per-frame durations in seconds; a zero delay
// falls back to sequence.DefaultFrameS.
func LoadGIF(path string, vp layout.Viewport, mirror bool) (*Images, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromGIF(g, vp, mirror)
}

// FromGIF is LoadGIF for an already decoded animation.
func FromGIF(g *gif.GIF, vp layout.Viewport, mirror bool) (*Images, error) {
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}
	if vp.W <= 0 || vp.H <= 0 {
		return nil, fmt.Errorf("bad viewport %dx%d", vp.W, vp.H)
	}
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	var saved *image.RGBA

	out := &Images{}
	for i, fr := range g.Image {
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			saved = image.NewRGBA(canvas.Bounds())
			copy(saved.Pix, canvas.Pix)
		}
		draw.Draw(canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)

		frame := newCanvas(vp)
		fit(frame, canvas)
		if mirror {
			flipH(frame)
		}
		out.Frames = append(out.Frames, frame)

		d := 0.0
		if i < len(g.Delay) {
			d = float64(g.Delay[i]) / 100.0
		}
		if d <= 0 {
			d = sequence.DefaultFrameS
		}
		out.Durations = append(out.Durations, d)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, fr.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			if saved != nil {
				copy(canvas.Pix, saved.Pix)
			}
		}
	}
	return out, nil
}

// Program turns the frame durations into a playable sequence.
func (s *Images) Program(loop bool) sequence.Program {
	p := sequence.Program{Loop: loop, Frames: make([]sequence.Frame, len(s.Durations))}
	for i, d := range s.Durations {
		p.Frames[i] = sequence.Frame{Name: fmt.Sprintf("frame-%d", i), DurationS: d}
	}
	return p
}
