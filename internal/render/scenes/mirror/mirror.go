// Package mirror samples a pixel source into panel colors: each panel shows the
// mean color of the pixels under its mapped box.
package mirror

import (
	"image"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/sample"
)

// FrameFunc yields the image to sample for the current tick.
type FrameFunc func() (image.Image, error)

// Renderer pulls exactly one image per Render call.
type Renderer struct {
	name    string
	mapping *layout.Mapping
	frame   FrameFunc
	sampler *sample.Sampler

	// Trigger, if set, sees every sampled panel color (theremin gating).
	Trigger func(id int, c panel.Color)
}

func New(name string, m *layout.Mapping, frame FrameFunc) *Renderer {
	return &Renderer{name: name, mapping: m, frame: frame, sampler: sample.NewSampler()}
}

func (r *Renderer) Name() string { return r.name }

// IDs is the panel order Render fills dst in.
func (r *Renderer) IDs() []int { return r.mapping.IDs() }

func (r *Renderer) Render(dst []panel.Color, _ float64) error {
	img, err := r.frame()
	if err != nil {
		return err
	}
	for i, mp := range r.mapping.Panels {
		if i >= len(dst) {
			break
		}
		c := r.sampler.Sample(mp.ID, img, mp.Box)
		dst[i] = c
		if r.Trigger != nil {
			r.Trigger(mp.ID, c)
		}
	}
	return nil
}
