// Package calib walks a single lit panel through the layout order so each
// physical tile can be matched to its id.
package calib

import (
	"math"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

type Renderer struct {
	name string
	ids  []int

	// StepS is how long each panel stays lit.
	StepS float64
	// Base is the brightness (0..1) of the panels that are not lit.
	Base float64
}

func New(name string, ids []int) *Renderer {
	return &Renderer{name: name, ids: ids, StepS: 1.0, Base: 0.05}
}

func (r *Renderer) Name() string { return r.name }

// Current returns the index in layout order lit at time t.
func (r *Renderer) Current(t float64) int {
	if len(r.ids) == 0 || r.StepS <= 0 || t < 0 {
		return 0
	}
	return int(math.Floor(t/r.StepS)) % len(r.ids)
}

// chan cycles red, green, blue by position so neighbours are easy to tell apart.
func chanColor(i int) panel.Color {
	switch i % 3 {
	case 0:
		return panel.Color{R: 255}
	case 1:
		return panel.Color{G: 255}
	}
	return panel.Color{B: 255}
}

func (r *Renderer) Render(dst []panel.Color, t float64) error {
	cur := r.Current(t)
	base := clamp01(r.Base)
	for i := range dst {
		if i >= len(r.ids) {
			dst[i] = panel.Black
			continue
		}
		if i == cur {
			dst[i] = panel.Color{R: 255, G: 255, B: 255}
			continue
		}
		dst[i] = chanColor(i).Scale(base)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
