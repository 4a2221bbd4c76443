// Package wave renders the ripple animation from a precomputed level table.
package wave

import (
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/ripple"
)

type Renderer struct {
	ids    []int
	levels ripple.Levels
	wave   ripple.Wave
}

// New builds the adjacency graph over panels, runs the BFS from origin once and
// keeps only the level table. The returned renderer is stateless per tick.
func New(panels []panel.Panel, origin int, threshold float64, w ripple.Wave) (*Renderer, error) {
	if threshold <= 0 {
		threshold = ripple.DefaultThresholdMM
	}
	levels, err := ripple.BuildGraph(panels, threshold).Levels(origin)
	if err != nil {
		return nil, err
	}
	return &Renderer{ids: panel.IDs(panels), levels: levels, wave: w}, nil
}

func (r *Renderer) Name() string          { return "ripple" }
func (r *Renderer) IDs() []int            { return r.ids }
func (r *Renderer) Levels() ripple.Levels { return r.levels }

func (r *Renderer) Render(dst []panel.Color, t float64) error {
	for i, id := range r.ids {
		if i >= len(dst) {
			break
		}
		lv, ok := r.levels[id]
		dst[i] = r.wave.Color(lv, ok, t)
	}
	return nil
}
