package solid

import (
	"math"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// Solid is a tiny renderer that fills every panel with a single color.
// A non-zero PulseHz modulates brightness, handy for checking the link.
type Solid struct {
	name    string
	C       panel.Color
	PulseHz float64
}

func New(name string, c panel.Color) *Solid { return &Solid{name: name, C: c} }

func (s *Solid) Name() string { return s.name }

// Presets are the named colors accepted by Preset.
func (s *Solid) Presets() []string { return []string{"Red", "Green", "Blue", "White", "Black"} }

func (s *Solid) Preset(name string) bool {
	switch name {
	case "Red":
		s.C = panel.Color{R: 255}
	case "Green":
		s.C = panel.Color{G: 255}
	case "Blue":
		s.C = panel.Color{B: 255}
	case "White":
		s.C = panel.Color{R: 255, G: 255, B: 255}
	case "Black":
		s.C = panel.Black
	default:
		return false
	}
	return true
}

func (s *Solid) Render(dst []panel.Color, t float64) error {
	c := s.C
	if s.PulseHz > 0 {
		c = c.Scale(0.5 + 0.5*math.Sin(2*math.Pi*s.PulseHz*t))
	}
	for i := range dst {
		dst[i] = c
	}
	return nil
}
