// Package panel holds the data model shared by the mapper, the sampler and the
// protocol: a panel's identity, physical position and shape class, and the RGB
// triple it is driven with.
package panel

import "fmt"

// Shape is the device-reported shape type of a panel.
type Shape int

const (
	LargeSquare Shape = 33
	SmallSquare Shape = 34
)

// Shapes maps each known shape class to its physical edge length in mm.
var Shapes = map[Shape]float64{
	LargeSquare: 130.0,
	SmallSquare: 65.0,
}

func (s Shape) String() string {
	switch s {
	case LargeSquare:
		return "large"
	case SmallSquare:
		return "small"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Panel is one addressable tile as reported by the device at startup.
// X and Y are millimetres in the device's own coordinate frame.
type Panel struct {
	ID    int     `yaml:"panelId" json:"panelId"`
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Shape Shape   `yaml:"shapeType" json:"shapeType"`
}

// Color is the 8-bit RGB value sent for one panel.
type Color struct{ R, G, B uint8 }

var Black = Color{}

// Scale multiplies every channel by s in [0,1], truncating.
func (c Color) Scale(s float64) Color {
	if s >= 1 {
		return c
	}
	if s <= 0 {
		return Black
	}
	return Color{
		R: uint8(float64(c.R) * s),
		G: uint8(float64(c.G) * s),
		B: uint8(float64(c.B) * s),
	}
}

// IDs returns the panel ids in slice order.
func IDs(ps []Panel) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// Index returns the position of id in ps, or -1.
func Index(ps []Panel, id int) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}
