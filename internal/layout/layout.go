package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

var (
	ErrUnknownShape = errors.New("unknown shape class")
	ErrDegenerate   = errors.New("degenerate layout")
	ErrViewport     = errors.New("invalid viewport")
	ErrNoPanels     = errors.New("no panels")
)

// Error is returned for any layout that cannot be mapped. It is fatal at startup.
type Error struct {
	PanelID int
	Shape   panel.Shape
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnknownShape):
		return fmt.Sprintf("layout: panel %d: %v %d", e.PanelID, e.Err, int(e.Shape))
	case e.Detail != "":
		return fmt.Sprintf("layout: %v: %s", e.Err, e.Detail)
	default:
		return "layout: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Mode selects how the physical layout is fitted to the viewport.
type Mode int

const (
	// Centered keeps the aspect ratio and letterboxes the shorter axis.
	Centered Mode = iota
	// Stretch fills the viewport on both axes, possibly distorting the layout.
	Stretch
)

func (m Mode) String() string {
	if m == Stretch {
		return "stretch"
	}
	return "centered"
}

// ParseMode accepts "centered" or "stretch" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "centered", "centred", "":
		return Centered, nil
	case "stretch":
		return Stretch, nil
	}
	return Centered, fmt.Errorf("unknown layout mode %q", s)
}

type Viewport struct{ W, H int }

func (v Viewport) Rect() image.Rectangle { return image.Rect(0, 0, v.W, v.H) }

type Options struct {
	Mode  Mode
	GapPx float64
	// Shapes overrides the edge table; nil means panel.Shapes.
	Shapes map[panel.Shape]float64
}

// Mapped is one panel's pixel footprint in the viewport.
type Mapped struct {
	ID     int
	Shape  panel.Shape
	Box    image.Rectangle
	Center image.Point
}

// Mapping is the full output of Map. Panels are in input order.
type Mapping struct {
	Viewport Viewport
	Mode     Mode
	Panels   []Mapped

	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
	// Bounds of the layout in mm, over panel half-extents.
	MinX, MinY, MaxX, MaxY float64
}

// IDs returns the mapped panel ids in order.
func (m *Mapping) IDs() []int {
	out := make([]int, len(m.Panels))
	for i, p := range m.Panels {
		out[i] = p.ID
	}
	return out
}

// Content is the union of all mapped boxes.
func (m *Mapping) Content() image.Rectangle {
	var r image.Rectangle
	for i, p := range m.Panels {
		if i == 0 {
			r = p.Box
			continue
		}
		r = r.Union(p.Box)
	}
	return r
}

// Map fits the physical panel layout into vp. It depends only on its inputs, so
// callers compute it once per layout rather than per frame.
func Map(panels []panel.Panel, vp Viewport, opts Options) (*Mapping, error) {
	if vp.W <= 0 || vp.H <= 0 {
		return nil, &Error{Err: ErrViewport, Detail: fmt.Sprintf("%dx%d", vp.W, vp.H)}
	}
	if len(panels) == 0 {
		return nil, &Error{Err: ErrNoPanels}
	}
	table := opts.Shapes
	if table == nil {
		table = panel.Shapes
	}

	edges := make([]float64, len(panels))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, p := range panels {
		edge, ok := table[p.Shape]
		if !ok {
			return nil, &Error{PanelID: p.ID, Shape: p.Shape, Err: ErrUnknownShape}
		}
		edges[i] = edge
		half := edge / 2
		minX = math.Min(minX, p.X-half)
		maxX = math.Max(maxX, p.X+half)
		minY = math.Min(minY, p.Y-half)
		maxY = math.Max(maxY, p.Y+half)
	}

	wMM, hMM := maxX-minX, maxY-minY
	if wMM <= 0 || hMM <= 0 {
		return nil, &Error{Err: ErrDegenerate, Detail: fmt.Sprintf("%.2fx%.2f mm", wMM, hMM)}
	}

	m := &Mapping{
		Viewport: vp,
		Mode:     opts.Mode,
		Panels:   make([]Mapped, len(panels)),
		MinX:     minX, MinY: minY, MaxX: maxX, MaxY: maxY,
	}
	vw, vh := float64(vp.W), float64(vp.H)
	switch opts.Mode {
	case Stretch:
		m.ScaleX = vw / wMM
		m.ScaleY = vh / hMM
	default:
		s := math.Min(vw/wMM, vh/hMM)
		m.ScaleX, m.ScaleY = s, s
		m.OffsetX = (vw - wMM*s) / 2
		m.OffsetY = (vh - hMM*s) / 2
	}

	for i, p := range panels {
		cx := (p.X-minX)*m.ScaleX + m.OffsetX
		cy := (p.Y-minY)*m.ScaleY + m.OffsetY
		hw := edges[i]*m.ScaleX/2 - opts.GapPx/2
		hh := edges[i]*m.ScaleY/2 - opts.GapPx/2
		m.Panels[i] = Mapped{
			ID:    p.ID,
			Shape: p.Shape,
			Box: image.Rectangle{
				Min: image.Pt(round(cx-hw), round(cy-hh)),
				Max: image.Pt(round(cx+hw), round(cy+hh)),
			},
			Center: image.Pt(round(cx), round(cy)),
		}
	}
	return m, nil
}

// round is half-to-even, so exact .5 boundaries land where the device scripts put them.
func round(v float64) int { return int(math.RoundToEven(v)) }
