package render

import "github.com/coreman2200/funtimes-leafcast/internal/panel"

// PostPipeline groups post stages; zero values disable them.
type PostPipeline struct {
	// Brightness scales every channel; 0 and 1 leave the frame untouched.
	Brightness float64
	// WhiteCap bounds R+G+B per panel (0..765); 0 disables the cap.
	WhiteCap int
}

// Apply runs brightness first, then the white cap, in place.
func (p PostPipeline) Apply(buf []panel.Color) {
	if p.Brightness > 0 && p.Brightness < 1 {
		for i := range buf {
			buf[i] = buf[i].Scale(p.Brightness)
		}
	}
	if p.WhiteCap > 0 {
		WhiteCap(buf, p.WhiteCap)
	}
}

// WhiteCap scales each panel so that R+G+B <= limit, keeping its hue.
func WhiteCap(buf []panel.Color, limit int) {
	for i, c := range buf {
		s := int(c.R) + int(c.G) + int(c.B)
		if s <= limit || s == 0 {
			continue
		}
		buf[i] = c.Scale(float64(limit) / float64(s))
	}
}
