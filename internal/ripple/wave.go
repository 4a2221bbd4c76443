package ripple

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// UnreachedLevel is the hop count used for panels the BFS never reached, which
// pushes them far behind the wavefront.
const UnreachedLevel = 99

// Wave is a stateless cosine ripple. All durations are in seconds.
type Wave struct {
	Period        float64 `yaml:"period_s"`
	HopDelay      float64 `yaml:"hop_delay_s"`
	WavesPerColor int     `yaml:"waves_per_color"`
	HueStep       float64 `yaml:"hue_step"`
}

var DefaultWave = Wave{Period: 3.0, HopDelay: 0.1, WavesPerColor: 2, HueStep: 0.2}

// Intensity is (cos(2π·phase/period)+1)/2 for a panel level hops from the
// origin, evaluated at wall-clock time t.
func (w Wave) Intensity(level int, t float64) float64 {
	if w.Period <= 0 {
		return 0
	}
	delay := float64(level) * w.HopDelay
	phase := math.Mod(t-delay, w.Period)
	if phase < 0 {
		phase += w.Period
	}
	return (math.Cos(2*math.Pi*phase/w.Period) + 1) / 2
}

// Hue returns the active hue in [0,1). It advances by HueStep once every
// WavesPerColor periods.
func (w Wave) Hue(t float64) float64 {
	cycle := w.Period * float64(max(1, w.WavesPerColor))
	if cycle <= 0 {
		return 0
	}
	idx := math.Floor(t / cycle)
	h := math.Mod(idx*w.HueStep, 1.0)
	if h < 0 {
		h += 1
	}
	return h
}

// Base is the full-intensity color of the current hue.
func (w Wave) Base(t float64) panel.Color {
	c := colorful.Hsv(w.Hue(t)*360, 1, 1)
	return panel.Color{R: to255(c.R), G: to255(c.G), B: to255(c.B)}
}

// Color is the panel color at time t. ok=false marks a panel without a level.
func (w Wave) Color(level int, ok bool, t float64) panel.Color {
	if !ok {
		level = UnreachedLevel
	}
	base := w.Base(t)
	k := w.Intensity(level, t)
	return panel.Color{
		R: uint8(k * float64(base.R)),
		G: uint8(k * float64(base.G)),
		B: uint8(k * float64(base.B)),
	}
}

func to255(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v * 255)
}
