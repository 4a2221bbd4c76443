package sample

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// Classifier flags colors inside an HSV window. Hue is in degrees, saturation
// and value on a 0-255 scale. The defaults pick out skin-like tones and were
// tuned by eye, so they are kept configurable.
type Classifier struct {
	HueMin float64 `yaml:"hue_min"`
	HueMax float64 `yaml:"hue_max"`
	SatMin float64 `yaml:"sat_min"`
	SatMax float64 `yaml:"sat_max"`
	ValMin float64 `yaml:"val_min"`
}

var DefaultClassifier = Classifier{
	HueMin: 0, HueMax: 25,
	SatMin: 20, SatMax: 150,
	ValMin: 150,
}

// HSV returns hue in [0,360) and saturation/value in [0,255].
func HSV(c panel.Color) (h, s, v float64) {
	cc := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, v = cc.Hsv()
	return h, s * 255, v * 255
}

func (k Classifier) Active(c panel.Color) bool {
	h, s, v := HSV(c)
	return h >= k.HueMin && h <= k.HueMax &&
		s >= k.SatMin && s <= k.SatMax &&
		v >= k.ValMin
}
