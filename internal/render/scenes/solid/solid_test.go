package solid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

func TestSolidFillsEveryPanel(t *testing.T) {
	s := New("solid", panel.Color{R: 10, G: 20, B: 30})
	dst := make([]panel.Color, 4)
	assert.NoError(t, s.Render(dst, 1.23))
	for _, c := range dst {
		assert.Equal(t, panel.Color{R: 10, G: 20, B: 30}, c)
	}
}

func TestSolidPresetsAndPulse(t *testing.T) {
	s := New("solid", panel.Black)
	assert.True(t, s.Preset("Blue"))
	assert.False(t, s.Preset("Mauve"))
	assert.Equal(t, panel.Color{B: 255}, s.C)

	s.PulseHz = 1
	dst := make([]panel.Color, 1)
	assert.NoError(t, s.Render(dst, 0.25))
	assert.InDelta(t, 255, int(dst[0].B), 1, "sin peak")
	assert.NoError(t, s.Render(dst, 0.75))
	assert.Equal(t, panel.Black, dst[0], "sin trough")
}
