package wave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/ripple"
)

func TestWaveRendersFromLevels(t *testing.T) {
	ps := []panel.Panel{
		{ID: 1, X: 0}, {ID: 2, X: 65}, {ID: 3, X: 130},
		{ID: 4, X: 900, Y: 900},
	}
	r, err := New(ps, 1, 0, ripple.DefaultWave)
	require.NoError(t, err)
	assert.Equal(t, ripple.Levels{1: 0, 2: 1, 3: 2}, r.Levels())
	assert.Equal(t, []int{1, 2, 3, 4}, r.IDs())

	dst := make([]panel.Color, 4)
	require.NoError(t, r.Render(dst, 0))
	assert.Equal(t, panel.Color{R: 255}, dst[0], "origin peaks at t=0")
	assert.Equal(t, ripple.DefaultWave.Color(1, true, 0), dst[1])
	assert.Equal(t, ripple.DefaultWave.Color(0, false, 0), dst[3], "isolated panel uses the sentinel level")

	require.NoError(t, r.Render(dst, 0.2))
	assert.Equal(t, panel.Color{R: 255}, dst[2], "two hops behind")
}

func TestWaveUnknownOrigin(t *testing.T) {
	_, err := New([]panel.Panel{{ID: 1}}, 9, 75, ripple.DefaultWave)
	assert.ErrorIs(t, err, ripple.ErrUnknownOrigin)
}
