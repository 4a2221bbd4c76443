package mirror

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

func twoPanels(t *testing.T) *layout.Mapping {
	t.Helper()
	m, err := layout.Map([]panel.Panel{
		{ID: 1, X: 0, Y: 0, Shape: panel.LargeSquare},
		{ID: 2, X: 200, Y: 0, Shape: panel.LargeSquare},
	}, layout.Viewport{W: 640, H: 480}, layout.Options{Mode: layout.Centered})
	require.NoError(t, err)
	return m
}

func TestMirrorSamplesLeftAndRight(t *testing.T) {
	m := twoPanels(t)
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, image.Rect(0, 0, 320, 480), &image.Uniform{color.RGBA{255, 0, 0, 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(320, 0, 640, 480), &image.Uniform{color.RGBA{0, 0, 255, 255}}, image.Point{}, draw.Src)

	var seen []int
	r := New("mirror", m, func() (image.Image, error) { return img, nil })
	r.Trigger = func(id int, _ panel.Color) { seen = append(seen, id) }

	dst := make([]panel.Color, 2)
	require.NoError(t, r.Render(dst, 0))
	assert.Equal(t, panel.Color{R: 255}, dst[0])
	assert.Equal(t, panel.Color{B: 255}, dst[1])
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []int{1, 2}, r.IDs())
}

func TestMirrorPropagatesFrameErrors(t *testing.T) {
	boom := errors.New("camera gone")
	r := New("mirror", twoPanels(t), func() (image.Image, error) { return nil, boom })
	assert.ErrorIs(t, r.Render(make([]panel.Color, 2), 0), boom)
}
