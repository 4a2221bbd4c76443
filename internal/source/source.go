// Package source produces the pixel buffers the mirror renderer samples: raw
// video frames from a pipe, decoded GIF frames, or an in-memory list.
package source

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
)

// Source yields one image per call. Implementations may reuse the returned
// image on the next call.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// AcquisitionError means the source produced no frame. It ends the loop that
// was reading it; there is no reconnect.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("frame acquisition (%s): %v", e.Source, e.Err)
}
func (e *AcquisitionError) Unwrap() error { return e.Err }

// fit scales src into a viewport-sized RGBA. When sizes already match it
// copies without resampling.
func fit(dst *image.RGBA, src image.Image) {
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}

// flipH mirrors img left to right in place.
func flipH(img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Min.X, y)+w*4]
		for i, j := 0, w-1; i < j; i, j = i+1, j-1 {
			a, c := row[i*4:i*4+4], row[j*4:j*4+4]
			for k := 0; k < 4; k++ {
				a[k], c[k] = c[k], a[k]
			}
		}
	}
}

func newCanvas(vp layout.Viewport) *image.RGBA { return image.NewRGBA(vp.Rect()) }
