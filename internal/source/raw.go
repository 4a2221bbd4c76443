package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
)

// RawVideo reads fixed-size rgb24 frames, as written by
// `ffmpeg -f rawvideo -pix_fmt rgb24 -`, and hands them out at viewport size.
type RawVideo struct {
	name   string
	r      io.Reader
	closer io.Closer
	w, h   int
	mirror bool

	buf   []byte
	frame *image.RGBA
	out   *image.RGBA
	count uint64
}

// NewRawVideo wraps r. w and h are the frame size on the wire.
func NewRawVideo(name string, r io.Reader, w, h int, vp layout.Viewport, mirror bool) (*RawVideo, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raw video %s: bad frame size %dx%d", name, w, h)
	}
	if vp.W <= 0 || vp.H <= 0 {
		return nil, fmt.Errorf("raw video %s: bad viewport %dx%d", name, vp.W, vp.H)
	}
	rv := &RawVideo{
		name:   name,
		r:      r,
		w:      w,
		h:      h,
		mirror: mirror,
		buf:    make([]byte, w*h*3),
		frame:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	if w != vp.W || h != vp.H {
		rv.out = newCanvas(vp)
	}
	if c, ok := r.(io.Closer); ok {
		rv.closer = c
	}
	return rv, nil
}

// Next blocks until one whole frame has been read.
func (rv *RawVideo) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rv.r, rv.buf); err != nil {
		return nil, &AcquisitionError{Source: rv.name, Err: err}
	}
	rv.count++
	pix := rv.frame.Pix
	for i, j := 0, 0; i < len(rv.buf); i, j = i+3, j+4 {
		pix[j+0] = rv.buf[i+0]
		pix[j+1] = rv.buf[i+1]
		pix[j+2] = rv.buf[i+2]
		pix[j+3] = 0xff
	}
	img := rv.frame
	if rv.out != nil {
		fit(rv.out, rv.frame)
		img = rv.out
	}
	if rv.mirror {
		flipH(img)
	}
	return img, nil
}

// Frames counts frames read so far.
func (rv *RawVideo) Frames() uint64 { return rv.count }

func (rv *RawVideo) Close() error {
	if rv.closer == nil {
		return nil
	}
	return rv.closer.Close()
}

// command is a child process whose stdout is the frame stream.
type command struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (c *command) Read(p []byte) (int, error) { return c.stdout.Read(p) }

func (c *command) Close() error {
	_ = c.stdout.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	err := c.cmd.Wait()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		// killed on purpose
		return nil
	}
	return err
}

// Command starts a shell-style command line (split on spaces) and streams its
// stdout as raw video, e.g. an ffmpeg capture of a webcam.
func Command(ctx context.Context, line string, w, h int, vp layout.Viewport, mirror bool) (*RawVideo, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil, errors.New("empty capture command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", args[0], err)
	}
	log.Info().Str("cmd", args[0]).Int("pid", cmd.Process.Pid).Msg("capture started")
	return NewRawVideo(args[0], &command{cmd: cmd, stdout: out}, w, h, vp, mirror)
}
