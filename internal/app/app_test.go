package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-leafcast/internal/audio"
	"github.com/coreman2200/funtimes-leafcast/internal/config"
	"github.com/coreman2200/funtimes-leafcast/internal/device"
	diag "github.com/coreman2200/funtimes-leafcast/internal/diagnostics"
	"github.com/coreman2200/funtimes-leafcast/internal/input"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/led"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
	"github.com/coreman2200/funtimes-leafcast/internal/ripple"
	"github.com/coreman2200/funtimes-leafcast/internal/source"
)

func row(n int) []panel.Panel {
	out := make([]panel.Panel, n)
	for i := range out {
		out[i] = panel.Panel{ID: 100 + i, X: float64(i) * 65, Shape: panel.SmallSquare}
	}
	return out
}

func simSession(t *testing.T, panels []panel.Panel) (*Session, *led.Sim, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Sim = true
	cfg.FPS = 100
	cfg.Viewport.W, cfg.Viewport.H = 64, 16
	sim := led.NewSim()
	sim.Keep = 1000
	s := NewSession(cfg, panels, sim)
	out := &bytes.Buffer{}
	s.Out = out
	return s, sim, out
}

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestRunStopsOnCancelAndError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ticks := 0
	require.NoError(t, Run(ctx, 200, func(dt float64) error {
		assert.Greater(t, dt, 0.0)
		ticks++
		return nil
	}))
	assert.Positive(t, ticks)

	boom := errors.New("boom")
	err := Run(context.Background(), 200, func(float64) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSessionCloseTurnsEverythingOff(t *testing.T) {
	s, sim, out := simSession(t, row(3))
	closed := 0
	s.AddCloser(closerFunc(func() error { closed++; return nil }))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	last := sim.Last()
	require.Len(t, last, 3)
	for _, e := range last {
		assert.Equal(t, proto.Entry{PanelID: e.PanelID}, e)
	}
	assert.True(t, sim.Closed())
	assert.Equal(t, 1, closed)
	assert.Equal(t, StopNotice+"\n", out.String())
}

func TestOpenNeedsLayoutFileWhenSimulating(t *testing.T) {
	cfg := config.Default()
	cfg.Sim = true
	_, err := Open(context.Background(), cfg)
	var ce *config.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestOpenFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, device.SaveLayout(path, row(2)))
	cfg := config.Default()
	cfg.Sim = true
	cfg.Device.LayoutFile = path

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	s.Out = io.Discard
	assert.Equal(t, []int{100, 101}, panel.IDs(s.Panels))
	assert.IsType(t, &led.Sim{}, s.Drv)
	require.NoError(t, s.Close())
}

func TestRunSceneSolidPreset(t *testing.T) {
	s, sim, _ := simSession(t, row(2))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, RunScene(ctx, s, "solid", SceneOptions{Preset: "Red"}))

	frames := sim.Frames()
	require.NotEmpty(t, frames)
	assert.Equal(t, []proto.Entry{
		{PanelID: 100, R: 255, Transition: 2},
		{PanelID: 101, R: 255, Transition: 2},
	}, frames[0])

	assert.Error(t, RunScene(ctx, s, "plasma", SceneOptions{}))
	assert.Error(t, RunScene(ctx, s, "solid", SceneOptions{Preset: "Mauve"}))
}

func TestRunRippleSendsEveryPanel(t *testing.T) {
	s, sim, _ := simSession(t, row(4))
	s.Cfg.Ripple.Transition = 5
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, RunRipple(ctx, s))

	frames := sim.Frames()
	require.NotEmpty(t, frames)
	for _, f := range frames {
		require.Len(t, f, 4)
		for i, e := range f {
			assert.Equal(t, 100+i, e.PanelID)
			assert.Equal(t, 5, e.Transition)
		}
	}

	s.Cfg.Ripple.Origin = 9999
	assert.ErrorIs(t, RunRipple(ctx, s), ripple.ErrUnknownOrigin)
}

func TestRunGIFPlaysOnce(t *testing.T) {
	s, sim, _ := simSession(t, row(1))
	s.Cfg.Viewport.W, s.Cfg.Viewport.H = 16, 16
	imgs := source.NewImages([]image.Image{
		solidImage(16, 16, color.RGBA{R: 255, A: 255}),
		solidImage(16, 16, color.RGBA{B: 255, A: 255}),
	}, []float64{0.05, 0.05})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, RunGIF(ctx, s, imgs, false))
	require.NoError(t, ctx.Err(), "a one-shot program ends on its own")

	frames := sim.Frames()
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, 255, frames[0][0].R)
	assert.Equal(t, 255, frames[len(frames)-1][0].B)
}

func TestRunMirrorSamplesSource(t *testing.T) {
	s, sim, _ := simSession(t, row(1))
	s.Cfg.Viewport.W, s.Cfg.Viewport.H = 16, 16
	imgs := source.NewImages([]image.Image{solidImage(16, 16, color.RGBA{G: 200, A: 255})}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, RunMirror(ctx, s, imgs, nil))
	require.NotEmpty(t, sim.Frames())
	assert.Equal(t, proto.Entry{PanelID: 100, G: 200, Transition: 2}, sim.Last()[0])
}

func TestRunMirrorStopsCleanlyWhenCaptureDies(t *testing.T) {
	s, sim, _ := simSession(t, row(1))
	s.Cfg.Viewport.W, s.Cfg.Viewport.H = 4, 4
	pr, pw := io.Pipe()
	src, err := source.NewRawVideo("ffmpeg", pr, 4, 4, layout.Viewport{W: 4, H: 4}, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		frame := bytes.Repeat([]byte{0, 180, 0}, 16)
		_, _ = pw.Write(frame)
		<-ctx.Done()
		// the capture process exits with the context, leaving its reader at EOF
		_ = pw.Close()
	}()
	time.AfterFunc(80*time.Millisecond, cancel)

	require.NoError(t, RunMirror(ctx, s, src, nil))
	require.NotEmpty(t, sim.Frames())
	assert.Equal(t, 180, sim.Frames()[0][0].G)
}

func TestRunReportsTickErrorsWhileLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := Run(ctx, 200, func(float64) error {
		return &source.AcquisitionError{Source: "ffmpeg", Err: io.EOF}
	})
	var ae *source.AcquisitionError
	assert.ErrorAs(t, err, &ae)
}

func TestGateTogglesTones(t *testing.T) {
	s, _, _ := simSession(t, row(2))
	bank := audio.NewToneBank(map[int]float64{100: 440}, 0)
	trigger := gate(s, bank, func(c panel.Color) bool { return c.R > 100 })

	trigger(100, panel.Color{R: 200})
	trigger(100, panel.Color{R: 200})
	trigger(101, panel.Color{R: 200})
	assert.True(t, bank.Voice(100).Active())
	trigger(100, panel.Color{})
	assert.False(t, bank.AnyActive())

	items := s.Diag.List()
	require.Len(t, items, 2)
	assert.Equal(t, "TONE.START", items[0].Code)
	assert.Equal(t, "TONE.STOP", items[1].Code)
	assert.Equal(t, diag.Info, items[1].Severity)
}

type scriptKeys []input.KeyEvent

func (k scriptKeys) Run(ctx context.Context, out chan<- input.KeyEvent) error {
	for _, e := range k {
		out <- e
	}
	return input.ErrInterrupt{}
}

func TestRunKeysSpellsGlyph(t *testing.T) {
	s, sim, _ := simSession(t, row(15))
	keys := scriptKeys{{Rune: 'a', Down: true}, {Rune: 'a'}}
	require.NoError(t, RunKeys(context.Background(), s, keys))

	frames := sim.Frames()
	require.Len(t, frames, 4)
	assert.Len(t, frames[0], 15)
	assert.Equal(t, input.StartupTransition, frames[0][0].Transition)
	assert.Equal(t, input.BlankTransition, frames[1][0].Transition)
	assert.Len(t, frames[2], len(input.Glyphs['A']))
	assert.Equal(t, input.GlyphTransition, frames[2][0].Transition)
	assert.GreaterOrEqual(t, frames[2][0].R, 40)
	assert.Len(t, frames[3], len(input.Glyphs['A']))
	assert.Equal(t, input.ReleaseTransition, frames[3][0].Transition)
	assert.Zero(t, frames[3][0].R)
}

func TestRunKeysNeedsFifteenPanels(t *testing.T) {
	s, _, _ := simSession(t, row(4))
	assert.Error(t, RunKeys(context.Background(), s, scriptKeys{}))
}

type scriptNotes struct{ evs []input.NoteEvent }

func (n *scriptNotes) ReadNote() (input.NoteEvent, error) {
	if len(n.evs) == 0 {
		return input.NoteEvent{}, io.EOF
	}
	ev := n.evs[0]
	n.evs = n.evs[1:]
	return ev, nil
}

func TestRunNotesOneDatagramPerEvent(t *testing.T) {
	s, sim, _ := simSession(t, row(3))
	notes := &scriptNotes{evs: []input.NoteEvent{
		{Key: 61, Velocity: 90, On: true},
		{Key: 61, On: false},
	}}
	require.NoError(t, RunNotes(context.Background(), s, notes))

	frames := sim.Frames()
	require.Len(t, frames, 2)
	require.Len(t, frames[0], 1)
	assert.Equal(t, 101, frames[0][0].PanelID, "note 61 lands on the second panel")
	assert.Equal(t, input.NoteOnTransition, frames[0][0].Transition)
	assert.Equal(t, proto.Entry{PanelID: 101, Transition: input.NoteOffTransition}, frames[1][0])
}

func TestRunLayoutPrintsAndSaves(t *testing.T) {
	s, _, out := simSession(t, row(2))
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, RunLayout(s, path))
	assert.Contains(t, out.String(), "2 panels, viewport 64x16 centered")

	got, err := device.LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, s.Panels, got)
}

type countingDriver struct{ led.Sim }

func (c *countingDriver) Failures() uint64 { return 7 }

func TestFailureCounterLooksThroughTee(t *testing.T) {
	assert.Nil(t, failureCounter(led.NewSim()))
	f := failureCounter(led.Tee{led.NewSim(), &countingDriver{}})
	require.NotNil(t, f)
	assert.EqualValues(t, 7, f())
}
