package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/audio"
	"github.com/coreman2200/funtimes-leafcast/internal/device"
	diag "github.com/coreman2200/funtimes-leafcast/internal/diagnostics"
	"github.com/coreman2200/funtimes-leafcast/internal/input"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/render"
	"github.com/coreman2200/funtimes-leafcast/internal/render/scenes/calib"
	"github.com/coreman2200/funtimes-leafcast/internal/render/scenes/mirror"
	"github.com/coreman2200/funtimes-leafcast/internal/render/scenes/solid"
	"github.com/coreman2200/funtimes-leafcast/internal/render/scenes/wave"
	"github.com/coreman2200/funtimes-leafcast/internal/source"
)

// KeySource delivers key down/up events until ctx ends. *input.Terminal is
// the real one.
type KeySource interface {
	Run(ctx context.Context, out chan<- input.KeyEvent) error
}

// NoteSource blocks until the next note event. Closing it through the
// session unblocks a pending read.
type NoteSource interface {
	ReadNote() (input.NoteEvent, error)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newRand() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }

// RunLayout prints the mapped boxes and, if savePath is set, writes the panel
// snapshot for later offline runs.
func RunLayout(s *Session, savePath string) error {
	m, err := s.Mapping()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%d panels, viewport %dx%d %s\n", len(m.Panels), m.Viewport.W, m.Viewport.H, m.Mode)
	for _, p := range m.Panels {
		fmt.Fprintf(s.Out, "%6d  %-6s  box %v  center %v\n", p.ID, p.Shape, p.Box, p.Center)
	}
	if savePath == "" {
		return nil
	}
	if err := device.SaveLayout(savePath, s.Panels); err != nil {
		return err
	}
	log.Info().Str("path", savePath).Msg("layout saved")
	return nil
}

// RunMirror samples src once per tick and streams the panel colors. With a
// tone bank, every panel the classifier accepts turns its voice on.
func RunMirror(ctx context.Context, s *Session, src source.Source, bank *audio.ToneBank) error {
	s.AddCloser(src)
	m, err := s.Mapping()
	if err != nil {
		return err
	}
	s.StartPreview(ctx, m)

	r := mirror.New("mirror", m, func() (image.Image, error) { return src.Next(ctx) })
	if bank != nil {
		r.Trigger = gate(s, bank, s.Cfg.Theremin.Classifier.Active)
	}
	eng, err := s.Engine(m.IDs(), r, s.Cfg.Transition)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "mirror running, press Ctrl+C to stop")
	return Run(ctx, s.Cfg.FPS, func(float64) error { return eng.RenderOnce(-1) })
}

// gate flips tones as panels enter or leave the active color range.
func gate(s *Session, bank *audio.ToneBank, active func(panel.Color) bool) func(int, panel.Color) {
	return func(id int, c panel.Color) {
		on := active(c)
		if !bank.SetActive(id, on) {
			return
		}
		d := diag.Diagnostic{
			Severity: diag.Info,
			Code:     "TONE.STOP",
			Summary:  "stop tone",
			Evidence: map[string]any{"panel": id, "hz": bank.Voice(id).Freq()},
		}
		if on {
			d.Code, d.Summary = "TONE.START", "start tone"
		}
		s.notify(d)
	}
}

// NewToneBank builds the theremin voices from config, falling back to C4, D4
// and E4 on the first panels of ids.
func NewToneBank(s *Session, ids []int) *audio.ToneBank {
	notes := s.Cfg.Theremin.Notes
	if len(notes) == 0 {
		notes = audio.DefaultMap(ids)
	}
	bank := audio.NewToneBank(notes, s.Cfg.Theremin.SampleRate)
	if s.Cfg.Theremin.Volume > 0 {
		bank.Volume = s.Cfg.Theremin.Volume
	}
	return bank
}

// StartAudio streams bank to the configured PCM sink until the session
// closes. No sink configured means silent gating. The sink is opened on the
// audio goroutine: a FIFO blocks there until its reader attaches.
func StartAudio(ctx context.Context, s *Session, bank *audio.ToneBank) error {
	path := s.Cfg.Theremin.AudioOut
	if path == "" {
		log.Info().Msg("theremin: no audio_out, tones are logged only")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.AddCloser(closerFunc(func() error { cancel(); return nil }))
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			s.notify(diag.Diagnostic{Severity: diag.Warn, Code: "AUDIO.OPEN", Summary: "audio out unavailable", Detail: err.Error()})
			return
		}
		defer f.Close()
		log.Info().Str("path", path).Msg("audio out attached")
		err = audio.Stream(ctx, f, bank, s.Cfg.Theremin.BlockSize)
		if err != nil && ctx.Err() == nil {
			s.notify(diag.Diagnostic{Severity: diag.Warn, Code: "AUDIO.WRITE", Summary: "audio stream stopped", Detail: err.Error()})
		}
	}()
	return nil
}

// RunTheremin is RunMirror with tones.
func RunTheremin(ctx context.Context, s *Session, src source.Source) error {
	m, err := s.Mapping()
	if err != nil {
		return err
	}
	bank := NewToneBank(s, m.IDs())
	if err := StartAudio(ctx, s, bank); err != nil {
		return err
	}
	return RunMirror(ctx, s, src, bank)
}

// RunGIF plays decoded frames with their own durations. A one-shot program
// returns nil after its last frame.
func RunGIF(ctx context.Context, s *Session, imgs *source.Images, loop bool) error {
	m, err := s.Mapping()
	if err != nil {
		return err
	}
	s.StartPreview(ctx, m)

	r := mirror.New("gif", m, func() (image.Image, error) { return imgs.Next(ctx) })
	eng, err := s.Engine(m.IDs(), r, s.Cfg.Transition)
	if err != nil {
		return err
	}
	prog := imgs.Program(loop)
	prog.Brightness = s.Cfg.GIF.Brightness
	c, err := NewConductor(eng, imgs, prog)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "playing %d frames (%.1fs), press Ctrl+C to stop\n", len(imgs.Frames), c.Seq.Duration())
	err = Run(ctx, s.Cfg.FPS, c.Tick)
	if errors.Is(err, errProgramDone) {
		return nil
	}
	return err
}

// RunRipple animates waves spreading from the configured origin panel.
func RunRipple(ctx context.Context, s *Session) error {
	if len(s.Panels) == 0 {
		return &layout.Error{Err: layout.ErrNoPanels}
	}
	rc := s.Cfg.Ripple
	origin := rc.Origin
	if origin == 0 {
		origin = s.Panels[0].ID
	}
	r, err := wave.New(s.Panels, origin, rc.ThresholdMM, rc.Wave)
	if err != nil {
		return err
	}
	lv := r.Levels()
	log.Info().Int("origin", origin).Int("reached", len(lv)).Int("depth", lv.Max()).Msg("ripple levels")

	s.StartPreview(ctx, s.optionalMapping())
	eng, err := s.Engine(r.IDs(), r, rc.Transition)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "ripple running, press Ctrl+C to stop")
	return Run(ctx, s.Cfg.FPS, func(float64) error { return eng.RenderOnce(-1) })
}

// optionalMapping is for commands that only show the mapping in the preview.
func (s *Session) optionalMapping() *layout.Mapping {
	m, err := s.Mapping()
	if err != nil {
		log.Debug().Err(err).Msg("preview without layout")
		return nil
	}
	return m
}

// RunKeys spells pressed letters and digits on the 3x5 grid.
func RunKeys(ctx context.Context, s *Session, keys KeySource) error {
	ids := panel.IDs(s.Panels)
	var (
		g   input.Grid
		err error
	)
	if len(s.Cfg.Keys.Grid) > 0 {
		g, err = input.GridFromRows(s.Cfg.Keys.Grid)
	} else {
		g, err = input.GridFromIDs(ids)
	}
	if err != nil {
		return err
	}
	board := input.NewLetterBoard(g, ids, newRand())

	s.StartPreview(ctx, s.optionalMapping())
	eng, err := s.Engine(ids, nil, input.StartupTransition)
	if err != nil {
		return err
	}
	if err := eng.Send(board.Startup()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan input.KeyEvent, 16)
	errc := make(chan error, 1)
	go func() { errc <- keys.Run(ctx, events) }()

	handle := func(ev input.KeyEvent) error {
		if ev.Down {
			for _, dg := range board.Press(ev.Rune) {
				if err := eng.Send(dg); err != nil {
					return err
				}
			}
			return nil
		}
		if dg := board.Release(ev.Rune); dg != nil {
			return eng.Send(dg)
		}
		return nil
	}

	err = pump(ctx, events, errc, handle)
	var quit input.ErrInterrupt
	if errors.As(err, &quit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunNotes lights one panel per note event. Each event is its own datagram.
func RunNotes(ctx context.Context, s *Session, notes NoteSource) error {
	ids := panel.IDs(s.Panels)
	nm, err := input.NewNoteMap(ids, newRand())
	if err != nil {
		return err
	}
	s.StartPreview(ctx, s.optionalMapping())
	eng, err := s.Engine(ids, nil, input.NoteOnTransition)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan input.NoteEvent, 64)
	errc := make(chan error, 1)
	go func() {
		for {
			ev, err := notes.ReadNote()
			if err != nil {
				errc <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(s.Out, "listening for notes, press Ctrl+C to stop")
	err = pump(ctx, events, errc, func(ev input.NoteEvent) error {
		log.Debug().Uint8("key", ev.Key).Uint8("velocity", ev.Velocity).Bool("on", ev.On).Msg("note")
		return eng.Send(nm.Entries(ev))
	})
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("midi: %w", err)
}

// pump handles events until the producer reports on errc or handle fails.
// Events queued before the producer's error are still handled.
func pump[T any](ctx context.Context, events <-chan T, errc <-chan error, handle func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := handle(ev); err != nil {
				return err
			}
		case srcErr := <-errc:
			for {
				select {
				case ev := <-events:
					if err := handle(ev); err != nil {
						return err
					}
				default:
					return srcErr
				}
			}
		}
	}
}

// Scenes lists the renderers RunScene accepts.
func Scenes(ids []int) *render.Registry {
	reg := render.NewRegistry()
	reg.Register(solid.New("solid", panel.Color{R: 255, G: 255, B: 255}))
	reg.Register(calib.New("calib", ids))
	return reg
}

// SceneOptions tune the built-in scenes.
type SceneOptions struct {
	Color   panel.Color
	Preset  string
	PulseHz float64
}

// RunScene drives a built-in scene by name until ctx ends.
func RunScene(ctx context.Context, s *Session, name string, opts SceneOptions) error {
	ids := panel.IDs(s.Panels)
	reg := Scenes(ids)
	r, ok := reg.Get(name)
	if !ok {
		return fmt.Errorf("unknown scene %q, have %v", name, reg.List())
	}
	if sol, ok := r.(*solid.Solid); ok {
		sol.C = opts.Color
		sol.PulseHz = opts.PulseHz
		if opts.Preset != "" && !sol.Preset(opts.Preset) {
			return fmt.Errorf("unknown preset %q, have %v", opts.Preset, sol.Presets())
		}
	}

	s.StartPreview(ctx, s.optionalMapping())
	eng, err := s.Engine(ids, r, s.Cfg.Transition)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%s running, press Ctrl+C to stop\n", r.Name())
	return Run(ctx, s.Cfg.FPS, func(float64) error { return eng.RenderOnce(-1) })
}
