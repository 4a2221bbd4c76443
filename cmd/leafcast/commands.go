package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/app"
	"github.com/coreman2200/funtimes-leafcast/internal/config"
	"github.com/coreman2200/funtimes-leafcast/internal/input"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/source"
)

type runner func(ctx context.Context, cfg *config.Config, args []string) error

// commands bind their own flags and return what to run once parsed.
var commands = map[string]func(fs *flag.FlagSet) runner{
	"layout":   layoutCmd,
	"mirror":   videoCmd(false),
	"theremin": videoCmd(true),
	"gif":      gifCmd,
	"ripple":   rippleCmd,
	"keys":     keysCmd,
	"notes":    notesCmd,
	"solid":    solidCmd,
}

// session opens the device and guarantees the all-off datagram and stop
// notice on every exit path of fn.
func session(ctx context.Context, cfg *config.Config, fn func(s *app.Session) error) error {
	s, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("shutdown")
		}
	}()
	return fn(s)
}

func layoutCmd(fs *flag.FlagSet) runner {
	save := fs.String("save", "", "write the panel snapshot to this YAML/JSON file")
	return func(ctx context.Context, cfg *config.Config, _ []string) error {
		return session(ctx, cfg, func(s *app.Session) error { return app.RunLayout(s, *save) })
	}
}

func videoCmd(tones bool) func(fs *flag.FlagSet) runner {
	return func(fs *flag.FlagSet) runner {
		in := fs.String("input", "", `rgb24 stream file, "-" for stdin`)
		command := fs.String("command", "", "capture command whose stdout is rgb24, e.g. ffmpeg ... -f rawvideo -pix_fmt rgb24 -")
		width := fs.Int("width", 0, "frame width on the wire")
		height := fs.Int("height", 0, "frame height on the wire")
		mirror := fs.Bool("flip", false, "mirror frames horizontally")
		audioOut := fs.String("audio-out", "", "theremin: s16le PCM sink (file or FIFO)")
		return func(ctx context.Context, cfg *config.Config, _ []string) error {
			v := &cfg.Video
			v.Input = firstNonEmpty(*in, v.Input)
			v.Command = firstNonEmpty(*command, v.Command)
			v.Width = firstPositive(*width, v.Width)
			v.Height = firstPositive(*height, v.Height)
			v.Mirror = v.Mirror || *mirror
			cfg.Theremin.AudioOut = firstNonEmpty(*audioOut, cfg.Theremin.AudioOut)

			return session(ctx, cfg, func(s *app.Session) error {
				src, err := openVideo(ctx, cfg)
				if err != nil {
					return err
				}
				if tones {
					return app.RunTheremin(ctx, s, src)
				}
				return app.RunMirror(ctx, s, src, nil)
			})
		}
	}
}

func openVideo(ctx context.Context, cfg *config.Config) (source.Source, error) {
	v := cfg.Video
	vp := layout.Viewport{W: cfg.Viewport.W, H: cfg.Viewport.H}
	if v.Command != "" {
		return source.Command(ctx, v.Command, v.Width, v.Height, vp, v.Mirror)
	}
	if v.Input == "" || v.Input == "-" {
		return source.NewRawVideo("stdin", os.Stdin, v.Width, v.Height, vp, v.Mirror)
	}
	f, err := os.Open(v.Input)
	if err != nil {
		return nil, err
	}
	return source.NewRawVideo(v.Input, f, v.Width, v.Height, vp, v.Mirror)
}

func gifCmd(fs *flag.FlagSet) runner {
	once := fs.Bool("once", false, "play a single time instead of looping")
	noFlip := fs.Bool("no-flip", false, "do not mirror frames horizontally")
	return func(ctx context.Context, cfg *config.Config, args []string) error {
		g := &cfg.GIF
		if len(args) > 0 {
			g.Path = args[0]
		}
		if g.Path == "" {
			return &config.ConfigError{Field: "gif.path", Reason: "no GIF given"}
		}
		if *once {
			g.Loop = false
		}
		if *noFlip {
			g.Mirror = false
		}
		vp := layout.Viewport{W: cfg.Viewport.W, H: cfg.Viewport.H}
		imgs, err := source.LoadGIF(g.Path, vp, g.Mirror)
		if err != nil {
			return err
		}
		log.Info().Str("path", g.Path).Int("frames", len(imgs.Frames)).Msg("gif loaded")
		return session(ctx, cfg, func(s *app.Session) error { return app.RunGIF(ctx, s, imgs, g.Loop) })
	}
}

func rippleCmd(fs *flag.FlagSet) runner {
	origin := fs.Int("origin", 0, "panel id the waves start from (default: first panel)")
	threshold := fs.Float64("threshold", 0, "adjacency distance in mm")
	return func(ctx context.Context, cfg *config.Config, _ []string) error {
		r := &cfg.Ripple
		if *origin != 0 {
			r.Origin = *origin
		}
		if *threshold > 0 {
			r.ThresholdMM = *threshold
		}
		return session(ctx, cfg, func(s *app.Session) error { return app.RunRipple(ctx, s) })
	}
}

func keysCmd(fs *flag.FlagSet) runner {
	hold := fs.Int("hold-ms", 0, "release a key this long after its last repeat")
	return func(ctx context.Context, cfg *config.Config, _ []string) error {
		cfg.Keys.HoldMS = firstPositive(*hold, cfg.Keys.HoldMS)
		return session(ctx, cfg, func(s *app.Session) error {
			term, err := input.OpenTerminal()
			if err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			term.Hold = time.Duration(cfg.Keys.HoldMS) * time.Millisecond
			s.AddCloser(term)
			return app.RunKeys(ctx, s, term)
		})
	}
}

func notesCmd(fs *flag.FlagSet) runner {
	dev := fs.String("device", "", "raw MIDI device, e.g. /dev/snd/midiC1D0")
	return func(ctx context.Context, cfg *config.Config, _ []string) error {
		cfg.Notes.Device = firstNonEmpty(*dev, cfg.Notes.Device)
		if cfg.Notes.Device == "" {
			return &config.ConfigError{Field: "notes.device", Reason: "no MIDI device given"}
		}
		return session(ctx, cfg, func(s *app.Session) error {
			f, err := os.Open(cfg.Notes.Device)
			if err != nil {
				return fmt.Errorf("midi: %w", err)
			}
			r := input.NewMIDIReader(f)
			s.AddCloser(r)
			return app.RunNotes(ctx, s, r)
		})
	}
}

func solidCmd(fs *flag.FlagSet) runner {
	scene := fs.String("scene", "solid", "solid | calib")
	col := fs.String("color", "#ffffff", "hex color or r,g,b")
	preset := fs.String("preset", "", "Red | Green | Blue | White | Black")
	pulse := fs.Float64("pulse", 0, "pulse frequency in Hz, 0 for steady")
	return func(ctx context.Context, cfg *config.Config, _ []string) error {
		c, err := parseColor(*col)
		if err != nil {
			return &config.ConfigError{Field: "color", Reason: err.Error()}
		}
		opts := app.SceneOptions{Color: c, Preset: *preset, PulseHz: *pulse}
		return session(ctx, cfg, func(s *app.Session) error { return app.RunScene(ctx, s, *scene, opts) })
	}
}

// parseColor accepts "#rrggbb" or "r,g,b" with channels in 0..255.
func parseColor(s string) (panel.Color, error) {
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return panel.Color{}, fmt.Errorf("want r,g,b, got %q", s)
		}
		var ch [3]uint8
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return panel.Color{}, fmt.Errorf("channel %q not in 0..255", p)
			}
			ch[i] = uint8(n)
		}
		return panel.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	hc, err := colorful.Hex(s)
	if err != nil {
		return panel.Color{}, errors.New("bad hex color " + s)
	}
	r, g, b := hc.RGB255()
	return panel.Color{R: r, G: g, B: b}, nil
}
