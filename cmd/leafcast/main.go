package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/config"
)

const usage = `usage: leafcast <command> [flags]

commands:
  layout    print the mapped layout, optionally save a snapshot
  mirror    stream raw rgb24 video to the panels
  theremin  mirror with tones for panels showing the trigger color
  gif       play an animated GIF
  ripple    procedural waves from an origin panel
  keys      spell typed letters and digits on a 3x5 grid
  notes     light panels from a raw MIDI device
  solid     fill the wall (-scene calib walks a light through the panels)

run "leafcast <command> -h" for flags`

// common are the flags every command accepts.
type common struct {
	configPath string
	envPath    string
	logLevel   string
	layoutFile string
	sim        bool
	strip      bool
	preview    string
	fps        int
	transition int
	brightness float64
	width      int
	height     int
	mode       string
	gap        float64
}

func (c *common) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "leafcast.yaml", "path to config YAML")
	fs.StringVar(&c.envPath, "env", ".env", "dotenv file with NANOLEAF_IP and NANOLEAF_TOKEN")
	fs.StringVar(&c.logLevel, "log-level", "info", "debug | info | warn | error")
	fs.StringVar(&c.layoutFile, "layout", "", "layout snapshot (YAML/JSON) instead of asking the device")
	fs.BoolVar(&c.sim, "sim", false, "simulate: no network, frames logged at debug level")
	fs.BoolVar(&c.strip, "strip", false, "mirror panel colors onto a local SPI LED strip")
	fs.StringVar(&c.preview, "preview", "", "serve the preview on this address, e.g. :8080")
	fs.IntVar(&c.fps, "fps", 0, "tick rate")
	fs.IntVar(&c.transition, "transition", -1, "transition time in device units")
	fs.Float64Var(&c.brightness, "brightness", 0, "global brightness 0..1")
	fs.IntVar(&c.width, "w", 0, "viewport width in pixels")
	fs.IntVar(&c.height, "h", 0, "viewport height in pixels")
	fs.StringVar(&c.mode, "mode", "", "viewport fit: centered | stretch")
	fs.Float64Var(&c.gap, "gap", -1, "pixels trimmed between neighbouring boxes")
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "leafcast: unknown command %q\n\n%s\n", name, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var c common
	c.bind(fs)
	run := cmd(fs)
	_ = fs.Parse(os.Args[2:])

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(c.logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", c.logLevel).Msg("unknown log level, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := loadConfig(&c)
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, fs.Args())
	stop()
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		fmt.Fprintln(os.Stderr, "leafcast: configuration:", ce.Reason, "("+ce.Field+")")
	} else {
		fmt.Fprintln(os.Stderr, "leafcast:", err)
	}
	os.Exit(1)
}

// loadConfig layers defaults, the YAML file, .env, the environment and the
// flags, in that order, then validates the result.
func loadConfig(c *common) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", c.configPath).Msg("no config file, using defaults")
		cfg = config.Default()
	default:
		return nil, err
	}

	if err := config.LoadEnvFile(c.envPath); err != nil {
		return nil, &config.ConfigError{Field: "env", Reason: err.Error()}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	cfg.Sim = cfg.Sim || c.sim
	cfg.Strip.Enabled = cfg.Strip.Enabled || c.strip
	cfg.Device.LayoutFile = firstNonEmpty(c.layoutFile, cfg.Device.LayoutFile)
	cfg.Preview.Addr = firstNonEmpty(c.preview, cfg.Preview.Addr)
	cfg.Viewport.Mode = firstNonEmpty(c.mode, cfg.Viewport.Mode)
	cfg.FPS = firstPositive(c.fps, cfg.FPS)
	cfg.Viewport.W = firstPositive(c.width, cfg.Viewport.W)
	cfg.Viewport.H = firstPositive(c.height, cfg.Viewport.H)
	if c.transition >= 0 {
		cfg.Transition = c.transition
	}
	if c.brightness > 0 {
		cfg.Brightness = c.brightness
	}
	if c.gap >= 0 {
		cfg.Viewport.GapPx = c.gap
	}
	return cfg, cfg.Validate()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
