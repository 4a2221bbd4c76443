package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/config"
	"github.com/coreman2200/funtimes-leafcast/internal/device"
	diag "github.com/coreman2200/funtimes-leafcast/internal/diagnostics"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/led"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/preview"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
	"github.com/coreman2200/funtimes-leafcast/internal/render"
)

// StopNotice is printed once when a session ends, however it ends.
const StopNotice = "leafcast stopped, panels off"

// Session owns everything a driver loop needs: the panel snapshot, the output
// driver and whatever else must be released on exit.
type Session struct {
	Cfg    *config.Config
	Panels []panel.Panel
	Drv    led.Driver
	Diag   *diag.Log
	// Out receives the stop notice; os.Stdout unless replaced.
	Out io.Writer

	mapping *layout.Mapping
	eng     *render.Engine
	preview *preview.Server
	closers []io.Closer
	once    sync.Once
}

// Open loads the layout (snapshot file or live device), switches the device
// into external control and dials the configured outputs.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	panels, err := fetchLayout(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		return nil, &layout.Error{Err: layout.ErrNoPanels}
	}
	if !cfg.Sim {
		cl := device.NewClient(cfg.Device.Host, cfg.Device.APIPort, cfg.Device.Token)
		if err := cl.EnableExtControl(ctx); err != nil {
			return nil, fmt.Errorf("enable external control: %w", err)
		}
	}
	drv, err := openDriver(cfg, panel.IDs(panels))
	if err != nil {
		return nil, err
	}
	log.Info().Int("panels", len(panels)).Bool("sim", cfg.Sim).Msg("session open")
	return NewSession(cfg, panels, drv), nil
}

// NewSession wraps an already opened driver.
func NewSession(cfg *config.Config, panels []panel.Panel, drv led.Driver) *Session {
	return &Session{
		Cfg:    cfg,
		Panels: panels,
		Drv:    drv,
		Diag:   diag.NewLog(0),
		Out:    os.Stdout,
	}
}

func fetchLayout(ctx context.Context, cfg *config.Config) ([]panel.Panel, error) {
	if cfg.Device.LayoutFile != "" {
		return device.LoadLayout(cfg.Device.LayoutFile)
	}
	if cfg.Sim {
		return nil, &config.ConfigError{Field: "device.layout_file", Reason: "required when simulating"}
	}
	cl := device.NewClient(cfg.Device.Host, cfg.Device.APIPort, cfg.Device.Token)
	panels, err := cl.Layout(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch layout: %w", err)
	}
	return panels, nil
}

func openDriver(cfg *config.Config, ids []int) (led.Driver, error) {
	var drv led.Driver
	if cfg.Sim {
		drv = led.NewSim()
	} else {
		u, err := led.DialUDP(cfg.Device.Host, cfg.Device.UDPPort)
		if err != nil {
			return nil, err
		}
		drv = u
	}
	if !cfg.Strip.Enabled {
		return drv, nil
	}
	strip, err := led.OpenStrip(cfg.Strip.Port, ids)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("open strip: %w", err)
	}
	return led.Tee{drv, strip}, nil
}

// Mapping maps the panels onto the configured viewport, once.
func (s *Session) Mapping() (*layout.Mapping, error) {
	if s.mapping != nil {
		return s.mapping, nil
	}
	vp, opts, err := s.Cfg.LayoutOptions()
	if err != nil {
		return nil, err
	}
	m, err := layout.Map(s.Panels, vp, opts)
	if err != nil {
		return nil, err
	}
	s.mapping = m
	return m, nil
}

// StartPreview serves the preview surface if an address is configured. m may
// be nil for commands that do not sample a viewport. Call it before Engine so
// the engine publishes to it.
func (s *Session) StartPreview(ctx context.Context, m *layout.Mapping) {
	if s.Cfg.Preview.Addr == "" || s.preview != nil {
		return
	}
	p := preview.New(m, s.Diag)
	p.Failures = failureCounter(s.Drv)
	s.preview = p
	go func() {
		if err := p.Serve(ctx, s.Cfg.Preview.Addr); err != nil {
			log.Error().Err(err).Str("addr", s.Cfg.Preview.Addr).Msg("preview server")
		}
	}()
}

// Engine builds the render engine for ids with the configured post stage.
func (s *Session) Engine(ids []int, r render.Renderer, transition int) (*render.Engine, error) {
	eng, err := render.NewEngine(ids, s.Drv, r, transition)
	if err != nil {
		return nil, err
	}
	eng.SetPost(render.PostPipeline{Brightness: s.Cfg.Brightness, WhiteCap: s.Cfg.WhiteCap})
	if s.preview != nil {
		eng.Observe(s.preview.Observer())
	}
	s.eng = eng
	return eng, nil
}

// AddCloser registers c to be closed by Close, in reverse order.
func (s *Session) AddCloser(c io.Closer) { s.closers = append(s.closers, c) }

// Close turns every panel off, releases all resources and prints the stop
// notice. It is safe to call more than once.
func (s *Session) Close() error {
	var errs []error
	s.once.Do(func() {
		var err error
		if s.eng != nil {
			err = s.eng.Blackout()
		} else {
			err = s.Drv.Send(proto.Off(panel.IDs(s.Panels), 0))
		}
		var ne *led.NetworkError
		if err != nil && !errors.As(err, &ne) {
			errs = append(errs, fmt.Errorf("all off: %w", err))
		}
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.Drv.Close(); err != nil {
			errs = append(errs, err)
		}
		fmt.Fprintln(s.Out, StopNotice)
	})
	return errors.Join(errs...)
}

// notify logs d and records it for the preview.
func (s *Session) notify(d diag.Diagnostic) {
	ev := log.Info()
	switch d.Severity {
	case diag.Warn:
		ev = log.Warn()
	case diag.Err:
		ev = log.Error()
	}
	ev.Str("code", d.Code).Interface("evidence", d.Evidence).Msg(d.Summary)
	s.Diag.Push(d)
}

type failures interface{ Failures() uint64 }

// failureCounter finds the atomic send failure counter of drv, if it has one.
func failureCounter(drv led.Driver) func() uint64 {
	switch d := drv.(type) {
	case failures:
		return d.Failures
	case led.Tee:
		for _, inner := range d {
			if f, ok := inner.(failures); ok {
				return f.Failures
			}
		}
	}
	return nil
}
