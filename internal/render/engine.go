package render

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/led"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

// Engine renders frames using the active Renderer, applies post-processing,
// then sends one datagram per frame to the driver.
type Engine struct {
	IDs        []int
	Drv        led.Driver
	R          Renderer
	Transition int

	// Out is the last frame sent, aligned with IDs.
	Out []panel.Color

	index     map[int]int
	post      PostPipeline
	observers []Observer
	seq       uint64

	// timing
	t0 time.Time

	// metrics (last durations in ms, counters since start)
	Last struct {
		RenderMS    float64
		PostMS      float64
		SendMS      float64
		TotalMS     float64
		Frames      uint64
		NetFailures uint64
	}
}

// NewEngine allocates buffers for ids. r may be nil for event-driven loops
// that only call Send.
func NewEngine(ids []int, drv led.Driver, r Renderer, transition int) (*Engine, error) {
	if len(ids) == 0 {
		return nil, errors.New("engine: no panels")
	}
	if drv == nil {
		return nil, errors.New("engine: nil driver")
	}
	e := &Engine{
		IDs:        append([]int(nil), ids...),
		Drv:        drv,
		R:          r,
		Transition: transition,
		Out:        make([]panel.Color, len(ids)),
		index:      make(map[int]int, len(ids)),
		t0:         time.Now(),
	}
	for i, id := range ids {
		e.index[id] = i
	}
	return e, nil
}

// Now returns seconds since engine start.
func (e *Engine) Now() float64 { return time.Since(e.t0).Seconds() }

func (e *Engine) SetRenderer(r Renderer) { e.R = r }
func (e *Engine) SetPost(p PostPipeline) { e.post = p }
func (e *Engine) Observe(o Observer) { e.observers = append(e.observers, o) }
func (e *Engine) Post() PostPipeline { return e.post }

// RenderOnce renders a single frame at absolute time t (seconds) and sends it.
// If t < 0, it uses Engine.Now(). Renderer and encoding errors are returned;
// network errors are logged and counted only.
func (e *Engine) RenderOnce(t float64) error {
	if e.R == nil {
		return errors.New("engine: no renderer")
	}
	if t < 0 {
		t = e.Now()
	}
	start := time.Now()

	if err := e.R.Render(e.Out, t); err != nil {
		return err
	}
	renderDone := time.Now()
	e.Last.RenderMS = ms(renderDone.Sub(start))

	e.post.Apply(e.Out)
	postDone := time.Now()
	e.Last.PostMS = ms(postDone.Sub(renderDone))

	if err := e.send(proto.Fill(e.IDs, e.Out, e.Transition)); err != nil {
		return err
	}
	e.Last.SendMS = ms(time.Since(postDone))
	e.Last.TotalMS = ms(time.Since(start))

	e.publish(t)
	return nil
}

// Send pushes a partial or event datagram as-is. Entries for known panels are
// folded into Out so observers keep an accurate picture of the wall.
func (e *Engine) Send(entries []proto.Entry) error {
	if err := e.send(entries); err != nil {
		return err
	}
	for _, en := range entries {
		if i, ok := e.index[en.PanelID]; ok {
			e.Out[i] = panel.Color{R: uint8(en.R), G: uint8(en.G), B: uint8(en.B)}
		}
	}
	e.publish(e.Now())
	return nil
}

// Blackout turns every panel off immediately.
func (e *Engine) Blackout() error {
	return e.Send(proto.Off(e.IDs, 0))
}

func (e *Engine) send(entries []proto.Entry) error {
	err := e.Drv.Send(entries)
	var ne *led.NetworkError
	switch {
	case err == nil:
	case errors.As(err, &ne):
		e.Last.NetFailures++
		log.Warn().Err(err).Uint64("failures", e.Last.NetFailures).Msg("send failed")
	default:
		return err
	}
	e.Last.Frames++
	return nil
}

func (e *Engine) publish(t float64) {
	if len(e.observers) == 0 {
		return
	}
	e.seq++
	f := Frame{
		Seq:    e.seq,
		T:      t,
		IDs:    e.IDs,
		Colors: append([]panel.Color(nil), e.Out...),
	}
	for _, o := range e.observers {
		o(f)
	}
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }
