package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/coreman2200/funtimes-leafcast/internal/render"
	"github.com/coreman2200/funtimes-leafcast/internal/sequence"
	"github.com/coreman2200/funtimes-leafcast/internal/source"
)

// errProgramDone ends the loop once a non-looping sequence has played out.
var errProgramDone = errors.New("program done")

// Run calls tick once per 1/fps until ctx ends or tick fails. dt is the time
// since the previous tick. A cancelled context is a normal exit.
func Run(ctx context.Context, fps int, tick func(dt float64) error) error {
	if fps <= 0 {
		fps = 30
	}
	period := time.Second / time.Duration(fps)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := tick(now.Sub(last).Seconds()); err != nil {
				// A cancelled run tears its sources down; whatever they
				// report afterwards is part of stopping.
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			last = now
		}
	}
}

// Conductor plays an image sequence through the engine: the player picks the
// frame, the engine samples and sends it.
type Conductor struct {
	Eng *render.Engine
	Seq *sequence.Player

	base  render.PostPipeline
	dirty bool
}

func NewConductor(eng *render.Engine, imgs *source.Images, prog sequence.Program) (*Conductor, error) {
	c := &Conductor{Eng: eng, base: eng.Post()}
	c.Seq = sequence.NewPlayer(sequence.Hooks{
		SetFrame: func(i int) {
			imgs.Set(i)
			c.dirty = true
		},
		SetBrightness: func(v float64) {
			p := c.base
			if p.Brightness > 0 {
				v *= p.Brightness
			}
			// zero means "no scaling" to the post stage
			if v <= 0 {
				v = math.SmallestNonzeroFloat64
			}
			if eng.Post().Brightness != v {
				c.dirty = true
			}
			p.Brightness = v
			eng.SetPost(p)
		},
	})
	if err := c.Seq.Load(prog); err != nil {
		return nil, err
	}
	c.Seq.Start()
	return c, nil
}

// Tick advances the sequence and renders only when the frame or brightness
// moved. It returns errProgramDone after the last frame of a one-shot program.
func (c *Conductor) Tick(dt float64) error {
	c.Seq.Tick(dt)
	if c.dirty {
		c.dirty = false
		if err := c.Eng.RenderOnce(c.Seq.Position()); err != nil {
			return err
		}
	}
	if c.Seq.State == sequence.Idle {
		return errProgramDone
	}
	return nil
}
