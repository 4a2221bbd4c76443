package sequence

import (
	"errors"
	"math"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Frames without a duration get
// DefaultFrameS. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Frames) == 0 {
		return errors.New("program has no frames")
	}
	frames := make([]Frame, len(prog.Frames))
	total := 0.0
	for i, f := range prog.Frames {
		if f.DurationS <= 0 {
			f.DurationS = DefaultFrameS
		}
		frames[i] = f
		total += f.DurationS
	}
	prog.Frames = frames
	p.prog = prog
	p.total = total
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

// Start moves to Running and primes the first frame.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Frames) == 0 {
		return
	}
	p.State = Running
	p.setFrame(p.idx)
	p.setBrightness()
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Index is the frame currently showing.
func (p *Player) Index() int { return p.idx }

// Position is the program time in seconds.
func (p *Player) Position() float64 { return p.nowS }

// Duration is the sum of all frame durations.
func (p *Player) Duration() float64 { return p.total }

// Seek jumps to absolute program time t. Clamps into [0, total).
func (p *Player) Seek(t float64) {
	if len(p.prog.Frames) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	if t >= p.total {
		t = math.Nextafter(p.total, -1)
	}
	p.nowS = t
	p.idx = p.indexAt(t)
	p.setFrame(p.idx)
}

// Tick advances the sequencer by dt seconds. It reports whether the showing
// frame changed, in which case SetFrame has already fired. A program that is
// not looping stops on its last frame.
func (p *Player) Tick(dt float64) bool {
	if p.State != Running || dt <= 0 {
		return false
	}
	p.nowS += dt
	if p.nowS >= p.total {
		if !p.prog.Loop {
			p.nowS = p.total
			p.State = Idle
			p.setBrightness()
			return false
		}
		p.nowS = math.Mod(p.nowS, p.total)
	}
	p.setBrightness()

	idx := p.indexAt(p.nowS)
	if idx == p.idx {
		return false
	}
	p.idx = idx
	p.setFrame(idx)
	return true
}

func (p *Player) indexAt(t float64) int {
	acc := 0.0
	for i, f := range p.prog.Frames {
		acc += f.DurationS
		if t < acc {
			return i
		}
	}
	return len(p.prog.Frames) - 1
}

func (p *Player) setFrame(i int) {
	if p.hooks.SetFrame != nil {
		p.hooks.SetFrame(i)
	}
}

func (p *Player) setBrightness() {
	if p.hooks.SetBrightness != nil && len(p.prog.Brightness) > 0 {
		p.hooks.SetBrightness(clamp01(p.prog.Brightness.Eval(p.nowS)))
	}
}
