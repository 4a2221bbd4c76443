package sequence

// DefaultFrameS is used for frames that carry no duration of their own.
const DefaultFrameS = 0.1

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `json:"t" yaml:"t"`
	V    float64 `json:"v" yaml:"v"`
	Ease string  `json:"ease,omitempty" yaml:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a list of keyframes sorted by T; Eval(t) interpolates a value.
type Envelope []Keyframe

// Frame is one image of a sequence and how long it stays up.
type Frame struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	DurationS float64 `json:"durationS" yaml:"duration_s"`
}

// Program is a full image sequence.
type Program struct {
	Loop   bool    `json:"loop,omitempty" yaml:"loop,omitempty"`
	Frames []Frame `json:"frames" yaml:"frames"`
	// Brightness, if set, is evaluated over program time (0..1).
	Brightness Envelope `json:"brightness,omitempty" yaml:"brightness,omitempty"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the render side.
type Hooks struct {
	// SetFrame makes frame i the one being sampled.
	SetFrame func(i int)
	// SetBrightness receives the brightness envelope value each tick.
	SetBrightness func(v float64)
}

// Player owns the current Program timeline and uses Hooks to drive playback.
type Player struct {
	State PlayerState

	prog  Program
	nowS  float64 // position within program
	idx   int     // current frame index
	total float64

	hooks Hooks
}
