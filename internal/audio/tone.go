// Package audio synthesises the theremin tones. The render loop flips voices
// on and off; a separate goroutine mixes them into PCM without ever waiting on
// the render loop.
package audio

import (
	"math"
	"sort"
	"sync/atomic"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 1024
	DefaultVolume     = 0.3
)

// DefaultNotes are C4, D4 and E4, assigned to the first panels when no
// explicit map is configured.
var DefaultNotes = []float64{261.63, 293.66, 329.63}

// Voice is one panel's oscillator. Active and the frequency are the only
// fields the render loop touches; phase belongs to the mixing goroutine.
type Voice struct {
	Panel  int
	active atomic.Bool
	freq   atomic.Uint64 // math.Float64bits
	phase  float64
}

func (v *Voice) Active() bool      { return v.active.Load() }
func (v *Voice) Freq() float64     { return math.Float64frombits(v.freq.Load()) }
func (v *Voice) SetFreq(f float64) { v.freq.Store(math.Float64bits(f)) }

// ToneBank is a fixed set of voices keyed by panel id. The set never changes
// after construction, so lookups need no lock.
type ToneBank struct {
	SampleRate int
	Volume     float64
	voices     []*Voice
	byPanel    map[int]*Voice
}

// NewToneBank builds one voice per entry of notes (panel id -> Hz).
func NewToneBank(notes map[int]float64, sampleRate int) *ToneBank {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	ids := make([]int, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	b := &ToneBank{SampleRate: sampleRate, Volume: DefaultVolume, byPanel: make(map[int]*Voice, len(ids))}
	for _, id := range ids {
		v := &Voice{Panel: id}
		v.SetFreq(notes[id])
		b.voices = append(b.voices, v)
		b.byPanel[id] = v
	}
	return b
}

// DefaultMap pairs DefaultNotes with the first panels in ids.
func DefaultMap(ids []int) map[int]float64 {
	out := map[int]float64{}
	for i, f := range DefaultNotes {
		if i >= len(ids) {
			break
		}
		out[ids[i]] = f
	}
	return out
}

// Voice returns the voice for a panel, or nil.
func (b *ToneBank) Voice(panel int) *Voice { return b.byPanel[panel] }

func (b *ToneBank) Voices() []*Voice { return b.voices }

// SetActive switches a panel's tone. It reports whether the state changed;
// unknown panels are ignored.
func (b *ToneBank) SetActive(panel int, on bool) bool {
	v := b.byPanel[panel]
	if v == nil {
		return false
	}
	return v.active.Swap(on) != on
}

// AnyActive reports whether at least one voice sounds.
func (b *ToneBank) AnyActive() bool {
	for _, v := range b.voices {
		if v.Active() {
			return true
		}
	}
	return false
}

// triangle maps a phase in radians to [-1,1], rising over the first half
// period and falling over the second.
func triangle(x float64) float64 {
	p := math.Mod(x, 2*math.Pi) / (2 * math.Pi)
	if p < 0 {
		p++
	}
	if p < 0.5 {
		return -1 + 4*p
	}
	return 3 - 4*p
}

// Fill mixes one block of mono samples into out. It only reads atomics and
// the voices' own phases, so it is safe to call from the audio goroutine while
// the render loop toggles voices. Must not be called concurrently with itself.
func (b *ToneBank) Fill(out []float32) {
	for i := range out {
		out[i] = 0
	}
	sr := float64(b.SampleRate)
	n := float64(len(out))
	for _, v := range b.voices {
		if !v.Active() {
			continue
		}
		f := v.Freq()
		w := 2 * math.Pi * f / sr
		for i := range out {
			x := w*float64(i) + v.phase
			out[i] += float32(0.5*math.Sin(x) + 0.3*triangle(x))
		}
		v.phase = math.Mod(v.phase+w*n, 2*math.Pi)
	}
	vol := float32(b.Volume)
	for i := range out {
		out[i] *= vol
	}
}
