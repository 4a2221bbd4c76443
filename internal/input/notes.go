package input

import (
	"errors"
	"math/rand"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

const (
	NoteOnTransition  = 1
	NoteOffTransition = 25
)

// NoteEvent is a decoded note-on or note-off. A note-on with velocity 0 is
// reported as On=false.
type NoteEvent struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
	On       bool
}

// NoteMap assigns notes to panels round-robin: ids[note % len(ids)].
type NoteMap struct {
	ids []int
	rnd *rand.Rand
}

func NewNoteMap(ids []int, rnd *rand.Rand) (*NoteMap, error) {
	if len(ids) == 0 {
		return nil, errors.New("note map: no panels")
	}
	return &NoteMap{ids: ids, rnd: rnd}, nil
}

func (n *NoteMap) Panel(note int) int {
	i := note % len(n.ids)
	if i < 0 {
		i += len(n.ids)
	}
	return n.ids[i]
}

// Entries is the one-entry datagram for ev.
func (n *NoteMap) Entries(ev NoteEvent) []proto.Entry {
	id := n.Panel(int(ev.Key))
	if ev.On && ev.Velocity > 0 {
		return proto.Solid([]int{id}, RandomColor(n.rnd), NoteOnTransition)
	}
	return proto.Solid([]int{id}, panel.Black, NoteOffTransition)
}
