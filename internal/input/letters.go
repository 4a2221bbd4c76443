// Package input turns discrete human input (keys, MIDI notes) into protocol
// entries. Nothing here touches the network; callers send what they get back.
package input

import (
	"fmt"
	"math/rand"
	"sort"
	"unicode"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

// GridW and GridH are the letter grid size in panels.
const (
	GridW = 3
	GridH = 5
)

// Transitions used by the letter board.
const (
	StartupTransition = 10
	BlankTransition   = 0
	GlyphTransition   = 2
	ReleaseTransition = 10
)

// Cell is a grid position, x to the right and y downwards.
type Cell struct{ X, Y int }

// Glyphs are the lit cells of each letter and digit on the 3×5 grid.
var Glyphs = map[rune][]Cell{
	'A': {{1, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {2, 4}},
	'B': {{0, 0}, {1, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {1, 4}},
	'C': {{1, 0}, {2, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 4}, {2, 4}},
	'D': {{0, 0}, {1, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {1, 4}},
	'E': {{0, 0}, {1, 0}, {2, 0}, {0, 1}, {0, 2}, {1, 2}, {0, 3}, {0, 4}, {1, 4}, {2, 4}},
	'F': {{0, 0}, {1, 0}, {2, 0}, {0, 1}, {0, 2}, {1, 2}, {0, 3}, {0, 4}},
	'G': {{1, 0}, {2, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 3}, {2, 3}, {2, 2}, {1, 4}, {2, 4}},
	'H': {{0, 0}, {2, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {2, 4}},
	'I': {{0, 0}, {1, 0}, {2, 0}, {1, 1}, {1, 2}, {1, 3}, {0, 4}, {1, 4}, {2, 4}},
	'J': {{0, 0}, {1, 0}, {2, 0}, {1, 1}, {1, 2}, {1, 3}, {0, 4}, {1, 4}},
	'K': {{0, 0}, {0, 1}, {0, 2}, {1, 2}, {2, 0}, {1, 1}, {2, 3}, {1, 3}, {0, 4}, {2, 4}},
	'L': {{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {1, 4}, {2, 4}},
	'M': {{0, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {2, 4}},
	'N': {{0, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {0, 4}, {2, 4}},
	'O': {{1, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {0, 3}, {2, 3}, {1, 4}},
	'P': {{0, 0}, {1, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {0, 3}, {0, 4}},
	'Q': {{1, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {1, 3}, {2, 3}, {0, 4}, {2, 4}},
	'R': {{0, 0}, {1, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {0, 3}, {1, 3}, {2, 3}, {0, 4}, {2, 4}},
	'S': {{1, 0}, {2, 0}, {0, 1}, {1, 2}, {2, 2}, {2, 3}, {0, 4}, {1, 4}},
	'T': {{0, 0}, {1, 0}, {2, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}},
	'U': {{0, 0}, {2, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {0, 3}, {2, 3}, {1, 4}},
	'V': {{0, 0}, {2, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {1, 3}, {1, 4}},
	'W': {{0, 0}, {2, 0}, {0, 1}, {2, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {1, 4}},
	'X': {{0, 0}, {2, 0}, {1, 1}, {1, 2}, {1, 3}, {0, 4}, {2, 4}},
	'Y': {{0, 0}, {2, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}},
	'Z': {{0, 0}, {1, 0}, {2, 0}, {2, 1}, {1, 2}, {0, 3}, {0, 4}, {1, 4}, {2, 4}},

	'0': {{1, 0}, {0, 1}, {2, 1}, {0, 2}, {2, 2}, {0, 3}, {2, 3}, {1, 4}},
	'1': {{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}},
	'2': {{1, 0}, {2, 0}, {2, 1}, {1, 2}, {0, 3}, {0, 4}, {1, 4}, {2, 4}},
	'3': {{1, 0}, {2, 0}, {2, 1}, {1, 2}, {2, 2}, {2, 3}, {1, 4}},
	'4': {{2, 0}, {0, 1}, {2, 1}, {1, 2}, {2, 2}, {2, 3}, {2, 4}},
	'5': {{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 2}, {2, 3}, {0, 4}, {1, 4}},
	'6': {{1, 0}, {0, 1}, {0, 2}, {1, 2}, {2, 2}, {0, 3}, {2, 3}, {1, 4}},
	'7': {{0, 0}, {1, 0}, {2, 0}, {2, 1}, {1, 2}, {1, 3}, {1, 4}},
	'8': {{1, 0}, {0, 1}, {2, 1}, {1, 2}, {0, 3}, {2, 3}, {1, 4}},
	'9': {{1, 0}, {0, 1}, {2, 1}, {1, 2}, {2, 2}, {2, 3}, {1, 4}},
}

// Grid assigns a panel id to every cell, indexed [y][x].
type Grid [GridH][GridW]int

// GridFromRows validates a rows-of-ids table (as read from config).
func GridFromRows(rows [][]int) (Grid, error) {
	var g Grid
	if len(rows) != GridH {
		return g, fmt.Errorf("letter grid: want %d rows, got %d", GridH, len(rows))
	}
	for y, row := range rows {
		if len(row) != GridW {
			return g, fmt.Errorf("letter grid: row %d: want %d ids, got %d", y, GridW, len(row))
		}
		copy(g[y][:], row)
	}
	return g, nil
}

// GridFromIDs fills the grid row by row from the first GridW*GridH ids.
func GridFromIDs(ids []int) (Grid, error) {
	var g Grid
	if len(ids) < GridW*GridH {
		return g, fmt.Errorf("letter grid: need %d panels, have %d", GridW*GridH, len(ids))
	}
	for i := 0; i < GridW*GridH; i++ {
		g[i/GridW][i%GridW] = ids[i]
	}
	return g, nil
}

// LetterBoard spells keys on the grid. It is not safe for concurrent use.
type LetterBoard struct {
	grid   Grid
	all    []int
	rnd    *rand.Rand
	active map[rune]bool
}

func NewLetterBoard(g Grid, all []int, rnd *rand.Rand) *LetterBoard {
	return &LetterBoard{grid: g, all: all, rnd: rnd, active: map[rune]bool{}}
}

// Startup is the all-off datagram sent once before listening.
func (b *LetterBoard) Startup() []proto.Entry { return proto.Off(b.all, StartupTransition) }

// Panels returns the ids lit by r, or nil if r has no glyph.
func (b *LetterBoard) Panels(r rune) []int {
	cells, ok := Glyphs[unicode.ToUpper(r)]
	if !ok {
		return nil
	}
	out := make([]int, len(cells))
	for i, c := range cells {
		out[i] = b.grid[c.Y][c.X]
	}
	return out
}

// Press returns the datagrams for a key down, in send order. Every press
// blanks the wall first; a known key that is not already held then lights
// its glyph in one random color.
func (b *LetterBoard) Press(r rune) [][]proto.Entry {
	out := [][]proto.Entry{proto.Off(b.all, BlankTransition)}
	k := unicode.ToUpper(r)
	ids := b.Panels(k)
	if ids == nil || b.active[k] {
		return out
	}
	b.active[k] = true
	return append(out, proto.Solid(ids, RandomColor(b.rnd), GlyphTransition))
}

// Release returns the datagram for a key up, or nil if the key was not lit.
func (b *LetterBoard) Release(r rune) []proto.Entry {
	k := unicode.ToUpper(r)
	if !b.active[k] {
		return nil
	}
	delete(b.active, k)
	return proto.Off(b.Panels(k), ReleaseTransition)
}

// Active lists the keys currently held, sorted.
func (b *LetterBoard) Active() []rune {
	out := make([]rune, 0, len(b.active))
	for k := range b.active {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RandomColor picks each channel uniformly in [40,255] so the result is
// never close to off.
func RandomColor(rnd *rand.Rand) panel.Color {
	ch := func() uint8 { return uint8(40 + rnd.Intn(216)) }
	return panel.Color{R: ch(), G: ch(), B: ch()}
}
