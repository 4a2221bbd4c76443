// Package ripple builds a proximity graph over panels and turns BFS hop
// distances into a travelling cosine wave.
package ripple

import (
	"errors"
	"math"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// DefaultThresholdMM connects panels whose centers are at most one small-square
// step plus slack apart.
const DefaultThresholdMM = 75.0

var ErrUnknownOrigin = errors.New("ripple: origin is not a panel")

// Graph maps a panel id to its neighbours, in panel order. Every panel has a
// key, isolated ones with an empty list.
type Graph map[int][]int

// BuildGraph connects every distinct pair of panels whose centers are within
// threshold mm of each other (inclusive).
func BuildGraph(panels []panel.Panel, threshold float64) Graph {
	g := make(Graph, len(panels))
	for _, a := range panels {
		if _, ok := g[a.ID]; !ok {
			g[a.ID] = []int{}
		}
		for _, b := range panels {
			if a.ID == b.ID {
				continue
			}
			if math.Hypot(a.X-b.X, a.Y-b.Y) <= threshold {
				g[a.ID] = append(g[a.ID], b.ID)
			}
		}
	}
	return g
}

// Levels is a panel id to hop distance table. Unreached panels are absent.
type Levels map[int]int

// Levels runs a breadth-first search from origin. The first node to discover a
// neighbour fixes its level.
func (g Graph) Levels(origin int) (Levels, error) {
	if _, ok := g[origin]; !ok {
		return nil, ErrUnknownOrigin
	}
	lv := Levels{origin: 0}
	queue := []int{origin}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, nb := range g[n] {
			if _, seen := lv[nb]; seen {
				continue
			}
			lv[nb] = lv[n] + 1
			queue = append(queue, nb)
		}
	}
	return lv, nil
}

// Max returns the deepest level, 0 for an empty table.
func (l Levels) Max() int {
	m := 0
	for _, v := range l {
		m = max(m, v)
	}
	return m
}
