package render

import (
	"sort"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// Renderer fills one color per panel, in engine order, for time t (seconds).
// dst is fully overwritten; an error ends the loop that drives it.
type Renderer interface {
	Name() string
	Render(dst []panel.Color, t float64) error
}

// Frame is what observers see after every send.
type Frame struct {
	Seq    uint64        `json:"seq" msgpack:"seq"`
	T      float64       `json:"t" msgpack:"t"`
	IDs    []int         `json:"ids" msgpack:"ids"`
	Colors []panel.Color `json:"colors" msgpack:"colors"`
}

// Observer receives a private copy of each frame. It runs on the render
// goroutine and must not block.
type Observer func(Frame)

type Registry struct{ m map[string]Renderer }

func NewRegistry() *Registry { return &Registry{m: map[string]Renderer{}} }

func (r *Registry) Register(rr Renderer) {
	if rr == nil {
		return
	}
	r.m[rr.Name()] = rr
}

func (r *Registry) Get(name string) (Renderer, bool) { rr, ok := r.m[name]; return rr, ok }

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
