package led

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

// Sim encodes frames like the real sink but keeps them in memory. Useful for
// headless runs and tests.
type Sim struct {
	mu     sync.Mutex
	frames [][]proto.Entry
	bytes  int
	// Keep bounds the recorded history; 0 keeps only the last frame.
	Keep   int
	closed bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Send(entries []proto.Entry) error {
	b, err := proto.Encode(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]proto.Entry(nil), entries...)
	s.frames = append(s.frames, cp)
	if keep := max(1, s.Keep); len(s.frames) > keep {
		s.frames = s.frames[len(s.frames)-keep:]
	}
	s.bytes += len(b)

	// compute simple average for log
	var r, g, bl int
	for _, e := range entries {
		r += e.R
		g += e.G
		bl += e.B
	}
	n := max(1, len(entries))
	log.Debug().
		Int("entries", len(entries)).
		Int("bytes", len(b)).
		Ints("avg", []int{r / n, g / n, bl / n}).
		Msg("sim frame")
	return nil
}

// Last returns the most recent frame, or nil.
func (s *Sim) Last() []proto.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Frames returns the recorded history, oldest first.
func (s *Sim) Frames() [][]proto.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]proto.Entry(nil), s.frames...)
}

func (s *Sim) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
