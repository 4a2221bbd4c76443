package source

import (
	"context"
	"errors"
	"image"
	"sync"
)

// Images serves frames from memory. Next returns the selected frame; with
// Cycle set it moves on to the following one afterwards.
type Images struct {
	mu        sync.Mutex
	Frames    []image.Image
	Durations []float64 // seconds, aligned with Frames
	Cycle     bool
	cur       int
}

func NewImages(frames []image.Image, durations []float64) *Images {
	return &Images{Frames: frames, Durations: durations}
}

// Set selects frame i (wrapped into range).
func (s *Images) Set(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.Frames); n > 0 {
		s.cur = ((i % n) + n) % n
	}
}

func (s *Images) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *Images) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Frames) == 0 {
		return nil, &AcquisitionError{Source: "images", Err: errors.New("no frames")}
	}
	img := s.Frames[s.cur]
	if s.Cycle {
		s.cur = (s.cur + 1) % len(s.Frames)
	}
	return img, nil
}

func (s *Images) Close() error { return nil }
