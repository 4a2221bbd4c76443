package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillSilentWhenInactive(t *testing.T) {
	b := NewToneBank(DefaultMap([]int{5, 6, 7, 8}), 0)
	require.Len(t, b.Voices(), 3)
	assert.Nil(t, b.Voice(8), "only three default notes")

	out := make([]float32, 64)
	for i := range out {
		out[i] = 1
	}
	b.Fill(out)
	for _, s := range out {
		assert.Zero(t, s)
	}
}

func TestFillWaveform(t *testing.T) {
	b := NewToneBank(map[int]float64{1: 441}, 44100)
	assert.True(t, b.SetActive(1, true))
	assert.False(t, b.SetActive(1, true), "no change")
	assert.False(t, b.SetActive(99, true), "unknown panel")
	assert.True(t, b.AnyActive())

	out := make([]float32, 100) // exactly one period at 441 Hz
	b.Fill(out)
	// At phase 0: sin=0, triangle=-1.
	assert.InDelta(t, 0.3*(0.5*0+0.3*-1), out[0], 1e-6)
	// A quarter period in: sin=1, triangle=0.
	assert.InDelta(t, 0.3*(0.5*1+0.3*0), out[25], 1e-4)
	for _, s := range out {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.3*0.8+1e-6)
	}

	// Phase carries over: the next block starts where this one ended.
	next := make([]float32, 100)
	b.Fill(next)
	assert.InDelta(t, out[0], next[0], 1e-4)
}

func TestTriangle(t *testing.T) {
	assert.InDelta(t, -1, triangle(0), 1e-9)
	assert.InDelta(t, 1, triangle(math.Pi), 1e-9)
	assert.InDelta(t, 0, triangle(math.Pi/2), 1e-9)
	assert.InDelta(t, 0, triangle(-math.Pi/2), 1e-9)
}

func TestConcurrentToggleAndFill(t *testing.T) {
	b := NewToneBank(DefaultMap([]int{1, 2, 3}), 0)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.SetActive(1+i%3, i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		out := make([]float32, 32)
		for i := 0; i < 200; i++ {
			b.Fill(out)
		}
	}()
	wg.Wait()
}

type lockedBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Buffer.Write(p)
}

func (l *lockedBuffer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Buffer.Len()
}

func TestStreamWritesPCMUntilCancelled(t *testing.T) {
	b := NewToneBank(map[int]float64{1: 441}, 44100)
	b.SetActive(1, true)
	var w lockedBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Stream(ctx, &w, b, 64) }()

	require.Eventually(t, func() bool { return w.Len() >= 3*128 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	w.mu.Lock()
	first := int16(binary.LittleEndian.Uint16(w.Bytes()[0:2]))
	w.mu.Unlock()
	assert.InDelta(t, math.Round(-0.09*math.MaxInt16), float64(first), 1)
	assert.Zero(t, w.Len()%128, "whole blocks only")
}
