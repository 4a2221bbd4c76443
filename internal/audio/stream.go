package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Stream renders blocks of block samples and writes them to w as signed
// 16-bit little-endian mono PCM, paced by a ticker at the block rate. It runs
// until ctx ends or a write fails. Point w at a FIFO read by e.g.
// `aplay -f S16_LE -r 44100 -c 1`.
func Stream(ctx context.Context, w io.Writer, bank *ToneBank, block int) error {
	if block <= 0 {
		block = DefaultBlockSize
	}
	samples := make([]float32, block)
	buf := make([]byte, block*2)
	period := time.Duration(float64(time.Second) * float64(block) / float64(bank.SampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		bank.Fill(samples)
		encodeS16(buf, samples)
		if _, err := w.Write(buf); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func encodeS16(dst []byte, samples []float32) {
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(math.Round(v*math.MaxInt16))))
	}
}
