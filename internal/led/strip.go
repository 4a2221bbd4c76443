package led

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

// StripFreq is the NRZ bit clock handed to nrzled.
const StripFreq = 2500 * physic.KiloHertz

// Strip mirrors panel colors onto a local WS2812 strip, one pixel per panel in
// layout order. Handy as a desk-side preview of what the wall shows.
type Strip struct {
	mu    sync.Mutex
	dev   *nrzled.Dev
	port  io.Closer
	index map[int]int
	rgb   []byte
}

// OpenStrip initialises the host drivers and opens the named SPI port ("" for
// the first one available).
func OpenStrip(name string, ids []int) (*Strip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	s, err := NewStrip(p, ids)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.port = p
	return s, nil
}

// NewStrip drives an already opened port.
func NewStrip(p spi.Port, ids []int) (*Strip, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("strip: no panels")
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: len(ids), Channels: 3, Freq: StripFreq})
	if err != nil {
		return nil, fmt.Errorf("strip: %w", err)
	}
	s := &Strip{dev: d, index: make(map[int]int, len(ids)), rgb: make([]byte, len(ids)*3)}
	for i, id := range ids {
		s.index[id] = i
	}
	return s, nil
}

// Send updates the pixels named by entries and leaves the others as they were,
// matching how the wall treats partial datagrams.
func (s *Strip) Send(entries []proto.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return fmt.Errorf("strip closed")
	}
	for _, e := range entries {
		i, ok := s.index[e.PanelID]
		if !ok {
			continue
		}
		s.rgb[i*3+0] = byte(e.R)
		s.rgb[i*3+1] = byte(e.G)
		s.rgb[i*3+2] = byte(e.B)
	}
	if _, err := s.dev.Write(s.rgb); err != nil {
		return fmt.Errorf("strip write: %w", err)
	}
	return nil
}

// Pixels returns a copy of the current strip buffer.
func (s *Strip) Pixels() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.rgb...)
}

func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	if s.port != nil {
		if cerr := s.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
