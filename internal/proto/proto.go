/*
Package proto encodes the panel streaming datagram.

Format (all integers big-endian):

	[count   uint16]
	count × [panelID uint16][R uint8][G uint8][B uint8][W uint8][transition uint16]

Each datagram is self-contained and sent once over UDP. Entry order is preserved
because the device applies transitions entry by entry within a frame.
*/
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

const (
	HeaderSize = 2
	EntrySize  = 8
	// MaxEntries is bounded by the uint16 count field.
	MaxEntries = math.MaxUint16
)

var ErrShortDatagram = errors.New("short datagram")

// Entry is one panel update. Fields are ints so out-of-range values can be
// rejected instead of silently wrapping.
type Entry struct {
	PanelID    int
	R, G, B, W int
	Transition int // device-side fade, in tenths of a second; 0 is immediate
}

// EncodingError reports the first field that does not fit its wire width.
type EncodingError struct {
	Index int // entry index, -1 for the count
	Field string
	Value int
}

func (e *EncodingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("proto: %s %d out of range", e.Field, e.Value)
	}
	return fmt.Sprintf("proto: entry %d: %s %d out of range", e.Index, e.Field, e.Value)
}

// Encode serialises entries into one datagram.
func Encode(entries []Entry) ([]byte, error) {
	return AppendEncode(make([]byte, 0, HeaderSize+EntrySize*len(entries)), entries)
}

// AppendEncode appends the datagram to dst. On error dst is returned unchanged.
func AppendEncode(dst []byte, entries []Entry) ([]byte, error) {
	if len(entries) > MaxEntries {
		return dst, &EncodingError{Index: -1, Field: "count", Value: len(entries)}
	}
	for i, e := range entries {
		if err := validate(i, e); err != nil {
			return dst, err
		}
	}
	out := binary.BigEndian.AppendUint16(dst, uint16(len(entries)))
	for _, e := range entries {
		out = binary.BigEndian.AppendUint16(out, uint16(e.PanelID))
		out = append(out, byte(e.R), byte(e.G), byte(e.B), byte(e.W))
		out = binary.BigEndian.AppendUint16(out, uint16(e.Transition))
	}
	return out, nil
}

func validate(i int, e Entry) error {
	for _, f := range []struct {
		name string
		v    int
		max  int
	}{
		{"panel id", e.PanelID, math.MaxUint16},
		{"red", e.R, math.MaxUint8},
		{"green", e.G, math.MaxUint8},
		{"blue", e.B, math.MaxUint8},
		{"white", e.W, math.MaxUint8},
		{"transition", e.Transition, math.MaxUint16},
	} {
		if f.v < 0 || f.v > f.max {
			return &EncodingError{Index: i, Field: f.name, Value: f.v}
		}
	}
	return nil
}

// Decode parses a datagram produced by Encode, preserving entry order.
func Decode(b []byte) ([]Entry, error) {
	if len(b) < HeaderSize {
		return nil, ErrShortDatagram
	}
	n := int(binary.BigEndian.Uint16(b))
	body := b[HeaderSize:]
	if len(body) != n*EntrySize {
		return nil, fmt.Errorf("%w: count %d needs %d bytes, have %d", ErrShortDatagram, n, n*EntrySize, len(body))
	}
	out := make([]Entry, n)
	for i := range out {
		p := body[i*EntrySize : (i+1)*EntrySize]
		out[i] = Entry{
			PanelID:    int(binary.BigEndian.Uint16(p[0:2])),
			R:          int(p[2]),
			G:          int(p[3]),
			B:          int(p[4]),
			W:          int(p[5]),
			Transition: int(binary.BigEndian.Uint16(p[6:8])),
		}
	}
	return out, nil
}

// Fill builds one entry per id with the matching color. ids and colors must be
// the same length.
func Fill(ids []int, colors []panel.Color, transition int) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		c := colors[i]
		out[i] = Entry{PanelID: id, R: int(c.R), G: int(c.G), B: int(c.B), Transition: transition}
	}
	return out
}

// Solid builds entries setting every id to c.
func Solid(ids []int, c panel.Color, transition int) []Entry {
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{PanelID: id, R: int(c.R), G: int(c.G), B: int(c.B), Transition: transition}
	}
	return out
}

// Off is the all-black frame.
func Off(ids []int, transition int) []Entry { return Solid(ids, panel.Black, transition) }
