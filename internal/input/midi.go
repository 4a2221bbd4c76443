package input

import (
	"bufio"
	"io"

	"gitlab.com/gomidi/midi/v2"
)

// MIDIReader frames a raw MIDI byte stream, such as /dev/snd/midiC1D0 or
// /dev/midi1, into channel messages. Running status is honoured; realtime,
// system common and sysex bytes are skipped.
type MIDIReader struct {
	r      *bufio.Reader
	closer io.Closer
	status byte
}

func NewMIDIReader(r io.Reader) *MIDIReader {
	m := &MIDIReader{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		m.closer = c
	}
	return m
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	}
	return 2
}

func commonLen(status byte) int {
	switch status {
	case 0xF1, 0xF3:
		return 1
	case 0xF2:
		return 2
	}
	return 0
}

// next returns the next non-realtime byte.
func (m *MIDIReader) next() (byte, error) {
	for {
		b, err := m.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0xF8 {
			return b, nil
		}
	}
}

// ReadMessage returns the next complete channel voice message.
func (m *MIDIReader) ReadMessage() (midi.Message, error) {
	for {
		b, err := m.next()
		if err != nil {
			return nil, err
		}
		switch {
		case b == 0xF0:
			m.status = 0
			for b != 0xF7 {
				if b, err = m.next(); err != nil {
					return nil, err
				}
			}
			continue
		case b > 0xF0:
			m.status = 0
			for i := 0; i < commonLen(b); i++ {
				if _, err := m.next(); err != nil {
					return nil, err
				}
			}
			continue
		case b&0x80 != 0:
			m.status = b
			if b, err = m.next(); err != nil {
				return nil, err
			}
		case m.status == 0:
			// stray data byte
			continue
		}

		msg := midi.Message{m.status, b}
		if dataLen(m.status) == 2 {
			d2, err := m.next()
			if err != nil {
				return nil, err
			}
			msg = append(msg, d2)
		}
		return msg, nil
	}
}

// ReadNote skips everything that is not a note event.
func (m *MIDIReader) ReadNote() (NoteEvent, error) {
	for {
		msg, err := m.ReadMessage()
		if err != nil {
			return NoteEvent{}, err
		}
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			return NoteEvent{Channel: ch, Key: key, Velocity: vel, On: true}, nil
		case msg.GetNoteEnd(&ch, &key):
			return NoteEvent{Channel: ch, Key: key}, nil
		}
	}
}

func (m *MIDIReader) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
