package led

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/proto"
)

func TestUDPSendLoopback(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	port := pc.LocalAddr().(*net.UDPAddr).Port
	u, err := DialUDP("127.0.0.1", port)
	require.NoError(t, err)
	defer u.Close()

	frame := []proto.Entry{
		{PanelID: 1001, R: 255, Transition: 5},
		{PanelID: 7, G: 9, B: 3, Transition: 2},
	}
	require.NoError(t, u.Send(frame))

	buf := make([]byte, 512)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	got, err := proto.Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	assert.EqualValues(t, 1, u.Sent())
	assert.EqualValues(t, 0, u.Failures())
}

func TestUDPEncodingErrorIsNotNetworkError(t *testing.T) {
	u, err := DialUDP("127.0.0.1", 9)
	require.NoError(t, err)
	defer u.Close()

	err = u.Send([]proto.Entry{{PanelID: 1, R: 300}})
	var encErr *proto.EncodingError
	require.ErrorAs(t, err, &encErr)
	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr))
}

func TestUDPSendAfterClose(t *testing.T) {
	u, err := DialUDP("127.0.0.1", 9)
	require.NoError(t, err)
	require.NoError(t, u.Close())
	require.NoError(t, u.Close())

	err = u.Send(proto.Off([]int{1}, 0))
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestSimKeepsBoundedHistory(t *testing.T) {
	s := NewSim()
	s.Keep = 2
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Send(proto.Solid([]int{i}, panel.Color{R: uint8(i)}, 0)))
	}
	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, 2, frames[0][0].PanelID)
	assert.Equal(t, 3, s.Last()[0].PanelID)

	assert.Error(t, s.Send([]proto.Entry{{PanelID: 1, Transition: 70000}}))
	assert.Equal(t, 3, s.Last()[0].PanelID, "rejected frames are not recorded")

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
}

type failing struct{ closed bool }

func (f *failing) Send([]proto.Entry) error { return errors.New("boom") }
func (f *failing) Close() error             { f.closed = true; return errors.New("close boom") }

func TestTeeFeedsEveryDriver(t *testing.T) {
	bad := &failing{}
	sim := NewSim()
	tee := Tee{bad, sim}

	err := tee.Send(proto.Off([]int{4, 5}, 10))
	assert.EqualError(t, err, "boom")
	assert.Len(t, sim.Last(), 2, "later drivers still receive the frame")

	err = tee.Close()
	assert.ErrorContains(t, err, "close boom")
	assert.True(t, bad.closed)
	assert.True(t, sim.Closed())
}

func TestStripMirrorsPanels(t *testing.T) {
	buf := bytes.Buffer{}
	s, err := NewStrip(spitest.NewRecordRaw(&buf), []int{10, 20, 30})
	require.NoError(t, err)

	require.NoError(t, s.Send([]proto.Entry{{PanelID: 20, R: 1, G: 2, B: 3}, {PanelID: 99, R: 255}}))
	assert.Equal(t, []byte{0, 0, 0, 1, 2, 3, 0, 0, 0}, s.Pixels())

	require.NoError(t, s.Send([]proto.Entry{{PanelID: 30, B: 7}}))
	assert.Equal(t, []byte{0, 0, 0, 1, 2, 3, 0, 0, 7}, s.Pixels(), "untouched pixels hold")
	assert.NotZero(t, buf.Len())

	require.NoError(t, s.Close())
	assert.Error(t, s.Send(nil))
}

func TestStripRejectsEmptyLayout(t *testing.T) {
	_, err := NewStrip(spitest.NewRecordRaw(&bytes.Buffer{}), nil)
	assert.Error(t, err)
}
