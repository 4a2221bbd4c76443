package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	diag "github.com/coreman2200/funtimes-leafcast/internal/diagnostics"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/render"
)

func pair(t *testing.T) *layout.Mapping {
	t.Helper()
	m, err := layout.Map([]panel.Panel{
		{ID: 1, X: 0, Y: 0, Shape: panel.LargeSquare},
		{ID: 2, X: 200, Y: 0, Shape: panel.LargeSquare},
	}, layout.Viewport{W: 640, H: 480}, layout.Options{})
	require.NoError(t, err)
	return m
}

func frame(seq uint64, r uint8) render.Frame {
	return render.Frame{Seq: seq, T: float64(seq), IDs: []int{1, 2}, Colors: []panel.Color{{R: r}, {B: r}}}
}

func (s *Server) seen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameID
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthAndLayout(t *testing.T) {
	s := New(pair(t), nil)
	s.Failures = func() uint64 { return 3 }

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var h health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, s.RunID, h.RunID)
	assert.Equal(t, 2, h.Count)
	assert.EqualValues(t, 3, h.Failures)

	rec = get(t, s.Handler(), "/layout")
	require.Equal(t, http.StatusOK, rec.Code)
	var l layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, 640, l.Viewport.W)
	assert.Equal(t, "centered", l.Mode)
	require.Len(t, l.Panels, 2)
	assert.Equal(t, 2, l.Panels[1].ID)
	assert.Less(t, l.Panels[0].X1, l.Panels[1].X0+1)
}

func TestLayoutMissing(t *testing.T) {
	rec := get(t, New(nil, nil).Handler(), "/layout")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiagEncodings(t *testing.T) {
	d := diag.NewLog(4)
	d.Push(diag.Diagnostic{Severity: diag.Warn, Code: "NET.SEND", Summary: "send failed"})
	s := New(nil, d)

	rec := get(t, s.Handler(), "/diag")
	var items []diag.Diagnostic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "NET.SEND", items[0].Code)

	rec = get(t, s.Handler(), "/diag?enc=msgpack")
	assert.Equal(t, mimeMsgpack, rec.Header().Get("Content-Type"))
	items = nil
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, diag.Warn, items[0].Severity)
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestFramesJSON(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(pair(t), nil)
	go s.Run(ctx)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	obs := s.Observer()
	obs(frame(1, 10))
	require.Eventually(t, func() bool { return s.seen() == 1 }, time.Second, 5*time.Millisecond)

	conn := dial(t, srv, "")
	var f render.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, frame(1, 10), f, "latest frame on connect")

	obs(frame(2, 20))
	require.NoError(t, conn.ReadJSON(&f))
	assert.EqualValues(t, 2, f.Seq)
	assert.Equal(t, uint8(20), f.Colors[1].B)
}

func TestFramesMsgpack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(nil, nil)
	go s.Run(ctx)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Observer()(frame(1, 5))
	require.Eventually(t, func() bool { return s.seen() == 1 }, time.Second, 5*time.Millisecond)

	conn := dial(t, srv, "?enc=msgpack")
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	var f render.Frame
	require.NoError(t, msgpack.Unmarshal(data, &f))
	assert.Equal(t, []int{1, 2}, f.IDs)
	assert.Equal(t, uint8(5), f.Colors[0].R)
}

func TestObserverDropsWhenFull(t *testing.T) {
	s := New(nil, nil)
	obs := s.Observer()
	for i := 0; i < cap(s.frames)+3; i++ {
		obs(frame(uint64(i), 1))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.EqualValues(t, 3, s.dropped)
}
