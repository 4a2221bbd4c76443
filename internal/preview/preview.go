// Package preview serves a read-only view of the wall: the mapped layout, a
// live feed of every frame sent, and the diagnostics log.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	diag "github.com/coreman2200/funtimes-leafcast/internal/diagnostics"
	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/render"
)

const (
	writeWait   = 200 * time.Millisecond
	mimeMsgpack = "application/msgpack"
)

type client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	binary bool
}

func (c *client) write(text, bin []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if c.binary {
		return c.conn.WriteMessage(websocket.BinaryMessage, bin)
	}
	return c.conn.WriteMessage(websocket.TextMessage, text)
}

// Server holds the latest frame and fans frames out to websocket clients.
type Server struct {
	RunID string
	// Failures reports the current send failure count for /health. Optional.
	Failures func() uint64

	mu        sync.RWMutex
	mapping   *layout.Mapping
	diag      *diag.Log
	last      render.Frame
	frameID   uint64
	dropped   uint64
	startTime time.Time
	clients   map[*client]bool

	frames   chan render.Frame
	upgrader websocket.Upgrader
	e        *echo.Echo
}

// New builds the server. m and d may be nil when the command has no mapping
// or no diagnostics to show.
func New(m *layout.Mapping, d *diag.Log) *Server {
	s := &Server{
		RunID:     uuid.NewString(),
		mapping:   m,
		diag:      d,
		startTime: time.Now(),
		clients:   map[*client]bool{},
		frames:    make(chan render.Frame, 8),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/health", s.handleHealth)
	e.GET("/layout", s.handleLayout)
	e.GET("/diag", s.handleDiag)
	e.GET("/ws", s.handleFrames)
	s.e = e
	return s
}

// Handler exposes the routes for embedding or tests.
func (s *Server) Handler() http.Handler { return s.e }

// Observer returns a render.Observer that never blocks the render loop.
// Frames arriving while the queue is full are dropped.
func (s *Server) Observer() render.Observer {
	return func(f render.Frame) {
		select {
		case s.frames <- f:
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		}
	}
}

// Run broadcasts queued frames until ctx ends.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.frames:
			s.broadcast(f)
		}
	}
}

// Serve listens on addr, broadcasts frames and shuts down with ctx.
func (s *Server) Serve(ctx context.Context, addr string) error {
	go s.Run(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.e.Start(addr) }()
	log.Info().Str("addr", addr).Str("run", s.RunID).Msg("preview listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.closeClients()
	return s.e.Shutdown(shutdownCtx)
}

type health struct {
	RunID    string  `json:"run_id"`
	FrameID  uint64  `json:"frame_id"`
	UptimeS  float64 `json:"uptime_s"`
	Count    int     `json:"count"`
	Failures uint64  `json:"send_failures"`
	Dropped  uint64  `json:"dropped"`
	Clients  int     `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	s.mu.RLock()
	h := health{
		RunID:   s.RunID,
		FrameID: s.frameID,
		UptimeS: time.Since(s.startTime).Seconds(),
		Count:   len(s.last.IDs),
		Dropped: s.dropped,
		Clients: len(s.clients),
	}
	if s.mapping != nil {
		h.Count = len(s.mapping.Panels)
	}
	s.mu.RUnlock()
	if s.Failures != nil {
		h.Failures = s.Failures()
	}
	return c.JSON(http.StatusOK, h)
}

type box struct {
	ID    int `json:"id"`
	Shape int `json:"shape"`
	X0    int `json:"x0"`
	Y0    int `json:"y0"`
	X1    int `json:"x1"`
	Y1    int `json:"y1"`
	CX    int `json:"cx"`
	CY    int `json:"cy"`
}

type layoutResponse struct {
	Viewport struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"viewport"`
	Mode   string `json:"mode"`
	Panels []box  `json:"panels"`
}

func (s *Server) handleLayout(c echo.Context) error {
	if s.mapping == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no layout mapped for this command"})
	}
	m := s.mapping
	var resp layoutResponse
	resp.Viewport.W, resp.Viewport.H = m.Viewport.W, m.Viewport.H
	resp.Mode = m.Mode.String()
	resp.Panels = make([]box, len(m.Panels))
	for i, p := range m.Panels {
		resp.Panels[i] = box{
			ID: p.ID, Shape: int(p.Shape),
			X0: p.Box.Min.X, Y0: p.Box.Min.Y, X1: p.Box.Max.X, Y1: p.Box.Max.Y,
			CX: p.Center.X, CY: p.Center.Y,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDiag(c echo.Context) error {
	items := []diag.Diagnostic{}
	if s.diag != nil {
		items = s.diag.List()
	}
	if c.QueryParam("enc") == "msgpack" {
		data, err := msgpack.Marshal(items)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}
	return c.JSON(http.StatusOK, items)
}

// handleFrames upgrades to a websocket. Frames go out as JSON text, or as
// msgpack binary messages with ?enc=msgpack. The latest frame is sent on
// connect so a fresh client never starts blank.
func (s *Server) handleFrames(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, binary: c.QueryParam("enc") == "msgpack"}

	s.mu.Lock()
	s.clients[cl] = true
	last, have := s.last, s.frameID > 0
	s.mu.Unlock()

	if have {
		if text, bin, err := encode(last); err == nil {
			_ = cl.write(text, bin)
		}
	}

	defer s.drop(cl)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("preview client gone")
			}
			return nil
		}
	}
}

func (s *Server) broadcast(f render.Frame) {
	text, bin, err := encode(f)
	if err != nil {
		log.Debug().Err(err).Msg("encode frame")
		return
	}
	s.mu.Lock()
	s.last = f
	s.frameID++
	targets := make([]*client, 0, len(s.clients))
	for cl := range s.clients {
		targets = append(targets, cl)
	}
	s.mu.Unlock()

	for _, cl := range targets {
		if err := cl.write(text, bin); err != nil {
			log.Debug().Err(err).Msg("write frame")
			s.drop(cl)
		}
	}
}

func (s *Server) drop(cl *client) {
	s.mu.Lock()
	_, ok := s.clients[cl]
	delete(s.clients, cl)
	s.mu.Unlock()
	if ok {
		cl.conn.Close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	cls := s.clients
	s.clients = map[*client]bool{}
	s.mu.Unlock()
	for cl := range cls {
		cl.conn.Close()
	}
}

func encode(f render.Frame) (text, bin []byte, err error) {
	text, err = json.Marshal(f)
	if err != nil {
		return nil, nil, err
	}
	bin, err = msgpack.Marshal(f)
	return text, bin, err
}
