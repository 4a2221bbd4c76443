// Package device talks to the panel controller's HTTP API for the two things
// leafcast needs at startup: the layout snapshot and external-control mode.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

const DefaultAPIPort = 16021

// APIError is a non-2xx answer from the controller.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client is an explicit handle to one controller, built once by main and
// passed to whoever needs it.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(host string, port int, token string) *Client {
	if port <= 0 {
		port = DefaultAPIPort
	}
	return &Client{
		BaseURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type layoutResponse struct {
	NumPanels    int           `json:"numPanels"`
	SideLength   float64       `json:"sideLength"`
	PositionData []panel.Panel `json:"positionData"`
}

// Layout fetches the panel snapshot. The controller itself shows up as panel
// id 0 and is dropped.
func (c *Client) Layout(ctx context.Context) ([]panel.Panel, error) {
	var lr layoutResponse
	if err := c.do(ctx, http.MethodGet, "/panelLayout/layout", nil, &lr); err != nil {
		return nil, err
	}
	out := make([]panel.Panel, 0, len(lr.PositionData))
	for _, p := range lr.PositionData {
		if p.ID == 0 {
			continue
		}
		out = append(out, p)
	}
	log.Debug().Int("panels", len(out)).Msg("layout fetched")
	return out, nil
}

type extControlWrite struct {
	Command           string `json:"command"`
	AnimType          string `json:"animType"`
	ExtControlVersion string `json:"extControlVersion"`
}

// EnableExtControl switches the controller to accept raw UDP frames.
func (c *Client) EnableExtControl(ctx context.Context) error {
	body := map[string]extControlWrite{"write": {
		Command:           "display",
		AnimType:          "extControl",
		ExtControlVersion: "v2",
	}}
	return c.do(ctx, http.MethodPut, "/effects", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	url := c.BaseURL + "/api/v1/" + c.Token + path
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
