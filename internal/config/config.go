package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-leafcast/internal/layout"
	"github.com/coreman2200/funtimes-leafcast/internal/panel"
	"github.com/coreman2200/funtimes-leafcast/internal/ripple"
	"github.com/coreman2200/funtimes-leafcast/internal/sample"
	"github.com/coreman2200/funtimes-leafcast/internal/sequence"
)

// Environment variables read after the YAML file.
const (
	EnvHost    = "NANOLEAF_IP"
	EnvToken   = "NANOLEAF_TOKEN"
	EnvUDPPort = "NANOLEAF_UDP_PORT"
	EnvAPIPort = "NANOLEAF_API_PORT"
)

// ConfigError is a startup configuration problem. It is always fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %s: %s", e.Field, e.Reason) }

type Device struct {
	Host    string `yaml:"host"`
	Token   string `yaml:"token,omitempty"`
	UDPPort int    `yaml:"udp_port"`
	APIPort int    `yaml:"api_port"`
	// LayoutFile, if set, replaces the live layout fetch.
	LayoutFile string `yaml:"layout_file,omitempty"`
}

type Viewport struct {
	W     int     `yaml:"w"`
	H     int     `yaml:"h"`
	Mode  string  `yaml:"mode"` // "centered" | "stretch"
	GapPx float64 `yaml:"gap_px"`
}

type Ripple struct {
	ThresholdMM float64 `yaml:"threshold_mm"`
	// Origin is the panel the wave starts from; 0 picks the first panel.
	Origin      int `yaml:"origin"`
	Transition  int `yaml:"transition"`
	ripple.Wave `yaml:",inline"`
}

type Theremin struct {
	SampleRate int     `yaml:"sample_rate"`
	BlockSize  int     `yaml:"block_size"`
	Volume     float64 `yaml:"volume"`
	// Notes maps panel id to tone frequency in Hz; empty uses C4, D4, E4 on
	// the first three panels.
	Notes      map[int]float64   `yaml:"notes,omitempty"`
	Classifier sample.Classifier `yaml:"classifier"`
	// AudioOut is a file or FIFO receiving s16le mono PCM; empty disables audio.
	AudioOut string `yaml:"audio_out,omitempty"`
}

type Keys struct {
	// Grid is 5 rows of 3 panel ids; empty uses the first 15 panels.
	Grid   [][]int `yaml:"grid,omitempty"`
	HoldMS int     `yaml:"hold_ms"`
}

type Notes struct {
	Device string `yaml:"device"` // raw MIDI device, e.g. /dev/snd/midiC1D0
}

type Video struct {
	// Input is a file or "-" for stdin carrying rgb24 frames.
	Input string `yaml:"input,omitempty"`
	// Command, if set, is started and its stdout read instead of Input.
	Command string `yaml:"command,omitempty"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Mirror  bool   `yaml:"mirror"`
}

type GIF struct {
	Path   string `yaml:"path,omitempty"`
	Loop   bool   `yaml:"loop"`
	Mirror bool   `yaml:"mirror"`
	// Brightness optionally fades playback over program time.
	Brightness sequence.Envelope `yaml:"brightness,omitempty"`
}

type Strip struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port,omitempty"` // SPI port name, "" for the first
}

type Preview struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":8080"; empty disables
}

type Config struct {
	Device     Device   `yaml:"device"`
	Viewport   Viewport `yaml:"viewport"`
	FPS        int      `yaml:"fps"`
	Transition int      `yaml:"transition"`
	Brightness float64  `yaml:"brightness"`
	WhiteCap   int      `yaml:"white_cap,omitempty"`
	Sim        bool     `yaml:"sim"`
	// Shapes extends the edge table (shape type -> mm).
	Shapes map[panel.Shape]float64 `yaml:"shapes,omitempty"`

	Ripple   Ripple   `yaml:"ripple"`
	Theremin Theremin `yaml:"theremin"`
	Keys     Keys     `yaml:"keys"`
	Notes    Notes    `yaml:"notes"`
	Video    Video    `yaml:"video"`
	GIF      GIF      `yaml:"gif"`
	Strip    Strip    `yaml:"strip"`
	Preview  Preview  `yaml:"preview"`
}

// Default returns a config with every documented default filled in.
func Default() *Config {
	return &Config{
		Device:     Device{UDPPort: 60222, APIPort: 16021},
		Viewport:   Viewport{W: 640, H: 480, Mode: "centered"},
		FPS:        30,
		Transition: 2,
		Brightness: 1,
		Ripple: Ripple{
			ThresholdMM: ripple.DefaultThresholdMM,
			Transition:  5,
			Wave:        ripple.DefaultWave,
		},
		Theremin: Theremin{
			SampleRate: 44100,
			BlockSize:  1024,
			Volume:     0.3,
			Classifier: sample.DefaultClassifier,
		},
		Keys:  Keys{HoldMS: 300},
		Video: Video{Input: "-", Width: 640, Height: 480},
		GIF:   GIF{Loop: true, Mirror: true},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides device settings from the environment. getenv is
// os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvHost); v != "" {
		c.Device.Host = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Device.Token = v
	}
	for _, e := range []struct {
		key string
		dst *int
	}{{EnvUDPPort, &c.Device.UDPPort}, {EnvAPIPort, &c.Device.APIPort}} {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: e.key, Reason: fmt.Sprintf("not a port number: %q", v)}
		}
		*e.dst = n
	}
	return nil
}

// Validate checks everything a run needs before any loop starts.
func (c *Config) Validate() error {
	if !c.Sim {
		if c.Device.Host == "" {
			return &ConfigError{Field: "device.host", Reason: EnvHost + " is not set"}
		}
		if c.Device.Token == "" {
			return &ConfigError{Field: "device.token", Reason: EnvToken + " is not set"}
		}
	}
	if c.Device.UDPPort < 1 || c.Device.UDPPort > 65535 {
		return &ConfigError{Field: "device.udp_port", Reason: fmt.Sprintf("out of range: %d", c.Device.UDPPort)}
	}
	if c.Device.APIPort < 1 || c.Device.APIPort > 65535 {
		return &ConfigError{Field: "device.api_port", Reason: fmt.Sprintf("out of range: %d", c.Device.APIPort)}
	}
	if _, err := layout.ParseMode(c.Viewport.Mode); err != nil {
		return &ConfigError{Field: "viewport.mode", Reason: err.Error()}
	}
	if c.Viewport.W <= 0 || c.Viewport.H <= 0 {
		return &ConfigError{Field: "viewport", Reason: fmt.Sprintf("bad size %dx%d", c.Viewport.W, c.Viewport.H)}
	}
	if c.Viewport.GapPx < 0 {
		return &ConfigError{Field: "viewport.gap_px", Reason: fmt.Sprintf("negative: %v", c.Viewport.GapPx)}
	}
	if c.FPS <= 0 {
		return &ConfigError{Field: "fps", Reason: "must be positive"}
	}
	if c.Transition < 0 || c.Transition > 65535 {
		return &ConfigError{Field: "transition", Reason: fmt.Sprintf("out of range: %d", c.Transition)}
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		return &ConfigError{Field: "brightness", Reason: "must be within [0,1]"}
	}
	return nil
}

// LayoutOptions converts the viewport section for layout.Map.
func (c *Config) LayoutOptions() (layout.Viewport, layout.Options, error) {
	mode, err := layout.ParseMode(c.Viewport.Mode)
	if err != nil {
		return layout.Viewport{}, layout.Options{}, &ConfigError{Field: "viewport.mode", Reason: err.Error()}
	}
	var shapes map[panel.Shape]float64
	if len(c.Shapes) > 0 {
		shapes = make(map[panel.Shape]float64, len(panel.Shapes)+len(c.Shapes))
		for k, v := range panel.Shapes {
			shapes[k] = v
		}
		for k, v := range c.Shapes {
			shapes[k] = v
		}
	}
	vp := layout.Viewport{W: c.Viewport.W, H: c.Viewport.H}
	return vp, layout.Options{Mode: mode, GapPx: c.Viewport.GapPx, Shapes: shapes}, nil
}
