package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-leafcast/internal/panel"
)

// Snapshot is the on-disk form of a layout, so simulated and offline runs can
// work without the controller.
type Snapshot struct {
	Panels []panel.Panel `yaml:"positionData" json:"positionData"`
}

func isJSON(path string) bool { return strings.EqualFold(filepath.Ext(path), ".json") }

// LoadLayout reads a YAML or JSON snapshot (chosen by extension). Panel id 0
// is dropped like in a live fetch.
func LoadLayout(path string) ([]panel.Panel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if isJSON(path) {
		err = json.Unmarshal(b, &s)
	} else {
		err = yaml.Unmarshal(b, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	out := make([]panel.Panel, 0, len(s.Panels))
	for _, p := range s.Panels {
		if p.ID != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// SaveLayout writes panels as a snapshot LoadLayout can read back.
func SaveLayout(path string, panels []panel.Panel) error {
	s := Snapshot{Panels: panels}
	var (
		b   []byte
		err error
	)
	if isJSON(path) {
		b, err = json.MarshalIndent(s, "", "  ")
	} else {
		b, err = yaml.Marshal(s)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
