// Package testdata embeds recorded hand landmarks labelled with the gesture
// the person intended.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/evergreen/internal/detector"
)

//go:embed landmarks/*.json
var landmarksFS embed.FS

// Recording is one labelled hand.
type Recording struct {
	Name  string                 `json:"-"`
	Label string                 `json:"label"`
	Hand  detector.HandLandmarks `json:"hand"`
}

// LoadRecording loads a recording by file name, e.g. "gun_01.json".
func LoadRecording(name string) (Recording, error) {
	data, err := landmarksFS.ReadFile(path.Join("landmarks", name))
	if err != nil {
		return Recording{}, fmt.Errorf("load recording %s: %w", name, err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return Recording{}, fmt.Errorf("decode recording %s: %w", name, err)
	}
	rec.Name = name
	return rec, nil
}

// LoadRecordings loads every recording, sorted by name.
func LoadRecordings() ([]Recording, error) {
	entries, err := landmarksFS.ReadDir("landmarks")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	recs := make([]Recording, 0, len(names))
	for _, name := range names {
		rec, err := LoadRecording(name)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Labelled returns the recordings whose label matches.
func Labelled(recs []Recording, label string) []Recording {
	var out []Recording
	for _, r := range recs {
		if r.Label == label {
			out = append(out, r)
		}
	}
	return out
}
