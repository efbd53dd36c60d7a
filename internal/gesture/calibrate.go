package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/evergreen/internal/detector"
)

// ErrNoFixtures is returned when there is nothing to evaluate against.
var ErrNoFixtures = errors.New("no fixtures provided")

// Fixture is a recorded hand with the gesture a person intended to make.
type Fixture struct {
	Label Gesture
	Hand  detector.HandLandmarks
}

// Miss is a fixture the classifier got wrong.
type Miss struct {
	Index int     `json:"index"`
	Want  Gesture `json:"want"`
	Got   Gesture `json:"got"`
}

// Report summarizes a classifier's accuracy over a fixture set.
type Report struct {
	Thresholds Thresholds `json:"thresholds"`
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Accuracy   float64    `json:"accuracy"`

	// Confusion[want][got] counts classifications.
	Confusion [len(All)][len(All)]int `json:"confusion"`
	Misses    []Miss                  `json:"misses,omitempty"`
}

// Evaluate classifies every fixture and tallies the results.
func Evaluate(c *Classifier, fixtures []Fixture) (Report, error) {
	if len(fixtures) == 0 {
		return Report{}, ErrNoFixtures
	}

	r := Report{Thresholds: c.Thresholds(), Total: len(fixtures)}
	for i := range fixtures {
		f := &fixtures[i]
		if f.Label < None || f.Label > Gun {
			return Report{}, fmt.Errorf("fixture %d has invalid label %d", i, int(f.Label))
		}

		got := c.Classify(&f.Hand)
		r.Confusion[f.Label][got]++
		if got == f.Label {
			r.Correct++
			continue
		}
		r.Misses = append(r.Misses, Miss{Index: i, Want: f.Label, Got: got})
	}

	r.Accuracy = float64(r.Correct) / float64(r.Total)
	return r, nil
}

// Calibrate searches the given threshold candidates for the pair with the best
// accuracy over the fixtures. Ties keep the pair closest to base. Empty
// candidate lists fall back to base's value.
func Calibrate(fixtures []Fixture, base Thresholds, reach, spread []float64) (Report, error) {
	if len(fixtures) == 0 {
		return Report{}, ErrNoFixtures
	}
	if len(reach) == 0 {
		reach = []float64{base.FingerReach}
	}
	if len(spread) == 0 {
		spread = []float64{base.ThumbSpread}
	}

	var best Report
	bestDist := -1.0
	for _, fr := range reach {
		for _, ts := range spread {
			if fr <= 0 || ts <= 0 {
				continue
			}
			r, err := Evaluate(NewClassifier(Thresholds{FingerReach: fr, ThumbSpread: ts}), fixtures)
			if err != nil {
				return Report{}, err
			}

			dist := abs(fr-base.FingerReach) + abs(ts-base.ThumbSpread)
			if bestDist < 0 || r.Correct > best.Correct || (r.Correct == best.Correct && dist < bestDist) {
				best, bestDist = r, dist
			}
		}
	}

	if bestDist < 0 {
		return Report{}, fmt.Errorf("no positive threshold candidates")
	}
	return best, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
