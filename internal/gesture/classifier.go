// Package gesture classifies hand landmarks into the discrete gestures that
// drive the display.
package gesture

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/detector"
)

// Gesture is the classifier's output symbol.
type Gesture int

const (
	// None covers "no hand" and every ambiguous pose.
	None Gesture = iota
	// Open is an open palm with all four fingers extended.
	Open
	// Fist has no finger extended.
	Fist
	// Gun is thumb and index extended with the other fingers curled.
	Gun
)

// All lists every gesture symbol.
var All = [...]Gesture{None, Open, Fist, Gun}

func (g Gesture) String() string {
	switch g {
	case None:
		return "NONE"
	case Open:
		return "OPEN"
	case Fist:
		return "FIST"
	case Gun:
		return "GUN"
	}
	return fmt.Sprintf("Gesture(%d)", int(g))
}

// Parse maps a gesture name, in any case, back to its symbol.
func Parse(s string) (Gesture, error) {
	for _, g := range All {
		if strings.EqualFold(s, g.String()) {
			return g, nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Gesture) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Thresholds are the tunable constants of the extension heuristics. They were
// chosen empirically on an adult hand at arm's length; very small hands or a
// hand close to the lens may need recalibration (see Calibrate).
type Thresholds struct {
	// FingerReach scales the knuckle-to-wrist distance a fingertip must
	// exceed for the finger to count as extended.
	FingerReach float64 `toml:"finger_reach" json:"finger_reach"`

	// ThumbSpread is the minimum of
	// (dist(thumbTip, pinkyKnuckle) - dist(thumbIP, pinkyKnuckle)) / palmWidth
	// for the thumb to count as extended.
	ThumbSpread float64 `toml:"thumb_spread" json:"thumb_spread"`
}

// DefaultThresholds returns the stock calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FingerReach: 1.0,
		ThumbSpread: 0.15,
	}
}

// Pose is the per-digit breakdown behind a classification.
type Pose struct {
	Thumb    bool
	Extended [4]bool
}

// Count returns the number of extended non-thumb fingers.
func (p Pose) Count() int {
	n := 0
	for _, e := range p.Extended {
		if e {
			n++
		}
	}
	return n
}

// Reading is the classifier's verdict for one landmark callback.
type Reading struct {
	Present  bool
	Gesture  Gesture
	Position mgl32.Vec2
}

// Classifier is a pure function of its thresholds and the landmarks it is given.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier returns a classifier using t. Non-positive fields fall back to
// the defaults.
func NewClassifier(t Thresholds) *Classifier {
	def := DefaultThresholds()
	if t.FingerReach <= 0 {
		t.FingerReach = def.FingerReach
	}
	if t.ThumbSpread <= 0 {
		t.ThumbSpread = def.ThumbSpread
	}
	return &Classifier{thresholds: t}
}

// Thresholds returns the thresholds in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Analyze measures which digits are extended.
func (c *Classifier) Analyze(hand *detector.HandLandmarks) Pose {
	var p Pose

	for _, f := range detector.Fingers {
		tip := hand.Span(f.Tip(), detector.Wrist)
		knuckle := hand.Span(f.Knuckle(), detector.Wrist)
		p.Extended[f] = tip > knuckle*c.thresholds.FingerReach
	}

	width := hand.PalmWidth()
	if width > 0 {
		reach := hand.Span(detector.ThumbTip, detector.PinkyMCP) - hand.Span(detector.ThumbIP, detector.PinkyMCP)
		p.Thumb = reach/width > c.thresholds.ThumbSpread
	}

	return p
}

// Decide applies the decision table to a pose.
func Decide(p Pose) Gesture {
	index := p.Extended[detector.Index]
	middle := p.Extended[detector.Middle]
	ring := p.Extended[detector.Ring]
	pinky := p.Extended[detector.Pinky]

	switch {
	case p.Thumb && index && !middle && !ring && !pinky:
		return Gun
	case p.Count() == 4:
		return Open
	case p.Count() == 0:
		return Fist
	}
	return None
}

// Classify returns the gesture for a hand, or None for a nil hand.
func (c *Classifier) Classify(hand *detector.HandLandmarks) Gesture {
	if hand == nil {
		return None
	}
	return Decide(c.Analyze(hand))
}

// Observe classifies the first hand of a landmark callback. An empty slice
// yields a Reading with Present unset.
func (c *Classifier) Observe(hands []detector.HandLandmarks) Reading {
	if len(hands) == 0 {
		return Reading{Gesture: None}
	}

	hand := &hands[0]
	return Reading{
		Present:  true,
		Gesture:  c.Classify(hand),
		Position: HandPosition(hand),
	}
}

// HandPosition maps the middle-finger base knuckle to [-1,1]², mirrored so
// that moving the hand right moves the value left, as in a selfie view.
func HandPosition(hand *detector.HandLandmarks) mgl32.Vec2 {
	p := hand.Points[detector.MiddleMCP]
	x := float32(-(p.X - 0.5) * 2)
	y := float32(-(p.Y - 0.5) * 2)
	return mgl32.Vec2{mgl32.Clamp(x, -1, 1), mgl32.Clamp(y, -1, 1)}
}
