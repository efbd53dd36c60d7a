// Package detector provides the hand-landmark source used by the gesture classifier.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Finger identifies one of the four non-thumb fingers.
type Finger int

const (
	Index Finger = iota
	Middle
	Ring
	Pinky
)

// Fingers lists the non-thumb fingers in index-to-pinky order.
var Fingers = [...]Finger{Index, Middle, Ring, Pinky}

var fingerJoints = [...]struct{ knuckle, tip int }{
	Index:  {IndexMCP, IndexTip},
	Middle: {MiddleMCP, MiddleTip},
	Ring:   {RingMCP, RingTip},
	Pinky:  {PinkyMCP, PinkyTip},
}

// Knuckle returns the landmark index of the finger's base knuckle.
func (f Finger) Knuckle() int { return fingerJoints[f].knuckle }

// Tip returns the landmark index of the fingertip.
func (f Finger) Tip() int { return fingerJoints[f].tip }

func (f Finger) String() string {
	switch f {
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Pinky:
		return "pinky"
	}
	return "unknown"
}

// Point3D is a landmark in normalized image space: x and y in [0,1] with
// y pointing down, z a relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dist returns the Euclidean distance between two points.
func (p Point3D) Dist(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HandLandmarks is one detected hand: 21 landmarks plus detector metadata.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Span returns the distance between two landmarks of the hand.
func (h *HandLandmarks) Span(a, b int) float64 {
	return h.Points[a].Dist(h.Points[b])
}

// PalmWidth is the distance between the index and pinky base knuckles.
func (h *HandLandmarks) PalmWidth() float64 {
	return h.Span(IndexMCP, PinkyMCP)
}

// FromPoints builds a HandLandmarks from a point slice, as delivered by
// JSON producers. Missing trailing points are left at the origin.
func FromPoints(points []Point3D, handedness string, score float64) HandLandmarks {
	h := HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h
}
