package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a MockDetector that reports no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Canned poses share one right-hand palm, palm facing the camera, thumb on the
// viewer's right. Fingers are either straight up or curled back onto the palm.

type thumbShape int

const (
	thumbSide thumbShape = iota
	thumbUp
	thumbTucked
)

var palm = map[int]Point3D{
	Wrist:     {X: 0.50, Y: 0.80},
	ThumbCMC:  {X: 0.56, Y: 0.76},
	IndexMCP:  {X: 0.55, Y: 0.62},
	MiddleMCP: {X: 0.50, Y: 0.60},
	RingMCP:   {X: 0.45, Y: 0.62},
	PinkyMCP:  {X: 0.41, Y: 0.65},
}

var thumbs = map[thumbShape][3]Point3D{
	thumbSide:   {{X: 0.61, Y: 0.71, Z: 0.02}, {X: 0.66, Y: 0.66, Z: 0.03}, {X: 0.71, Y: 0.62, Z: 0.03}},
	thumbUp:     {{X: 0.60, Y: 0.70}, {X: 0.62, Y: 0.62}, {X: 0.63, Y: 0.55}},
	thumbTucked: {{X: 0.58, Y: 0.72, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.04}, {X: 0.50, Y: 0.67, Z: -0.04}},
}

// PIP, DIP and tip for each finger.
var straight = map[Finger][3]Point3D{
	Index:  {{X: 0.56, Y: 0.52}, {X: 0.565, Y: 0.45}, {X: 0.57, Y: 0.39}},
	Middle: {{X: 0.50, Y: 0.49}, {X: 0.50, Y: 0.41}, {X: 0.50, Y: 0.34}},
	Ring:   {{X: 0.44, Y: 0.52}, {X: 0.435, Y: 0.45}, {X: 0.43, Y: 0.39}},
	Pinky:  {{X: 0.39, Y: 0.57}, {X: 0.38, Y: 0.52}, {X: 0.375, Y: 0.47}},
}

var curled = map[Finger][3]Point3D{
	Index:  {{X: 0.56, Y: 0.57, Z: -0.05}, {X: 0.555, Y: 0.64, Z: -0.04}, {X: 0.55, Y: 0.69, Z: -0.02}},
	Middle: {{X: 0.50, Y: 0.55, Z: -0.05}, {X: 0.50, Y: 0.62, Z: -0.04}, {X: 0.50, Y: 0.68, Z: -0.02}},
	Ring:   {{X: 0.45, Y: 0.57, Z: -0.05}, {X: 0.45, Y: 0.63, Z: -0.04}, {X: 0.45, Y: 0.69, Z: -0.02}},
	Pinky:  {{X: 0.41, Y: 0.61, Z: -0.05}, {X: 0.41, Y: 0.66, Z: -0.04}, {X: 0.415, Y: 0.70, Z: -0.02}},
}

func buildPose(thumb thumbShape, extended [4]bool) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	for idx, p := range palm {
		h.Points[idx] = p
	}

	t := thumbs[thumb]
	h.Points[ThumbMCP], h.Points[ThumbIP], h.Points[ThumbTip] = t[0], t[1], t[2]

	for _, f := range Fingers {
		joints := curled[f]
		if extended[f] {
			joints = straight[f]
		}
		k := f.Knuckle()
		h.Points[k+1], h.Points[k+2], h.Points[k+3] = joints[0], joints[1], joints[2]
	}

	return h
}

// OpenPalmLandmarks returns an open hand: thumb out to the side, all four
// fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return buildPose(thumbSide, [4]bool{true, true, true, true})
}

// FistLandmarks returns a closed fist with the thumb folded across the fingers.
func FistLandmarks() HandLandmarks {
	return buildPose(thumbTucked, [4]bool{})
}

// GunLandmarks returns a finger-gun: thumb up, index extended, the rest curled.
func GunLandmarks() HandLandmarks {
	return buildPose(thumbUp, [4]bool{Index: true})
}

// ThumbsUpLandmarks returns a thumbs up with all four fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return buildPose(thumbUp, [4]bool{})
}

// ThreeFingerLandmarks returns thumb, index and middle extended with ring and
// pinky curled.
func ThreeFingerLandmarks() HandLandmarks {
	return buildPose(thumbSide, [4]bool{Index: true, Middle: true})
}

// PeaceLandmarks returns index and middle extended with the thumb tucked.
func PeaceLandmarks() HandLandmarks {
	return buildPose(thumbTucked, [4]bool{Index: true, Middle: true})
}

// Shifted returns a copy of h moved by (dx, dy) in image space.
func (h HandLandmarks) Shifted(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
