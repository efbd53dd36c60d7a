// Package frame defines what the render loop hands to renderers each tick.
package frame

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/carousel"
	"github.com/ayusman/evergreen/internal/field"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/props"
	"github.com/ayusman/evergreen/internal/rig"
)

// Camera is the camera placement for one tick. Rotation is a unit
// quaternion as [x, y, z, w].
type Camera struct {
	Position   mgl32.Vec3 `json:"position"`
	Target     mgl32.Vec3 `json:"target"`
	Rotation   [4]float32 `json:"rotation"`
	Mode       rig.Mode   `json:"mode"`
	AutoRotate bool       `json:"auto_rotate"`
}

// NewCamera flattens a rig pose.
func NewCamera(p rig.Pose, mode rig.Mode, autoRotate bool) Camera {
	q := p.Rotation()
	return Camera{
		Position:   p.Position,
		Target:     p.Target,
		Rotation:   [4]float32{q.V.X(), q.V.Y(), q.V.Z(), q.W},
		Mode:       mode,
		AutoRotate: autoRotate,
	}
}

// Frame is one tick of output. Pool matrices are column-major.
type Frame struct {
	Tick        uint64            `json:"tick"`
	Time        float32           `json:"time"`
	Mix         float32           `json:"mix"`
	Gesture     gesture.Gesture   `json:"gesture"`
	HandPresent bool              `json:"hand_present"`
	Camera      Camera            `json:"camera"`
	Pools       props.Transforms  `json:"pools"`
	Carousel    carousel.Snapshot `json:"carousel"`
}

// Static is sent once to each renderer before any frame.
type Static struct {
	Field     field.Buffers  `json:"field"`
	Pools     map[string]int `json:"pools"`
	RefreshHz int            `json:"refresh_hz"`
}

// Sink receives every published frame. Publish is called from the render
// loop and must not block for long.
type Sink interface {
	Publish(f *Frame)
}

// Recorder is a Sink that keeps the most recent frame.
type Recorder struct {
	mu    sync.Mutex
	last  *Frame
	count int
}

// Publish records f.
func (r *Recorder) Publish(f *Frame) {
	r.mu.Lock()
	r.last = f
	r.count++
	r.mu.Unlock()
}

// Last returns the most recent frame, or nil.
func (r *Recorder) Last() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Count returns how many frames were published.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
