// Package rig maps the interaction state to a camera pose.
package rig

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/interaction"
)

// Mode is the rig's state.
type Mode int

const (
	// IdleOrbit runs while no hand is present.
	IdleOrbit Mode = iota
	// Tracking follows the hand.
	Tracking
)

func (m Mode) String() string {
	if m == Tracking {
		return "TRACKING"
	}
	return "IDLE_ORBIT"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var up = mgl32.Vec3{0, 1, 0}

// Pose is a camera placement. The camera always looks at Target.
type Pose struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
}

// Forward returns the unit view direction.
func (p Pose) Forward() mgl32.Vec3 {
	f := p.Target.Sub(p.Position)
	if f.Len() < 1e-6 {
		return mgl32.Vec3{0, 0, -1}
	}
	return f.Normalize()
}

// Right returns the unit vector to the camera's right.
func (p Pose) Right() mgl32.Vec3 {
	r := p.Forward().Cross(up)
	if r.Len() < 1e-6 {
		return mgl32.Vec3{1, 0, 0}
	}
	return r.Normalize()
}

// Rotation returns the camera's world orientation: it maps the camera's local
// -Z axis onto Forward, +X onto Right and +Y toward world up. It is built from
// the guarded basis, so a camera on top of or straight above its target still
// gets a unit quaternion.
func (p Pose) Rotation() mgl32.Quat {
	f := p.Forward()
	r := p.Right()
	u := r.Cross(f)
	basis := mgl32.Mat3FromCols(r, u, f.Mul(-1))
	return mgl32.Mat4ToQuat(basis.Mat4()).Normalize()
}

// Config tunes the rig. Damping values are per-tick fractions.
type Config struct {
	Home          mgl32.Vec3 `toml:"home"`
	LookAt        mgl32.Vec3 `toml:"look_at"`
	HandReach     mgl32.Vec2 `toml:"hand_reach"`
	FollowDamping float32    `toml:"follow_damping"`
	ResetDamping  float32    `toml:"reset_damping"`

	// OrbitSpeed is the idle orbit rate in rad/s. Zero leaves idle motion to
	// the renderer's own auto-rotate.
	OrbitSpeed float32 `toml:"orbit_speed"`
}

// DefaultConfig returns the stock camera rig.
func DefaultConfig() Config {
	return Config{
		Home:          mgl32.Vec3{0, 2, 24},
		HandReach:     mgl32.Vec2{10, 6},
		FollowDamping: 0.05,
		ResetDamping:  0.12,
		OrbitSpeed:    0.15,
	}
}

// Rig is the camera controller. It is owned by the render loop.
type Rig struct {
	cfg  Config
	mode Mode
	pose Pose
}

// New returns a rig at its home position in IdleOrbit.
func New(cfg Config) *Rig {
	return &Rig{
		cfg:  cfg,
		mode: IdleOrbit,
		pose: Pose{Position: cfg.Home, Target: cfg.LookAt},
	}
}

// Mode returns the current mode.
func (r *Rig) Mode() Mode { return r.mode }

// Pose returns the current pose.
func (r *Rig) Pose() Pose { return r.pose }

// AutoRotate reports whether the renderer should orbit on its own.
func (r *Rig) AutoRotate() bool {
	return r.mode == IdleOrbit && r.cfg.OrbitSpeed == 0
}

// Update advances the rig by one tick. The pose only ever eases, so mode
// changes never cut.
func (r *Rig) Update(s interaction.State, dt float32) Pose {
	if s.Present {
		r.mode = Tracking
	} else {
		r.mode = IdleOrbit
	}

	switch {
	case r.mode == IdleOrbit:
		if r.cfg.OrbitSpeed != 0 {
			q := mgl32.QuatRotate(r.cfg.OrbitSpeed*dt, up)
			offset := r.pose.Position.Sub(r.cfg.LookAt)
			r.pose.Position = r.cfg.LookAt.Add(q.Rotate(offset))
		}
	case s.Gesture == gesture.Fist:
		r.pose.Position = lerp(r.pose.Position, r.cfg.Home, r.cfg.ResetDamping)
	default:
		desired := r.cfg.Home.Add(mgl32.Vec3{
			s.HandPosition.X() * r.cfg.HandReach.X(),
			s.HandPosition.Y() * r.cfg.HandReach.Y(),
			0,
		})
		r.pose.Position = lerp(r.pose.Position, desired, r.cfg.FollowDamping)
	}

	r.pose.Target = r.cfg.LookAt
	return r.pose
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
