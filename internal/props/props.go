// Package props animates the instanced decorations: ornaments, lights and the
// polaroid frames. Unlike the particle field these are evaluated on the host,
// one transform per instance per tick.
package props

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/field"
)

// Kind identifies an instance pool.
type Kind int

const (
	SmallOrnaments Kind = iota
	LargeOrnaments
	Lights
	Polaroids
)

// Kinds lists every pool in draw order.
var Kinds = [...]Kind{SmallOrnaments, LargeOrnaments, Lights, Polaroids}

func (k Kind) String() string {
	switch k {
	case SmallOrnaments:
		return "small_ornaments"
	case LargeOrnaments:
		return "large_ornaments"
	case Lights:
		return "lights"
	case Polaroids:
		return "polaroids"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// PoolConfig sizes one pool. Damping is the fraction of the distance to the
// blended target covered per tick; heavier props use smaller values so the
// pools settle one after another.
type PoolConfig struct {
	Count   int     `toml:"count"`
	Damping float32 `toml:"damping"`
	MinSpin float32 `toml:"min_spin"`
	MaxSpin float32 `toml:"max_spin"`
}

// Config describes every pool and the shapes they blend between.
type Config struct {
	ChaosRadius float32 `toml:"chaos_radius"`
	TreeHeight  float32 `toml:"tree_height"`
	TreeRadius  float32 `toml:"tree_radius"`
	Turns       float32 `toml:"turns"`
	Seed        uint64  `toml:"seed"`

	SmallOrnaments PoolConfig `toml:"small_ornaments"`
	LargeOrnaments PoolConfig `toml:"large_ornaments"`
	Lights         PoolConfig `toml:"lights"`
	Polaroids      PoolConfig `toml:"polaroids"`
}

// DefaultConfig returns the stock decoration.
func DefaultConfig() Config {
	return Config{
		ChaosRadius: 14,
		TreeHeight:  12,
		TreeRadius:  5.2,
		Turns:       7,
		Seed:        7,

		SmallOrnaments: PoolConfig{Count: 150, Damping: 0.08, MinSpin: 0.2, MaxSpin: 1.2},
		LargeOrnaments: PoolConfig{Count: 40, Damping: 0.04, MinSpin: 0.1, MaxSpin: 0.6},
		Lights:         PoolConfig{Count: 250, Damping: 0.1, MinSpin: 0, MaxSpin: 0.3},
		Polaroids:      PoolConfig{Count: 8, Damping: 0.03, MinSpin: 0.05, MaxSpin: 0.25},
	}
}

// Pool returns the config for kind k.
func (c Config) Pool(k Kind) PoolConfig {
	switch k {
	case SmallOrnaments:
		return c.SmallOrnaments
	case LargeOrnaments:
		return c.LargeOrnaments
	case Lights:
		return c.Lights
	case Polaroids:
		return c.Polaroids
	}
	return PoolConfig{}
}

// Instance is one prop. Only Current and the spin angle change after
// construction.
type Instance struct {
	Chaos     mgl32.Vec3
	Formation mgl32.Vec3
	Current   mgl32.Vec3
	Axis      mgl32.Vec3
	Speed     float32
	Angle     float32
}

// Rotation returns the instance's current spin.
func (in *Instance) Rotation() mgl32.Quat {
	return mgl32.QuatRotate(in.Angle, in.Axis)
}

// Pose is a full placement used by overrides.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
}

// Matrix composes T · R · S.
func (p Pose) Matrix() mgl32.Mat4 {
	return Compose(p.Position, p.Rotation, p.Scale)
}

// Compose builds a model matrix from translation, rotation and uniform scale.
func Compose(pos mgl32.Vec3, rot mgl32.Quat, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// Override replaces the pose of one instance for a tick. The instance still
// eases toward Pose.Position with its pool's damping; orientation and scale
// are taken as given.
type Override struct {
	Active bool
	Index  int
	Pose   Pose
}

// Pool is a fixed-size set of instances sharing one damping constant.
type Pool struct {
	kind      Kind
	damping   float32
	instances []Instance
}

func newPool(kind Kind, pc PoolConfig, cfg Config, rng *rand.Rand) *Pool {
	n := max(pc.Count, 0)
	instances := make([]Instance, n)
	for i := range instances {
		chaos := field.SampleSphere(rng, cfg.ChaosRadius)
		axis := field.SampleSphere(rng, 1)
		if axis.Len() < 1e-3 {
			axis = mgl32.Vec3{0, 1, 0}
		}
		instances[i] = Instance{
			Chaos:     chaos,
			Formation: field.SampleCone(rng, cfg.TreeHeight, cfg.TreeRadius, cfg.Turns),
			Current:   chaos,
			Axis:      axis.Normalize(),
			Speed:     pc.MinSpin + rng.Float32()*(pc.MaxSpin-pc.MinSpin),
		}
	}

	damping := pc.Damping
	if damping <= 0 || damping > 1 {
		damping = 0.05
	}
	return &Pool{kind: kind, damping: damping, instances: instances}
}

// Kind returns the pool's kind.
func (p *Pool) Kind() Kind { return p.kind }

// Len returns the instance count, fixed for the pool's lifetime.
func (p *Pool) Len() int { return len(p.instances) }

// Damping returns the pool's easing constant.
func (p *Pool) Damping() float32 { return p.damping }

// Instance returns a copy of instance i.
func (p *Pool) Instance(i int) Instance { return p.instances[i] }

// Step advances every instance by one tick and returns their transforms.
// A nil or inactive override, or one whose index is out of range, is ignored.
func (p *Pool) Step(mix, dt float32, ov *Override) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(p.instances))
	for i := range p.instances {
		in := &p.instances[i]
		in.Angle += in.Speed * dt

		if ov != nil && ov.Active && ov.Index == i {
			in.Current = lerp(in.Current, ov.Pose.Position, p.damping)
			out[i] = Compose(in.Current, ov.Pose.Rotation, ov.Pose.Scale)
			continue
		}

		target := lerp(in.Chaos, in.Formation, mix)
		in.Current = lerp(in.Current, target, p.damping)
		out[i] = Compose(in.Current, in.Rotation(), 1)
	}
	return out
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Transforms holds one tick's matrices keyed by pool name.
type Transforms map[string][]mgl32.Mat4

// Animator drives all four pools.
type Animator struct {
	pools [len(Kinds)]*Pool
}

// New builds every pool. The same Config always yields the same layout.
func New(cfg Config) *Animator {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	a := &Animator{}
	for _, k := range Kinds {
		a.pools[k] = newPool(k, cfg.Pool(k), cfg, rng)
	}
	return a
}

// Pool returns the pool of kind k.
func (a *Animator) Pool(k Kind) *Pool {
	return a.pools[k]
}

// Step advances every pool. The override, if any, applies to the polaroid
// pool only.
func (a *Animator) Step(mix, dt float32, polaroid *Override) Transforms {
	t := make(Transforms, len(a.pools))
	for _, p := range a.pools {
		var ov *Override
		if p.kind == Polaroids {
			ov = polaroid
		}
		t[p.kind.String()] = p.Step(mix, dt, ov)
	}
	return t
}

// Counts returns the instance count of each pool.
func (a *Animator) Counts() map[string]int {
	counts := make(map[string]int, len(a.pools))
	for _, p := range a.pools {
		counts[p.kind.String()] = p.Len()
	}
	return counts
}
