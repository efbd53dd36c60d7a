// Package field builds the static distributions of the mass particle cloud.
//
// The per-particle blend runs in the renderer's vertex stage; the Go side
// generates the chaos and formation positions once and afterwards publishes
// only the blend factor and time. Evaluate mirrors that vertex stage so the
// host can reason about and test what the renderer draws.
package field

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// Config describes the particle cloud.
type Config struct {
	Count         int     `toml:"count"`
	ChaosRadius   float32 `toml:"chaos_radius"`
	TreeHeight    float32 `toml:"tree_height"`
	TreeRadius    float32 `toml:"tree_radius"`
	Turns         float32 `toml:"turns"`
	WindAmplitude float32 `toml:"wind_amplitude"`
	MinSize       float32 `toml:"min_size"`
	MaxSize       float32 `toml:"max_size"`
	Seed          uint64  `toml:"seed"`
}

// DefaultConfig returns a 20,000 particle cloud around a 12 unit tall tree.
func DefaultConfig() Config {
	return Config{
		Count:         20000,
		ChaosRadius:   15,
		TreeHeight:    12,
		TreeRadius:    5,
		Turns:         9,
		WindAmplitude: 0.6,
		MinSize:       0.05,
		MaxSize:       0.2,
		Seed:          2024,
	}
}

// Particle is immutable after New.
type Particle struct {
	Chaos     mgl32.Vec3
	Formation mgl32.Vec3
	Size      float32
	Seed      float32
}

// Uniforms is everything the renderer needs per tick.
type Uniforms struct {
	Mix  float32 `json:"mix"`
	Time float32 `json:"time"`
}

// Buffers are the flat arrays uploaded once at start-up: three floats per
// position, one per size and seed.
type Buffers struct {
	Count     int       `json:"count"`
	Chaos     []float32 `json:"chaos"`
	Formation []float32 `json:"formation"`
	Size      []float32 `json:"size"`
	Seed      []float32 `json:"seed"`
	Wind      float32   `json:"wind"`
}

// Field is the static particle cloud.
type Field struct {
	cfg       Config
	particles []Particle
}

// New samples every particle. The same Config always yields the same cloud.
func New(cfg Config) *Field {
	if cfg.Count < 0 {
		cfg.Count = 0
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	particles := make([]Particle, cfg.Count)
	for i := range particles {
		particles[i] = Particle{
			Chaos:     SampleSphere(rng, cfg.ChaosRadius),
			Formation: SampleCone(rng, cfg.TreeHeight, cfg.TreeRadius, cfg.Turns),
			Size:      cfg.MinSize + rng.Float32()*(cfg.MaxSize-cfg.MinSize),
			Seed:      rng.Float32(),
		}
	}

	return &Field{cfg: cfg, particles: particles}
}

// SampleSphere returns a point uniformly distributed inside a sphere of the
// given radius. The radius is cube-root sampled so that density is uniform by
// volume rather than clustered at the centre.
func SampleSphere(rng *rand.Rand, radius float32) mgl32.Vec3 {
	u := rng.Float64()
	cosTheta := rng.Float64()*2 - 1
	phi := rng.Float64() * 2 * math.Pi

	r := float64(radius) * math.Cbrt(u)
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
	return mgl32.Vec3{
		float32(r * sinTheta * math.Cos(phi)),
		float32(r * sinTheta * math.Sin(phi)),
		float32(r * cosTheta),
	}
}

// SampleCone returns a point on a spiral wound around a cone standing on the
// XZ plane: the radius shrinks linearly from baseRadius at y=0 to zero at
// y=height. A little radial jitter keeps the spiral from looking like wire.
func SampleCone(rng *rand.Rand, height, baseRadius, turns float32) mgl32.Vec3 {
	t := rng.Float64()
	y := t * float64(height)
	r := float64(baseRadius) * (1 - t)
	r *= 0.85 + 0.15*rng.Float64()

	angle := t*float64(turns)*2*math.Pi + rng.Float64()*0.6
	return mgl32.Vec3{
		float32(r * math.Cos(angle)),
		float32(y - float64(height)/2),
		float32(r * math.Sin(angle)),
	}
}

// Count returns the number of particles, fixed for the field's lifetime.
func (f *Field) Count() int {
	return len(f.particles)
}

// Particle returns particle i.
func (f *Field) Particle(i int) Particle {
	return f.particles[i]
}

// Buffers flattens the particles for upload.
func (f *Field) Buffers() Buffers {
	n := len(f.particles)
	b := Buffers{
		Count:     n,
		Chaos:     make([]float32, 0, n*3),
		Formation: make([]float32, 0, n*3),
		Size:      make([]float32, 0, n),
		Seed:      make([]float32, 0, n),
		Wind:      f.cfg.WindAmplitude,
	}
	for _, p := range f.particles {
		b.Chaos = append(b.Chaos, p.Chaos[:]...)
		b.Formation = append(b.Formation, p.Formation[:]...)
		b.Size = append(b.Size, p.Size)
		b.Seed = append(b.Seed, p.Seed)
	}
	return b
}

// Publish returns the per-tick uniforms.
func (f *Field) Publish(mix, time float32) Uniforms {
	return Uniforms{Mix: mgl32.Clamp(mix, 0, 1), Time: time}
}

// Evaluate returns where particle i is drawn for the given uniforms: the
// chaos/formation blend plus a wind sway whose amplitude fades to zero as the
// formation completes.
func (f *Field) Evaluate(i int, u Uniforms) mgl32.Vec3 {
	p := f.particles[i]
	pos := p.Chaos.Add(p.Formation.Sub(p.Chaos).Mul(u.Mix))

	amp := float64(f.cfg.WindAmplitude * (1 - u.Mix))
	phase := float64(u.Time) + float64(p.Seed)*2*math.Pi
	wind := mgl32.Vec3{
		float32(math.Sin(phase) * amp),
		float32(math.Sin(phase*0.7+1.3) * amp * 0.5),
		float32(math.Cos(phase*0.9) * amp),
	}
	return pos.Add(wind)
}
