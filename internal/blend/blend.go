// Package blend owns the chaos-to-formation blend factor.
package blend

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/gesture"
)

// DefaultDamping is the fraction of the remaining distance covered per tick.
const DefaultDamping = 0.05

// Target is the level-triggered target for a gesture: 0 (chaos) while the
// palm is open, 1 (formed) for anything else.
func Target(g gesture.Gesture) float32 {
	if g == gesture.Open {
		return 0
	}
	return 1
}

// Blender advances mix toward its target by exponential smoothing. The error
// shrinks by a constant factor each tick, so mix never overshoots.
type Blender struct {
	mix     float32
	damping float32
}

// New returns a blender starting at initial. Damping outside (0,1] falls back
// to DefaultDamping.
func New(damping, initial float32) *Blender {
	if damping <= 0 || damping > 1 {
		damping = DefaultDamping
	}
	return &Blender{
		mix:     mgl32.Clamp(initial, 0, 1),
		damping: damping,
	}
}

// Advance moves mix one tick toward the target for g and returns it.
func (b *Blender) Advance(g gesture.Gesture) float32 {
	b.mix += (Target(g) - b.mix) * b.damping
	b.mix = mgl32.Clamp(b.mix, 0, 1)
	return b.mix
}

// Mix returns the current blend factor.
func (b *Blender) Mix() float32 {
	return b.mix
}

// Damping returns the per-tick damping.
func (b *Blender) Damping() float32 {
	return b.damping
}
