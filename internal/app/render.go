package app

import (
	"time"

	"github.com/ayusman/evergreen/internal/frame"
)

// runRender advances the scene once per refresh.
func (a *App) runRender(stop <-chan struct{}) {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.Render.RefreshHz))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			a.Tick(float32(min(dt, maxTickDelta)))
		}
	}
}

// Tick performs one scene update of dt seconds and publishes the frame to
// every sink. It must only be called from one goroutine: the render loop
// once Start has run, or the caller when it has not.
//
// Order: pending photos, gesture read, blend, carousel edge and override,
// prop transforms, camera, publish. The polaroid override is placed relative
// to the camera pose of the previous tick.
func (a *App) Tick(dt float32) *frame.Frame {
	select {
	case cards := <-a.photos:
		n := a.carousel.Ingest(cards)
		a.log.Debugf("Carousel now shows %d photos", n)
	default:
	}

	a.state = a.slot.Latest()
	g := a.state.Gesture

	mix := a.blender.Advance(g)

	if a.carousel.Observe(g) {
		a.log.Debugf("Carousel selected %d", a.carousel.Selected())
	}
	override := a.carousel.Override(g, a.rig.Pose())

	pools := a.animator.Step(mix, dt, override)
	pose := a.rig.Update(a.state, dt)

	a.elapsed += dt
	uniforms := a.field.Publish(mix, a.elapsed)

	f := &frame.Frame{
		Tick:        a.tick.Add(1),
		Time:        uniforms.Time,
		Mix:         uniforms.Mix,
		Gesture:     g,
		HandPresent: a.state.Present,
		Camera:      frame.NewCamera(pose, a.rig.Mode(), a.rig.AutoRotate()),
		Pools:       pools,
		Carousel:    a.carousel.Snapshot(),
	}

	a.sinksMu.RLock()
	for _, s := range a.sinks {
		s.Publish(f)
	}
	a.sinksMu.RUnlock()

	return f
}
