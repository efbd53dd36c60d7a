package app

import (
	"errors"
	"time"

	"github.com/ayusman/evergreen/internal/capture"
	"github.com/ayusman/evergreen/internal/detector"
)

// runTracking is the camera loop feeding OnLandmarks.
//
// Pipeline logic:
//  1. Start in idle mode at IdleFPS
//  2. Every frame goes to the preview and the motion detector
//  3. On motion, switch to active mode at ActiveFPS
//  4. Run hand detection while active, or while a hand is still in view
//  5. After IdleTimeout without motion, switch back to idle mode
//
// A detector that can no longer start disables tracking for the session.
func (a *App) runTracking(stop <-chan struct{}) {
	defer a.wg.Done()

	gate := capture.NewGate(a.cfg.Tracking.Gate())

	ticker := time.NewTicker(gate.Interval())
	defer ticker.Stop()

	handInView := false

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				a.log.Debugf("Error reading frame: %v", err)
				continue
			}

			if err := a.preview.Store(frame); err != nil {
				a.log.Debugf("Preview: %v", err)
			}

			motion, _ := a.motion.Detect(frame)
			if gate.Observe(motion, time.Now()) {
				a.camera.SetFPS(gate.FPS())
				ticker.Reset(gate.Interval())
				if gate.Active() {
					a.log.Debugf("Switched to active mode")
				} else {
					a.log.Debugf("Switched to idle mode")
				}
			}

			if !gate.Active() && !handInView {
				frame.Close()
				continue
			}

			hands, err := a.detector.Detect(frame)
			frame.Close()

			if err != nil {
				if errors.Is(err, detector.ErrUnavailable) {
					a.degrade(err)
					return
				}
				a.log.Warnf("Error detecting hands: %v", err)
				continue
			}

			state := a.OnLandmarks(hands)
			handInView = state.Present
		}
	}
}
