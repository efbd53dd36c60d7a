// Package app wires hand tracking, gesture classification and the per-tick
// scene update into one running display.
package app

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/evergreen/internal/blend"
	"github.com/ayusman/evergreen/internal/capture"
	"github.com/ayusman/evergreen/internal/carousel"
	"github.com/ayusman/evergreen/internal/config"
	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/field"
	"github.com/ayusman/evergreen/internal/frame"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/interaction"
	"github.com/ayusman/evergreen/internal/logging"
	"github.com/ayusman/evergreen/internal/props"
	"github.com/ayusman/evergreen/internal/rig"
	"github.com/ayusman/evergreen/internal/store"
)

// maxTickDelta caps the time step after a stall so the scene never jumps.
const maxTickDelta = 0.1

// Status is the hand tracking state shown to the user.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusActive      Status = "active"
	StatusUnavailable Status = "unavailable"
	StatusPaused      Status = "paused"
)

// ErrTrackingDisabled is reported as the tracking failure when the
// configuration turns tracking off.
var ErrTrackingDisabled = errors.New("tracking disabled by configuration")

// Deps are the collaborators New does not have to build itself. Nil fields
// are created from the configuration.
type Deps struct {
	Log      logging.Logger
	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
}

// App is the main application. The render loop owns the scene state; every
// other goroutine talks to it through the interaction slot or the photo queue.
type App struct {
	cfg   config.Config
	log   logging.Logger
	store *store.Store

	// landmark producers
	writeMu    sync.Mutex
	writer     *interaction.Writer
	slot       *interaction.Slot
	classifier atomic.Pointer[gesture.Classifier]

	// render loop state
	blender  *blend.Blender
	field    *field.Field
	animator *props.Animator
	rig      *rig.Rig
	carousel *carousel.Carousel
	textures *carousel.TextureStore
	state    interaction.State
	elapsed  float32
	tick     atomic.Uint64
	static   frame.Static
	photos   chan []*image.RGBA

	sinksMu sync.RWMutex
	sinks   []frame.Sink

	// tracking
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	preview  *capture.Preview

	mu       sync.RWMutex
	enabled  bool
	tracking bool
	failure  error
	onStatus []func(Status)
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  time.Time
}

// New creates an App from a validated configuration.
func New(cfg config.Config, deps Deps) *App {
	log := logging.OrNop(deps.Log)

	a := &App{
		cfg:      cfg,
		log:      log,
		store:    deps.Store,
		slot:     interaction.NewSlot(),
		blender:  blend.New(cfg.Render.MixDamping, cfg.Render.InitialMix),
		field:    field.New(cfg.Field),
		animator: props.New(cfg.Props),
		rig:      rig.New(cfg.Camera),
		textures: carousel.NewTextureStore(),
		photos:   make(chan []*image.RGBA, 1),
		camera:   deps.Camera,
		detector: deps.Detector,
		preview:  capture.NewPreview(),
		enabled:  true,
	}
	a.writer = interaction.NewWriter(a.slot)
	a.classifier.Store(gesture.NewClassifier(a.initialThresholds()))

	polaroids := a.animator.Pool(props.Polaroids).Len()
	a.carousel = carousel.New(cfg.Carousel, polaroids, a.textures, log)

	a.static = frame.Static{
		Field:     a.field.Buffers(),
		Pools:     a.animator.Counts(),
		RefreshHz: cfg.Render.RefreshHz,
	}

	a.setupTracking()
	return a
}

// initialThresholds prefers thresholds saved by a calibration run over the
// configured ones.
func (a *App) initialThresholds() gesture.Thresholds {
	t := a.cfg.Gesture
	if a.store == nil {
		return t
	}

	var saved gesture.Thresholds
	err := a.store.Settings().Get(store.SettingThresholds, &saved)
	switch {
	case err == nil:
		a.log.Infof("Using calibrated thresholds: reach=%.2f spread=%.2f", saved.FingerReach, saved.ThumbSpread)
		return saved
	case !errors.Is(err, store.ErrNotFound):
		a.log.Warnf("Failed to read calibrated thresholds: %v", err)
	}
	return t
}

func (a *App) setupTracking() {
	tc := a.cfg.Tracking
	if !tc.Enabled {
		a.failure = ErrTrackingDisabled
		return
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(tc.Device)
	}
	a.motion = capture.NewMotionDetector(tc.MotionThreshold)

	if a.detector != nil {
		return
	}

	switch strings.ToLower(tc.Detector) {
	case config.DetectorMock:
		a.detector = detector.NewMockDetector()
		a.log.Infof("Using mock hand detection")
	default:
		mp, err := detector.NewMediaPipeDetector(tc.MediaPipe.Detector(), a.log)
		if err != nil {
			a.failure = fmt.Errorf("%w: %v", detector.ErrUnavailable, err)
			a.log.Errorf("MediaPipe not available, hand tracking disabled: %v", err)
			return
		}
		a.detector = mp
		a.log.Infof("Using MediaPipe hand detection")
	}
}

// Start launches the render loop and, when tracking is usable, the tracking
// loop. A camera that fails to open leaves the display running in idle orbit.
// The camera is opened without holding the state lock.
func (a *App) Start() {
	a.mu.Lock()
	if a.stopCh != nil {
		a.mu.Unlock()
		return
	}
	a.stopCh = make(chan struct{})
	a.started = time.Now()
	stop := a.stopCh
	openCamera := a.failure == nil

	a.wg.Add(1)
	go a.runRender(stop)
	a.mu.Unlock()

	var openErr error
	if openCamera {
		openErr = a.camera.Open()
	}

	a.mu.Lock()
	if a.stopCh != stop {
		// Stopped while the camera was opening.
		a.mu.Unlock()
		if openCamera && openErr == nil {
			a.camera.Close()
		}
		return
	}
	if openCamera {
		if openErr != nil {
			a.failure = fmt.Errorf("%w: %v", capture.ErrCameraNotOpen, openErr)
			a.log.Errorf("Camera unavailable, hand tracking disabled: %v", openErr)
		} else {
			a.camera.SetFPS(a.cfg.Tracking.IdleFPS)
			a.tracking = true
			a.wg.Add(1)
			go a.runTracking(stop)
		}
	}
	a.mu.Unlock()

	a.log.Infof("Display started (tracking: %s)", a.Status())
	a.notifyStatus()
}

// Stop halts both loops and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.mu.Unlock()

	a.wg.Wait()

	a.mu.Lock()
	a.tracking = false
	a.mu.Unlock()

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.log.Warnf("Error closing camera: %v", err)
		}
	}
	if a.motion != nil {
		a.motion.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warnf("Error closing detector: %v", err)
		}
	}

	a.log.Infof("Display stopped")
}

// OnLandmarks is the landmark callback. It classifies the first hand and
// publishes the result for the next tick. Safe for concurrent use.
func (a *App) OnLandmarks(hands []detector.HandLandmarks) interaction.State {
	reading := a.classifier.Load().Observe(hands)

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if !a.IsEnabled() {
		reading = gesture.Reading{}
	}
	return a.writer.Write(reading)
}

// SetEnabled pauses or resumes hand tracking. Pausing publishes "no hand" so
// the scene returns to idle orbit.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	if !enabled {
		a.writeMu.Lock()
		a.writer.Write(gesture.Reading{})
		a.writeMu.Unlock()
		a.log.Infof("Hand tracking paused")
	} else {
		a.log.Infof("Hand tracking resumed")
	}
	a.notifyStatus()
}

// IsEnabled returns whether hand tracking is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Status reports the tracking state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch {
	case a.failure != nil:
		return StatusUnavailable
	case !a.enabled:
		return StatusPaused
	case a.tracking:
		return StatusActive
	}
	return StatusStarting
}

// Failure returns why tracking is unavailable, or nil.
func (a *App) Failure() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.failure
}

// OnStatus registers fn to be called after every status change.
func (a *App) OnStatus(fn func(Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStatus = append(a.onStatus, fn)
}

func (a *App) notifyStatus() {
	a.mu.RLock()
	callbacks := append([]func(Status){}, a.onStatus...)
	a.mu.RUnlock()

	status := a.Status()
	for _, fn := range callbacks {
		fn(status)
	}
}

// degrade disables tracking for the rest of the session.
func (a *App) degrade(err error) {
	a.mu.Lock()
	if a.failure == nil {
		a.failure = err
	}
	a.tracking = false
	a.mu.Unlock()

	a.writeMu.Lock()
	a.writer.Write(gesture.Reading{})
	a.writeMu.Unlock()

	a.log.Errorf("Hand tracking disabled: %v", err)
	a.notifyStatus()
}

// Thresholds returns the classifier thresholds in use.
func (a *App) Thresholds() gesture.Thresholds {
	return a.classifier.Load().Thresholds()
}

// SetThresholds swaps the classifier for one using t.
func (a *App) SetThresholds(t gesture.Thresholds) {
	c := gesture.NewClassifier(t)
	a.classifier.Store(c)
	a.log.Infof("Classifier thresholds set: reach=%.2f spread=%.2f", c.Thresholds().FingerReach, c.Thresholds().ThumbSpread)
}

// Classifier returns the classifier in use.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier.Load()
}

// IngestPhotos decodes uploaded files and composites them onto placards on
// the caller's goroutine, then queues the cards for the carousel. The batch
// is applied at the start of the next tick; a newer batch queued before then
// replaces it. It returns how many photos will be shown.
func (a *App) IngestPhotos(files [][]byte) (int, error) {
	images, err := carousel.DecodePhotos(files, a.log)
	if err != nil {
		return 0, err
	}
	cards := a.carousel.Prepare(images)

	for {
		select {
		case a.photos <- cards:
			a.log.Infof("Queued %d photos for the carousel", len(cards))
			return len(cards), nil
		default:
		}
		select {
		case <-a.photos:
		default:
		}
	}
}

// AddSink registers a frame consumer.
func (a *App) AddSink(s frame.Sink) {
	a.sinksMu.Lock()
	defer a.sinksMu.Unlock()
	a.sinks = append(a.sinks, s)
}

// RemoveSink unregisters a frame consumer.
func (a *App) RemoveSink(s frame.Sink) {
	a.sinksMu.Lock()
	defer a.sinksMu.Unlock()
	for i, existing := range a.sinks {
		if existing == s {
			a.sinks = append(a.sinks[:i], a.sinks[i+1:]...)
			return
		}
	}
}

// Static returns the one-time renderer upload.
func (a *App) Static() frame.Static {
	return a.static
}

// Textures returns the carousel texture store.
func (a *App) Textures() *carousel.TextureStore {
	return a.textures
}

// Preview returns the latest camera frames for the MJPEG stream.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Store returns the fixture store, or nil when none is configured.
func (a *App) Store() *store.Store {
	return a.store
}

// Ticks returns how many frames have been published.
func (a *App) Ticks() uint64 {
	return a.tick.Load()
}

// Uptime returns how long the display has been running.
func (a *App) Uptime() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.started.IsZero() {
		return 0
	}
	return time.Since(a.started)
}
