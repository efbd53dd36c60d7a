package app

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/evergreen/internal/blend"
	"github.com/ayusman/evergreen/internal/carousel"
	"github.com/ayusman/evergreen/internal/config"
	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/frame"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/props"
	"github.com/ayusman/evergreen/internal/rig"
	"github.com/ayusman/evergreen/internal/store"
)

// testConfig is the default configuration with tracking off and a small
// particle field.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Tracking.Enabled = false
	cfg.Field.Count = 200
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	return New(testConfig(), Deps{})
}

func hands(h detector.HandLandmarks) []detector.HandLandmarks {
	return []detector.HandLandmarks{h}
}

func pngFile(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestApp_InitialFrame(t *testing.T) {
	a := newTestApp(t)

	f := a.Tick(1.0 / 60)

	assert.Equal(t, uint64(1), f.Tick)
	assert.Equal(t, gesture.None, f.Gesture)
	assert.False(t, f.HandPresent)
	assert.Equal(t, float32(0), f.Mix)
	assert.Equal(t, rig.IdleOrbit, f.Camera.Mode)
	assert.Equal(t, 0, f.Carousel.Selected)
	assert.Len(t, f.Carousel.Textures, a.Static().Pools[props.Polaroids.String()])

	for _, k := range props.Kinds {
		assert.Len(t, f.Pools[k.String()], a.Static().Pools[k.String()], "pool %s", k)
	}
}

func TestApp_FistFormsTreeOpenScatters(t *testing.T) {
	a := newTestApp(t)

	a.OnLandmarks(hands(detector.FistLandmarks()))

	var f *frame.Frame
	prev := float32(0)
	for i := 0; i < 30; i++ {
		f = a.Tick(1.0 / 60)
		require.GreaterOrEqual(t, f.Mix, prev, "mix must rise toward the tree")
		prev = f.Mix
	}
	assert.Equal(t, gesture.Fist, f.Gesture)
	assert.True(t, f.HandPresent)
	assert.Equal(t, rig.Tracking, f.Camera.Mode)
	assert.InDelta(t, 1-pow(1-blend.DefaultDamping, 30), f.Mix, 1e-4)

	a.OnLandmarks(hands(detector.OpenPalmLandmarks()))
	for i := 0; i < 30; i++ {
		f = a.Tick(1.0 / 60)
		require.LessOrEqual(t, f.Mix, prev, "mix must fall toward chaos")
		prev = f.Mix
	}
	assert.Equal(t, gesture.Open, f.Gesture)
}

func pow(x float32, n int) float32 {
	r := float32(1)
	for i := 0; i < n; i++ {
		r *= x
	}
	return r
}

func TestApp_GunHoldAdvancesOnce(t *testing.T) {
	a := newTestApp(t)

	a.OnLandmarks(hands(detector.GunLandmarks()))
	var f *frame.Frame
	for i := 0; i < 20; i++ {
		f = a.Tick(1.0 / 60)
	}
	assert.Equal(t, 1, f.Carousel.Selected)
	assert.Equal(t, gesture.Gun, f.Gesture)

	a.OnLandmarks(nil)
	a.Tick(1.0 / 60)
	a.OnLandmarks(hands(detector.GunLandmarks()))
	f = a.Tick(1.0 / 60)
	assert.Equal(t, 2, f.Carousel.Selected)
}

func TestApp_NoHandKeepsLastPosition(t *testing.T) {
	a := newTestApp(t)

	a.OnLandmarks(hands(detector.OpenPalmLandmarks().Shifted(0.2, 0)))
	a.Tick(1.0 / 60)

	st := a.OnLandmarks(nil)
	assert.False(t, st.Present)
	assert.Equal(t, gesture.None, st.Gesture)
	assert.InDelta(t, -0.4, st.HandPosition.X(), 1e-4)

	f := a.Tick(1.0 / 60)
	assert.False(t, f.HandPresent)
	assert.Equal(t, rig.IdleOrbit, f.Camera.Mode)
}

func TestApp_PauseDropsLandmarks(t *testing.T) {
	a := newTestApp(t)

	a.OnLandmarks(hands(detector.FistLandmarks()))
	a.SetEnabled(false)
	assert.False(t, a.IsEnabled())

	f := a.Tick(1.0 / 60)
	assert.False(t, f.HandPresent)

	a.OnLandmarks(hands(detector.FistLandmarks()))
	f = a.Tick(1.0 / 60)
	assert.False(t, f.HandPresent, "landmarks received while paused must be ignored")

	a.SetEnabled(true)
	a.OnLandmarks(hands(detector.FistLandmarks()))
	f = a.Tick(1.0 / 60)
	assert.True(t, f.HandPresent)
	assert.Equal(t, gesture.Fist, f.Gesture)
}

func TestApp_IngestPhotos(t *testing.T) {
	a := newTestApp(t)
	size := a.Static().Pools[props.Polaroids.String()]

	n, err := a.IngestPhotos([][]byte{
		pngFile(t, color.RGBA{R: 255, A: 255}),
		[]byte("not an image"),
		pngFile(t, color.RGBA{B: 255, A: 255}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	before := a.Tick(1.0 / 60)
	assert.Equal(t, 2, before.Carousel.Photos, "batch is applied at the start of the next tick")
	assert.Equal(t, size, a.Textures().Outstanding())

	for _, handle := range before.Carousel.Textures {
		_, ok := a.Textures().Get(handle)
		assert.True(t, ok, "handle %s should be bound", handle)
	}

	_, err = a.IngestPhotos([][]byte{[]byte("junk")})
	assert.True(t, errors.Is(err, carousel.ErrNoPhotos), "got %v", err)
}

// cameraPhoto returns a JPEG the size of a phone camera shot.
func cameraPhoto(t *testing.T) []byte {
	t.Helper()
	const w, h = 4032, 3024
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func TestApp_IngestPhotos_TickStaysWithinFrameBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large photo test")
	}

	a := newTestApp(t)
	photo := cameraPhoto(t)
	files := [][]byte{photo, photo, photo, photo, photo}

	n, err := a.IngestPhotos(files)
	require.NoError(t, err)
	require.Equal(t, carousel.MaxPhotos, n)

	// Warm the tick path so the measurement covers the batch only.
	a.Tick(1.0 / 60)
	_, err = a.IngestPhotos(files)
	require.NoError(t, err)

	const budget = time.Second / 60
	start := time.Now()
	f := a.Tick(1.0 / 60)
	elapsed := time.Since(start)

	assert.Equal(t, carousel.MaxPhotos, f.Carousel.Photos)
	assert.Less(t, elapsed, budget, "tick applying a photo batch took %v", elapsed)
}

func TestApp_IngestPhotos_LatestBatchWins(t *testing.T) {
	a := newTestApp(t)

	files := make([][]byte, 5)
	for i := range files {
		files[i] = pngFile(t, color.RGBA{G: uint8(40 * i), A: 255})
	}
	_, err := a.IngestPhotos(files)
	require.NoError(t, err)
	_, err = a.IngestPhotos(files[:1])
	require.NoError(t, err)

	f := a.Tick(1.0 / 60)
	assert.Equal(t, 1, f.Carousel.Photos)
}

func TestApp_Sinks(t *testing.T) {
	a := newTestApp(t)
	rec := &frame.Recorder{}

	a.AddSink(rec)
	a.Tick(1.0 / 60)
	a.Tick(1.0 / 60)
	assert.Equal(t, 2, rec.Count())
	assert.Equal(t, uint64(2), rec.Last().Tick)
	assert.Equal(t, uint64(2), a.Ticks())

	a.RemoveSink(rec)
	a.Tick(1.0 / 60)
	assert.Equal(t, 2, rec.Count())
}

func TestApp_Static(t *testing.T) {
	cfg := testConfig()
	a := New(cfg, Deps{})

	st := a.Static()
	assert.Equal(t, cfg.Field.Count, st.Field.Count)
	assert.Len(t, st.Field.Chaos, cfg.Field.Count*3)
	assert.Equal(t, cfg.Render.RefreshHz, st.RefreshHz)
	assert.Equal(t, cfg.Props.Polaroids.Count, st.Pools[props.Polaroids.String()])
}

func TestApp_TrackingDisabledStatus(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, StatusUnavailable, a.Status())
	assert.True(t, errors.Is(a.Failure(), ErrTrackingDisabled))

	a.SetEnabled(false)
	assert.Equal(t, StatusUnavailable, a.Status(), "a failure outranks a pause")
}

func TestApp_Thresholds(t *testing.T) {
	t.Run("from configuration", func(t *testing.T) {
		a := newTestApp(t)
		assert.Equal(t, gesture.DefaultThresholds(), a.Thresholds())
	})

	t.Run("calibrated thresholds win", func(t *testing.T) {
		s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer s.Close()

		saved := gesture.Thresholds{FingerReach: 1.1, ThumbSpread: 0.2}
		require.NoError(t, s.Settings().Set(store.SettingThresholds, saved))

		a := New(testConfig(), Deps{Store: s})
		assert.Equal(t, saved, a.Thresholds())
		assert.Same(t, s, a.Store())
	})

	t.Run("set at runtime", func(t *testing.T) {
		a := newTestApp(t)
		a.SetThresholds(gesture.Thresholds{FingerReach: 0.9, ThumbSpread: -1})
		assert.Equal(t, gesture.Thresholds{FingerReach: 0.9, ThumbSpread: 0.15}, a.Thresholds())
	})
}
