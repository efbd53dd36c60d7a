// Package config loads Evergreen's settings: built-in defaults, overlaid by
// a TOML file, a .env file and finally EVERGREEN_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/evergreen/internal/blend"
	"github.com/ayusman/evergreen/internal/capture"
	"github.com/ayusman/evergreen/internal/carousel"
	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/field"
	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/props"
	"github.com/ayusman/evergreen/internal/rig"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Detector backends.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Duration is a time.Duration written as a Go duration string ("2s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// MediaPipeConfig wraps the detector settings with a parseable idle shutdown.
type MediaPipeConfig struct {
	detector.Config
	Shutdown Duration `toml:"idle_shutdown"`
}

// Detector returns the settings for detector.NewMediaPipeDetector.
func (m MediaPipeConfig) Detector() detector.Config {
	c := m.Config
	c.IdleShutdown = m.Shutdown.Duration
	return c
}

type TrackingConfig struct {
	Enabled         bool            `toml:"enabled"`
	Detector        string          `toml:"detector"`
	MotionThreshold float64         `toml:"motion_threshold"`
	IdleFPS         int             `toml:"idle_fps"`
	ActiveFPS       int             `toml:"active_fps"`
	IdleTimeout     Duration        `toml:"idle_timeout"`
	Device          capture.Config  `toml:"device"`
	MediaPipe       MediaPipeConfig `toml:"mediapipe"`
}

// Gate returns the motion gate settings.
func (t TrackingConfig) Gate() capture.GateConfig {
	return capture.GateConfig{
		IdleFPS:     t.IdleFPS,
		ActiveFPS:   t.ActiveFPS,
		IdleTimeout: t.IdleTimeout.Duration,
	}
}

type RenderConfig struct {
	RefreshHz  int     `toml:"refresh_hz"`
	MixDamping float32 `toml:"mix_damping"`
	InitialMix float32 `toml:"initial_mix"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Debug  bool   `toml:"debug"`
	Prefix string `toml:"prefix"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig       `toml:"server"`
	Tracking TrackingConfig     `toml:"tracking"`
	Gesture  gesture.Thresholds `toml:"gesture"`
	Render   RenderConfig       `toml:"render"`
	Field    field.Config       `toml:"field"`
	Props    props.Config       `toml:"props"`
	Camera   rig.Config         `toml:"camera"`
	Carousel carousel.Config    `toml:"carousel"`
	Store    StoreConfig        `toml:"store"`
	Log      LogConfig          `toml:"log"`
	Tray     TrayConfig         `toml:"tray"`

	// Source is the file the configuration was read from, if any.
	Source string `toml:"-"`
}

// Default returns a complete configuration.
func Default() Config {
	gate := capture.DefaultGateConfig()
	mp := detector.DefaultConfig()

	return Config{
		Server: ServerConfig{Addr: ":8080", StaticDir: "web"},
		Tracking: TrackingConfig{
			Enabled:         true,
			Detector:        DetectorMediaPipe,
			MotionThreshold: 1.0,
			IdleFPS:         gate.IdleFPS,
			ActiveFPS:       gate.ActiveFPS,
			IdleTimeout:     Duration{gate.IdleTimeout},
			Device:          capture.DefaultConfig(),
			MediaPipe:       MediaPipeConfig{Config: mp, Shutdown: Duration{mp.IdleShutdown}},
		},
		Gesture: gesture.DefaultThresholds(),
		Render: RenderConfig{
			RefreshHz:  60,
			MixDamping: blend.DefaultDamping,
			InitialMix: 0,
		},
		Field:    field.DefaultConfig(),
		Props:    props.DefaultConfig(),
		Camera:   rig.DefaultConfig(),
		Carousel: carousel.DefaultConfig(),
		Store:    StoreConfig{Path: "evergreen.db"},
		Log:      LogConfig{Prefix: "evergreen"},
		Tray:     TrayConfig{Enabled: false},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// the defaults stand in for it. An empty path skips the file.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg.Source = path
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("EVERGREEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("EVERGREEN_STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("EVERGREEN_CAMERA"); v != "" {
		device, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: EVERGREEN_CAMERA=%q is not a device number", ErrInvalid, v)
		}
		cfg.Tracking.Device.Device = device
	}
	if v := os.Getenv("EVERGREEN_DETECTOR"); v != "" {
		cfg.Tracking.Detector = strings.ToLower(v)
	}
	if v := os.Getenv("EVERGREEN_FIXTURES_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("EVERGREEN_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: EVERGREEN_DEBUG=%q", ErrInvalid, v)
		}
		cfg.Log.Debug = debug
	}
	if v := os.Getenv("EVERGREEN_TRAY"); v != "" {
		tray, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: EVERGREEN_TRAY=%q", ErrInvalid, v)
		}
		cfg.Tray.Enabled = tray
	}
	return nil
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	damping := func(name string, v float32) {
		check(v > 0 && v <= 1, "%s must be in (0,1], got %g", name, v)
	}

	check(c.Server.Addr != "", "server.addr is empty")
	check(c.Tracking.Detector == DetectorMediaPipe || c.Tracking.Detector == DetectorMock,
		"tracking.detector must be %q or %q, got %q", DetectorMediaPipe, DetectorMock, c.Tracking.Detector)
	check(c.Tracking.IdleFPS > 0 && c.Tracking.ActiveFPS > 0, "tracking frame rates must be positive")
	check(c.Tracking.MediaPipe.MaxHands >= 1, "tracking.mediapipe.max_hands must be at least 1")
	check(c.Gesture.FingerReach > 0, "gesture.finger_reach must be positive")
	check(c.Gesture.ThumbSpread > 0, "gesture.thumb_spread must be positive")
	check(c.Render.RefreshHz > 0, "render.refresh_hz must be positive")
	damping("render.mix_damping", c.Render.MixDamping)
	check(c.Render.InitialMix >= 0 && c.Render.InitialMix <= 1, "render.initial_mix must be in [0,1]")
	check(c.Field.Count > 0, "field.count must be positive")
	for _, k := range props.Kinds {
		p := c.Props.Pool(k)
		check(p.Count > 0, "props.%s.count must be positive", k)
		damping("props."+k.String()+".damping", p.Damping)
	}
	damping("camera.follow_damping", c.Camera.FollowDamping)
	damping("camera.reset_damping", c.Camera.ResetDamping)
	check(c.Camera.ResetDamping >= c.Camera.FollowDamping, "camera.reset_damping must not be slower than follow_damping")
	check(c.Carousel.SelectedScale > 0, "carousel.selected_scale must be positive")

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
