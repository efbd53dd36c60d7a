package capture

import "time"

// GateConfig sets the two tracking rates. The loop runs at IdleFPS until
// motion is seen, then at ActiveFPS until IdleTimeout passes without motion.
type GateConfig struct {
	IdleFPS     int           `toml:"idle_fps"`
	ActiveFPS   int           `toml:"active_fps"`
	IdleTimeout time.Duration `toml:"-"`
}

// DefaultGateConfig tracks at 30 fps while the viewer moves.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		IdleFPS:     5,
		ActiveFPS:   30,
		IdleTimeout: 2 * time.Second,
	}
}

// Gate is the idle/active state machine. It is not safe for concurrent use.
type Gate struct {
	cfg        GateConfig
	active     bool
	lastMotion time.Time
}

// NewGate starts idle.
func NewGate(cfg GateConfig) *Gate {
	def := DefaultGateConfig()
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	return &Gate{cfg: cfg}
}

// Observe records one motion sample taken at now and reports whether the
// gate switched between idle and active.
func (g *Gate) Observe(motion bool, now time.Time) bool {
	if motion {
		g.lastMotion = now
		if !g.active {
			g.active = true
			return true
		}
		return false
	}

	if g.active && now.Sub(g.lastMotion) > g.cfg.IdleTimeout {
		g.active = false
		return true
	}
	return false
}

// Active reports whether the gate is in the active state.
func (g *Gate) Active() bool { return g.active }

// FPS returns the rate for the current state.
func (g *Gate) FPS() int {
	if g.active {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// Interval returns the frame period for the current state.
func (g *Gate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}
