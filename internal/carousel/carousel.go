// Package carousel manages the polaroid frames: which one is selected, where
// the selected one floats while summoned, and which texture each displays.
package carousel

import (
	"image"

	"github.com/ayusman/evergreen/internal/gesture"
	"github.com/ayusman/evergreen/internal/logging"
	"github.com/ayusman/evergreen/internal/props"
	"github.com/ayusman/evergreen/internal/rig"
)

// Config positions the summoned polaroid relative to the camera.
type Config struct {
	Forward       float32 `toml:"forward"`
	Right         float32 `toml:"right"`
	SelectedScale float32 `toml:"selected_scale"`
	Caption       string  `toml:"caption"`
}

// DefaultConfig floats the photo six units ahead and three to the right.
func DefaultConfig() Config {
	return Config{
		Forward:       6,
		Right:         3,
		SelectedScale: 2.2,
		Caption:       "Merry Christmas",
	}
}

// Slot is the texture shown by one polaroid instance.
type Slot struct {
	Handle string
	Photo  bool
}

// Snapshot is the carousel state published with each frame.
type Snapshot struct {
	Selected int      `json:"selected"`
	Textures []string `json:"textures"`
	Photos   int      `json:"photos"`
}

// Carousel is owned by the render loop. Its texture store may be shared with
// readers on other goroutines, and Prepare may be called from any goroutine.
type Carousel struct {
	cfg          Config
	selected     int
	edge         *gesture.EdgeTrigger
	slots        []Slot
	placeholders []*image.RGBA
	textures     *TextureStore
	log          logging.Logger
}

// New returns a carousel over size polaroid instances, each bound to its
// placeholder. A size below one is treated as one.
func New(cfg Config, size int, textures *TextureStore, log logging.Logger) *Carousel {
	if size < 1 {
		size = 1
	}
	if textures == nil {
		textures = NewTextureStore()
	}

	c := &Carousel{
		cfg:      cfg,
		edge:     gesture.NewEdgeTrigger(gesture.Gun),
		slots:    make([]Slot, size),
		textures: textures,
		log:      logging.OrNop(log),
	}
	for i := range c.slots {
		art := Placeholder(i, cfg.Caption)
		if i < MaxPhotos {
			c.placeholders = append(c.placeholders, art)
		}
		c.slots[i] = Slot{Handle: textures.Bind(art)}
	}
	return c
}

// Size returns the number of polaroid instances.
func (c *Carousel) Size() int { return len(c.slots) }

// Selected returns the selected instance index, always in [0, Size).
func (c *Carousel) Selected() int { return c.selected }

// Textures returns the store holding the slot textures.
func (c *Carousel) Textures() *TextureStore { return c.textures }

// Observe feeds one tick's gesture. A rising edge into GUN advances the
// selection; holding GUN does not. It reports whether the selection moved.
func (c *Carousel) Observe(g gesture.Gesture) bool {
	if !c.edge.Fire(g) {
		return false
	}
	c.selected = (c.selected + 1) % len(c.slots)
	c.log.Debugf("Polaroid %d selected", c.selected)
	return true
}

// Override returns the pose that replaces the selected polaroid's blend while
// GUN is held, or nil otherwise. The photo floats in front of cam, turned to
// face the same way as the camera.
func (c *Carousel) Override(g gesture.Gesture, cam rig.Pose) *props.Override {
	if g != gesture.Gun {
		return nil
	}

	pos := cam.Position.
		Add(cam.Forward().Mul(c.cfg.Forward)).
		Add(cam.Right().Mul(c.cfg.Right))

	return &props.Override{
		Active: true,
		Index:  c.selected,
		Pose: props.Pose{
			Position: pos,
			Rotation: cam.Rotation(),
			Scale:    c.cfg.SelectedScale,
		},
	}
}

// Prepare composites at most MaxPhotos photos onto placards. It reads only
// the configuration and is safe to call from any goroutine.
func (c *Carousel) Prepare(photos []image.Image) []*image.RGBA {
	if len(photos) > MaxPhotos {
		photos = photos[:MaxPhotos]
	}
	cards := make([]*image.RGBA, len(photos))
	for i, p := range photos {
		cards[i] = Placard(p, c.cfg.Caption)
	}
	return cards
}

// Ingest replaces the photo batch with prepared cards. The first
// min(len(cards), MaxPhotos) slots receive the cards; the remaining
// photo-capable slots revert to their cached placeholders. Every replaced
// texture is released, so the number of outstanding textures stays equal to
// Size. An empty batch changes nothing.
func (c *Carousel) Ingest(cards []*image.RGBA) int {
	if len(cards) == 0 {
		return 0
	}
	if len(cards) > MaxPhotos {
		cards = cards[:MaxPhotos]
	}

	limit := min(MaxPhotos, len(c.slots))
	bound := 0
	for i := 0; i < limit; i++ {
		old := c.slots[i]

		switch {
		case i < len(cards):
			c.slots[i] = Slot{Handle: c.textures.Bind(cards[i]), Photo: true}
			bound++
		case old.Photo:
			c.slots[i] = Slot{Handle: c.textures.Bind(c.placeholders[i])}
		default:
			continue
		}

		if !c.textures.Release(old.Handle) {
			c.log.Warnf("Texture %s for slot %d was already released", old.Handle, i)
		}
	}

	c.log.Infof("Carousel loaded %d photos", bound)
	return bound
}

// Slots returns a copy of the slot table.
func (c *Carousel) Slots() []Slot {
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// Snapshot returns the state to publish this tick.
func (c *Carousel) Snapshot() Snapshot {
	s := Snapshot{
		Selected: c.selected,
		Textures: make([]string, len(c.slots)),
	}
	for i, slot := range c.slots {
		s.Textures[i] = slot.Handle
		if slot.Photo {
			s.Photos++
		}
	}
	return s
}
