package carousel

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Placard geometry, in texels. The photo window is square; the deeper bottom
// border carries the caption, like an instant-camera print.
const (
	placardWidth  = 256
	placardHeight = 304
	placardBorder = 12
	windowSize    = placardWidth - 2*placardBorder
)

var (
	cardColor    = color.RGBA{R: 0xf7, G: 0xf4, B: 0xec, A: 0xff}
	captionColor = color.RGBA{R: 0x3a, G: 0x34, B: 0x2c, A: 0xff}
)

// placeholder palette pairs: top and bottom of the gradient.
var palette = [][2]color.RGBA{
	{{R: 0x1b, G: 0x4d, B: 0x3e, A: 0xff}, {R: 0x0b, G: 0x24, B: 0x1c, A: 0xff}},
	{{R: 0x8c, G: 0x1c, B: 0x13, A: 0xff}, {R: 0x3d, G: 0x0c, B: 0x08, A: 0xff}},
	{{R: 0xc9, G: 0xa2, B: 0x27, A: 0xff}, {R: 0x6b, G: 0x4e, B: 0x0a, A: 0xff}},
	{{R: 0x2e, G: 0x4a, B: 0x7a, A: 0xff}, {R: 0x10, G: 0x1c, B: 0x33, A: 0xff}},
	{{R: 0x5e, G: 0x2a, B: 0x6b, A: 0xff}, {R: 0x22, G: 0x0e, B: 0x29, A: 0xff}},
}

// Placard composites photo onto a card: the photo is cover-cropped into the
// square window and the caption, if any, is written below it.
func Placard(photo image.Image, caption string) *image.RGBA {
	card := image.NewRGBA(image.Rect(0, 0, placardWidth, placardHeight))
	draw.Draw(card, card.Bounds(), image.NewUniform(cardColor), image.Point{}, draw.Src)

	window := image.Rect(placardBorder, placardBorder, placardBorder+windowSize, placardBorder+windowSize)
	fill := cover(photo, windowSize)
	draw.Draw(card, window, fill, fill.Bounds().Min, draw.Src)

	if caption != "" {
		writeCaption(card, caption, window.Max.Y)
	}
	return card
}

// cover scales img so it fills a size×size square and crops the overflow
// evenly from both sides. The result's bounds need not start at the origin.
func cover(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, size, size))
	}

	scale := math.Max(float64(size)/float64(w), float64(size)/float64(h))
	sw := max(size, int(math.Ceil(float64(w)*scale)))
	sh := max(size, int(math.Ceil(float64(h)*scale)))

	scaled := transform.Resize(img, sw, sh, transform.Linear)
	x0 := (sw - size) / 2
	y0 := (sh - size) / 2
	return transform.Crop(scaled, image.Rect(x0, y0, x0+size, y0+size))
}

func writeCaption(card *image.RGBA, caption string, top int) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  card,
		Src:  image.NewUniform(captionColor),
		Face: face,
	}

	width := d.MeasureString(caption).Ceil()
	if width > windowSize {
		width = windowSize
	}
	x := (placardWidth - width) / 2
	y := top + (placardHeight-top+face.Ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(caption)
}

// Placeholder returns the generated art for an empty slot: a two-tone
// gradient with a ring, both chosen from index so neighbouring slots differ.
func Placeholder(index int, caption string) *image.RGBA {
	rng := rand.New(rand.NewPCG(uint64(index), 0x5eed))
	pair := palette[(index+rng.IntN(len(palette)))%len(palette)]

	art := image.NewRGBA(image.Rect(0, 0, windowSize, windowSize))
	for y := 0; y < windowSize; y++ {
		t := float64(y) / float64(windowSize-1)
		c := mixColor(pair[0], pair[1], t)
		for x := 0; x < windowSize; x++ {
			art.SetRGBA(x, y, c)
		}
	}

	cx := float32(windowSize) / 2
	cy := float32(windowSize) / 2
	outer := float32(windowSize) * (0.28 + 0.12*rng.Float32())
	inner := outer * (0.7 + 0.15*rng.Float32())

	ring := vector.NewRasterizer(windowSize, windowSize)
	circle(ring, cx, cy, outer, false)
	circle(ring, cx, cy, inner, true)
	ring.Draw(art, art.Bounds(), image.NewUniform(cardColor), image.Point{})

	return Placard(art, caption)
}

// circle adds a closed polygonal circle to z. Reversed circles subtract from
// forward ones, which is how the ring gets its hole.
func circle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	const segments = 96
	for i := 0; i <= segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		if reverse {
			a = -a
		}
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
	z.ClosePath()
}

func mixColor(a, b color.RGBA, t float64) color.RGBA {
	l := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: 0xff}
}
