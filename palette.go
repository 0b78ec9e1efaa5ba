package pxl

import (
	"fmt"
	"image"
	"image/color"
	"sync"
)

// MaxColors is the largest number of colors a palette can hold.
const MaxColors = 255

// Palette is an ordered list of at most 255 distinct opaque colors. Index 0 is
// the background color. A Palette is immutable once built and safe for
// concurrent use.
type Palette struct {
	colors  []color.RGBA
	indices map[[3]uint8]uint8
	size    image.Point

	once   sync.Once
	points []oklab
	tree   *kdTree
}

// PaletteFromImage builds a palette from the pixels of img. Rows are scanned
// bottom to top and each row left to right, so the bottom left pixel becomes
// the background color. Fully transparent pixels are skipped and repeated
// colors keep their first index.
func PaletteFromImage(img image.Image) (*Palette, error) {
	b := img.Bounds()
	p := &Palette{
		indices: make(map[[3]uint8]uint8),
		size:    b.Size(),
	}

	distinct := 0
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}

			key := [3]uint8{c.R, c.G, c.B}
			if _, found := p.indices[key]; found {
				continue
			}

			distinct++
			if distinct > MaxColors {
				continue
			}
			p.indices[key] = uint8(len(p.colors))
			p.colors = append(p.colors, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
		}
	}

	if distinct > MaxColors {
		return nil, fmt.Errorf("%w: found at least %d", ErrTooManyColors, distinct)
	}

	return p, nil
}

// NewPalette builds a palette from a list of colors. Transparent entries are
// skipped and duplicates keep their first index.
func NewPalette(colors []color.Color) (*Palette, error) {
	img := image.NewNRGBA(image.Rect(0, 0, len(colors), 1))
	for i, c := range colors {
		img.Set(i, 0, c)
	}
	return PaletteFromImage(img)
}

// Len returns the number of colors.
func (p *Palette) Len() int { return len(p.colors) }

// Colors returns the palette colors in index order. The slice must not be
// modified.
func (p *Palette) Colors() []color.RGBA { return p.colors }

// Color returns the color at index i.
func (p *Palette) Color(i uint8) (color.RGBA, bool) {
	if int(i) >= len(p.colors) {
		return color.RGBA{}, false
	}
	return p.colors[i], true
}

// Size returns the dimensions of the image the palette was read from.
func (p *Palette) Size() image.Point { return p.size }

// Index returns the exact index of c. Transparent colors and colors not in the
// palette report false.
func (p *Palette) Index(c color.Color) (uint8, bool) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return 0, false
	}
	i, ok := p.indices[[3]uint8{n.R, n.G, n.B}]
	return i, ok
}

// ColorPalette returns the colors as a color.Palette.
func (p *Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p.colors))
	for i, c := range p.colors {
		out[i] = c
	}
	return out
}

func (p *Palette) build() {
	p.once.Do(func() {
		p.points = make([]oklab, len(p.colors))
		for i, c := range p.colors {
			p.points[i], _ = toOklab(c)
		}
		p.tree = newKDTree(p.points)
	})
}

// oklabPoints returns the palette colors in Oklab space.
func (p *Palette) oklabPoints() []oklab {
	p.build()
	return p.points
}

// nearest returns the index of the palette color closest to q in Oklab space.
// Ties resolve to the lower index.
func (p *Palette) nearest(q oklab) uint8 {
	p.build()
	return uint8(p.tree.nearest(q))
}
