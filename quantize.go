package pxl

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
)

// DitherAlgorithm selects how QuantizeDither spreads quantization error.
type DitherAlgorithm uint8

const (
	// Ordered perturbs each pixel by its threshold map value.
	Ordered DitherAlgorithm = iota
	// Pattern picks among candidates found by accumulating error.
	Pattern
)

func (a DitherAlgorithm) String() string {
	switch a {
	case Ordered:
		return "ordered"
	case Pattern:
		return "pattern"
	default:
		return fmt.Sprintf("DitherAlgorithm(%d)", a)
	}
}

// ThresholdMap selects the Bayer matrix used for dithering.
type ThresholdMap uint8

const (
	Map2x2 ThresholdMap = iota
	Map4x4
	Map8x8
)

var thresholdMaps = [...][]int{
	Map2x2: {0, 2, 3, 1},
	Map4x4: {
		0, 8, 2, 10,
		12, 4, 14, 6,
		3, 11, 1, 9,
		15, 7, 13, 5,
	},
	Map8x8: {
		0, 48, 12, 60, 3, 51, 15, 63,
		32, 16, 44, 28, 35, 19, 47, 31,
		8, 56, 4, 52, 11, 59, 7, 55,
		40, 24, 36, 20, 43, 27, 39, 23,
		2, 50, 14, 62, 1, 49, 13, 61,
		34, 18, 46, 30, 33, 17, 45, 29,
		10, 58, 6, 54, 9, 57, 5, 53,
		42, 26, 38, 22, 41, 25, 37, 21,
	},
}

// Width returns the side length of the matrix.
func (m ThresholdMap) Width() int { return 2 << m }

// Dither configures QuantizeDither.
type Dither struct {
	Algorithm DitherAlgorithm
	// Threshold scales the perturbation. 0 disables dithering.
	Threshold float64
	Map       ThresholdMap
}

func (d *Dither) validate() error {
	if d.Algorithm > Pattern {
		return errors.New("pxl: unknown dither algorithm")
	}
	if d.Map > Map8x8 {
		return errors.New("pxl: unknown threshold map")
	}
	if d.Threshold < 0 || math.IsNaN(d.Threshold) || math.IsInf(d.Threshold, 0) {
		return errors.New("pxl: dither threshold must be finite and >= 0")
	}
	return nil
}

// QuantizeExact maps every opaque pixel of img to its exact palette index.
// Fully transparent pixels become NoPixel.
func QuantizeExact(p *Palette, img image.Image) (*Image, error) {
	b := img.Bounds()
	out := NewImage(b.Dx(), b.Dy())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}

			i, ok := p.indices[[3]uint8{c.R, c.G, c.B}]
			if !ok {
				return nil, &ColorNotInPaletteError{
					Color: color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF},
					At:    image.Pt(b.Min.X+x, b.Min.Y+y),
				}
			}
			out.pix[y*out.width+x] = i
		}
	}

	return out, nil
}

// QuantizeDither maps every pixel of img to a perceptually close palette
// index. A nil dither selects the nearest color. The result does not depend
// on the worker count or chunk size.
func QuantizeDither(p *Palette, img image.Image, d *Dither, opts ...Option) (*Image, error) {
	if p.Len() == 0 {
		return nil, ErrEmptyPalette
	}
	if d != nil {
		if err := d.validate(); err != nil {
			return nil, err
		}
	}

	b := img.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	if out.Area() == 0 {
		return out, nil
	}

	o := newParallelOptions(opts)
	q := newDitherer(p, d)

	err := forEachChunk(o, out.Area(), func(start, end int) error {
		var candidates []int
		if d != nil && d.Algorithm == Pattern {
			candidates = make([]int, len(thresholdMaps[d.Map]))
		}

		for i := start; i < end; i++ {
			x, y := i%out.width, i/out.width
			c, ok := toOklab(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				continue
			}
			out.pix[i] = q.pixel(c, x, y, candidates)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pxl: QuantizeDither: %w", err)
	}

	return out, nil
}

type ditherer struct {
	palette *Palette
	points  []oklab
	dither  *Dither
	matrix  []int
	width   int
}

func newDitherer(p *Palette, d *Dither) *ditherer {
	q := &ditherer{palette: p, points: p.oklabPoints(), dither: d}
	if d != nil {
		q.matrix = thresholdMaps[d.Map]
		q.width = d.Map.Width()
	}
	return q
}

// threshold returns the matrix value for a pixel.
func (q *ditherer) threshold(x, y int) int {
	return q.matrix[(x%q.width)*q.width+y%q.width]
}

func (q *ditherer) pixel(c oklab, x, y int, candidates []int) uint8 {
	if q.dither == nil {
		return q.palette.nearest(c)
	}

	t := q.threshold(x, y)
	size := len(q.matrix)

	switch q.dither.Algorithm {
	case Pattern:
		var errAcc oklab
		for i := range candidates {
			candidate := int(q.palette.nearest(c.add(errAcc.scale(q.dither.Threshold))))
			candidates[i] = candidate
			errAcc = errAcc.add(c.sub(q.points[candidate]))
		}

		slices.SortStableFunc(candidates, func(a, b int) int {
			la, lb := q.points[a][0], q.points[b][0]
			switch {
			case la < lb:
				return -1
			case la > lb:
				return 1
			}
			return 0
		})
		return uint8(candidates[t])

	default:
		offset := q.dither.Threshold * (float64(t)/float64(size) - 0.5)
		return q.palette.nearest(c.add(oklab{offset, offset, offset}))
	}
}
