package pxl

import (
	"image"

	"github.com/bits-and-blooms/bitset"
)

// bresenham calls fn for every point on the segment from a to b, both ends
// included.
func bresenham(a, b image.Point, fn func(image.Point)) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	e := dx + dy
	p := a
	for {
		fn(p)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// linePixels returns the set of pixels of dst covered by the polyline. Points
// are in y-up coordinates after offset is added.
func linePixels(size image.Point, points []image.Point, offset image.Point) *bitset.BitSet {
	set := bitset.New(uint(size.X * size.Y))
	bounds := image.Rectangle{Max: size}

	for i := 0; i+1 < len(points); i++ {
		bresenham(points[i].Add(offset), points[i+1].Add(offset), func(p image.Point) {
			q := image.Pt(p.X, size.Y-1-p.Y)
			if q.In(bounds) {
				set.Set(uint(q.Y*size.X + q.X))
			}
		})
	}
	if len(points) == 1 {
		p := points[0].Add(offset)
		q := image.Pt(p.X, size.Y-1-p.Y)
		if q.In(bounds) {
			set.Set(uint(q.Y*size.X + q.X))
		}
	}
	return set
}

// drawLine remaps dst through f on the line's pixels, or off them when
// invert is set.
func drawLine(dst *Image, points []image.Point, offset image.Point, f *Filter, frame FrameFunc, invert bool) {
	set := linePixels(dst.Size(), points, offset)
	r := &remapper{f: f, frame: frame}
	dst.All().ForEach(func(_, abs image.Point, px *uint8) {
		if set.Test(uint(abs.Y*dst.width+abs.X)) != invert {
			r.remap(abs, px)
		}
	})
}
