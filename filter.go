package pxl

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// Filter is a per-frame palette remap table. Column i of row f holds the
// output index for input index i on frame f.
type Filter struct {
	img *Image
}

// NewFilter wraps a table image. It must have at least one row and column.
func NewFilter(table *Image) (*Filter, error) {
	if table.Width() == 0 || table.Height() == 0 {
		return nil, errors.New("pxl: NewFilter: filter table is empty")
	}
	return &Filter{img: table}, nil
}

// NewFilterFromPaletteLayout builds a filter from frames shaped like the
// palette image. Each frame repeats the palette layout with the replacement
// color at the position of the original, so index i reads the cell where the
// palette scan found color i. Frames run left to right and then wrap down.
// Reading stops at the first frame with no opaque pixels. Transparent cells
// map to index 0.
func NewFilterFromPaletteLayout(indices *Image, p *Palette) (*Filter, error) {
	fs := p.Size()
	if fs.X <= 0 || fs.Y <= 0 {
		return nil, errors.New("pxl: NewFilterFromPaletteLayout: palette has no layout")
	}
	if indices.Width()%fs.X != 0 || indices.Height()%fs.Y != 0 {
		return nil, fmt.Errorf("%w: filter sheet %v is not a grid of %v frames",
			ErrUnevenSplit, indices.Size(), fs)
	}

	across := indices.Width() / fs.X
	total := across * (indices.Height() / fs.Y)
	area := fs.X * fs.Y

	var rows []uint8
	for f := 0; f < total; f++ {
		origin := image.Pt(f%across*fs.X, f/across*fs.Y)
		row := make([]uint8, area)
		visible := false
		for k := range row {
			// Scan order matches PaletteFromImage: bottom row first.
			x := origin.X + k%fs.X
			y := origin.Y + fs.Y - 1 - k/fs.X
			if v := indices.Pixel(image.Pt(x, y)); v != NoPixel {
				row[k] = v
				visible = true
			}
		}
		if !visible {
			break
		}
		rows = append(rows, row...)
	}

	if len(rows) == 0 {
		return nil, errors.New("pxl: NewFilterFromPaletteLayout: filter has no frames")
	}
	img, err := NewImageFrom(rows, area)
	if err != nil {
		return nil, err
	}
	return &Filter{img: img}, nil
}

// FrameCount returns the number of frames.
func (f *Filter) FrameCount() int { return f.img.Height() }

// Width returns the number of input indices the table covers.
func (f *Filter) Width() int { return f.img.Width() }

// Image returns the table.
func (f *Filter) Image() *Image { return f.img }

// Lookup returns the output for index on frame. It reports false when either
// is outside the table.
func (f *Filter) Lookup(index uint8, frame int) (uint8, bool) {
	return f.img.At(int(index), frame)
}

// FilterFunc remaps one palette index.
type FilterFunc func(uint8) uint8

// composeFilters chains filters in order, each using frame 0. NoPixel passes
// through untouched. Indices a filter does not cover are left unchanged and
// reported once per returned function.
func composeFilters(filters []*Filter) FilterFunc {
	if len(filters) == 0 {
		return nil
	}

	logged := false
	return func(v uint8) uint8 {
		if v == NoPixel {
			return v
		}
		for _, f := range filters {
			out, ok := f.Lookup(v, 0)
			if !ok {
				if !logged {
					logged = true
					Logger().Error("pxl: filter does not cover palette index",
						slog.Int("index", int(v)),
						slog.Int("width", f.Width()))
				}
				continue
			}
			v = out
		}
		return v
	}
}

// remapper applies a filter to single pixels, logging the first index the
// filter does not cover.
type remapper struct {
	f      *Filter
	frame  FrameFunc
	logged bool
}

func (r *remapper) remap(abs image.Point, px *uint8) {
	if *px == NoPixel {
		return
	}
	out, ok := r.f.Lookup(*px, r.frame(abs))
	if !ok {
		if !r.logged {
			r.logged = true
			Logger().Error("pxl: filter does not cover palette index",
				slog.Int("index", int(*px)),
				slog.Int("width", r.f.Width()))
		}
		return
	}
	*px = out
}

// apply remaps every drawn pixel of dst through f, selecting the frame per
// pixel. When invert is set it remaps every pixel of the image outside dst.
func (f *Filter) apply(dst Slice, frame FrameFunc, invert bool) {
	r := &remapper{f: f, frame: frame}
	if !invert {
		dst.ForEach(func(_, abs image.Point, px *uint8) { r.remap(abs, px) })
		return
	}

	inner := dst.clip
	dst.img.All().ForEach(func(_, abs image.Point, px *uint8) {
		if !abs.In(inner) {
			r.remap(abs, px)
		}
	})
}
