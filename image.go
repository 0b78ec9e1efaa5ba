package pxl

import (
	"fmt"
	"image"
	"image/color"
)

// NoPixel is the index stored where an image has no pixel. A palette holds at
// most 255 colors, so index 255 never names a color.
const NoPixel uint8 = 0xFF

// Image is a width-stamped flat buffer of palette indices, row-major with row
// 0 at the top. Pixels equal to NoPixel are transparent.
type Image struct {
	pix   []uint8
	width int
}

// NewImage returns a width×height image with every pixel set to NoPixel.
func NewImage(width, height int) *Image {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("pxl: NewImage: negative size %dx%d", width, height))
	}

	img := &Image{
		pix:   make([]uint8, width*height),
		width: width,
	}
	img.Clear()
	return img
}

// NewImageFrom wraps pix as an image of the given width. len(pix) must be a
// multiple of width.
func NewImageFrom(pix []uint8, width int) (*Image, error) {
	if width <= 0 {
		if len(pix) == 0 {
			return &Image{}, nil
		}
		return nil, fmt.Errorf("%w: width %d for %d pixels", ErrUnevenSplit, width, len(pix))
	}
	if len(pix)%width != 0 {
		return nil, fmt.Errorf("%w: %d pixels are not a multiple of width %d",
			ErrUnevenSplit, len(pix), width)
	}
	return &Image{pix: pix, width: width}, nil
}

// Width returns the image width.
func (m *Image) Width() int { return m.width }

// Height returns the image height.
func (m *Image) Height() int {
	if m.width == 0 {
		return 0
	}
	return len(m.pix) / m.width
}

// Size returns the image dimensions.
func (m *Image) Size() image.Point { return image.Pt(m.width, m.Height()) }

// Bounds returns the image rectangle anchored at the origin.
func (m *Image) Bounds() image.Rectangle { return image.Rectangle{Max: m.Size()} }

// Area returns the number of pixels.
func (m *Image) Area() int { return len(m.pix) }

// Pix returns the underlying buffer. Writes alias the image.
func (m *Image) Pix() []uint8 { return m.pix }

// At returns the pixel at (x, y) and whether the point is inside the image.
func (m *Image) At(x, y int) (uint8, bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.Height() {
		return NoPixel, false
	}
	return m.pix[y*m.width+x], true
}

// Pixel returns the pixel at p, or NoPixel outside the image.
func (m *Image) Pixel(p image.Point) uint8 {
	v, _ := m.At(p.X, p.Y)
	return v
}

// Set writes the pixel at (x, y). Out of range writes are ignored and report
// false.
func (m *Image) Set(x, y int, v uint8) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.Height() {
		return false
	}
	m.pix[y*m.width+x] = v
	return true
}

// Fill sets every pixel to v.
func (m *Image) Fill(v uint8) {
	for i := range m.pix {
		m.pix[i] = v
	}
}

// Clear sets every pixel to NoPixel.
func (m *Image) Clear() { m.Fill(NoPixel) }

// Empty reports whether the image has no pixels set.
func (m *Image) Empty() bool {
	for _, v := range m.pix {
		if v != NoPixel {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]uint8, len(m.pix))
	copy(pix, m.pix)
	return &Image{pix: pix, width: m.width}
}

// Equal reports whether both images have the same width and pixels.
func (m *Image) Equal(o *Image) bool {
	if m.width != o.width || len(m.pix) != len(o.pix) {
		return false
	}
	for i := range m.pix {
		if m.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// FlipVertical returns a new image with the rows reversed.
func (m *Image) FlipVertical() *Image {
	out := &Image{pix: make([]uint8, len(m.pix)), width: m.width}
	h := m.Height()
	for y := 0; y < h; y++ {
		copy(out.pix[(h-1-y)*m.width:(h-y)*m.width], m.pix[y*m.width:(y+1)*m.width])
	}
	return out
}

// FlipHorizontal returns a new image with the columns reversed.
func (m *Image) FlipHorizontal() *Image {
	out := &Image{pix: make([]uint8, len(m.pix)), width: m.width}
	for y := 0; y < m.Height(); y++ {
		row := y * m.width
		for x := 0; x < m.width; x++ {
			out.pix[row+m.width-1-x] = m.pix[row+x]
		}
	}
	return out
}

// SplitVertical cuts the image into horizontal bands of chunkHeight rows,
// top to bottom.
func (m *Image) SplitVertical(chunkHeight int) ([]*Image, error) {
	h := m.Height()
	if chunkHeight <= 0 || h%chunkHeight != 0 {
		return nil, fmt.Errorf("%w: height %d by %d", ErrUnevenSplit, h, chunkHeight)
	}

	chunk := chunkHeight * m.width
	parts := make([]*Image, 0, h/chunkHeight)
	for i := 0; i < len(m.pix); i += chunk {
		pix := make([]uint8, chunk)
		copy(pix, m.pix[i:i+chunk])
		parts = append(parts, &Image{pix: pix, width: m.width})
	}
	return parts, nil
}

// SplitHorizontal cuts the image into vertical bands of chunkWidth columns,
// left to right.
func (m *Image) SplitHorizontal(chunkWidth int) ([]*Image, error) {
	if chunkWidth <= 0 || m.width%chunkWidth != 0 {
		return nil, fmt.Errorf("%w: width %d by %d", ErrUnevenSplit, m.width, chunkWidth)
	}

	count := m.width / chunkWidth
	h := m.Height()
	parts := make([]*Image, count)
	for i := range parts {
		parts[i] = &Image{pix: make([]uint8, 0, chunkWidth*h), width: chunkWidth}
	}

	for y := 0; y < h; y++ {
		for i, part := range parts {
			start := y*m.width + i*chunkWidth
			part.pix = append(part.pix, m.pix[start:start+chunkWidth]...)
		}
	}
	return parts, nil
}

// JoinVertical stacks parts top to bottom. It is the inverse of
// SplitVertical.
func JoinVertical(parts ...*Image) (*Image, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}

	width := parts[0].width
	total := 0
	for i, part := range parts {
		if part.width != width {
			return nil, fmt.Errorf("%w: part %d is %d wide, want %d",
				ErrWidthMismatch, i, part.width, width)
		}
		total += len(part.pix)
	}

	pix := make([]uint8, 0, total)
	for _, part := range parts {
		pix = append(pix, part.pix...)
	}
	return &Image{pix: pix, width: width}, nil
}

// TrimRight removes fully transparent columns from the right edge.
func (m *Image) TrimRight() {
	h := m.Height()
	trim := 0
	for trim < m.width {
		col := m.width - 1 - trim
		clear := true
		for y := 0; y < h; y++ {
			if m.pix[y*m.width+col] != NoPixel {
				clear = false
				break
			}
		}
		if !clear {
			break
		}
		trim++
	}

	if trim == 0 {
		return
	}

	newWidth := m.width - trim
	pix := make([]uint8, 0, newWidth*h)
	for y := 0; y < h; y++ {
		pix = append(pix, m.pix[y*m.width:y*m.width+newWidth]...)
	}
	m.pix = pix
	m.width = newWidth
}

// Slice returns a view of r. Writes through the view alias the image.
func (m *Image) Slice(r image.Rectangle) Slice {
	return Slice{img: m, rect: r, clip: r.Intersect(m.Bounds())}
}

// All returns a view of the whole image.
func (m *Image) All() Slice { return m.Slice(m.Bounds()) }

// Paletted converts the image to an image.Paletted using p's colors. NoPixel
// becomes a transparent entry.
func (m *Image) Paletted(p *Palette) *image.Paletted {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{A: 0xFF}
	}
	for i, c := range p.Colors() {
		pal[i] = c
	}
	pal[NoPixel] = color.RGBA{}

	out := image.NewPaletted(m.Bounds(), pal)
	copy(out.Pix, m.pix)
	return out
}

// Slice is a rectangular view into an Image. The view rectangle may extend
// past the image; only the visible part is read or written.
type Slice struct {
	img  *Image
	rect image.Rectangle
	clip image.Rectangle
}

// Image returns the image the view aliases.
func (s Slice) Image() *Image { return s.img }

// Rect returns the view rectangle in image coordinates.
func (s Slice) Rect() image.Rectangle { return s.rect }

// Size returns the size of the view, including any part outside the image.
func (s Slice) Size() image.Point { return s.rect.Size() }

// Offset returns the image coordinates of the view origin.
func (s Slice) Offset() image.Point { return s.rect.Min }

// Slice returns a sub-view. r is relative to the origin of s; the result is
// clipped to s.
func (s Slice) Slice(r image.Rectangle) Slice {
	abs := r.Add(s.rect.Min)
	return Slice{img: s.img, rect: abs, clip: abs.Intersect(s.clip)}
}

// Contains reports whether the view can write the image point p.
func (s Slice) Contains(p image.Point) bool { return p.In(s.clip) }

// Get returns the pixel at local, relative to the view origin.
func (s Slice) Get(local image.Point) (uint8, bool) {
	p := local.Add(s.rect.Min)
	if !s.Contains(p) {
		return NoPixel, false
	}
	return s.img.pix[p.Y*s.img.width+p.X], true
}

// Set writes the pixel at local, relative to the view origin.
func (s Slice) Set(local image.Point, v uint8) bool {
	p := local.Add(s.rect.Min)
	if !s.Contains(p) {
		return false
	}
	s.img.pix[p.Y*s.img.width+p.X] = v
	return true
}

// ForEach calls fn for every visible pixel with its coordinates relative to
// the view origin, its image coordinates, and a pointer into the image.
func (s Slice) ForEach(fn func(local, abs image.Point, px *uint8)) {
	w := s.img.width
	for y := s.clip.Min.Y; y < s.clip.Max.Y; y++ {
		row := y * w
		for x := s.clip.Min.X; x < s.clip.Max.X; x++ {
			abs := image.Pt(x, y)
			fn(abs.Sub(s.rect.Min), abs, &s.img.pix[row+x])
		}
	}
}

// Draw copies every pixel of src that is not NoPixel into the view, with
// src's origin at the view origin.
func (s Slice) Draw(src *Image) {
	s.ForEach(func(local, _ image.Point, px *uint8) {
		if v, ok := src.At(local.X, local.Y); ok && v != NoPixel {
			*px = v
		}
	})
}
