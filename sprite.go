package pxl

import (
	"errors"
	"fmt"
	"image"
)

// Drawable is anything that can be drawn into a view with a per pixel frame
// choice and a palette remap.
type Drawable interface {
	// FrameCount returns the number of animation frames.
	FrameCount() int
	// FrameSize returns the size of a single frame.
	FrameSize() image.Point
	// Draw renders into dst. frame receives image coordinates of the
	// destination pixel. filter may be nil.
	Draw(dst Slice, frame FrameFunc, filter FilterFunc)
}

// Sprite is an image holding frameCount frames stacked top to bottom.
type Sprite struct {
	img         *Image
	frameHeight int
}

// NewSprite splits img into frameCount frames of equal height. Trailing
// fully transparent frames are dropped, keeping at least one.
func NewSprite(img *Image, frameCount int) (*Sprite, error) {
	if frameCount < 1 {
		return nil, errors.New("pxl: NewSprite: frame count must be positive")
	}
	if img.Height()%frameCount != 0 {
		return nil, fmt.Errorf("%w: height %d into %d frames", ErrUnevenSplit, img.Height(), frameCount)
	}

	fh := img.Height() / frameCount
	if fh == 0 {
		return &Sprite{img: img}, nil
	}

	frames, err := img.SplitVertical(fh)
	if err != nil {
		return nil, fmt.Errorf("pxl: NewSprite: %w", err)
	}
	keep := len(frames)
	for keep > 1 && frames[keep-1].Empty() {
		keep--
	}
	if keep < len(frames) {
		img, _ = NewImageFrom(img.Pix()[:keep*fh*img.Width()], img.Width())
	}
	return &Sprite{img: img, frameHeight: fh}, nil
}

// Image returns the frame sheet.
func (s *Sprite) Image() *Image { return s.img }

func (s *Sprite) FrameCount() int {
	if s.frameHeight == 0 || s.img.Area() == 0 {
		return 1
	}
	return s.img.Height() / s.frameHeight
}

func (s *Sprite) FrameSize() image.Point { return image.Pt(s.img.Width(), s.frameHeight) }

func (s *Sprite) Draw(dst Slice, frame FrameFunc, filter FilterFunc) {
	s.draw(dst, frame, filter, false, false)
}

func (s *Sprite) draw(dst Slice, frame FrameFunc, filter FilterFunc, flipX, flipY bool) {
	w, fh := s.img.Width(), s.frameHeight
	dst.ForEach(func(local, abs image.Point, px *uint8) {
		if local.X < 0 || local.Y < 0 || local.X >= w || local.Y >= fh {
			return
		}
		x, y := local.X, local.Y
		if flipX {
			x = w - 1 - x
		}
		if flipY {
			y = fh - 1 - y
		}

		v, ok := s.img.At(x, frame(abs)*fh+y)
		if !ok || v == NoPixel {
			return
		}
		if filter != nil {
			v = filter(v)
		}
		*px = v
	})
}

// flippedSprite mirrors a sprite while drawing.
type flippedSprite struct {
	*Sprite
	x, y bool
}

func (f flippedSprite) Draw(dst Slice, frame FrameFunc, filter FilterFunc) {
	f.Sprite.draw(dst, frame, filter, f.x, f.y)
}

// Tileset is a list of animated tiles of one size.
type Tileset struct {
	tiles         []*Sprite
	tileSize      image.Point
	maxFrameCount int
}

// NewTileset reads a tile sheet where each row of tiles is one tile and the
// columns are its frames, left to right. Trailing empty frames are dropped.
func NewTileset(img *Image, tileSize image.Point) (*Tileset, error) {
	if tileSize.X <= 0 || tileSize.Y <= 0 {
		return nil, errors.New("pxl: NewTileset: tile size must be positive")
	}

	rows, err := img.SplitVertical(tileSize.Y)
	if err != nil {
		return nil, fmt.Errorf("pxl: NewTileset: %w", err)
	}

	ts := &Tileset{tileSize: tileSize}
	for _, row := range rows {
		frames, err := row.SplitHorizontal(tileSize.X)
		if err != nil {
			return nil, fmt.Errorf("pxl: NewTileset: %w", err)
		}

		for len(frames) > 1 && frames[len(frames)-1].Empty() {
			frames = frames[:len(frames)-1]
		}

		sheet, err := JoinVertical(frames...)
		if err != nil {
			return nil, fmt.Errorf("pxl: NewTileset: %w", err)
		}

		ts.tiles = append(ts.tiles, &Sprite{img: sheet, frameHeight: tileSize.Y})
		ts.maxFrameCount = max(ts.maxFrameCount, len(frames))
	}

	return ts, nil
}

// Len returns the number of tiles.
func (t *Tileset) Len() int { return len(t.tiles) }

// Tile returns tile i.
func (t *Tileset) Tile(i int) (*Sprite, bool) {
	if i < 0 || i >= len(t.tiles) {
		return nil, false
	}
	return t.tiles[i], true
}

// TileSize returns the size of one tile.
func (t *Tileset) TileSize() image.Point { return t.tileSize }

// MaxFrameCount returns the frame count of the longest tile animation.
func (t *Tileset) MaxFrameCount() int { return max(t.maxFrameCount, 1) }

// Tile is one cell of a tilemap.
type Tile struct {
	// Texture is the index into the tileset.
	Texture int
	Filter  *Handle[Filter]
	Hidden  bool
}

// Tilemap is a grid of optional tiles with (0, 0) at the bottom left.
type Tilemap struct {
	size  image.Point
	tiles []*Tile
}

// NewTilemap returns an empty map of size cells.
func NewTilemap(size image.Point) *Tilemap {
	return &Tilemap{size: size, tiles: make([]*Tile, size.X*size.Y)}
}

// Size returns the map size in cells.
func (m *Tilemap) Size() image.Point { return m.size }

func (m *Tilemap) index(p image.Point) (int, bool) {
	if !p.In(image.Rectangle{Max: m.size}) {
		return 0, false
	}
	return p.Y*m.size.X + p.X, true
}

// Get returns the tile at p, or nil.
func (m *Tilemap) Get(p image.Point) *Tile {
	i, ok := m.index(p)
	if !ok {
		return nil
	}
	return m.tiles[i]
}

// Set places t at p and returns the tile it replaced. Out of range points are
// ignored.
func (m *Tilemap) Set(p image.Point, t *Tile) *Tile {
	i, ok := m.index(p)
	if !ok {
		return nil
	}
	old := m.tiles[i]
	m.tiles[i] = t
	return old
}

// spatialView returns the view a drawable of size occupies when placed at pos
// in y-up coordinates.
func spatialView(dst Slice, size, pos image.Point, anchor Anchor, canvas Canvas, camera image.Point) Slice {
	p := pos.Sub(anchor.Pos(size))
	if canvas == World {
		p = p.Sub(camera)
	}
	top := dst.Size().Y - p.Y - size.Y
	return dst.Slice(image.Rect(p.X, top, p.X+size.X, top+size.Y))
}
