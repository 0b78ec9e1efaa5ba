package pxl

import "image"

// SpriteRecord places a sprite on a layer.
type SpriteRecord[L any] struct {
	// ID is reported in events and need not be unique.
	ID       int
	Sprite   *Handle[Sprite]
	Position image.Point
	Anchor   Anchor
	Layer    L
	Canvas   Canvas
	Hidden   bool
	// Animation, when set, overrides Frame.
	Animation *Animation
	Frame     Frame
	Filters   []*Handle[Filter]

	FlipX, FlipY bool
}

// TilemapRecord places a tilemap with its bottom left corner at Position.
type TilemapRecord[L any] struct {
	ID        int
	Map       *Tilemap
	Tileset   *Handle[Tileset]
	Position  image.Point
	Layer     L
	Canvas    Canvas
	Hidden    bool
	Animation *Animation
	Frame     Frame
	// Filters apply after each tile's own filter.
	Filters []*Handle[Filter]
}

// TextRecord places a block of text. Width and Height bound the block; zero
// means unbounded.
type TextRecord[L any] struct {
	ID        int
	Text      string
	Typeface  *Handle[Typeface]
	Width     int
	Height    int
	Position  image.Point
	Anchor    Anchor
	Layer     L
	Canvas    Canvas
	Hidden    bool
	Animation *Animation
	Frame     Frame
	Filters   []*Handle[Filter]
}

// RectRecord remaps the pixels inside a rectangle, or outside it when
// Invert is set.
type RectRecord[L any] struct {
	ID        int
	Size      image.Point
	Filter    *Handle[Filter]
	Layers    LayerSet[L]
	Position  image.Point
	Anchor    Anchor
	Canvas    Canvas
	Invert    bool
	Hidden    bool
	Animation *Animation
	Frame     Frame
}

// FilterRecord remaps a whole layer or the composited image.
type FilterRecord[L any] struct {
	ID        int
	Filter    *Handle[Filter]
	Layers    LayerSet[L]
	Hidden    bool
	Animation *Animation
	Frame     Frame
}

// LineRecord remaps the pixels on a polyline through Points, or every other
// pixel when Invert is set.
type LineRecord[L any] struct {
	ID        int
	Points    []image.Point
	Filter    *Handle[Filter]
	Layers    LayerSet[L]
	Canvas    Canvas
	Invert    bool
	Hidden    bool
	Animation *Animation
	Frame     Frame
}

// Scene is everything to draw in one tick.
type Scene[L any] struct {
	// Camera offsets everything on the World canvas.
	Camera image.Point

	Tilemaps []*TilemapRecord[L]
	Sprites  []*SpriteRecord[L]
	Texts    []*TextRecord[L]
	Rects    []*RectRecord[L]
	Filters  []*FilterRecord[L]
	Lines    []*LineRecord[L]
}

// RecordKind names the kind of record an Event refers to.
type RecordKind uint8

const (
	KindSprite RecordKind = iota
	KindTilemap
	KindText
	KindRect
	KindFilter
	KindLine
)

func (k RecordKind) String() string {
	switch k {
	case KindSprite:
		return "sprite"
	case KindTilemap:
		return "tilemap"
	case KindText:
		return "text"
	case KindRect:
		return "rect"
	case KindFilter:
		return "filter"
	default:
		return "line"
	}
}

// Event reports that a record's animation finished.
type Event struct {
	ID    int
	Kind  RecordKind
	Event FinishEvent
}

func currentFrame(a *Animation, f Frame) Frame {
	if a != nil {
		return a.Frame
	}
	return f
}
