package pxl

import (
	"cmp"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/google/btree"
)

// Options configures a Compositor.
type Options struct {
	// Size is the size of the rendered image.
	Size image.Point
}

func (o *Options) validate() error {
	if o.Size.X <= 0 || o.Size.Y <= 0 {
		return errors.New("pxl: NewCompositor: size must be positive")
	}
	return nil
}

// Compositor renders scenes into indexed images, layer by layer in ascending
// order of L. It is not safe for concurrent use.
type Compositor[L any] struct {
	opts   Options
	cmp    func(a, b L) int
	canvas *Image
}

// NewCompositor returns a compositor for naturally ordered layer keys.
func NewCompositor[L cmp.Ordered](opts Options) (*Compositor[L], error) {
	return NewCompositorFunc[L](opts, cmp.Compare[L])
}

// NewCompositorFunc returns a compositor ordering layers with cmp.
func NewCompositorFunc[L any](opts Options, cmp func(a, b L) int) (*Compositor[L], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if cmp == nil {
		return nil, errors.New("pxl: NewCompositor: comparison function must be specified")
	}

	return &Compositor[L]{
		opts:   opts,
		cmp:    cmp,
		canvas: NewImage(opts.Size.X, opts.Size.Y),
	}, nil
}

// Size returns the size of rendered images.
func (c *Compositor[L]) Size() image.Point { return c.opts.Size }

// Result is one rendered frame.
type Result struct {
	// Image belongs to the caller.
	Image *Image
	// Events lists animations that finished this tick. Records with
	// EventDespawn are not drawn.
	Events []Event
	// Layers is the number of layers drawn.
	Layers int
}

type layerContents[L any] struct {
	key L

	tilemaps []*TilemapRecord[L]
	sprites  []*SpriteRecord[L]
	texts    []*TextRecord[L]

	clipRects   []*RectRecord[L]
	clipFilters []*FilterRecord[L]
	clipLines   []*LineRecord[L]

	overRects   []*RectRecord[L]
	overFilters []*FilterRecord[L]
	overLines   []*LineRecord[L]
}

type layerTree[L any] struct {
	tree *btree.BTreeG[*layerContents[L]]
}

func newLayerTree[L any](cmp func(a, b L) int) layerTree[L] {
	return layerTree[L]{tree: btree.NewG[*layerContents[L]](16, func(a, b *layerContents[L]) bool {
		return cmp(a.key, b.key) < 0
	})}
}

// get returns the contents of layer key, creating it if needed.
func (t layerTree[L]) get(key L) *layerContents[L] {
	if lc, ok := t.tree.Get(&layerContents[L]{key: key}); ok {
		return lc
	}
	lc := &layerContents[L]{key: key}
	t.tree.ReplaceOrInsert(lc)
	return lc
}

func (t layerTree[L]) keys() []L {
	keys := make([]L, 0, t.tree.Len())
	t.tree.Ascend(func(lc *layerContents[L]) bool {
		keys = append(keys, lc.key)
		return true
	})
	return keys
}

// Render advances every animation to now and draws the scene.
func (c *Compositor[L]) Render(scene *Scene[L], now time.Time) (*Result, error) {
	if scene == nil {
		return nil, errors.New("pxl: Render: scene must be specified")
	}

	res := &Result{}
	gone := c.advance(scene, now, res)

	layers := newLayerTree[L](c.cmp)
	c.group(scene, layers, gone)

	out := NewImage(c.opts.Size.X, c.opts.Size.Y)
	out.Fill(0)

	layers.tree.Ascend(func(lc *layerContents[L]) bool {
		c.drawLayer(lc, scene.Camera, out)
		res.Layers++
		return true
	})

	res.Image = out
	Logger().Debug("pxl: rendered frame",
		slog.Int("layers", res.Layers),
		slog.Int("events", len(res.Events)))
	return res, nil
}

// advance steps each animation whose asset is loaded and returns the records
// that despawned, keyed by record pointer. IDs are only reported in events.
func (c *Compositor[L]) advance(scene *Scene[L], now time.Time, res *Result) map[any]bool {
	gone := make(map[any]bool)
	step := func(rec any, kind RecordKind, id int, a *Animation, frameCount int) {
		ev := a.Advance(now, frameCount)
		if ev == EventNone {
			return
		}
		res.Events = append(res.Events, Event{ID: id, Kind: kind, Event: ev})
		if ev == EventDespawn {
			gone[rec] = true
		}
	}

	for _, r := range scene.Sprites {
		if s := r.Sprite.Get(); s != nil && r.Animation != nil {
			step(r, KindSprite, r.ID, r.Animation, s.FrameCount())
		}
	}
	for _, r := range scene.Tilemaps {
		if ts := r.Tileset.Get(); ts != nil && r.Animation != nil {
			step(r, KindTilemap, r.ID, r.Animation, ts.MaxFrameCount())
		}
	}
	for _, r := range scene.Texts {
		if tf := r.Typeface.Get(); tf != nil && r.Animation != nil {
			step(r, KindText, r.ID, r.Animation, tf.MaxFrameCount())
		}
	}
	for _, r := range scene.Rects {
		if f := r.Filter.Get(); f != nil && r.Animation != nil {
			step(r, KindRect, r.ID, r.Animation, f.FrameCount())
		}
	}
	for _, r := range scene.Filters {
		if f := r.Filter.Get(); f != nil && r.Animation != nil {
			step(r, KindFilter, r.ID, r.Animation, f.FrameCount())
		}
	}
	for _, r := range scene.Lines {
		if f := r.Filter.Get(); f != nil && r.Animation != nil {
			step(r, KindLine, r.ID, r.Animation, f.FrameCount())
		}
	}

	return gone
}

// group sorts visible records into layers. Layer sets naming layers
// directly are placed first so ranges and predicates see them.
func (c *Compositor[L]) group(scene *Scene[L], layers layerTree[L], gone map[any]bool) {
	skip := func(rec any, hidden bool) bool {
		return hidden || gone[rec]
	}

	for _, r := range scene.Tilemaps {
		if !skip(r, r.Hidden) {
			lc := layers.get(r.Layer)
			lc.tilemaps = append(lc.tilemaps, r)
		}
	}
	for _, r := range scene.Sprites {
		if !skip(r, r.Hidden) {
			lc := layers.get(r.Layer)
			lc.sprites = append(lc.sprites, r)
		}
	}
	for _, r := range scene.Texts {
		if !skip(r, r.Hidden) {
			lc := layers.get(r.Layer)
			lc.texts = append(lc.texts, r)
		}
	}

	for _, r := range scene.Rects {
		if ls, ok := r.Layers.explicit(); ok && !skip(r, r.Hidden) {
			for _, l := range ls {
				layers.get(l)
			}
		}
	}
	for _, r := range scene.Filters {
		if ls, ok := r.Layers.explicit(); ok && !skip(r, r.Hidden) {
			for _, l := range ls {
				layers.get(l)
			}
		}
	}
	for _, r := range scene.Lines {
		if ls, ok := r.Layers.explicit(); ok && !skip(r, r.Hidden) {
			for _, l := range ls {
				layers.get(l)
			}
		}
	}

	occupied := layers.keys()

	for _, r := range scene.Rects {
		if skip(r, r.Hidden) {
			continue
		}
		for _, l := range r.Layers.resolve(occupied, c.cmp) {
			lc := layers.get(l)
			if r.Layers.Clip() {
				lc.clipRects = append(lc.clipRects, r)
			} else {
				lc.overRects = append(lc.overRects, r)
			}
		}
	}
	for _, r := range scene.Filters {
		if skip(r, r.Hidden) {
			continue
		}
		for _, l := range r.Layers.resolve(occupied, c.cmp) {
			lc := layers.get(l)
			if r.Layers.Clip() {
				lc.clipFilters = append(lc.clipFilters, r)
			} else {
				lc.overFilters = append(lc.overFilters, r)
			}
		}
	}
	for _, r := range scene.Lines {
		if skip(r, r.Hidden) {
			continue
		}
		for _, l := range r.Layers.resolve(occupied, c.cmp) {
			lc := layers.get(l)
			if r.Layers.Clip() {
				lc.clipLines = append(lc.clipLines, r)
			} else {
				lc.overLines = append(lc.overLines, r)
			}
		}
	}
}

func (c *Compositor[L]) drawLayer(lc *layerContents[L], camera image.Point, out *Image) {
	c.canvas.Clear()
	canvas := c.canvas.All()

	for _, r := range lc.tilemaps {
		c.drawTilemap(canvas, r, camera)
	}
	for _, r := range lc.sprites {
		c.drawSprite(canvas, r, camera)
	}
	for _, r := range lc.texts {
		c.drawText(canvas, r, camera)
	}

	for _, r := range lc.clipRects {
		drawRect(canvas, r, camera)
	}
	for _, r := range lc.clipFilters {
		drawScreenFilter(canvas, r)
	}
	for _, r := range lc.clipLines {
		drawLineRecord(c.canvas, r, camera)
	}

	final := out.All()
	final.Draw(c.canvas)

	for _, r := range lc.overRects {
		drawRect(final, r, camera)
	}
	for _, r := range lc.overFilters {
		drawScreenFilter(final, r)
	}
	for _, r := range lc.overLines {
		drawLineRecord(out, r, camera)
	}
}

// filterChain composes the loaded filters of handles in order.
func filterChain(handles ...*Handle[Filter]) FilterFunc {
	var filters []*Filter
	for _, h := range handles {
		if f := h.Get(); f != nil {
			filters = append(filters, f)
		}
	}
	return composeFilters(filters)
}

func (c *Compositor[L]) drawSprite(dst Slice, r *SpriteRecord[L], camera image.Point) {
	s := r.Sprite.Get()
	if s == nil {
		return
	}

	var d Drawable = s
	if r.FlipX || r.FlipY {
		d = flippedSprite{Sprite: s, x: r.FlipX, y: r.FlipY}
	}

	view := spatialView(dst, s.FrameSize(), r.Position, r.Anchor, r.Canvas, camera)
	frame := currentFrame(r.Animation, r.Frame).Resolve(s.FrameCount())
	d.Draw(view, frame, filterChain(r.Filters...))
}

func (c *Compositor[L]) drawTilemap(dst Slice, r *TilemapRecord[L], camera image.Point) {
	ts := r.Tileset.Get()
	if ts == nil || r.Map == nil {
		return
	}

	frame := currentFrame(r.Animation, r.Frame)
	size := r.Map.Size()
	tileSize := ts.TileSize()

	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			tile := r.Map.Get(image.Pt(x, y))
			if tile == nil || tile.Hidden {
				continue
			}

			sprite, ok := ts.Tile(tile.Texture)
			if !ok {
				Logger().Error("pxl: tile texture index out of range",
					slog.Int("index", tile.Texture),
					slog.Int("len", ts.Len()))
				continue
			}

			pos := r.Position.Add(image.Pt(x*tileSize.X, y*tileSize.Y))
			view := spatialView(dst, tileSize, pos, AnchorBottomLeft, r.Canvas, camera)
			filters := append([]*Handle[Filter]{tile.Filter}, r.Filters...)
			sprite.Draw(view, frame.Resolve(sprite.FrameCount()), filterChain(filters...))
		}
	}
}

func (c *Compositor[L]) drawText(dst Slice, r *TextRecord[L], camera image.Point) {
	tf := r.Typeface.Get()
	if tf == nil {
		return
	}

	layout, err := Layout(tf, r.Text, LayoutOptions{
		Width:  r.Width,
		Height: r.Height,
		Anchor: r.Anchor,
	})
	if layout == nil {
		Logger().Error("pxl: text layout failed", slog.Int("id", r.ID), slog.Any("error", err))
		return
	}

	block := spatialView(dst, layout.Size, r.Position, r.Anchor, r.Canvas, camera)
	origin := block.Offset().Sub(dst.Offset())
	frame := currentFrame(r.Animation, r.Frame)
	filter := filterChain(r.Filters...)

	for _, g := range layout.Glyphs {
		rect := image.Rectangle{Min: g.Pos, Max: g.Pos.Add(g.Sprite.FrameSize())}
		g.Sprite.Draw(dst.Slice(rect.Add(origin)), frame.Resolve(g.Sprite.FrameCount()), filter)
	}
}

func drawRect[L any](dst Slice, r *RectRecord[L], camera image.Point) {
	f := r.Filter.Get()
	if f == nil {
		return
	}
	view := spatialView(dst, r.Size, r.Position, r.Anchor, r.Canvas, camera)
	f.apply(view, currentFrame(r.Animation, r.Frame).Resolve(f.FrameCount()), r.Invert)
}

func drawScreenFilter[L any](dst Slice, r *FilterRecord[L]) {
	f := r.Filter.Get()
	if f == nil {
		return
	}
	f.apply(dst, currentFrame(r.Animation, r.Frame).Resolve(f.FrameCount()), false)
}

func drawLineRecord[L any](dst *Image, r *LineRecord[L], camera image.Point) {
	f := r.Filter.Get()
	if f == nil {
		return
	}
	var offset image.Point
	if r.Canvas == World {
		offset = offset.Sub(camera)
	}
	drawLine(dst, r.Points, offset, f, currentFrame(r.Animation, r.Frame).Resolve(f.FrameCount()), r.Invert)
}
