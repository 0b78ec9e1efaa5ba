package pxl

import (
	"image"
	"strings"
	"testing"
	"time"
)

// invertFilter swaps 0 with 3 and 1 with 2.
func invertFilter(t *testing.T) *Handle[Filter] {
	t.Helper()
	table, _ := NewImageFrom([]uint8{3, 2, 1, 0}, 4)
	f, err := NewFilter(table)
	if err != nil {
		t.Fatal(err)
	}
	return Loaded(f)
}

func solidSprite(t *testing.T, w, h int, v uint8) *Handle[Sprite] {
	t.Helper()
	s, err := NewSprite(solidImage(w, h, v), 1)
	if err != nil {
		t.Fatal(err)
	}
	return Loaded(s)
}

func newTestCompositor(t *testing.T) *Compositor[int] {
	t.Helper()
	c, err := NewCompositor[int](Options{Size: image.Pt(4, 4)})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func render(t *testing.T, c *Compositor[int], scene *Scene[int]) *Result {
	t.Helper()
	res, err := c.Render(scene, epoch)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// rows renders img as one string per row for readable comparisons.
func rows(img *Image) string {
	var sb strings.Builder
	for y := 0; y < img.Height(); y++ {
		if y > 0 {
			sb.WriteByte('/')
		}
		for x := 0; x < img.Width(); x++ {
			v, _ := img.At(x, y)
			if v == NoPixel {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('0' + v)
			}
		}
	}
	return sb.String()
}

func TestNewCompositorErrors(t *testing.T) {
	if _, err := NewCompositor[int](Options{}); err == nil {
		t.Error("zero size should fail")
	}
	if _, err := NewCompositorFunc[string](Options{Size: image.Pt(1, 1)}, nil); err == nil {
		t.Error("nil comparison should fail")
	}
	if _, err := newTestCompositor(t).Render(nil, epoch); err == nil {
		t.Error("nil scene should fail")
	}
}

func TestRenderSprites(t *testing.T) {
	tests := []struct {
		name  string
		scene *Scene[int]
		want  string
	}{
		{
			name:  "empty scene is background",
			scene: &Scene[int]{},
			want:  "0000/0000/0000/0000",
		},
		{
			name: "bottom left anchor",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 2, 2, 1), Position: image.Pt(1, 1), Anchor: AnchorBottomLeft},
			}},
			want: "0000/0110/0110/0000",
		},
		{
			name: "center anchor",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 2, 2, 1), Position: image.Pt(2, 2)},
			}},
			want: "0000/0110/0110/0000",
		},
		{
			name: "camera moves world sprites",
			scene: &Scene[int]{
				Camera: image.Pt(1, 1),
				Sprites: []*SpriteRecord[int]{
					{Sprite: solidSprite(t, 2, 2, 1), Position: image.Pt(1, 1), Anchor: AnchorBottomLeft},
					{Sprite: solidSprite(t, 1, 1, 2), Position: image.Pt(3, 3), Anchor: AnchorBottomLeft, Canvas: Camera},
				},
			},
			want: "0002/0000/1100/1100",
		},
		{
			name: "later record wins within a layer",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 2, 1, 1), Anchor: AnchorBottomLeft},
				{Sprite: solidSprite(t, 2, 1, 2), Position: image.Pt(1, 0), Anchor: AnchorBottomLeft},
			}},
			want: "0000/0000/0000/1220",
		},
		{
			name: "higher layer wins",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 2, 1, 2), Position: image.Pt(1, 0), Anchor: AnchorBottomLeft, Layer: 2},
				{Sprite: solidSprite(t, 2, 1, 1), Anchor: AnchorBottomLeft, Layer: 1},
			}},
			want: "0000/0000/0000/1220",
		},
		{
			name: "hidden and unloaded records are skipped",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 4, 4, 1), Hidden: true},
				{Sprite: NewHandle[Sprite]("pending"), Position: image.Pt(2, 2)},
			}},
			want: "0000/0000/0000/0000",
		},
		{
			name: "clipped at the edge",
			scene: &Scene[int]{Sprites: []*SpriteRecord[int]{
				{Sprite: solidSprite(t, 3, 3, 1), Position: image.Pt(-1, -1), Anchor: AnchorBottomLeft},
			}},
			want: "0000/0000/1100/1100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, newTestCompositor(t), tt.scene)
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderSpriteFramesAndFlips(t *testing.T) {
	sheet, _ := NewImageFrom([]uint8{
		1, 2,
		3, NoPixel,
	}, 2)
	s, err := NewSprite(sheet, 2)
	if err != nil {
		t.Fatal(err)
	}
	h := Loaded(s)

	tests := []struct {
		name string
		rec  *SpriteRecord[int]
		want string
	}{
		{"frame 0", &SpriteRecord[int]{Sprite: h, Anchor: AnchorBottomLeft}, "0000/0000/0000/1200"},
		{"frame 1", &SpriteRecord[int]{Sprite: h, Anchor: AnchorBottomLeft, Frame: Frame{Selector: IndexFrame(1)}}, "0000/0000/0000/3000"},
		{"flip x", &SpriteRecord[int]{Sprite: h, Anchor: AnchorBottomLeft, FlipX: true}, "0000/0000/0000/2100"},
		{"filtered", &SpriteRecord[int]{Sprite: h, Anchor: AnchorBottomLeft, Filters: []*Handle[Filter]{invertFilter(t)}}, "0000/0000/0000/2100"},
		{"normalized last", &SpriteRecord[int]{Sprite: h, Anchor: AnchorBottomLeft, Frame: Frame{Selector: NormalizedFrame(1)}}, "0000/0000/0000/3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, newTestCompositor(t), &Scene[int]{Sprites: []*SpriteRecord[int]{tt.rec}})
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderScreenFilters(t *testing.T) {
	sprite := func() *SpriteRecord[int] {
		return &SpriteRecord[int]{Sprite: solidSprite(t, 1, 1, 1), Anchor: AnchorBottomLeft}
	}

	tests := []struct {
		name  string
		layer LayerSet[int]
		want  string
	}{
		{"clip touches only the layer", OnLayer(0), "0000/0000/0000/2000"},
		{"over touches everything", OnLayer(0).Over(), "3333/3333/3333/2333"},
		{"zero value clips the default layer", LayerSet[int]{}, "0000/0000/0000/2000"},
		{"empty layer has nothing to clip", OnLayer(5), "0000/0000/0000/1000"},
		{"empty layer over", OnLayer(5).Over(), "3333/3333/3333/2333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, newTestCompositor(t), &Scene[int]{
				Sprites: []*SpriteRecord[int]{sprite()},
				Filters: []*FilterRecord[int]{{Filter: invertFilter(t), Layers: tt.layer}},
			})
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderLayerRange(t *testing.T) {
	var sprites []*SpriteRecord[int]
	for i, layer := range []int{1, 3, 5} {
		sprites = append(sprites, &SpriteRecord[int]{
			Sprite:   solidSprite(t, 1, 1, 1),
			Position: image.Pt(i, 0),
			Anchor:   AnchorBottomLeft,
			Layer:    layer,
		})
	}

	tests := []struct {
		name   string
		layers LayerSet[int]
		want   string
	}{
		{"range", LayerRange(2, 5), "0000/0000/0000/1220"},
		{"select", SelectLayers(func(l int) bool { return l < 4 }), "0000/0000/0000/2210"},
		{"many", Layers(1, 5), "0000/0000/0000/2120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, newTestCompositor(t), &Scene[int]{
				Sprites: sprites,
				Filters: []*FilterRecord[int]{{Filter: invertFilter(t), Layers: tt.layers}},
			})
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
			if res.Layers != 3 {
				t.Errorf("Layers = %d, want 3", res.Layers)
			}
		})
	}
}

func TestRenderRects(t *testing.T) {
	tests := []struct {
		name string
		rec  *RectRecord[int]
		want string
	}{
		{
			name: "over rect",
			rec:  &RectRecord[int]{Size: image.Pt(2, 2), Anchor: AnchorBottomLeft, Canvas: Camera, Layers: OnLayer(0).Over()},
			want: "0000/0000/3300/3300",
		},
		{
			name: "inverted rect",
			rec:  &RectRecord[int]{Size: image.Pt(2, 2), Anchor: AnchorBottomLeft, Canvas: Camera, Layers: OnLayer(0).Over(), Invert: true},
			want: "3333/3333/0033/0033",
		},
		{
			name: "world rect follows the camera",
			rec:  &RectRecord[int]{Size: image.Pt(1, 1), Position: image.Pt(8, 8), Anchor: AnchorBottomLeft, Layers: OnLayer(0).Over()},
			want: "0003/0000/0000/0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.rec.Filter = invertFilter(t)
			res := render(t, newTestCompositor(t), &Scene[int]{
				Camera: image.Pt(5, 5),
				Rects:  []*RectRecord[int]{tt.rec},
			})
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderLines(t *testing.T) {
	tests := []struct {
		name string
		rec  *LineRecord[int]
		want string
	}{
		{
			name: "bottom row",
			rec:  &LineRecord[int]{Points: []image.Point{{0, 0}, {3, 0}}, Layers: OnLayer(0).Over()},
			want: "0000/0000/0000/3333",
		},
		{
			name: "diagonal polyline",
			rec:  &LineRecord[int]{Points: []image.Point{{0, 0}, {3, 3}, {3, 0}}, Layers: OnLayer(0).Over()},
			want: "0003/0033/0303/3003",
		},
		{
			name: "inverted",
			rec:  &LineRecord[int]{Points: []image.Point{{0, 3}, {3, 3}}, Layers: OnLayer(0).Over(), Invert: true},
			want: "0000/3333/3333/3333",
		},
		{
			name: "single point follows the camera",
			rec:  &LineRecord[int]{Points: []image.Point{{2, 1}}, Layers: OnLayer(0).Over()},
			want: "0000/0000/0000/0300",
		},
		{
			name: "clip line on an empty layer",
			rec:  &LineRecord[int]{Points: []image.Point{{0, 0}, {3, 0}}, Layers: OnLayer(0)},
			want: "0000/0000/0000/0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.rec.Filter = invertFilter(t)
			scene := &Scene[int]{Lines: []*LineRecord[int]{tt.rec}}
			if tt.name == "single point follows the camera" {
				scene.Camera = image.Pt(1, 1)
			}
			res := render(t, newTestCompositor(t), scene)
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderDrawOrderWithinLayer(t *testing.T) {
	// Clip effects run before blending, over effects after.
	res := render(t, newTestCompositor(t), &Scene[int]{
		Sprites: []*SpriteRecord[int]{
			{Sprite: solidSprite(t, 4, 1, 1), Anchor: AnchorBottomLeft},
		},
		Rects: []*RectRecord[int]{
			{Size: image.Pt(1, 1), Anchor: AnchorBottomLeft, Filter: invertFilter(t)},
		},
		Filters: []*FilterRecord[int]{
			{Filter: invertFilter(t), Layers: OnLayer(0).Over()},
		},
	})

	// Rect clip: 1→2 at (0,3). Blend. Over filter: everything inverted.
	if got, want := rows(res.Image), "3333/3333/3333/1222"; got != want {
		t.Errorf("image = %s, want %s", got, want)
	}
}

func TestRenderTilemap(t *testing.T) {
	// Two tiles of 1x1: tile 0 animates 1→2, tile 1 is a single frame of 3.
	tiles, _ := NewImageFrom([]uint8{
		1, 2,
		3, NoPixel,
	}, 2)
	ts, err := NewTileset(tiles, image.Pt(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if ts.Len() != 2 || ts.MaxFrameCount() != 2 {
		t.Fatalf("tileset has %d tiles, %d frames; want 2, 2", ts.Len(), ts.MaxFrameCount())
	}
	if s, _ := ts.Tile(1); s.FrameCount() != 1 {
		t.Errorf("trailing empty frame kept: %d frames", s.FrameCount())
	}

	m := NewTilemap(image.Pt(3, 2))
	m.Set(image.Pt(0, 0), &Tile{Texture: 0})
	m.Set(image.Pt(1, 0), &Tile{Texture: 1, Filter: invertFilter(t)})
	m.Set(image.Pt(2, 1), &Tile{Texture: 0})
	m.Set(image.Pt(0, 1), &Tile{Texture: 1, Hidden: true})

	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"frame 0", Frame{}, "0000/0000/0010/1000"},
		{"frame 1", Frame{Selector: IndexFrame(1)}, "0000/0000/0020/2000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, newTestCompositor(t), &Scene[int]{
				Tilemaps: []*TilemapRecord[int]{{Map: m, Tileset: Loaded(ts), Frame: tt.frame}},
			})
			// Tile 1 is 3, inverted to 0 by its own filter.
			if got := rows(res.Image); got != tt.want {
				t.Errorf("image = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	tf := testTypeface(t, "ab")

	res := render(t, newTestCompositor(t), &Scene[int]{
		Texts: []*TextRecord[int]{
			{Text: "a", Typeface: Loaded(tf), Anchor: AnchorBottomLeft},
			{Text: "b", Typeface: Loaded(tf), Position: image.Pt(4, 4), Anchor: AnchorTopRight},
		},
	})
	if got, want := rows(res.Image), "0022/0022/1110/1110"; got != want {
		t.Errorf("image = %s, want %s", got, want)
	}
}

func TestRenderEvents(t *testing.T) {
	c := newTestCompositor(t)
	scene := &Scene[int]{
		Sprites: []*SpriteRecord[int]{
			{
				ID:        7,
				Sprite:    solidSprite(t, 4, 4, 1),
				Animation: &Animation{Start: epoch, Duration: PerAnimation(time.Second), OnFinish: Despawn},
			},
			{
				ID:        8,
				Sprite:    solidSprite(t, 1, 1, 2),
				Anchor:    AnchorBottomLeft,
				Animation: &Animation{Start: epoch, Duration: PerAnimation(time.Second), OnFinish: Mark},
			},
			{
				ID:        9,
				Sprite:    NewHandle[Sprite]("pending"),
				Animation: &Animation{Start: epoch, Duration: PerAnimation(time.Second)},
			},
		},
	}

	res, err := c.Render(scene, epoch.Add(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 0 {
		t.Errorf("events before the end = %v", res.Events)
	}

	res, err = c.Render(scene, epoch.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{
		{ID: 7, Kind: KindSprite, Event: EventDespawn},
		{ID: 8, Kind: KindSprite, Event: EventMark},
	}
	if len(res.Events) != len(want) {
		t.Fatalf("events = %v, want %v", res.Events, want)
	}
	for i := range want {
		if res.Events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, res.Events[i], want[i])
		}
	}
	if got := rows(res.Image); got != "0000/0000/0000/2000" {
		t.Errorf("despawned sprite drawn: %s", got)
	}

	res, _ = c.Render(scene, epoch.Add(3*time.Second))
	if len(res.Events) != 1 || res.Events[0].ID != 7 {
		t.Errorf("third tick events = %v, want only the despawn", res.Events)
	}
}

func TestRenderDespawnKeepsOtherRecords(t *testing.T) {
	c := newTestCompositor(t)
	scene := &Scene[int]{Sprites: []*SpriteRecord[int]{
		{
			Sprite:    solidSprite(t, 1, 1, 1),
			Anchor:    AnchorBottomLeft,
			Animation: &Animation{Start: epoch, Duration: PerAnimation(time.Second), OnFinish: Despawn},
		},
		{Sprite: solidSprite(t, 1, 1, 2), Position: image.Pt(2, 0), Anchor: AnchorBottomLeft},
	}}

	res, err := c.Render(scene, epoch.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 1 || res.Events[0].Event != EventDespawn {
		t.Errorf("events = %v, want one despawn", res.Events)
	}
	if got := rows(res.Image); got != "0000/0000/0000/0020" {
		t.Errorf("image = %s, want 0000/0000/0000/0020", got)
	}
}

func TestSpriteDrawOnClearedCanvas(t *testing.T) {
	s, err := NewSprite(solidImage(2, 2, 1), 1)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		pos    image.Point
		anchor Anchor
	}{
		{"bottom left", image.Pt(1, 1), AnchorBottomLeft},
		{"center", image.Pt(2, 2), AnchorCenter},
		{"top right", image.Pt(3, 3), AnchorTopRight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := NewImage(4, 4)
			view := spatialView(canvas.All(), s.FrameSize(), tt.pos, tt.anchor, Camera, image.Point{})
			s.Draw(view, frameZero, nil)
			if got := rows(canvas); got != "..../.11./.11./...." {
				t.Errorf("canvas = %s, want ..../.11./.11./....", got)
			}
		})
	}
}

func TestNewSpriteTrimsEmptyFrames(t *testing.T) {
	tests := []struct {
		name   string
		pix    []uint8
		frames int
		want   int
	}{
		{"no empty frames", []uint8{1, 2, 3}, 3, 3},
		{"trailing empty", []uint8{1, NoPixel, NoPixel}, 3, 1},
		{"empty in the middle kept", []uint8{1, NoPixel, 2, NoPixel}, 4, 3},
		{"all empty keeps one", []uint8{NoPixel, NoPixel}, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _ := NewImageFrom(tt.pix, 1)
			s, err := NewSprite(img, tt.frames)
			if err != nil {
				t.Fatal(err)
			}
			if s.FrameCount() != tt.want {
				t.Errorf("FrameCount() = %d, want %d", s.FrameCount(), tt.want)
			}
			if s.FrameSize() != image.Pt(1, 1) {
				t.Errorf("FrameSize() = %v, want (1,1)", s.FrameSize())
			}
		})
	}
}

func TestRenderCustomOrder(t *testing.T) {
	c, err := NewCompositorFunc[string](Options{Size: image.Pt(2, 1)}, func(a, b string) int {
		return len(a) - len(b)
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.Render(&Scene[string]{Sprites: []*SpriteRecord[string]{
		{Sprite: solidSprite(t, 2, 1, 2), Layer: "top", Anchor: AnchorBottomLeft},
		{Sprite: solidSprite(t, 2, 1, 1), Layer: "background", Anchor: AnchorBottomLeft},
	}}, epoch)
	if err != nil {
		t.Fatal(err)
	}
	if got := rows(res.Image); got != "11" {
		t.Errorf("image = %s, want 11", got)
	}
}
