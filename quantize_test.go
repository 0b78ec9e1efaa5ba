package pxl

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

func randomImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	// Keep most pixels opaque and a few fully transparent.
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] < 16 {
			img.Pix[i] = 0
		} else {
			img.Pix[i] = 0xFF
		}
	}
	return img
}

func testPalette(t *testing.T) *Palette {
	t.Helper()
	p, err := NewPalette([]color.Color{
		black, white, red, green, blue,
		color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF},
		color.NRGBA{R: 0xFF, G: 0xFF, A: 0xFF},
		color.NRGBA{R: 0x40, B: 0x80, A: 0xFF},
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestQuantizeNearest(t *testing.T) {
	p, _ := NewPalette([]color.Color{black, white})
	img := nrgba(3, 1,
		color.NRGBA{R: 10, G: 10, B: 10, A: 0xFF},
		color.NRGBA{R: 240, G: 240, B: 240, A: 0xFF},
		color.NRGBA{},
	)

	got, err := QuantizeDither(p, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 1, NoPixel}
	for i, v := range want {
		if got.Pix()[i] != v {
			t.Errorf("pixel %d = %d, want %d", i, got.Pix()[i], v)
		}
	}
}

func TestQuantizeDitherDeterministic(t *testing.T) {
	p := testPalette(t)
	img := randomImage(37, 23, 1)

	var dithers []*Dither
	for _, alg := range []DitherAlgorithm{Ordered, Pattern} {
		for _, m := range []ThresholdMap{Map2x2, Map4x4, Map8x8} {
			dithers = append(dithers, &Dither{Algorithm: alg, Threshold: 0.1, Map: m})
		}
	}
	dithers = append(dithers, nil)

	for _, d := range dithers {
		name := "nearest"
		if d != nil {
			name = fmt.Sprintf("%s/%dx%[2]d", d.Algorithm, d.Map.Width())
		}
		t.Run(name, func(t *testing.T) {
			serial, err := QuantizeDither(p, img, d, WithWorkers(1), WithChunkSize(1))
			if err != nil {
				t.Fatal(err)
			}

			for _, opts := range [][]Option{
				{WithWorkers(4), WithChunkSize(7)},
				{},
			} {
				got, err := QuantizeDither(p, img, d, opts...)
				if err != nil {
					t.Fatal(err)
				}
				if !got.Equal(serial) {
					t.Error("result depends on worker layout")
				}
			}
		})
	}
}

func TestQuantizeZeroThresholdIsNearest(t *testing.T) {
	p := testPalette(t)
	img := randomImage(16, 16, 2)

	nearest, err := QuantizeDither(p, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	ordered, err := QuantizeDither(p, img, &Dither{Algorithm: Ordered, Map: Map4x4})
	if err != nil {
		t.Fatal(err)
	}
	if !ordered.Equal(nearest) {
		t.Error("ordered dither with threshold 0 differs from nearest")
	}
}

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestQuantizeDitherKnownPatterns(t *testing.T) {
	gray := color.NRGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xFF}
	midGray := color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}

	// The 4x4 map is read as map[(x%4)*4+y%4], so each output row is a
	// column of the matrix.
	tests := []struct {
		name   string
		colors []color.Color
		alg    DitherAlgorithm
		want   string
	}{
		{"ordered black white", []color.Color{black, white}, Ordered, "0101/1011/0101/1010"},
		{"pattern black white", []color.Color{black, white}, Pattern, "0101/1011/0101/1010"},
		{"ordered white black", []color.Color{white, black}, Ordered, "1010/0100/1010/0101"},
		// Candidates are sorted darkest first whatever their index.
		{"pattern white black", []color.Color{white, black}, Pattern, "1010/0100/1010/0101"},
		{"ordered three grays", []color.Color{black, midGray, white}, Ordered, "0202/1111/0202/1111"},
		{"pattern three grays", []color.Color{white, black, midGray}, Pattern, "1220/2222/2222/2222"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPalette(tt.colors)
			if err != nil {
				t.Fatal(err)
			}
			got, err := QuantizeDither(p, uniformImage(4, 4, gray), &Dither{Algorithm: tt.alg, Threshold: 1, Map: Map4x4})
			if err != nil {
				t.Fatal(err)
			}
			if rows(got) != tt.want {
				t.Errorf("image = %s, want %s", rows(got), tt.want)
			}
		})
	}
}

func TestQuantizeDitherErrors(t *testing.T) {
	p := testPalette(t)
	img := randomImage(4, 4, 3)

	tests := []struct {
		name string
		d    *Dither
	}{
		{"negative threshold", &Dither{Threshold: -1}},
		{"NaN threshold", &Dither{Threshold: math.NaN()}},
		{"unknown map", &Dither{Map: ThresholdMap(9)}},
		{"unknown algorithm", &Dither{Algorithm: DitherAlgorithm(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := QuantizeDither(p, img, tt.d); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := QuantizeDither(&Palette{}, img, nil); !errors.Is(err, ErrEmptyPalette) {
		t.Errorf("empty palette error = %v, want ErrEmptyPalette", err)
	}
}

func TestQuantizeDitherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := QuantizeDither(testPalette(t), randomImage(64, 64, 4), nil,
		WithContext(ctx), WithChunkSize(16))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPatternDitherUsesOnlyPaletteIndices(t *testing.T) {
	p := testPalette(t)
	got, err := QuantizeDither(p, randomImage(20, 20, 5), &Dither{Algorithm: Pattern, Threshold: 0.5, Map: Map8x8})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got.Pix() {
		if v != NoPixel && int(v) >= p.Len() {
			t.Fatalf("pixel %d = %d is outside the palette", i, v)
		}
	}
}

func TestKDTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([]oklab, 200)
	for i := range points {
		points[i] = oklab{rng.Float64(), rng.Float64() - 0.5, rng.Float64() - 0.5}
	}
	tree := newKDTree(points)

	for n := 0; n < 1000; n++ {
		q := oklab{rng.Float64(), rng.Float64() - 0.5, rng.Float64() - 0.5}

		want := 0
		for i := range points {
			if q.dist2(points[i]) < q.dist2(points[want]) {
				want = i
			}
		}
		if got := tree.nearest(q); got != want {
			t.Fatalf("query %v: nearest = %d, want %d", q, got, want)
		}
	}
}

func TestKDTreeTiesPreferLowerIndex(t *testing.T) {
	points := []oklab{{0.5, 0, 0}, {0.1, 0, 0}, {0.5, 0, 0}}
	tree := newKDTree(points)
	if got := tree.nearest(oklab{0.5, 0, 0}); got != 0 {
		t.Errorf("nearest = %d, want 0", got)
	}
	if got := newKDTree(nil).nearest(oklab{}); got != 0 {
		t.Errorf("empty tree nearest = %d, want 0", got)
	}
}
