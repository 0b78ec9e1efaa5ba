package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tmpim/pxl"
)

// ErrPaletteSet is returned when SetPalette is called twice.
var ErrPaletteSet = errors.New("asset: palette already set")

type stagedAsset struct {
	name     string
	finalize func(p *pxl.Palette) error
}

// Loader finalizes assets in two phases. Sources are staged as they are
// decoded, and converted to palette indices once the palette is known.
// Assets staged after the palette is set are finalized immediately. A Loader
// is safe for concurrent use.
type Loader struct {
	mu      sync.Mutex
	palette *pxl.Palette
	ready   chan struct{}
	staged  []stagedAsset
	workers int
}

// NewLoader returns a loader that finalizes up to workers assets at once.
// Values below 1 use GOMAXPROCS.
func NewLoader(workers int) *Loader {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Loader{
		ready:   make(chan struct{}),
		workers: workers,
	}
}

// Palette returns the palette, or nil if it has not been set.
func (l *Loader) Palette() *pxl.Palette {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.palette
}

// WaitPalette blocks until the palette is set or ctx is done.
func (l *Loader) WaitPalette(ctx context.Context) (*pxl.Palette, error) {
	select {
	case <-l.ready:
		return l.Palette(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetPalette sets the palette and finalizes every staged asset against it.
// It may only be called once. Assets that fail keep an empty handle carrying
// the error; the failures are also returned joined.
func (l *Loader) SetPalette(p *pxl.Palette) error {
	if p == nil {
		return errors.New("asset: SetPalette: palette must be specified")
	}

	l.mu.Lock()
	if l.palette != nil {
		l.mu.Unlock()
		return ErrPaletteSet
	}
	l.palette = p
	staged := l.staged
	l.staged = nil
	close(l.ready)
	l.mu.Unlock()

	pxl.Logger().Info("asset: palette set",
		slog.Int("colors", p.Len()),
		slog.Int("staged", len(staged)))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(l.workers)
	for _, a := range staged {
		g.Go(func() error {
			if err := a.finalize(p); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return errors.Join(errs...)
}

// stage queues finalize for the palette, or runs it now if the palette is
// already set. The result is stored in h.
func stage[T any](l *Loader, h *pxl.Handle[T], build func(p *pxl.Palette) (*T, error)) *pxl.Handle[T] {
	finalize := func(p *pxl.Palette) error {
		v, err := build(p)
		if err != nil {
			pxl.Logger().Error("asset: failed to finalize",
				slog.String("name", h.Name()),
				slog.Any("error", err))
			h.Fail(err)
			return err
		}
		h.Set(v)
		return nil
	}

	l.mu.Lock()
	p := l.palette
	if p == nil {
		l.staged = append(l.staged, stagedAsset{name: h.Name(), finalize: finalize})
	}
	l.mu.Unlock()

	if p != nil {
		finalize(p)
	}
	return h
}

// StageSprite stages a sprite sheet.
func (l *Loader) StageSprite(name string, src image.Image, settings SpriteSettings) *pxl.Handle[pxl.Sprite] {
	return stage(l, pxl.NewHandle[pxl.Sprite](name), func(p *pxl.Palette) (*pxl.Sprite, error) {
		img, err := pxl.QuantizeExact(p, src)
		if err != nil {
			return nil, err
		}
		return pxl.NewSprite(img, max(settings.Frames, 1))
	})
}

// StageTileset stages a tile sheet.
func (l *Loader) StageTileset(name string, src image.Image, settings TilesetSettings) *pxl.Handle[pxl.Tileset] {
	return stage(l, pxl.NewHandle[pxl.Tileset](name), func(p *pxl.Palette) (*pxl.Tileset, error) {
		img, err := pxl.QuantizeExact(p, src)
		if err != nil {
			return nil, err
		}
		return pxl.NewTileset(img, image.Pt(settings.TileWidth, settings.TileHeight))
	})
}

// StageTypeface stages a glyph sheet.
func (l *Loader) StageTypeface(name string, src image.Image, settings TypefaceSettings) *pxl.Handle[pxl.Typeface] {
	h := pxl.NewHandle[pxl.Typeface](name)
	ts, err := settings.typeface()
	if err != nil {
		h.Fail(fmt.Errorf("asset: %s: %w", name, err))
		return h
	}

	return stage(l, h, func(p *pxl.Palette) (*pxl.Typeface, error) {
		img, err := pxl.QuantizeExact(p, src)
		if err != nil {
			return nil, err
		}
		return pxl.NewTypeface(img, ts)
	})
}

// StageFilter stages a filter sheet.
func (l *Loader) StageFilter(name string, src image.Image, settings FilterSettings) *pxl.Handle[pxl.Filter] {
	return stage(l, pxl.NewHandle[pxl.Filter](name), func(p *pxl.Palette) (*pxl.Filter, error) {
		img, err := pxl.QuantizeExact(p, src)
		if err != nil {
			return nil, err
		}
		if settings.PaletteLayout {
			return pxl.NewFilterFromPaletteLayout(img, p)
		}
		return pxl.NewFilter(img)
	})
}
