package asset

import (
	"image"
	"io/fs"

	"github.com/tmpim/pxl"
)

func open[S any, T any](fsys fs.FS, name string,
	stage func(name string, src image.Image, settings S) *pxl.Handle[T]) (*pxl.Handle[T], error) {
	img, data, err := Open(fsys, name)
	if err != nil {
		return nil, err
	}

	var settings S
	if err := ParseSettings(data, &settings); err != nil {
		return nil, err
	}
	return stage(name, img, settings), nil
}

// OpenSprite decodes and stages a sprite sheet with its sidecar settings.
func (l *Loader) OpenSprite(fsys fs.FS, name string) (*pxl.Handle[pxl.Sprite], error) {
	return open(fsys, name, l.StageSprite)
}

// OpenTileset decodes and stages a tile sheet with its sidecar settings.
func (l *Loader) OpenTileset(fsys fs.FS, name string) (*pxl.Handle[pxl.Tileset], error) {
	return open(fsys, name, l.StageTileset)
}

// OpenTypeface decodes and stages a glyph sheet with its sidecar settings.
func (l *Loader) OpenTypeface(fsys fs.FS, name string) (*pxl.Handle[pxl.Typeface], error) {
	return open(fsys, name, l.StageTypeface)
}

// OpenFilter decodes and stages a filter sheet with its sidecar settings.
func (l *Loader) OpenFilter(fsys fs.FS, name string) (*pxl.Handle[pxl.Filter], error) {
	return open(fsys, name, l.StageFilter)
}

// OpenPalette decodes the palette image name from fsys and sets it.
func (l *Loader) OpenPalette(fsys fs.FS, name string) (*pxl.Palette, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := LoadPalette(f)
	if err != nil {
		return nil, err
	}
	return p, l.SetPalette(p)
}
