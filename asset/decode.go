// Package asset loads pixel art sources and finalizes them against a palette.
package asset

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path"
	"strings"

	// Source formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/tmpim/pxl"
)

// Decode reads a PNG, GIF, JPEG or BMP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("asset: Decode: %w", err)
	}
	return img, nil
}

// LoadPalette decodes a palette image.
func LoadPalette(r io.Reader) (*pxl.Palette, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return pxl.PaletteFromImage(img)
}

// SidecarExt is appended to an image name to find its settings file.
const SidecarExt = ".hjson"

// Open decodes name from fsys and reads its settings sidecar, if any. A
// missing sidecar returns nil settings.
func Open(fsys fs.FS, name string) (image.Image, []byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, name)
	}

	sidecar := strings.TrimSuffix(name, path.Ext(name)) + SidecarExt
	data, err := fs.ReadFile(fsys, sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		return img, nil, nil
	} else if err != nil {
		return nil, nil, err
	}

	return img, data, nil
}
