package pxl

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Sentinel errors for pxl.
var (
	// ErrTooManyColors is returned when a palette source holds more than
	// MaxColors distinct opaque colors.
	ErrTooManyColors = errors.New("pxl: palette has more than 255 colors")

	// ErrUnevenSplit is returned when an image cannot be split into equal parts.
	ErrUnevenSplit = errors.New("pxl: image does not divide evenly")

	// ErrWidthMismatch is returned when joining images of different widths.
	ErrWidthMismatch = errors.New("pxl: image widths differ")

	// ErrNoParts is returned when joining an empty list of images.
	ErrNoParts = errors.New("pxl: no images to join")

	// ErrEmptyPalette is returned when quantizing against a palette with no colors.
	ErrEmptyPalette = errors.New("pxl: palette is empty")

	// ErrNotLoaded is reported by a Handle whose asset has not been loaded yet.
	ErrNotLoaded = errors.New("pxl: asset not loaded")
)

// ColorNotInPaletteError is returned by exact quantization when an opaque
// pixel has a color the palette does not contain.
type ColorNotInPaletteError struct {
	Color color.RGBA
	At    image.Point
}

func (e *ColorNotInPaletteError) Error() string {
	return fmt.Sprintf("pxl: color #%02X%02X%02X at %v is not in the palette",
		e.Color.R, e.Color.G, e.Color.B, e.At)
}

// UnknownRuneError reports a text rune missing from both the glyph and the
// separator tables of a typeface. Layout continues with the rune at zero width.
type UnknownRuneError struct {
	Rune  rune
	Index int
}

func (e *UnknownRuneError) Error() string {
	return fmt.Sprintf("pxl: character %q at %d is not in the typeface", e.Rune, e.Index)
}
