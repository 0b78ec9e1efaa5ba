package asset

import (
	"fmt"
	"unicode/utf8"

	"github.com/hjson/hjson-go/v4"
	"github.com/tmpim/pxl"
)

// SpriteSettings describes a sprite sheet.
type SpriteSettings struct {
	// Frames is the number of frames stacked top to bottom. 0 means 1.
	Frames int `json:"frames"`
}

// TilesetSettings describes a tile sheet.
type TilesetSettings struct {
	TileWidth  int `json:"tileWidth"`
	TileHeight int `json:"tileHeight"`
}

// TypefaceSettings describes a glyph sheet. Map keys are single characters.
type TypefaceSettings struct {
	Characters      string         `json:"characters"`
	DefaultFrames   int            `json:"defaultFrames"`
	CharacterFrames map[string]int `json:"characterFrames"`
	SeparatorWidths map[string]int `json:"separatorWidths"`
}

// FilterSettings describes a filter sheet.
type FilterSettings struct {
	// PaletteLayout reads frames shaped like the palette image instead of a
	// plain table with one row per frame.
	PaletteLayout bool `json:"paletteLayout"`
}

// ParseSettings decodes an HJSON sidecar into v. Empty data leaves v
// unchanged.
func ParseSettings(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := hjson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("asset: ParseSettings: %w", err)
	}
	return nil
}

func (s TypefaceSettings) typeface() (pxl.TypefaceSettings, error) {
	frames, err := runeKeys(s.CharacterFrames)
	if err != nil {
		return pxl.TypefaceSettings{}, fmt.Errorf("characterFrames: %w", err)
	}
	widths, err := runeKeys(s.SeparatorWidths)
	if err != nil {
		return pxl.TypefaceSettings{}, fmt.Errorf("separatorWidths: %w", err)
	}

	return pxl.TypefaceSettings{
		Characters:      s.Characters,
		DefaultFrames:   s.DefaultFrames,
		CharacterFrames: frames,
		SeparatorWidths: widths,
	}, nil
}

func runeKeys(m map[string]int) (map[rune]int, error) {
	out := make(map[rune]int, len(m))
	for k, v := range m {
		r, size := utf8.DecodeRuneInString(k)
		if size == 0 || size != len(k) {
			return nil, fmt.Errorf("key %q is not a single character", k)
		}
		out[r] = v
	}
	return out, nil
}
