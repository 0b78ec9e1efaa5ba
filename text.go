package pxl

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/text/unicode/norm"
)

// TypefaceSettings describes how a glyph sheet is cut.
type TypefaceSettings struct {
	// Characters lists the glyphs in the sheet from top to bottom.
	Characters string
	// DefaultFrames is the frame count of glyphs not in CharacterFrames.
	// Values below 1 mean 1.
	DefaultFrames   int
	CharacterFrames map[rune]int
	// SeparatorWidths maps characters drawn as blank space to their width.
	SeparatorWidths map[rune]int
}

// Typeface is a pixel font: glyph sprites of one height plus blank
// separators.
type Typeface struct {
	height        int
	glyphs        map[rune]*Sprite
	separators    map[rune]int
	maxFrameCount int
}

// NewTypeface cuts img into one band per character, top to bottom. Each band
// is trimmed on the right and then split into its animation frames, which run
// left to right.
func NewTypeface(img *Image, settings TypefaceSettings) (*Typeface, error) {
	chars := []rune(settings.Characters)
	tf := &Typeface{
		glyphs:     make(map[rune]*Sprite, len(chars)),
		separators: make(map[rune]int, len(settings.SeparatorWidths)),
	}
	for r, w := range settings.SeparatorWidths {
		if w < 0 {
			return nil, fmt.Errorf("pxl: NewTypeface: separator %q has negative width", r)
		}
		tf.separators[r] = w
	}

	if img.Height() == 0 {
		return tf, nil
	}
	if len(chars) == 0 {
		return nil, errors.New("pxl: NewTypeface: typeface was assigned no characters")
	}
	if img.Height()%len(chars) != 0 {
		return nil, fmt.Errorf("pxl: NewTypeface: %w: height %d for %d characters",
			ErrUnevenSplit, img.Height(), len(chars))
	}

	bands, err := img.SplitVertical(img.Height() / len(chars))
	if err != nil {
		return nil, fmt.Errorf("pxl: NewTypeface: %w", err)
	}
	tf.height = img.Height() / len(chars)

	for i, r := range chars {
		band := bands[i]
		band.TrimRight()

		frames := settings.DefaultFrames
		if n, ok := settings.CharacterFrames[r]; ok {
			frames = n
		}
		frames = max(frames, 1)

		glyph, err := glyphSprite(band, frames, tf.height)
		if err != nil {
			return nil, fmt.Errorf("pxl: NewTypeface: glyph %q: %w", r, err)
		}
		tf.glyphs[r] = glyph
		tf.maxFrameCount = max(tf.maxFrameCount, frames)
	}

	return tf, nil
}

func glyphSprite(band *Image, frames, height int) (*Sprite, error) {
	if band.Width() == 0 {
		return &Sprite{img: &Image{}, frameHeight: height}, nil
	}

	parts, err := band.SplitHorizontal(band.Width() / frames)
	if err != nil {
		return nil, err
	}
	sheet, err := JoinVertical(parts...)
	if err != nil {
		return nil, err
	}
	return &Sprite{img: sheet, frameHeight: height}, nil
}

// Height returns the glyph height.
func (t *Typeface) Height() int { return t.height }

// MaxFrameCount returns the frame count of the longest glyph animation.
func (t *Typeface) MaxFrameCount() int { return max(t.maxFrameCount, 1) }

// Contains reports whether r is a glyph or a separator.
func (t *Typeface) Contains(r rune) bool {
	if _, ok := t.glyphs[r]; ok {
		return true
	}
	_, ok := t.separators[r]
	return ok
}

// Glyph returns the sprite for r.
func (t *Typeface) Glyph(r rune) (*Sprite, bool) {
	g, ok := t.glyphs[r]
	return g, ok
}

// LayoutOptions bounds a text block. A zero Width or Height leaves that
// dimension unbounded.
type LayoutOptions struct {
	Width, Height int
	// Anchor justifies lines within the block.
	Anchor Anchor
}

// PlacedGlyph is a glyph at a position relative to the top left of the
// block, with y growing down.
type PlacedGlyph struct {
	Rune   rune
	Sprite *Sprite
	Pos    image.Point
}

// TextLayout is the result of Layout.
type TextLayout struct {
	Glyphs []PlacedGlyph
	// Size is the block size used for anchoring.
	Size  image.Point
	Lines int
}

type layoutLine struct {
	glyphs []PlacedGlyph
	x      int
	width  int
}

func (l *layoutLine) place(r rune, g *Sprite) {
	if l.x != 0 {
		l.x++
	}
	l.glyphs = append(l.glyphs, PlacedGlyph{Rune: r, Sprite: g, Pos: image.Pt(l.x, 0)})
	l.x += g.FrameSize().X
	l.width = l.x
}

// Layout wraps text greedily into lines of glyphs. Separators may break a
// line, a word that would overflow starts a new line, and a word wider than
// the block sits alone on its line. Lines past the height limit are dropped.
// Characters the typeface lacks are reported in the returned error and take
// no space; the layout is still returned.
func Layout(tf *Typeface, text string, opts LayoutOptions) (*TextLayout, error) {
	runes := []rune(norm.NFC.String(text))

	maxLines := -1
	if opts.Height > 0 {
		maxLines = (opts.Height + 1) / (tf.height + 1)
	}

	var (
		lines   []layoutLine
		line    layoutLine
		unknown []error
		full    bool
	)

	newLine := func() {
		lines = append(lines, line)
		line = layoutLine{}
		full = maxLines >= 0 && len(lines) >= maxLines
	}

	for i := 0; i < len(runes) && !full; {
		r := runes[i]

		if r == '\n' {
			newLine()
			i++
			continue
		}

		if w, ok := tf.separators[r]; ok {
			line.x += w
			i++
			continue
		}

		// Measure the word starting here.
		end := i
		x := line.x
		for ; end < len(runes); end++ {
			g, ok := tf.glyphs[runes[end]]
			if !ok {
				if runes[end] == '\n' || tf.Contains(runes[end]) {
					break
				}
				continue
			}
			if x != 0 {
				x++
			}
			x += g.FrameSize().X
		}

		if opts.Width > 0 && x > opts.Width && len(line.glyphs) > 0 {
			// Separators before the word stay on the old line.
			newLine()
			if full {
				break
			}
		}

		for ; i < end; i++ {
			g, ok := tf.glyphs[runes[i]]
			if !ok {
				unknown = append(unknown, &UnknownRuneError{Rune: runes[i], Index: i})
				continue
			}
			line.place(runes[i], g)
		}
	}
	if !full {
		lines = append(lines, line)
	}
	if maxLines >= 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	out := &TextLayout{Lines: len(lines)}

	width := opts.Width
	if width <= 0 {
		for _, l := range lines {
			width = max(width, l.width)
		}
	}
	blockHeight := max(len(lines)*(tf.height+1)-1, 0)
	height := opts.Height
	if height <= 0 {
		height = blockHeight
	}
	out.Size = image.Pt(width, height)

	free := height - blockHeight
	top := free - opts.Anchor.YPos(free)
	for n, l := range lines {
		dx := opts.Anchor.XPos(width - l.width)
		y := top + n*(tf.height+1)
		for _, g := range l.glyphs {
			g.Pos = g.Pos.Add(image.Pt(dx, y))
			out.Glyphs = append(out.Glyphs, g)
		}
	}

	if len(unknown) > 0 {
		err := errors.Join(unknown...)
		Logger().Warn("pxl: text contains characters not in the typeface",
			slog.Int("count", len(unknown)),
			slog.String("error", err.Error()))
		return out, err
	}
	return out, nil
}
