package pxl

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/1lann/imagequant"
)

// GeneratePalette builds a palette of at most maxColors colors for img using
// libimagequant. speed ranges from 1 (slowest, best) to 10. The color of the
// bottom left pixel becomes the background color.
func GeneratePalette(img image.Image, maxColors, speed int) (*Palette, error) {
	if maxColors < 2 || maxColors > MaxColors {
		return nil, errors.New("pxl: GeneratePalette: maxColors must be between 2 and 255")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("pxl: GeneratePalette: empty image")
	}

	attr, err := getAttributes(maxColors, speed)
	if err != nil {
		return nil, fmt.Errorf("pxl: GeneratePalette: %w", err)
	}
	defer attr.Release()

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	quant, err := imagequant.NewImage(attr, imagequant.GoImageToRgba32(img), w, h, 0)
	if err != nil {
		return nil, fmt.Errorf("pxl: GeneratePalette: NewImage: %w", err)
	}
	defer quant.Release()

	res, err := quant.Quantize(attr)
	if err != nil {
		return nil, fmt.Errorf("pxl: GeneratePalette: Quantize: %w", err)
	}
	defer res.Release()

	remapped, err := res.WriteRemappedImage()
	if err != nil {
		return nil, fmt.Errorf("pxl: GeneratePalette: WriteRemappedImage: %w", err)
	}

	generated := res.GetPalette()
	colors := make([]color.Color, 0, len(generated))

	bg := int(remapped[(h-1)*res.GetImageWidth()])
	if bg < len(generated) {
		colors = append(colors, opaque(generated[bg]))
	}
	for i, c := range generated {
		if i != bg {
			colors = append(colors, opaque(c))
		}
	}

	return NewPalette(colors)
}

func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xFF
	return n
}

func getAttributes(maxColors, speed int) (*imagequant.Attributes, error) {
	attr, err := imagequant.NewAttributes()
	if err != nil {
		return nil, fmt.Errorf("NewAttributes: %w", err)
	}

	if err := attr.SetSpeed(speed); err != nil {
		attr.Release()
		return nil, fmt.Errorf("SetSpeed: %w", err)
	}

	if err := attr.SetMaxColors(maxColors); err != nil {
		attr.Release()
		return nil, fmt.Errorf("SetMaxColors: %w", err)
	}

	return attr, nil
}
