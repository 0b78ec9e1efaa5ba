package pxl

import (
	"errors"
	"image"

	"github.com/disintegration/gift"
)

// Resampling selects the filter used when resizing sources.
type Resampling uint8

const (
	NearestNeighbor Resampling = iota
	Linear
	Lanczos
)

func (r Resampling) gift() gift.Resampling {
	switch r {
	case Linear:
		return gift.LinearResampling
	case Lanczos:
		return gift.LanczosResampling
	default:
		return gift.NearestNeighborResampling
	}
}

// PreprocessOptions adjusts a full color source before quantization. Zero
// values leave the source unchanged.
type PreprocessOptions struct {
	// Width and Height resize the source. If one is 0 the aspect ratio is
	// preserved.
	Width, Height int
	Resampling    Resampling

	// Brightness, Contrast and Saturation are percentages in [-100, 100]
	// (saturation up to 500).
	Brightness float32
	Contrast   float32
	Saturation float32

	// Sharpen applies an unsharp mask with this sigma when positive.
	Sharpen float32
}

func (o *PreprocessOptions) validate() error {
	if o.Width < 0 || o.Height < 0 {
		return errors.New("pxl: Preprocess: size must not be negative")
	}
	if o.Brightness < -100 || o.Brightness > 100 {
		return errors.New("pxl: Preprocess: brightness must be between -100 and 100")
	}
	if o.Contrast < -100 || o.Contrast > 100 {
		return errors.New("pxl: Preprocess: contrast must be between -100 and 100")
	}
	if o.Saturation < -100 || o.Saturation > 500 {
		return errors.New("pxl: Preprocess: saturation must be between -100 and 500")
	}
	if o.Sharpen < 0 {
		return errors.New("pxl: Preprocess: sharpen must not be negative")
	}
	return nil
}

func (o *PreprocessOptions) filters() []gift.Filter {
	var filters []gift.Filter
	if o.Width > 0 || o.Height > 0 {
		filters = append(filters, gift.Resize(o.Width, o.Height, o.Resampling.gift()))
	}
	if o.Brightness != 0 {
		filters = append(filters, gift.Brightness(o.Brightness))
	}
	if o.Contrast != 0 {
		filters = append(filters, gift.Contrast(o.Contrast))
	}
	if o.Saturation != 0 {
		filters = append(filters, gift.Saturation(o.Saturation))
	}
	if o.Sharpen > 0 {
		filters = append(filters, gift.UnsharpMask(o.Sharpen, 1, 0))
	}
	return filters
}

// Preprocess applies opts to img and returns the result as NRGBA.
func Preprocess(img image.Image, opts PreprocessOptions) (*image.NRGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	g := gift.New(opts.filters()...)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst, nil
}
