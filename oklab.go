package pxl

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// oklab is a color in the Oklab space: lightness followed by the a and b
// opponent axes.
type oklab [3]float64

// toOklab converts c to Oklab. It reports false for fully transparent colors.
func toOklab(c color.Color) (oklab, bool) {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return oklab{}, false
	}
	l, a, b := cf.OkLab()
	return oklab{l, a, b}, true
}

func (o oklab) add(v oklab) oklab {
	return oklab{o[0] + v[0], o[1] + v[1], o[2] + v[2]}
}

func (o oklab) sub(v oklab) oklab {
	return oklab{o[0] - v[0], o[1] - v[1], o[2] - v[2]}
}

func (o oklab) scale(f float64) oklab {
	return oklab{o[0] * f, o[1] * f, o[2] * f}
}

func (o oklab) dist2(v oklab) float64 {
	d0, d1, d2 := o[0]-v[0], o[1]-v[1], o[2]-v[2]
	return d0*d0 + d1*d1 + d2*d2
}
