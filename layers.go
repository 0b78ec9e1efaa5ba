package pxl

type layerSetKind uint8

const (
	layerSingle layerSetKind = iota
	layerRange
	layerMany
	layerSelect
)

// LayerSet chooses the layers a filter, rect or line applies to. Clip sets
// affect only what a layer drew; over sets affect everything composited so
// far. The zero value clips the default layer.
type LayerSet[L any] struct {
	kind   layerSetKind
	layers []L
	pred   func(L) bool
	over   bool
}

// OnLayer applies to one layer, which is created if nothing else uses it.
func OnLayer[L any](layer L) LayerSet[L] {
	return LayerSet[L]{kind: layerSingle, layers: []L{layer}}
}

// LayerRange applies to every occupied layer between lo and hi inclusive.
func LayerRange[L any](lo, hi L) LayerSet[L] {
	return LayerSet[L]{kind: layerRange, layers: []L{lo, hi}}
}

// Layers applies to each listed layer.
func Layers[L any](layers ...L) LayerSet[L] {
	return LayerSet[L]{kind: layerMany, layers: layers}
}

// SelectLayers applies to every occupied layer for which fn returns true.
func SelectLayers[L any](fn func(L) bool) LayerSet[L] {
	return LayerSet[L]{kind: layerSelect, pred: fn}
}

// Over returns a copy of s that draws over the composited image instead of
// clipping to the layer.
func (s LayerSet[L]) Over() LayerSet[L] {
	s.over = true
	return s
}

// Clip reports whether s clips to the layer.
func (s LayerSet[L]) Clip() bool { return !s.over }

// explicit returns the layers named directly, or false for sets resolved
// against occupied layers.
func (s LayerSet[L]) explicit() ([]L, bool) {
	switch s.kind {
	case layerSingle:
		if len(s.layers) == 0 {
			var zero L
			return []L{zero}, true
		}
		return s.layers, true
	case layerMany:
		return s.layers, true
	default:
		return nil, false
	}
}

// resolve returns the occupied layers s selects. occupied is in ascending
// order.
func (s LayerSet[L]) resolve(occupied []L, cmp func(a, b L) int) []L {
	if ls, ok := s.explicit(); ok {
		return ls
	}

	var out []L
	for _, l := range occupied {
		switch s.kind {
		case layerRange:
			if cmp(l, s.layers[0]) >= 0 && cmp(l, s.layers[1]) <= 0 {
				out = append(out, l)
			}
		case layerSelect:
			if s.pred != nil && s.pred(l) {
				out = append(out, l)
			}
		}
	}
	return out
}
