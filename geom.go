package pxl

import "image"

type anchorKind uint8

const (
	anchorCenter anchorKind = iota
	anchorBottomLeft
	anchorBottomCenter
	anchorBottomRight
	anchorCenterLeft
	anchorCenterRight
	anchorTopLeft
	anchorTopCenter
	anchorTopRight
	anchorCustom
)

// Anchor is the point of a drawable that its position refers to. The zero
// value is AnchorCenter.
type Anchor struct {
	kind anchorKind
	x, y float64
}

// Predefined anchors.
var (
	AnchorCenter       = Anchor{kind: anchorCenter}
	AnchorBottomLeft   = Anchor{kind: anchorBottomLeft}
	AnchorBottomCenter = Anchor{kind: anchorBottomCenter}
	AnchorBottomRight  = Anchor{kind: anchorBottomRight}
	AnchorCenterLeft   = Anchor{kind: anchorCenterLeft}
	AnchorCenterRight  = Anchor{kind: anchorCenterRight}
	AnchorTopLeft      = Anchor{kind: anchorTopLeft}
	AnchorTopCenter    = Anchor{kind: anchorTopCenter}
	AnchorTopRight     = Anchor{kind: anchorTopRight}
)

// CustomAnchor returns an anchor at fractions x and y of the size, measured
// from the bottom left corner.
func CustomAnchor(x, y float64) Anchor {
	return Anchor{kind: anchorCustom, x: x, y: y}
}

// XPos returns the anchor's offset from the left edge for a given width.
func (a Anchor) XPos(width int) int {
	switch a.kind {
	case anchorBottomLeft, anchorCenterLeft, anchorTopLeft:
		return 0
	case anchorBottomRight, anchorCenterRight, anchorTopRight:
		return width
	case anchorCustom:
		return int(float64(width) * a.x)
	default:
		return width / 2
	}
}

// YPos returns the anchor's offset from the bottom edge for a given height.
func (a Anchor) YPos(height int) int {
	switch a.kind {
	case anchorBottomLeft, anchorBottomCenter, anchorBottomRight:
		return 0
	case anchorTopLeft, anchorTopCenter, anchorTopRight:
		return height
	case anchorCustom:
		return int(float64(height) * a.y)
	default:
		return height / 2
	}
}

// Pos returns the anchor's offset from the bottom left corner.
func (a Anchor) Pos(size image.Point) image.Point {
	return image.Pt(a.XPos(size.X), a.YPos(size.Y))
}

// Canvas selects whether a position is in world space, offset by the camera,
// or fixed to the screen.
type Canvas uint8

const (
	// World positions move with the camera.
	World Canvas = iota
	// Camera positions are fixed to the screen.
	Camera
)

func (c Canvas) String() string {
	if c == Camera {
		return "camera"
	}
	return "world"
}
