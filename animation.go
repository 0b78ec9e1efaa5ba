package pxl

import (
	"image"
	"math"
	"time"
)

// Direction is the direction an animation plays in.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Duration is how long an animation takes, either as a whole or per frame.
// The zero value is one second per animation.
type Duration struct {
	d        time.Duration
	perFrame bool
}

// PerAnimation returns a duration for the entire animation.
func PerAnimation(d time.Duration) Duration { return Duration{d: d} }

// PerFrame returns a duration for each frame.
func PerFrame(d time.Duration) Duration { return Duration{d: d, perFrame: true} }

// Lifetime returns the length of one run through frameCount frames.
func (d Duration) Lifetime(frameCount int) time.Duration {
	base := d.d
	if base == 0 && !d.perFrame {
		base = time.Second
	}
	if d.perFrame {
		return base * time.Duration(max(frameCount, 1))
	}
	return base
}

// FinishBehavior is what happens when an animation reaches its end.
type FinishBehavior uint8

const (
	// Despawn reports EventDespawn every tick past the end.
	Despawn FinishBehavior = iota
	// Mark reports EventMark once and sets Animation.Finished.
	Mark
	// Loop wraps around to the start.
	Loop
	// Done reports EventDone every tick past the end.
	Done
)

// Transition controls how frames blend into each other.
type Transition uint8

const (
	NoTransition Transition = iota
	// DitherTransition mixes the current and next frame with a 4x4
	// ordered pattern.
	DitherTransition
)

// Addressing is how an animation writes its progress into the frame.
type Addressing uint8

const (
	// Normalized stores the ratio directly.
	Normalized Addressing = iota
	// Indexed stores frameCount × ratio.
	Indexed
)

// FinishEvent is reported by Animation.Advance.
type FinishEvent uint8

const (
	EventNone FinishEvent = iota
	EventDespawn
	EventMark
	EventDone
)

func (e FinishEvent) String() string {
	switch e {
	case EventDespawn:
		return "despawn"
	case EventMark:
		return "mark"
	case EventDone:
		return "done"
	default:
		return "none"
	}
}

type selectorKind uint8

const (
	selectIndex selectorKind = iota
	selectNormalized
)

// FrameSelector picks a frame either by literal (possibly fractional) index
// or by a position in [0, 1] across all frames. The zero value selects frame 0.
type FrameSelector struct {
	kind  selectorKind
	value float64
}

// IndexFrame selects frame i. The fractional part is used by dithered
// transitions.
func IndexFrame(i float64) FrameSelector {
	return FrameSelector{kind: selectIndex, value: i}
}

// NormalizedFrame selects the frame at ratio r, where 0 is the first frame and
// 1 the last.
func NormalizedFrame(r float64) FrameSelector {
	return FrameSelector{kind: selectNormalized, value: r}
}

// Value returns the raw index or ratio.
func (s FrameSelector) Value() float64 { return s.value }

// IsNormalized reports whether the selector holds a ratio.
func (s FrameSelector) IsNormalized() bool { return s.kind == selectNormalized }

// Index returns the fractional frame index for frameCount frames.
func (s FrameSelector) Index(frameCount int) float64 {
	if s.kind == selectNormalized {
		return s.value * float64(frameCount-1)
	}
	return s.value
}

// Frame is a frame selection and the transition used to draw it.
type Frame struct {
	Selector   FrameSelector
	Transition Transition
}

// FrameFunc returns the frame to use for a destination pixel.
type FrameFunc func(p image.Point) int

// frameZero draws frame 0 everywhere.
func frameZero(image.Point) int { return 0 }

// ditherTable holds 4x4 masks with an increasing number of set bits. Bit 15
// is the top left cell, scanning left to right then top to bottom.
var ditherTable = [16]uint16{
	0x0000, 0x8000, 0x8020, 0xA020,
	0xA0A0, 0xA4A0, 0xA4A1, 0xA5A1,
	0xA5A5, 0xE5A5, 0xE5B5, 0xF5B5,
	0xF5F5, 0xFDF5, 0xFDF7, 0xFFF7,
}

// Resolve returns the per pixel frame function for a drawable with
// frameCount frames.
func (f Frame) Resolve(frameCount int) FrameFunc {
	if frameCount <= 1 {
		return frameZero
	}

	index := f.Selector.Index(frameCount)
	base := math.Floor(index)
	frame := int(base)

	if f.Transition != DitherTransition {
		frame = mod(frame, frameCount)
		return func(image.Point) int { return frame }
	}

	mask := ditherTable[int((index-base)*16)&15]
	return func(p image.Point) int {
		bit := uint16(0x8000) >> (mod(p.X, 4) + mod(p.Y, 4)*4)
		if mask&bit != 0 {
			return mod(frame+1, frameCount)
		}
		return mod(frame, frameCount)
	}
}

// Animation drives a drawable's frame over time.
type Animation struct {
	Start      time.Time
	Direction  Direction
	Duration   Duration
	OnFinish   FinishBehavior
	Transition Transition
	Addressing Addressing

	// Frame is the frame computed by the latest Advance.
	Frame Frame
	// Finished is set the first time a Mark animation ends.
	Finished bool
}

// Ratio returns the progress through the animation at now, in [0, 1].
func (a *Animation) Ratio(now time.Time, frameCount int) float64 {
	elapsed := max(now.Sub(a.Start), 0)
	lifetime := a.Duration.Lifetime(frameCount)

	ratio := 1.0
	if lifetime > 0 {
		ratio = float64(elapsed) / float64(lifetime)
	}

	if a.OnFinish == Loop {
		ratio -= math.Floor(ratio)
	} else {
		ratio = min(max(ratio, 0), 1)
	}

	if a.Direction == Backward {
		ratio = 1 - ratio
	}
	return ratio
}

// Advance updates Frame for now and reports what the caller should do if the
// animation has ended.
func (a *Animation) Advance(now time.Time, frameCount int) FinishEvent {
	ratio := a.Ratio(now, frameCount)

	var sel FrameSelector
	if a.Addressing == Indexed {
		index := float64(frameCount) * ratio
		if a.OnFinish != Loop {
			index = min(index, float64(max(frameCount-1, 0)))
		}
		sel = IndexFrame(index)
	} else {
		sel = NormalizedFrame(ratio)
	}
	a.Frame = Frame{Selector: sel, Transition: a.Transition}

	if now.Sub(a.Start) < a.Duration.Lifetime(frameCount) {
		return EventNone
	}

	switch a.OnFinish {
	case Despawn:
		return EventDespawn
	case Mark:
		if a.Finished {
			return EventNone
		}
		a.Finished = true
		return EventMark
	case Done:
		return EventDone
	default:
		return EventNone
	}
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
