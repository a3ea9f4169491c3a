package timeline

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/pkg/util"
)

// Pan offsets are normalized fractions of the frame size. A start offset
// with both axes under minPanAxis reads as a static frame, so at least
// one axis is pushed past it.
const (
	minPanAxis = 0.08
	maxPan     = 0.25
)

// Vec2 is a normalized pan vector
type Vec2 struct {
	X float64
	Y float64
}

// Entry is one item's resolved absolute timing and motion parameters.
// Immutable once the timeline is built.
type Entry struct {
	Item        media.Item
	Start       float64
	Hold        float64
	Transition  float64
	Incoming    float64 // previous entry's outgoing transition
	Intrinsic   float64 // video source duration, 0 when unknown
	FaceBoxes   []media.FaceBox
	StartOffset Vec2
	EndOffset   Vec2
}

// Total is the entry's full cycle length
func (e *Entry) Total() float64 {
	return e.Hold + e.Transition
}

// End is the absolute time the entry's cycle finishes
func (e *Entry) End() float64 {
	return e.Start + e.Total()
}

// VisibleStart is when the entry first appears on screen, one incoming
// transition before its own cycle begins.
func (e *Entry) VisibleStart() float64 {
	return e.Start - e.Incoming
}

// MediaTime maps absolute show time to the entry's local playback
// position. A clip plays from its first frame the moment it becomes
// visible; clips shorter than their visible window loop.
func (e *Entry) MediaTime(t float64) float64 {
	local := t - e.VisibleStart()
	if local < 0 {
		local = 0
	}
	if e.Item.Kind == media.KindVideo && e.Intrinsic > 0 && local >= e.Intrinsic {
		local = math.Mod(local, e.Intrinsic)
	}
	return local
}

// Timeline is the derived, contiguous schedule for one session. Settings
// changes discard and rebuild the whole array; there is no incremental
// patching.
type Timeline struct {
	Entries  []Entry
	Total    float64
	Settings config.Settings
}

// DurationProbe resolves a video item's intrinsic duration. ok=false
// means the source is unavailable; timing falls back to the slide length.
type DurationProbe func(item media.Item) (seconds float64, ok bool)

// FaceSource returns pre-detected normalized face boxes for a photo id
type FaceSource func(id uuid.UUID) []media.FaceBox

// Build walks the item list once, accumulating absolute start times.
// rng drives the pan offsets; inject a seeded source for reproducible
// sessions.
func Build(items []media.Item, set config.Settings, faces FaceSource, probe DurationProbe, rng *rand.Rand) *Timeline {
	tl := &Timeline{
		Entries:  make([]Entry, 0, len(items)),
		Settings: set,
	}

	start := 0.0
	for i, item := range items {
		last := i == len(items)-1

		var intrinsic float64
		var ok bool
		if item.Kind == media.KindVideo && probe != nil {
			intrinsic, ok = probe(item)
		}

		e := Entry{
			Item:       item,
			Start:      start,
			Hold:       HoldDuration(item.Kind, intrinsic, ok, set),
			Transition: transitionFor(set, last),
		}
		if ok {
			e.Intrinsic = intrinsic
		}
		if i > 0 {
			e.Incoming = tl.Entries[i-1].Transition
		}

		if item.Kind == media.KindPhoto && faces != nil {
			for _, b := range faces(item.ID) {
				e.FaceBoxes = append(e.FaceBoxes, b.Rotate(item.Rotation))
			}
		}

		if set.Motion() {
			e.StartOffset = randomStartOffset(rng, set.Style)
			e.EndOffset = endOffset(rng, set, e.FaceBoxes)
		}

		start += e.Total()
		tl.Entries = append(tl.Entries, e)
	}

	tl.Total = start
	return tl
}

// randomStartOffset picks a pan origin biased away from center so the
// motion is actually perceptible. The zoom style keeps a tighter start
// so the move reads as a push-in rather than a sweep.
func randomStartOffset(rng *rand.Rand, style config.TransitionStyle) Vec2 {
	span := maxPan
	if style == config.StyleZoom {
		span = maxPan / 2
	}

	v := Vec2{
		X: (rng.Float64()*2 - 1) * span,
		Y: (rng.Float64()*2 - 1) * span,
	}

	if math.Abs(v.X) < minPanAxis && math.Abs(v.Y) < minPanAxis {
		if rng.Intn(2) == 0 {
			v.X = math.Copysign(minPanAxis, v.X)
		} else {
			v.Y = math.Copysign(minPanAxis, v.Y)
		}
	}
	return v
}

// endOffset aims the pan at a randomly chosen face, clamped so the
// subject never leaves the frame. Zero when face zoom is off or the item
// has no faces.
func endOffset(rng *rand.Rand, set config.Settings, boxes []media.FaceBox) Vec2 {
	if !set.ZoomOnFaces || len(boxes) == 0 {
		return Vec2{}
	}

	box := boxes[rng.Intn(len(boxes))]
	v := Vec2{
		X: 0.5 - box.CenterX(),
		Y: 0.5 - box.CenterY(),
	}
	return clampMagnitude(v, maxPan)
}

func clampMagnitude(v Vec2, limit float64) Vec2 {
	mag := math.Hypot(v.X, v.Y)
	if mag <= limit || mag == 0 {
		return v
	}
	scale := limit / mag
	return Vec2{X: v.X * scale, Y: v.Y * scale}
}

// Lerp interpolates between two pan vectors
func (v Vec2) Lerp(to Vec2, t float64) Vec2 {
	return Vec2{
		X: util.Lerp(v.X, to.X, t),
		Y: util.Lerp(v.Y, to.Y, t),
	}
}
