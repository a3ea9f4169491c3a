package timeline

import (
	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/pkg/util"
)

// MaxZoomScale is the scale reached at the end of a pan/zoom motion
const MaxZoomScale = 1.4

// SlotState is the resolved draw state for one slot at one instant
type SlotState struct {
	Draw    bool
	Opacity float64
	Scale   float64
	Offset  Vec2
}

// FrameState is the full per-frame answer: what each slot draws, at what
// opacity, scale and pan.
type FrameState struct {
	Current SlotState
	Next    SlotState
}

// ComputeFrame resolves both slots for the current entry's cycle
// progress. cur must be non-nil; next may be nil for the final entry.
//
// progress >= 1 is the terminal race state of live playback: the advance
// event has not promoted the slots yet, but the outgoing entry is done.
// It is handled as a first-class case, not clamped away: current goes
// fully transparent (unless its replacement texture is not ready, in
// which case it stays visible so the screen never blanks) and next goes
// fully opaque.
func ComputeFrame(set config.Settings, cur, next *Entry, progress float64, replacementReady bool) FrameState {
	fs := FrameState{
		Current: SlotState{Draw: true, Opacity: 1, Scale: 1},
		Next:    SlotState{Scale: 1},
	}
	if cur == nil {
		fs.Current.Draw = false
		return fs
	}

	if set.Motion() {
		fs.Current.Scale, fs.Current.Offset = slotMotion(set, cur, currentMotionElapsed(set, cur, progress))
		if next != nil {
			fs.Next.Scale, fs.Next.Offset = slotMotion(set, next, nextMotionElapsed(cur, progress))
		}
	}

	if set.Style == config.StylePlain || next == nil {
		// No crossfade target: current holds the frame alone, including
		// the terminal tick before promotion.
		return fs
	}

	if progress >= 1 {
		fs.Current.Opacity = 0
		if !replacementReady {
			fs.Current.Opacity = 1
		}
		fs.Next.Draw = true
		fs.Next.Opacity = 1
		return fs
	}

	ts := transitionStart(cur)
	if progress < ts {
		return fs
	}

	tp := util.Clamp((progress-ts)/(1-ts), 0, 1)
	fs.Current.Opacity = 1 - tp
	fs.Next.Draw = true
	fs.Next.Opacity = tp
	return fs
}

// transitionStart is the normalized point in the cycle where the
// outgoing transition begins
func transitionStart(e *Entry) float64 {
	total := e.Total()
	if total <= 0 || e.Transition <= 0 {
		return 1
	}
	return e.Hold / total
}

// currentMotionElapsed: the current slot's motion began one
// transition-length before its hold, while it was still the "next" slot.
func currentMotionElapsed(set config.Settings, e *Entry, progress float64) float64 {
	return progress*e.Total() + set.Transition
}

// nextMotionElapsed: the next slot's motion begins exactly when it starts
// being drawn, i.e. when the current entry enters its transition.
func nextMotionElapsed(cur *Entry, progress float64) float64 {
	elapsed := progress*cur.Total() - cur.Hold
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// slotMotion interpolates scale and pan over the slot's own motion
// window. The window length must come from the slot's own entry; using
// the neighbor's durations makes the zoom speed snap when slots have
// different holds.
func slotMotion(set config.Settings, e *Entry, elapsed float64) (float64, Vec2) {
	motionTotal := e.Hold + 2*set.Transition
	if motionTotal <= 0 {
		return 1, e.StartOffset
	}

	mp := util.Clamp(elapsed/motionTotal, 0, 1)
	scale := util.Lerp(1.0, MaxZoomScale, mp)

	end := e.EndOffset
	if !set.ZoomOnFaces {
		end = Vec2{}
	}
	return scale, e.StartOffset.Lerp(end, mp)
}
