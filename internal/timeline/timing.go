package timeline

import (
	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/media"
)

// HoldDuration computes how long an item stays at full visibility before
// its outgoing transition. This is the single timing source shared by the
// live player and the export builder; neither path may reimplement it.
//
// intrinsic is the probed video duration; ok is false when the source
// could not be resolved.
func HoldDuration(kind media.Kind, intrinsic float64, ok bool, set config.Settings) float64 {
	if kind == media.KindPhoto {
		return set.SlideDuration
	}
	if !set.PlayVideoInFull || !ok {
		return set.SlideDuration
	}

	if set.Style == config.StylePlain {
		// A clip longer than the slide plays out; a shorter one loops
		// for the normal slide duration instead of cutting abruptly.
		if intrinsic > set.SlideDuration {
			return intrinsic
		}
		return set.SlideDuration
	}

	// With transitions, the clip is also visible during its incoming and
	// outgoing overlap. Counting that window twice makes it loop early.
	hold := intrinsic - 2*set.Transition
	if hold <= 0 {
		// Short-clip guard: a clip swallowed by its transitions still
		// gets a sane slide-length hold.
		return set.SlideDuration
	}
	return hold
}

// transitionFor is 0 for the plain style and for the final entry; the
// fixed constant otherwise.
func transitionFor(set config.Settings, last bool) float64 {
	if set.Style == config.StylePlain || last {
		return 0
	}
	return set.Transition
}
