package timeline

import (
	"math"
	"testing"

	"github.com/kikiluvv/driftshow/internal/config"
)

// currentOpacity + nextOpacity must equal 1.0 everywhere in the
// transition window, and next must not draw before it.
func TestOpacityLaw(t *testing.T) {
	for _, style := range []config.TransitionStyle{config.StyleCrossfade, config.StyleZoom, config.StylePanZoom} {
		set := testSettings(style)
		tl := buildTest(photoItems(2), set)
		cur, next := &tl.Entries[0], &tl.Entries[1]
		ts := cur.Hold / cur.Total()

		for p := 0.0; p < 1.0; p += 0.001 {
			fs := ComputeFrame(set, cur, next, p, true)

			if p < ts {
				if fs.Next.Draw {
					t.Fatalf("%s p=%f: next drawn before transition start %f", style, p, ts)
				}
				if fs.Current.Opacity != 1 {
					t.Fatalf("%s p=%f: current opacity %f during hold", style, p, fs.Current.Opacity)
				}
				continue
			}

			sum := fs.Current.Opacity + fs.Next.Opacity
			if math.Abs(sum-1.0) > 1e-9 {
				t.Fatalf("%s p=%f: opacity sum %f, want 1.0", style, p, sum)
			}
			if !fs.Next.Draw {
				t.Fatalf("%s p=%f: next not drawn inside transition", style, p)
			}
		}
	}
}

func TestPlainStyleNeverFades(t *testing.T) {
	set := testSettings(config.StylePlain)
	tl := buildTest(photoItems(2), set)
	cur, next := &tl.Entries[0], &tl.Entries[1]

	for p := 0.0; p < 1.0; p += 0.01 {
		fs := ComputeFrame(set, cur, next, p, true)
		if fs.Current.Opacity != 1 {
			t.Fatalf("p=%f: plain current opacity %f", p, fs.Current.Opacity)
		}
		if fs.Next.Draw {
			t.Fatalf("p=%f: plain style drew next slot", p)
		}
	}
}

// An entering slot starts its motion at scale 1.0 and its own start
// offset, and finishes at max scale and its end offset.
func TestMotionEndpoints(t *testing.T) {
	set := testSettings(config.StylePanZoom)
	tl := buildTest(photoItems(3), set)
	cur, next := &tl.Entries[0], &tl.Entries[1]

	// Next starts being drawn exactly at the current transition start:
	// its motionElapsed is 0 there.
	ts := cur.Hold / cur.Total()
	fs := ComputeFrame(set, cur, next, ts, true)
	if math.Abs(fs.Next.Scale-1.0) > 1e-9 {
		t.Errorf("entering slot scale = %f, want 1.0", fs.Next.Scale)
	}
	if fs.Next.Offset != next.StartOffset {
		t.Errorf("entering slot offset = %+v, want start offset %+v", fs.Next.Offset, next.StartOffset)
	}

	// Current reaches motionProgress=1 at the end of its cycle: its
	// motion window is hold + 2*transition and it entered one
	// transition-length early.
	fs = ComputeFrame(set, cur, next, 1.0, true)
	if math.Abs(fs.Current.Scale-MaxZoomScale) > 1e-9 {
		t.Errorf("finished slot scale = %f, want %f", fs.Current.Scale, MaxZoomScale)
	}
	endWant := cur.EndOffset
	if math.Abs(fs.Current.Offset.X-endWant.X) > 1e-9 || math.Abs(fs.Current.Offset.Y-endWant.Y) > 1e-9 {
		t.Errorf("finished slot offset = %+v, want end offset %+v", fs.Current.Offset, endWant)
	}
}

// The motion window must be the slot's own hold + 2*transition. Feeding a
// neighbor with a different hold must not change this slot's speed.
func TestMotionUsesOwnCycle(t *testing.T) {
	set := testSettings(config.StylePanZoom)
	tl := buildTest(photoItems(2), set)
	cur, next := &tl.Entries[0], &tl.Entries[1]

	// Stretch next's hold; current's motion at a fixed progress must not move.
	before := ComputeFrame(set, cur, next, 0.5, true).Current
	next.Hold = 40
	after := ComputeFrame(set, cur, next, 0.5, true).Current

	if before.Scale != after.Scale {
		t.Errorf("current slot scale changed (%f -> %f) when neighbor hold changed", before.Scale, after.Scale)
	}
}

func TestTerminalRaceState(t *testing.T) {
	set := testSettings(config.StyleCrossfade)
	tl := buildTest(photoItems(2), set)
	cur, next := &tl.Entries[0], &tl.Entries[1]

	// Replacement ready: current transparent, next opaque.
	fs := ComputeFrame(set, cur, next, 1.0, true)
	if fs.Current.Opacity != 0 {
		t.Errorf("terminal current opacity = %f, want 0", fs.Current.Opacity)
	}
	if !fs.Next.Draw || fs.Next.Opacity != 1 {
		t.Errorf("terminal next = %+v, want drawn at opacity 1", fs.Next)
	}

	// Replacement not decoded yet: keep current visible, never blank.
	fs = ComputeFrame(set, cur, next, 1.02, false)
	if fs.Current.Opacity != 1 {
		t.Errorf("terminal fallback current opacity = %f, want 1", fs.Current.Opacity)
	}
}

func TestCrossfadeHasNoMotion(t *testing.T) {
	set := testSettings(config.StyleCrossfade)
	tl := buildTest(photoItems(2), set)

	fs := ComputeFrame(set, &tl.Entries[0], &tl.Entries[1], 0.9, true)
	if fs.Current.Scale != 1 || fs.Next.Scale != 1 {
		t.Errorf("crossfade scales = %f/%f, want 1/1", fs.Current.Scale, fs.Next.Scale)
	}
	if fs.Current.Offset != (Vec2{}) {
		t.Errorf("crossfade pan = %+v, want zero", fs.Current.Offset)
	}
}
