package timeline

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/media"
)

func photoItems(n int) []media.Item {
	items := make([]media.Item, n)
	for i := range items {
		items[i] = media.NewPhoto("photo.jpg", media.Rotate0)
	}
	return items
}

func buildTest(items []media.Item, set config.Settings) *Timeline {
	return Build(items, set, nil, nil, rand.New(rand.NewSource(42)))
}

// 3 items, 5s slides, 2s transitions: starts must land at 0, 7, 14 and
// the last entry (no outgoing transition) closes the show at 19s.
func TestBuildStartTimes(t *testing.T) {
	tl := buildTest(photoItems(3), testSettings(config.StyleCrossfade))

	wantStarts := []float64{0, 7, 14}
	for i, e := range tl.Entries {
		if e.Start != wantStarts[i] {
			t.Errorf("entry %d start = %f, want %f", i, e.Start, wantStarts[i])
		}
	}

	if tl.Entries[2].Transition != 0 {
		t.Errorf("last entry transition = %f, want 0", tl.Entries[2].Transition)
	}
	if tl.Total != 19 {
		t.Errorf("total = %f, want 19", tl.Total)
	}
}

func TestBuildContiguous(t *testing.T) {
	styles := []config.TransitionStyle{
		config.StylePlain, config.StyleCrossfade, config.StyleZoom, config.StylePanZoom,
	}

	for _, style := range styles {
		for _, n := range []int{1, 2, 5, 12} {
			tl := buildTest(photoItems(n), testSettings(style))

			sum := 0.0
			for i, e := range tl.Entries {
				if math.Abs(e.Start-sum) > 1e-9 {
					t.Errorf("%s/%d: entry %d start %f, expected %f", style, n, i, e.Start, sum)
				}
				sum += e.Hold + e.Transition
			}
			if math.Abs(tl.Total-sum) > 1e-9 {
				t.Errorf("%s/%d: total %f drifted from recomputed %f", style, n, tl.Total, sum)
			}
		}
	}
}

func TestBuildPlainHasNoTransitions(t *testing.T) {
	tl := buildTest(photoItems(4), testSettings(config.StylePlain))
	for i, e := range tl.Entries {
		if e.Transition != 0 {
			t.Errorf("entry %d transition = %f, want 0 for plain style", i, e.Transition)
		}
	}
	if tl.Total != 20 {
		t.Errorf("total = %f, want 20", tl.Total)
	}
}

func TestStartOffsetPerceptible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	set := testSettings(config.StylePanZoom)

	for i := 0; i < 500; i++ {
		tl := Build(photoItems(1), set, nil, nil, rng)
		off := tl.Entries[0].StartOffset
		if math.Abs(off.X) < minPanAxis && math.Abs(off.Y) < minPanAxis {
			t.Fatalf("iteration %d: start offset (%f, %f) below minimum on both axes", i, off.X, off.Y)
		}
		if math.Abs(off.X) > maxPan || math.Abs(off.Y) > maxPan {
			t.Fatalf("iteration %d: start offset (%f, %f) exceeds max pan", i, off.X, off.Y)
		}
	}
}

func TestEndOffsetTargetsFace(t *testing.T) {
	item := media.NewPhoto("face.jpg", media.Rotate0)
	boxes := map[uuid.UUID][]media.FaceBox{
		item.ID: {{X: 0.6, Y: 0.1, W: 0.2, H: 0.2}},
	}
	faces := func(id uuid.UUID) []media.FaceBox { return boxes[id] }

	set := testSettings(config.StylePanZoom)
	tl := Build([]media.Item{item}, set, faces, nil, rand.New(rand.NewSource(1)))

	end := tl.Entries[0].EndOffset
	// Face center is (0.7, 0.2); the pan must lean left and down.
	if end.X >= 0 {
		t.Errorf("end offset X = %f, want negative (face right of center)", end.X)
	}
	if end.Y <= 0 {
		t.Errorf("end offset Y = %f, want positive (face above center)", end.Y)
	}
	if mag := math.Hypot(end.X, end.Y); mag > maxPan+1e-9 {
		t.Errorf("end offset magnitude %f exceeds clamp %f", mag, maxPan)
	}
}

func TestEndOffsetZeroWithoutFaces(t *testing.T) {
	set := testSettings(config.StylePanZoom)
	tl := buildTest(photoItems(1), set)
	if off := tl.Entries[0].EndOffset; off != (Vec2{}) {
		t.Errorf("end offset = %+v, want zero with no faces", off)
	}

	set.ZoomOnFaces = false
	item := media.NewPhoto("face.jpg", media.Rotate0)
	faces := func(uuid.UUID) []media.FaceBox {
		return []media.FaceBox{{X: 0.1, Y: 0.1, W: 0.3, H: 0.3}}
	}
	tl = Build([]media.Item{item}, set, faces, nil, rand.New(rand.NewSource(1)))
	if off := tl.Entries[0].EndOffset; off != (Vec2{}) {
		t.Errorf("end offset = %+v, want zero with face zoom disabled", off)
	}
}

func TestFaceBoxesRotated(t *testing.T) {
	item := media.NewPhoto("rot.jpg", media.Rotate90)
	faces := func(uuid.UUID) []media.FaceBox {
		return []media.FaceBox{{X: 0.0, Y: 0.0, W: 0.2, H: 0.4}}
	}

	tl := Build([]media.Item{item}, testSettings(config.StylePanZoom), faces, nil, rand.New(rand.NewSource(1)))

	got := tl.Entries[0].FaceBoxes[0]
	want := media.FaceBox{X: 0.6, Y: 0.0, W: 0.4, H: 0.2}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 ||
		math.Abs(got.W-want.W) > 1e-9 || math.Abs(got.H-want.H) > 1e-9 {
		t.Errorf("rotated box = %+v, want %+v", got, want)
	}
}

func TestBuildVideoUsesProbe(t *testing.T) {
	item := media.NewVideo("clip.mp4")
	probe := func(media.Item) (float64, bool) { return 30.0, true }

	tl := Build([]media.Item{item, media.NewPhoto("p.jpg", media.Rotate0)},
		testSettings(config.StyleCrossfade), nil, probe, rand.New(rand.NewSource(1)))

	if tl.Entries[0].Hold != 26.0 {
		t.Errorf("video hold = %f, want 26.0 (30 - 2x2 transition)", tl.Entries[0].Hold)
	}
	if tl.Entries[0].Intrinsic != 30.0 {
		t.Errorf("intrinsic = %f, want probe result carried on the entry", tl.Entries[0].Intrinsic)
	}
}

func TestBuildIncomingTransitions(t *testing.T) {
	tl := buildTest(photoItems(3), testSettings(config.StyleCrossfade))

	if tl.Entries[0].Incoming != 0 {
		t.Errorf("first entry incoming = %f, want 0", tl.Entries[0].Incoming)
	}
	for i := 1; i < len(tl.Entries); i++ {
		if tl.Entries[i].Incoming != tl.Entries[i-1].Transition {
			t.Errorf("entry %d incoming = %f, want previous outgoing %f",
				i, tl.Entries[i].Incoming, tl.Entries[i-1].Transition)
		}
	}
}

func TestMediaTime(t *testing.T) {
	item := media.NewVideo("clip.mp4")
	probe := func(media.Item) (float64, bool) { return 30.0, true }
	tl := Build([]media.Item{media.NewPhoto("p.jpg", media.Rotate0), item},
		testSettings(config.StyleCrossfade), nil, probe, rand.New(rand.NewSource(1)))

	clip := &tl.Entries[1]
	// The clip becomes visible one transition before its cycle starts
	// and plays from zero at that moment.
	if got := clip.MediaTime(clip.VisibleStart()); got != 0 {
		t.Errorf("media time at visible start = %f, want 0", got)
	}
	if got := clip.MediaTime(clip.Start); math.Abs(got-clip.Incoming) > 1e-9 {
		t.Errorf("media time at cycle start = %f, want %f", got, clip.Incoming)
	}
}

func TestMediaTimeShortClipLoops(t *testing.T) {
	set := testSettings(config.StylePlain)
	probe := func(media.Item) (float64, bool) { return 2.0, true }
	tl := Build([]media.Item{media.NewVideo("short.mp4")}, set, nil, probe,
		rand.New(rand.NewSource(1)))

	e := &tl.Entries[0]
	// Short clip under plain style holds for the slide duration and the
	// playback position wraps at the source length.
	if got := e.MediaTime(3.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("media time at 3s = %f, want looped to 1.0", got)
	}
}
