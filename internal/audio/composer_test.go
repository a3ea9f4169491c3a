package audio

import (
	"strings"
	"testing"

	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

func mixedTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Entries: []timeline.Entry{
			{Item: media.NewPhoto("a.jpg", media.Rotate0), Start: 0, Hold: 5, Transition: 2},
			{Item: media.NewVideo("b.mp4"), Start: 7, Hold: 10, Transition: 2},
			{Item: media.NewPhoto("c.jpg", media.Rotate0), Start: 19, Hold: 5, Transition: 0},
		},
		Total: 24,
	}
}

func TestClipWindows(t *testing.T) {
	tl := mixedTimeline()
	clips := clipWindows(tl, func(media.Item) bool { return true })

	if len(clips) != 1 {
		t.Fatalf("got %d clips, want 1", len(clips))
	}

	c := clips[0]
	if c.path != "b.mp4" {
		t.Errorf("clip path = %s", c.path)
	}
	// Audible from one incoming transition before its start.
	if c.delay != 5 {
		t.Errorf("delay = %v, want 5 (start 7 minus incoming transition 2)", c.delay)
	}
	// Incoming 2 + hold 10 + outgoing 2.
	if c.span != 14 {
		t.Errorf("span = %v, want 14", c.span)
	}
}

func TestClipWindowsFirstEntryClampsDelay(t *testing.T) {
	tl := &timeline.Timeline{
		Entries: []timeline.Entry{
			{Item: media.NewVideo("a.mp4"), Start: 0, Hold: 8, Transition: 2},
		},
		Total: 10,
	}

	clips := clipWindows(tl, func(media.Item) bool { return true })
	if len(clips) != 1 {
		t.Fatalf("got %d clips, want 1", len(clips))
	}
	if clips[0].delay != 0 {
		t.Errorf("first entry delay = %v, want clamped to 0", clips[0].delay)
	}
	// No incoming transition for the first entry.
	if clips[0].span != 10 {
		t.Errorf("span = %v, want 10", clips[0].span)
	}
}

func TestClipWindowsSkipsSilentClips(t *testing.T) {
	tl := mixedTimeline()
	clips := clipWindows(tl, func(media.Item) bool { return false })
	if len(clips) != 0 {
		t.Errorf("got %d clips, want none when probe reports no audio", len(clips))
	}
}

func TestBuildMixArgsMusicAndClip(t *testing.T) {
	clips := []clipTrack{{path: "b.mp4", delay: 5, span: 14}}
	args := buildMixArgs("music.mp3", 60, clips, 24, "out.m4a")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-stream_loop -1 -i music.mp3",
		"-i b.mp4",
		"volume=0.60",
		"afade=t=in:st=0:d=1.50",
		"afade=t=out:st=23.250:d=0.75",
		"adelay=5000|5000",
		"amix=inputs=2:normalize=0",
		"-map [mix]",
		"-t 24.000",
		"-c:a aac",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q\nargs: %s", want, joined)
		}
	}
}

func TestBuildMixArgsMusicOnly(t *testing.T) {
	args := buildMixArgs("music.mp3", 100, nil, 19, "out.m4a")
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "amix") {
		t.Error("single track should not go through amix")
	}
	if !strings.Contains(joined, "-map [m]") {
		t.Errorf("music-only mix should map [m]\nargs: %s", joined)
	}
	if !strings.Contains(joined, "volume=1.00") {
		t.Errorf("full volume should scale by 1.0\nargs: %s", joined)
	}
}

func TestBuildMixArgsClipsOnly(t *testing.T) {
	clips := []clipTrack{
		{path: "a.mp4", delay: 0, span: 7},
		{path: "b.mp4", delay: 5, span: 14},
	}
	args := buildMixArgs("", 0, clips, 24, "out.m4a")
	joined := strings.Join(args, " ")

	if strings.Contains(joined, "stream_loop") {
		t.Error("no music input expected")
	}
	if !strings.Contains(joined, "amix=inputs=2") {
		t.Errorf("two clips should mix\nargs: %s", joined)
	}
	if !strings.Contains(joined, "[0:a]atrim=0:7.000") {
		t.Errorf("first clip should use input 0\nargs: %s", joined)
	}
}
