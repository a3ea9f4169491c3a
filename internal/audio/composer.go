package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/ffmpeg"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

const (
	musicFadeIn  = 1.5
	musicFadeOut = 0.75
)

// clipTrack is one video clip's audio placement on the mixed track.
// The clip is audible from the moment it becomes visible, one incoming
// transition before its entry starts.
type clipTrack struct {
	path  string
	delay float64 // seconds from track start
	span  float64 // audible duration: incoming + hold + outgoing
}

// Composer builds the single mixed export audio track: looped
// background music under fade envelopes plus each clip's own audio at
// full volume. Mixing runs in one ffmpeg pass; the result is muxed
// against the rendered video as a separate phase.
type Composer struct {
	exec *ffmpeg.Executor
	log  zerolog.Logger
}

func NewComposer(exec *ffmpeg.Executor, logger zerolog.Logger) *Composer {
	return &Composer{
		exec: exec,
		log:  logger.With().Str("component", "audio").Logger(),
	}
}

// Compose renders the mixed track to output (AAC in m4a). Returns
// ok=false when the settings call for no audio at all, in which case
// no file is written and the export stays video-only.
func (c *Composer) Compose(ctx context.Context, tl *timeline.Timeline, output string) (bool, error) {
	set := tl.Settings

	var clips []clipTrack
	if set.PlayVideoAudio {
		clips = clipWindows(tl, func(item media.Item) bool {
			info, err := c.exec.Probe(ctx, item.Source.Path)
			if err != nil {
				c.log.Warn().Err(err).Str("clip", item.Source.Path).Msg("probe failed, skipping clip audio")
				return false
			}
			return info.HasAudio
		})
	}

	music := set.Music
	if music.Path == "" && len(clips) == 0 {
		return false, nil
	}

	args := buildMixArgs(music.Path, music.Volume, clips, tl.Total, output)

	c.log.Info().
		Int("clips", len(clips)).
		Bool("music", music.Path != "").
		Float64("duration", tl.Total).
		Msg("composing audio track")

	if err := c.exec.Run(ctx, ffmpeg.RunOptions{Args: args}); err != nil {
		return false, fmt.Errorf("audio mix failed: %w", err)
	}
	return true, nil
}

// clipWindows walks the timeline and returns the audible window of
// every video entry that actually carries audio, per hasAudio.
func clipWindows(tl *timeline.Timeline, hasAudio func(media.Item) bool) []clipTrack {
	var clips []clipTrack
	for i, e := range tl.Entries {
		if e.Item.Kind != media.KindVideo {
			continue
		}
		if !hasAudio(e.Item) {
			continue
		}

		incoming := 0.0
		if i > 0 {
			incoming = tl.Entries[i-1].Transition
		}

		delay := e.Start - incoming
		if delay < 0 {
			delay = 0
		}
		clips = append(clips, clipTrack{
			path:  e.Item.Source.Path,
			delay: delay,
			span:  incoming + e.Hold + e.Transition,
		})
	}
	return clips
}

// buildMixArgs assembles the single-pass mix invocation. Music volume
// is 0 to 100; clip audio always mixes at full volume with no fades.
func buildMixArgs(musicPath string, volume int, clips []clipTrack, total float64, output string) []string {
	var args []string
	var filters []string
	var mixInputs []string

	input := 0
	if musicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", musicPath)

		fadeOutStart := total - musicFadeOut
		if fadeOutStart < 0 {
			fadeOutStart = 0
		}
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=0:%.3f,volume=%.2f,afade=t=in:st=0:d=%.2f,afade=t=out:st=%.3f:d=%.2f[m]",
			input, total, float64(volume)/100,
			musicFadeIn, fadeOutStart, musicFadeOut,
		))
		mixInputs = append(mixInputs, "[m]")
		input++
	}

	for i, clip := range clips {
		args = append(args, "-i", clip.path)
		delayMS := int(clip.delay * 1000)
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=0:%.3f,adelay=%d|%d[c%d]",
			input, clip.span, delayMS, delayMS, i,
		))
		mixInputs = append(mixInputs, fmt.Sprintf("[c%d]", i))
		input++
	}

	out := mixInputs[0]
	if len(mixInputs) > 1 {
		filters = append(filters, fmt.Sprintf(
			"%samix=inputs=%d:normalize=0:duration=longest[mix]",
			strings.Join(mixInputs, ""), len(mixInputs),
		))
		out = "[mix]"
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", out,
		"-t", fmt.Sprintf("%.3f", total),
		"-c:a", "aac",
		"-b:a", "192k",
		output,
	)
	return args
}
