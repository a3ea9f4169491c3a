package ffmpeg

import (
	"context"
	"fmt"
)

// Mux combines a rendered video stream and a pre-mixed audio stream into
// one container without re-encoding either. Writing both through a single
// encoder session is unreliable across platform encoders; muxing after
// the fact is not.
func (e *Executor) Mux(ctx context.Context, videoPath, audioPath, output string) error {
	if videoPath == "" || output == "" {
		return fmt.Errorf("video and output paths are required")
	}

	args := []string{"-i", videoPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath, "-map", "0:v:0", "-map", "1:a:0")
	}
	args = append(args,
		"-c", "copy",
		"-movflags", "+faststart",
		"-shortest",
		output,
	)

	e.logger.Info().
		Str("video", videoPath).
		Str("audio", audioPath).
		Str("output", output).
		Msg("muxing output container")

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("muxing")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("mux failed: %w", err)
	}
	return nil
}
