package ffmpeg

import (
	"context"
	"os/exec"
	"strings"
)

// Hardware encoders tried in order before falling back to libx264.
var preferredEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// BestEncoder picks the fastest available H.264 encoder on this host
// by asking ffmpeg for its encoder list. Always returns a usable name.
func (e *Executor) BestEncoder(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.logger.Warn().Err(err).Msg("encoder detection failed, using libx264")
		return "libx264"
	}

	listing := string(out)
	for _, enc := range preferredEncoders {
		if strings.Contains(listing, enc) {
			e.logger.Debug().Str("encoder", enc).Msg("hardware encoder available")
			return enc
		}
	}
	return "libx264"
}
