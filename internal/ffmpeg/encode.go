package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
)

// StreamOptions configures a rawvideo encode session
type StreamOptions struct {
	Output      string
	Width       int
	Height      int
	FPS         int
	Encoder     string // h264_videotoolbox, h264_nvenc or libx264
	BitrateKbps int
}

// FrameSink is an open encoder session consuming raw RGBA frames over
// stdin. Frames never touch disk on the way in.
type FrameSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	log    bytes.Buffer
	width  int
	height int
	closed bool
}

// StartFrameStream opens an encode session writing H.264 to opts.Output
func (e *Executor) StartFrameStream(ctx context.Context, opts StreamOptions) (*FrameSink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", opts.FPS)
	}

	encoder := opts.Encoder
	if encoder == "" {
		encoder = "libx264"
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoder,
	}

	switch encoder {
	case "h264_videotoolbox", "h264_nvenc":
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.BitrateKbps))
	default:
		args = append(args, "-crf", "20", "-preset", "medium")
	}
	args = append(args, opts.Output)

	e.logger.Debug().
		Str("output", opts.Output).
		Str("encoder", encoder).
		Int("fps", opts.FPS).
		Msg("opening encode session")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	sink := &FrameSink{cmd: cmd, width: opts.Width, height: opts.Height}
	cmd.Stdout = &sink.log
	cmd.Stderr = &sink.log

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	sink.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}

	return sink, nil
}

// WriteFrame streams one packed RGBA frame to the encoder
func (s *FrameSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame size %dx%d does not match session %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if img.Stride != s.width*4 {
		return fmt.Errorf("frame stride %d is not packed", img.Stride)
	}

	_, err := s.stdin.Write(img.Pix)
	return err
}

// Close finishes the stream and waits for the encoder to flush
func (s *FrameSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stdin.Close(); err != nil {
		s.cmd.Wait()
		return fmt.Errorf("failed to close encoder input: %w", err)
	}

	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %w (%s)", err, s.log.String())
	}
	return nil
}

// Abort tears the session down without flushing, for cancellation paths
func (s *FrameSink) Abort() {
	if s.closed {
		return
	}
	s.closed = true
	s.stdin.Close()
	s.cmd.Process.Kill()
	s.cmd.Wait()
}
