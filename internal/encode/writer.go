package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/icza/mjpeg"
)

// FrameWriter consumes rendered RGBA frames and produces a video file.
// ffmpeg.FrameSink is the normal implementation; MJPEGWriter covers
// hosts without a usable ffmpeg.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error

	// Close flushes and finalizes the output file.
	Close() error

	// Abort tears the writer down and leaves no usable output.
	Abort()
}

// MJPEGWriter encodes frames to Motion JPEG in an AVI container. No
// external binary, no audio, noticeably larger files; a fallback, not
// the default.
type MJPEGWriter struct {
	aw      mjpeg.AviWriter
	path    string
	width   int
	height  int
	quality int
	closed  bool
}

// NewMJPEGWriter opens an AVI at path for width x height frames at fps.
func NewMJPEGWriter(path string, width, height, fps int) (*MJPEGWriter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("failed to open mjpeg writer: %w", err)
	}

	return &MJPEGWriter{
		aw:      aw,
		path:    path,
		width:   width,
		height:  height,
		quality: 85,
	}, nil
}

func (w *MJPEGWriter) WriteFrame(img *image.RGBA) error {
	if w.closed {
		return fmt.Errorf("write on closed mjpeg writer")
	}
	b := img.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		return fmt.Errorf("frame size %dx%d does not match session %dx%d", b.Dx(), b.Dy(), w.width, w.height)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: w.quality}); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return w.aw.AddFrame(buf.Bytes())
}

func (w *MJPEGWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.aw.Close()
}

func (w *MJPEGWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.aw.Close()
	os.Remove(w.path)
}
