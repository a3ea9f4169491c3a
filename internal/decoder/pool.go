package decoder

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCapacity caps concurrent decode sessions. Hardware decoders
// (NVDEC, VideoToolbox) refuse new sessions past a small per-process
// ceiling, and a fifth concurrent ffmpeg seek buys nothing on CPU
// either.
const DefaultCapacity = 4

// FrameExtractor decodes one frame of a video file at a timestamp.
// ffmpeg.Executor satisfies it.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, input string, seconds float64) (*image.RGBA, error)
}

// Pool hands out a bounded set of decode sessions. Callers must
// Release every acquired session; the pool never grows past its
// capacity no matter how many goroutines are asking.
type Pool struct {
	extractor FrameExtractor
	log       zerolog.Logger
	free      chan *Session
	capacity  int
}

// NewPool creates a pool with the given capacity, or DefaultCapacity
// when capacity is not positive.
func NewPool(extractor FrameExtractor, capacity int, logger zerolog.Logger) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	p := &Pool{
		extractor: extractor,
		log:       logger.With().Str("component", "decoder").Logger(),
		free:      make(chan *Session, capacity),
		capacity:  capacity,
	}
	for i := 0; i < capacity; i++ {
		p.free <- &Session{pool: p}
	}
	return p
}

// Capacity returns the fixed session limit.
func (p *Pool) Capacity() int { return p.capacity }

// Acquire blocks until a session is free, configures it for the given
// file, and returns it. The caller owns the session until Release.
func (p *Pool) Acquire(ctx context.Context, path string) (*Session, error) {
	select {
	case s := <-p.free:
		s.configure(path)
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Session is one slot of the pool, bound to a single video file at a
// time. Reacquiring for a different file drops the cached frame.
type Session struct {
	pool *Pool

	mu        sync.Mutex
	path      string
	lastFrame *image.RGBA
	lastTime  float64
	released  bool
}

func (s *Session) configure(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != path {
		s.lastFrame = nil
		s.lastTime = 0
	}
	s.path = path
	s.released = false
}

// FrameAt decodes the frame at the given media timestamp. The last
// successfully decoded frame is kept so callers can fall back when a
// seek fails or is still in flight.
func (s *Session) FrameAt(ctx context.Context, seconds float64) (*image.RGBA, error) {
	s.mu.Lock()
	path := s.path
	released := s.released
	s.mu.Unlock()

	if released {
		return nil, fmt.Errorf("decoder session used after release")
	}
	if path == "" {
		return nil, fmt.Errorf("decoder session has no file configured")
	}

	frame, err := s.pool.extractor.ExtractFrame(ctx, path, seconds)
	if err != nil {
		return nil, fmt.Errorf("decode %s at %.3fs: %w", path, seconds, err)
	}

	s.mu.Lock()
	s.lastFrame = frame
	s.lastTime = seconds
	s.mu.Unlock()

	return frame, nil
}

// LastFrame returns the most recent successfully decoded frame and its
// timestamp, or nil when nothing has decoded yet.
func (s *Session) LastFrame() (*image.RGBA, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame, s.lastTime
}

// Path returns the file this session is configured for.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Release returns the session to the pool. Releasing twice is a bug;
// the second call is dropped with a log instead of corrupting the
// free list.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		s.pool.log.Warn().Str("path", s.path).Msg("double release of decoder session")
		return
	}
	s.released = true
	s.mu.Unlock()

	s.pool.free <- s
}
