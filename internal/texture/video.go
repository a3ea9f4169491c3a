package texture

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/decoder"
	"github.com/kikiluvv/driftshow/internal/media"
)

// fetchTolerance is how stale a cached video frame may be before
// Texture kicks off a new decode. Matches roughly two display frames
// at 30fps so a healthy decoder keeps up without redundant seeks.
const fetchTolerance = 1.0 / 15.0

// fetchTimeout bounds a single background decode. The render loop
// never waits on it; a slow seek just means the previous frame stays
// up a little longer.
const fetchTimeout = 2 * time.Second

// videoSource samples frames from one clip through a pooled decoder
// session. Texture never blocks on the decoder; Fetch does, for the
// sequential export path.
type videoSource struct {
	item media.Item
	log  zerolog.Logger

	mu       sync.Mutex
	session  *decoder.Session
	frame    *image.RGBA
	frameAt  float64
	fetching bool
	closed   bool
}

func newVideoSource(ctx context.Context, pool *decoder.Pool, item media.Item, logger zerolog.Logger) (*videoSource, error) {
	session, err := pool.Acquire(ctx, item.Source.Path)
	if err != nil {
		return nil, err
	}
	return &videoSource{
		item:    item,
		log:     logger.With().Str("clip", item.Source.Path).Logger(),
		session: session,
	}, nil
}

func (s *videoSource) Item() media.Item { return s.item }

// Texture returns the freshest frame already decoded and, when that
// frame has drifted past the tolerance, schedules a background decode
// for t. Returns nil only before the first frame lands.
func (s *videoSource) Texture(t float64) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.frame
	}
	if s.frame != nil && math.Abs(t-s.frameAt) < fetchTolerance {
		return s.frame
	}
	if !s.fetching {
		s.fetching = true
		go s.fetchAsync(s.session, t)
	}
	return s.frame
}

func (s *videoSource) fetchAsync(session *decoder.Session, t float64) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	frame, err := session.FrameAt(ctx, t)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if s.closed {
		return
	}
	if err != nil {
		s.log.Debug().Err(err).Float64("t", t).Msg("background frame fetch failed")
		return
	}
	s.frame = frame
	s.frameAt = t
}

// Fetch decodes the exact frame for t, blocking until the decoder
// delivers or ctx ends.
func (s *videoSource) Fetch(ctx context.Context, t float64) (*image.RGBA, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("video source closed")
	}

	frame, err := session.FrameAt(ctx, t)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.closed {
		s.frame = frame
		s.frameAt = t
	}
	s.mu.Unlock()

	return frame, nil
}

// Ready reports whether at least one frame has been decoded, so the
// motion state machine knows if this slot can take over on promotion.
func (s *videoSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame != nil
}

// Close releases the decoder session back to the pool. Called when the
// item has left both slots.
func (s *videoSource) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session != nil {
		session.Release()
	}
}
