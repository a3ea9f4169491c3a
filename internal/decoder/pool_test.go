package decoder

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// countingExtractor tracks how many extractions run at once.
type countingExtractor struct {
	inFlight int32
	peak     int32
	calls    int32
	fail     bool
}

func (c *countingExtractor) ExtractFrame(ctx context.Context, input string, seconds float64) (*image.RGBA, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	atomic.AddInt32(&c.calls, 1)

	for {
		peak := atomic.LoadInt32(&c.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&c.peak, peak, n) {
			break
		}
	}

	time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)

	if c.fail {
		return nil, fmt.Errorf("decode refused")
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func testPool(t *testing.T, extractor FrameExtractor, capacity int) *Pool {
	t.Helper()
	return NewPool(extractor, capacity, zerolog.Nop())
}

func TestPoolNeverExceedsCapacity(t *testing.T) {
	ext := &countingExtractor{}
	pool := testPool(t, ext, 4)

	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				s, err := pool.Acquire(ctx, fmt.Sprintf("clip-%d.mp4", g%6))
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				if _, err := s.FrameAt(ctx, float64(i)); err != nil {
					t.Errorf("frame: %v", err)
				}
				s.Release()
			}
		}(g)
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&ext.peak); peak > 4 {
		t.Errorf("peak concurrent decodes = %d, want <= 4", peak)
	}
	if calls := atomic.LoadInt32(&ext.calls); calls != 32*25 {
		t.Errorf("total decodes = %d, want %d", calls, 32*25)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	pool := testPool(t, &countingExtractor{}, 1)
	ctx := context.Background()

	s, err := pool.Acquire(ctx, "a.mp4")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan *Session)
	go func() {
		s2, err := pool.Acquire(ctx, "b.mp4")
		if err != nil {
			t.Errorf("second acquire: %v", err)
		}
		acquired <- s2
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while session was held")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()

	select {
	case s2 := <-acquired:
		s2.Release()
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	pool := testPool(t, &countingExtractor{}, 1)

	s, _ := pool.Acquire(context.Background(), "a.mp4")
	defer s.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := pool.Acquire(ctx, "b.mp4"); err != context.DeadlineExceeded {
		t.Errorf("acquire on exhausted pool = %v, want DeadlineExceeded", err)
	}
}

func TestReconfigureDropsCachedFrame(t *testing.T) {
	pool := testPool(t, &countingExtractor{}, 1)
	ctx := context.Background()

	s, _ := pool.Acquire(ctx, "a.mp4")
	if _, err := s.FrameAt(ctx, 1.0); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame, _ := s.LastFrame(); frame == nil {
		t.Fatal("expected cached frame after successful decode")
	}
	s.Release()

	s, _ = pool.Acquire(ctx, "b.mp4")
	defer s.Release()
	if frame, _ := s.LastFrame(); frame != nil {
		t.Error("cached frame survived reconfigure to a different file")
	}
}

func TestLastFrameSurvivesFailedDecode(t *testing.T) {
	ext := &countingExtractor{}
	pool := testPool(t, ext, 1)
	ctx := context.Background()

	s, _ := pool.Acquire(ctx, "a.mp4")
	defer s.Release()

	if _, err := s.FrameAt(ctx, 2.5); err != nil {
		t.Fatalf("frame: %v", err)
	}

	ext.fail = true
	if _, err := s.FrameAt(ctx, 3.0); err == nil {
		t.Fatal("expected decode error")
	}

	frame, at := s.LastFrame()
	if frame == nil || at != 2.5 {
		t.Errorf("last frame at %v, want cached frame from 2.5s", at)
	}
}

func TestUseAfterRelease(t *testing.T) {
	pool := testPool(t, &countingExtractor{}, 2)
	ctx := context.Background()

	s, _ := pool.Acquire(ctx, "a.mp4")
	s.Release()

	if _, err := s.FrameAt(ctx, 0); err == nil {
		t.Error("FrameAt after release should fail")
	}
}
