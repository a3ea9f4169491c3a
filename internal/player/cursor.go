package player

import (
	"math"
	"sync"
	"time"

	"github.com/kikiluvv/driftshow/internal/timeline"
)

// Cursor maps wall-clock time onto the show timeline. The render tick
// asks it for the current position; pause, seek and looping all reduce
// to adjusting the base offset. The clock is injected so tests can
// step time by hand.
type Cursor struct {
	tl   *timeline.Timeline
	loop bool

	mu        sync.Mutex
	base      float64 // show position when the clock started
	startedAt time.Time
	playing   bool
}

func NewCursor(tl *timeline.Timeline, loop bool) *Cursor {
	return &Cursor{tl: tl, loop: loop}
}

// Start begins playback from the top.
func (c *Cursor) Start(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = 0
	c.startedAt = now
	c.playing = true
}

// Pause freezes the position.
func (c *Cursor) Pause(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.base = c.position(now)
	c.playing = false
}

// Resume continues from the paused position.
func (c *Cursor) Resume(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.startedAt = now
	c.playing = true
}

// Toggle flips between playing and paused, returning the new state.
func (c *Cursor) Toggle(now time.Time) bool {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if playing {
		c.Pause(now)
	} else {
		c.Resume(now)
	}
	return !playing
}

// Seek jumps to an absolute show position.
func (c *Cursor) Seek(t float64, now time.Time) {
	if t < 0 {
		t = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.startedAt = now
}

// Time returns the current show position. With looping on, the
// position wraps at the timeline total; otherwise it runs past the end
// and the resolver clamps.
func (c *Cursor) Time(now time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.position(now)
	if c.loop && c.tl.Total > 0 && t >= c.tl.Total {
		t = math.Mod(t, c.tl.Total)
	}
	return t
}

// Done reports whether a non-looping show has played out.
func (c *Cursor) Done(now time.Time) bool {
	if c.loop {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position(now) >= c.tl.Total
}

// Playing reports whether the clock is advancing.
func (c *Cursor) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Cursor) position(now time.Time) float64 {
	if !c.playing {
		return c.base
	}
	return c.base + now.Sub(c.startedAt).Seconds()
}
