package texture

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/decoder"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

// Slot names one of the two drawable positions.
type Slot int

const (
	SlotCurrent Slot = iota
	SlotNext
)

// Source yields a drawable texture for one media item. Photos serve a
// cached still; videos sample frames through the decoder pool.
type Source interface {
	Item() media.Item

	// Texture returns the best texture already available for local
	// media time t without blocking on a decode.
	Texture(t float64) *image.RGBA

	// Fetch decodes the exact frame for t, blocking. Export path.
	Fetch(ctx context.Context, t float64) (*image.RGBA, error)

	// Ready reports whether the source can be shown at all.
	Ready() bool

	Close()
}

// Manager owns the current and next texture sources and reconciles
// them against the resolved timeline entries each frame. A source is
// closed, releasing its decoder session, only once its item has left
// both slots.
type Manager struct {
	pool   *decoder.Pool
	photos *PhotoCache
	log    zerolog.Logger

	mu      sync.Mutex
	current Source
	next    Source
	broken  map[uuid.UUID]bool
}

func NewManager(pool *decoder.Pool, logger zerolog.Logger) *Manager {
	return &Manager{
		pool:   pool,
		photos: NewPhotoCache(),
		log:    logger.With().Str("component", "texture").Logger(),
		broken: make(map[uuid.UUID]bool),
	}
}

// SetSlots points the two slots at the given entries, reusing existing
// sources when an item merely moved between slots. Either entry may be
// nil. Source construction for a video may block on the decoder pool.
//
// An item that cannot be loaded costs its own slot, not the show: the
// failure is logged once, the slot stays empty, and the item is not
// retried. Only context cancellation comes back as an error.
func (m *Manager) SetSlots(ctx context.Context, cur, next *timeline.Entry) error {
	m.mu.Lock()
	oldCurrent, oldNext := m.current, m.next
	m.mu.Unlock()

	resolve := func(e *timeline.Entry) (Source, error) {
		if e == nil {
			return nil, nil
		}
		if s := matchSource(e.Item.ID, oldCurrent, oldNext); s != nil {
			return s, nil
		}
		if m.isBroken(e.Item.ID) {
			return nil, nil
		}
		s, err := m.newSource(ctx, e.Item)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.markBroken(e.Item.ID)
			m.log.Warn().Err(err).
				Str("media", e.Item.Source.Path).
				Msg("media unusable, leaving slot empty")
			return nil, nil
		}
		return s, nil
	}

	newCurrent, err := resolve(cur)
	if err != nil {
		return err
	}
	newNext, err := resolve(next)
	if err != nil {
		closeIfUnused(newCurrent, oldCurrent, oldNext)
		return err
	}

	m.mu.Lock()
	m.current, m.next = newCurrent, newNext
	m.mu.Unlock()

	// Release whatever no longer backs a slot.
	for _, old := range []Source{oldCurrent, oldNext} {
		if old != nil && old != newCurrent && old != newNext {
			old.Close()
		}
	}
	return nil
}

func (m *Manager) isBroken(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broken[id]
}

func (m *Manager) markBroken(id uuid.UUID) {
	m.mu.Lock()
	m.broken[id] = true
	m.mu.Unlock()
}

func matchSource(id uuid.UUID, sources ...Source) Source {
	for _, s := range sources {
		if s != nil && s.Item().ID == id {
			return s
		}
	}
	return nil
}

func closeIfUnused(s Source, kept ...Source) {
	if s == nil {
		return
	}
	for _, k := range kept {
		if s == k {
			return
		}
	}
	s.Close()
}

func (m *Manager) newSource(ctx context.Context, item media.Item) (Source, error) {
	switch item.Kind {
	case media.KindVideo:
		return newVideoSource(ctx, m.pool, item, m.log)
	default:
		return newPhotoSource(m.photos, item)
	}
}

// Source returns the source currently backing a slot, or nil.
func (m *Manager) Source(slot Slot) Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot == SlotNext {
		return m.next
	}
	return m.current
}

// Texture returns the best available texture for a slot at local media
// time t. When the slot's own source has produced nothing yet, the
// other slot's last texture stands in, so a freshly promoted clip whose
// decoder is still warming up never renders as a blank quad.
func (m *Manager) Texture(slot Slot, t float64) *image.RGBA {
	m.mu.Lock()
	own, other := m.current, m.next
	if slot == SlotNext {
		own, other = m.next, m.current
	}
	m.mu.Unlock()

	if own == nil {
		return nil
	}
	if tex := own.Texture(t); tex != nil {
		return tex
	}
	if other != nil {
		if tex := other.Texture(t); tex != nil {
			m.log.Debug().Msg("borrowing texture from other slot")
			return tex
		}
	}
	return nil
}

// Ready reports whether the slot's source can be shown. An empty slot
// counts as ready so the terminal-race fallback does not hold the
// outgoing slide at the end of the show.
func (m *Manager) Ready(slot Slot) bool {
	s := m.Source(slot)
	return s == nil || s.Ready()
}

// Photos exposes the shared photo cache.
func (m *Manager) Photos() *PhotoCache { return m.photos }

// Close releases both slots.
func (m *Manager) Close() {
	m.mu.Lock()
	cur, next := m.current, m.next
	m.current, m.next = nil, nil
	m.mu.Unlock()

	if cur != nil {
		cur.Close()
	}
	if next != nil && next != cur {
		next.Close()
	}
}
