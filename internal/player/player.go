package player

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/render"
	"github.com/kikiluvv/driftshow/internal/texture"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

// Options configures the live playback window.
type Options struct {
	Width  int
	Height int
	FPS    int
	Loop   bool
	Seed   int64
}

// Player runs live playback in a fyne window. Two schedules drive it:
// the render tick draws every display frame, and slot promotion runs
// as an async task whenever an entry plays out. The tick never waits
// on promotion; the motion state machine covers the gap.
type Player struct {
	tl       *timeline.Timeline
	textures *texture.Manager
	cursor   *Cursor
	comp     *render.Compositor
	log      zerolog.Logger
	opts     Options

	mu        sync.Mutex
	current   *timeline.Entry
	next      *timeline.Entry
	promoting bool
}

func New(tl *timeline.Timeline, textures *texture.Manager, opts Options, logger zerolog.Logger) *Player {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &Player{
		tl:       tl,
		textures: textures,
		cursor:   NewCursor(tl, opts.Loop),
		comp:     render.New(tl.Settings, opts.Width, opts.Height, opts.Seed),
		log:      logger.With().Str("component", "player").Logger(),
		opts:     opts,
	}
}

// Run opens the window and plays until the show ends, the window
// closes, or ctx is cancelled. Must be called from the main goroutine;
// fyne owns it for the duration.
func (p *Player) Run(ctx context.Context) error {
	if len(p.tl.Entries) == 0 {
		return fmt.Errorf("timeline is empty")
	}

	// Warm both slots before the first frame so playback starts on a
	// drawn slide, not a background flash.
	cur, next, _ := p.tl.Resolve(0)
	if err := p.textures.SetSlots(ctx, cur, next); err != nil {
		return fmt.Errorf("load first slides: %w", err)
	}
	p.current, p.next = cur, next

	a := app.NewWithID("driftshow")
	w := a.NewWindow("driftshow")
	w.Resize(fyne.NewSize(float32(p.opts.Width), float32(p.opts.Height)))

	// Two frame buffers: the ticker paints one while fyne's render
	// thread shows the other, swapped on every handoff so the two never
	// touch the same pixels.
	front := image.NewRGBA(image.Rect(0, 0, p.opts.Width, p.opts.Height))
	back := image.NewRGBA(image.Rect(0, 0, p.opts.Width, p.opts.Height))
	view := canvas.NewImageFromImage(front)
	view.FillMode = canvas.ImageFillContain
	w.SetContent(view)

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeySpace:
			if p.cursor.Toggle(time.Now()) {
				p.log.Debug().Msg("resumed")
			} else {
				p.log.Debug().Msg("paused")
			}
		case fyne.KeyEscape, fyne.KeyQ:
			w.Close()
		}
	})

	p.cursor.Start(time.Now())

	ticker := time.NewTicker(time.Second / time.Duration(p.opts.FPS))
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fyne.Do(w.Close)
				return
			case <-done:
				return
			case now := <-ticker.C:
				if p.cursor.Done(now) {
					p.log.Info().Msg("show finished")
					fyne.Do(w.Close)
					return
				}
				p.tick(ctx, back, now)
				buf := back
				back, front = front, buf
				fyne.DoAndWait(func() {
					view.Image = buf
					view.Refresh()
				})
			}
		}
	}()

	w.SetOnClosed(func() { close(done) })
	w.ShowAndRun()

	p.textures.Close()
	return ctx.Err()
}

// tick renders one display frame at the cursor position.
func (p *Player) tick(ctx context.Context, dst *image.RGBA, now time.Time) {
	t := p.cursor.Time(now)

	p.mu.Lock()
	cur, next := p.current, p.next
	p.mu.Unlock()

	if cur == nil {
		return
	}

	// Progress is computed against the slot's own entry, not the
	// resolver's answer: during the promotion window the resolver has
	// already moved on while the textures have not.
	progress := 1.0
	if total := cur.Total(); total > 0 {
		progress = (t - cur.Start) / total
	}

	// Negative progress means the cursor wrapped behind the slot's
	// entry (loop mode); promotion handles both directions.
	if progress >= 1 || progress < 0 {
		p.promote(ctx, t)
	}

	state := timeline.ComputeFrame(p.tl.Settings, cur, next, progress, p.textures.Ready(texture.SlotNext))

	curQuad := p.quad(texture.SlotCurrent, cur, state.Current, t)
	nextQuad := p.quad(texture.SlotNext, next, state.Next, t)
	p.comp.Frame(dst, curQuad, nextQuad, t)
}

// promote swaps the slots to the resolver's current answer,
// asynchronously. The render tick keeps drawing the terminal state
// until the swap lands; that window is the terminal-race case of the
// motion state machine.
func (p *Player) promote(ctx context.Context, t float64) {
	p.mu.Lock()
	if p.promoting {
		p.mu.Unlock()
		return
	}
	p.promoting = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.promoting = false
			p.mu.Unlock()
		}()

		cur, next, _ := p.tl.Resolve(t)
		if cur == nil {
			return
		}
		p.mu.Lock()
		already := p.current == cur
		p.mu.Unlock()
		if already {
			return
		}

		if err := p.textures.SetSlots(ctx, cur, next); err != nil {
			p.log.Warn().Err(err).Msg("slot promotion failed")
			return
		}

		p.mu.Lock()
		p.current, p.next = cur, next
		p.mu.Unlock()
	}()
}

func (p *Player) quad(slot texture.Slot, e *timeline.Entry, st timeline.SlotState, t float64) *render.Quad {
	if e == nil || !st.Draw {
		return nil
	}
	tex := p.textures.Texture(slot, e.MediaTime(t))
	if tex == nil {
		return nil
	}
	return &render.Quad{Tex: tex, State: st, Rotation: e.Item.Rotation}
}
