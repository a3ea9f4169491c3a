package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/encode"
	"github.com/kikiluvv/driftshow/internal/render"
	"github.com/kikiluvv/driftshow/internal/texture"
	"github.com/kikiluvv/driftshow/internal/timeline"
	"github.com/kikiluvv/driftshow/pkg/util"
)

// ErrCancelled is returned when the export stops on the caller's
// cancellation rather than a failure.
var ErrCancelled = errors.New("export cancelled")

// Phase is the orchestrator's externally visible state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePreparing Phase = "preparing"
	PhaseRendering Phase = "rendering-frames"
	PhaseAudio     Phase = "composing-audio"
	PhaseFinalize  Phase = "finalizing"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

// Progress is reported once per frame and at each phase change. The
// fraction is monotonic across phases; frame rendering dominates the
// weighting.
type Progress struct {
	Phase       Phase
	Frame       int
	TotalFrames int
	Fraction    float64
}

const (
	weightRender = 0.85
	weightAudio  = 0.95
)

// AudioComposer mixes the export audio track. ok=false means the
// settings call for no audio and nothing was written.
type AudioComposer interface {
	Compose(ctx context.Context, tl *timeline.Timeline, output string) (ok bool, err error)
}

// Muxer combines the rendered video and mixed audio into the final
// container. ffmpeg.Executor satisfies it.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, output string) error
}

// WriterFactory opens the frame writer for the render phase.
type WriterFactory func(path string, width, height, fps int) (encode.FrameWriter, error)

// Options configures one export run.
type Options struct {
	Output     string
	Preset     config.Preset
	FPS        int
	TempDir    string
	Seed       int64
	NewWriter  WriterFactory
	ProgressFn func(Progress)
}

// Orchestrator drives a full export: a sequential frame loop feeding
// the encoder, then audio composition, then the mux. Time is derived
// from the frame index, never from the wall clock, so export cannot
// race slot promotion the way live playback can.
type Orchestrator struct {
	textures *texture.Manager
	composer AudioComposer
	muxer    Muxer
	log      zerolog.Logger

	mu    sync.Mutex
	phase Phase
}

func NewOrchestrator(textures *texture.Manager, composer AudioComposer, muxer Muxer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		textures: textures,
		composer: composer,
		muxer:    muxer,
		log:      logger.With().Str("component", "export").Logger(),
		phase:    PhaseIdle,
	}
}

// Phase returns the current state, safe from any goroutine.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) report(opts Options, p Progress) {
	if opts.ProgressFn != nil {
		opts.ProgressFn(p)
	}
}

// Run exports the timeline to opts.Output. On cancellation no file is
// left at the target path and the error is ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context, tl *timeline.Timeline, opts Options) error {
	o.setPhase(PhasePreparing)
	o.report(opts, Progress{Phase: PhasePreparing})

	if opts.Output == "" {
		return o.fail(fmt.Errorf("output path is required"))
	}
	if opts.FPS <= 0 || opts.NewWriter == nil {
		return o.fail(fmt.Errorf("frame rate and writer are required"))
	}
	if len(tl.Entries) == 0 {
		return o.fail(fmt.Errorf("timeline is empty"))
	}
	if err := util.EnsureDir(opts.TempDir); err != nil {
		return o.fail(fmt.Errorf("temp dir: %w", err))
	}

	videoTmp := filepath.Join(opts.TempDir, "driftshow-video"+filepath.Ext(opts.Output))
	audioTmp := filepath.Join(opts.TempDir, "driftshow-audio.m4a")
	cleanup := func() {
		util.CleanupFiles(videoTmp, audioTmp)
	}
	defer cleanup()

	totalFrames := int(math.Ceil(tl.Total * float64(opts.FPS)))

	o.log.Info().
		Str("output", opts.Output).
		Str("preset", opts.Preset.Name).
		Int("frames", totalFrames).
		Float64("duration", tl.Total).
		Msg("starting export")

	if err := o.renderFrames(ctx, tl, opts, videoTmp, totalFrames); err != nil {
		return err
	}

	o.setPhase(PhaseAudio)
	o.report(opts, Progress{Phase: PhaseAudio, Frame: totalFrames, TotalFrames: totalFrames, Fraction: weightRender})

	hasAudio := false
	if o.composer != nil {
		ok, err := o.composer.Compose(ctx, tl, audioTmp)
		if err != nil {
			if ctx.Err() != nil {
				return o.cancel(opts)
			}
			// Degrade to a silent export rather than losing the render.
			o.log.Warn().Err(err).Msg("audio composition failed, exporting without audio")
		}
		hasAudio = ok && err == nil
	}

	o.setPhase(PhaseFinalize)
	o.report(opts, Progress{Phase: PhaseFinalize, Frame: totalFrames, TotalFrames: totalFrames, Fraction: weightAudio})

	if err := o.finalize(ctx, videoTmp, audioTmp, hasAudio, opts); err != nil {
		// The muxer may have created the target before erroring; a
		// failed export must not leave a partial file there.
		os.Remove(opts.Output)
		if ctx.Err() != nil {
			return o.cancel(opts)
		}
		return o.fail(err)
	}

	o.setPhase(PhaseCompleted)
	o.report(opts, Progress{Phase: PhaseCompleted, Frame: totalFrames, TotalFrames: totalFrames, Fraction: 1})
	o.log.Info().Str("output", opts.Output).Msg("export complete")
	return nil
}

// renderFrames runs the sequential frame loop, polling for
// cancellation before every frame.
func (o *Orchestrator) renderFrames(ctx context.Context, tl *timeline.Timeline, opts Options, videoTmp string, totalFrames int) error {
	width, height := opts.Preset.Width, opts.Preset.Height

	writer, err := opts.NewWriter(videoTmp, width, height, opts.FPS)
	if err != nil {
		return o.fail(fmt.Errorf("open encoder: %w", err))
	}

	comp := render.New(tl.Settings, width, height, opts.Seed)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	o.setPhase(PhaseRendering)

	for frame := 0; frame < totalFrames; frame++ {
		if ctx.Err() != nil {
			writer.Abort()
			return o.cancel(opts)
		}

		t := float64(frame) / float64(opts.FPS)
		cur, next, progress := tl.Resolve(t)
		state := timeline.ComputeFrame(tl.Settings, cur, next, progress, true)

		if err := o.textures.SetSlots(ctx, cur, next); err != nil {
			writer.Abort()
			if ctx.Err() != nil {
				return o.cancel(opts)
			}
			return o.fail(fmt.Errorf("texture slots at frame %d: %w", frame, err))
		}

		curQuad := o.quad(ctx, texture.SlotCurrent, cur, state.Current, t)
		nextQuad := o.quad(ctx, texture.SlotNext, next, state.Next, t)

		comp.Frame(dst, curQuad, nextQuad, t)

		if err := writer.WriteFrame(dst); err != nil {
			writer.Abort()
			return o.fail(fmt.Errorf("write frame %d: %w", frame, err))
		}

		o.report(opts, Progress{
			Phase:       PhaseRendering,
			Frame:       frame + 1,
			TotalFrames: totalFrames,
			Fraction:    weightRender * float64(frame+1) / float64(totalFrames),
		})
	}

	if err := writer.Close(); err != nil {
		return o.fail(fmt.Errorf("finish encoder: %w", err))
	}
	return nil
}

// quad fetches the exact texture for one slot. Export blocks on the
// decoder for frame accuracy; if a fetch still fails the slot's last
// good frame stands in.
func (o *Orchestrator) quad(ctx context.Context, slot texture.Slot, e *timeline.Entry, st timeline.SlotState, t float64) *render.Quad {
	if e == nil || !st.Draw {
		return nil
	}

	mt := e.MediaTime(t)

	var tex *image.RGBA
	if src := o.textures.Source(slot); src != nil {
		var err error
		tex, err = src.Fetch(ctx, mt)
		if err != nil {
			o.log.Warn().Err(err).Float64("t", t).Msg("frame fetch failed, reusing last texture")
			tex = o.textures.Texture(slot, mt)
		}
	}
	if tex == nil {
		return nil
	}

	return &render.Quad{Tex: tex, State: st, Rotation: e.Item.Rotation}
}

func (o *Orchestrator) finalize(ctx context.Context, videoTmp, audioTmp string, hasAudio bool, opts Options) error {
	if hasAudio {
		if o.muxer == nil {
			return fmt.Errorf("audio composed but no muxer configured")
		}
		return o.muxer.Mux(ctx, videoTmp, audioTmp, opts.Output)
	}
	return moveFile(videoTmp, opts.Output)
}

func (o *Orchestrator) fail(err error) error {
	o.setPhase(PhaseFailed)
	o.log.Error().Err(err).Msg("export failed")
	return err
}

// cancel discards anything already written to the target path so a
// cancelled export leaves no partial output behind.
func (o *Orchestrator) cancel(opts Options) error {
	os.Remove(opts.Output)
	o.setPhase(PhaseCancelled)
	o.log.Info().Msg("export cancelled")
	return ErrCancelled
}

// moveFile renames, falling back to copy across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
