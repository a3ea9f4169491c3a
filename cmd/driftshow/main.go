package main

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/driftshow/internal/audio"
	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/decoder"
	"github.com/kikiluvv/driftshow/internal/encode"
	"github.com/kikiluvv/driftshow/internal/export"
	"github.com/kikiluvv/driftshow/internal/ffmpeg"
	"github.com/kikiluvv/driftshow/internal/logging"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/player"
	"github.com/kikiluvv/driftshow/internal/system"
	"github.com/kikiluvv/driftshow/internal/texture"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

var (
	cfgFile      string
	verbose      bool
	settingsFile string
	facesFile    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "driftshow",
	Short: "driftshow - slideshow compositing engine",
	Long:  "Builds animated slideshows from photos and video clips: timed transitions, pan/zoom motion, color grades, live playback and H.264 export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./driftshow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "show settings profile (yaml)")
	rootCmd.PersistentFlags().StringVar(&facesFile, "faces", "", "face-box sidecar file (yaml)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(probeCmd)
}

// session is everything a play or export run needs, assembled once.
type session struct {
	cfg      *config.Config
	timeline *timeline.Timeline
	exec     *ffmpeg.Executor
	textures *texture.Manager
	info     system.Info
}

func newSession(ctx context.Context, args []string) (*session, error) {
	cfg := config.FromContext(ctx)

	items, err := media.ScanPaths(args)
	if err != nil {
		return nil, err
	}

	set, err := config.LoadSettings(settingsFile)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	faceFile, err := media.LoadFaceFile(facesFile)
	if err != nil {
		return nil, fmt.Errorf("faces: %w", err)
	}
	faceIndex := make(map[uuid.UUID][]media.FaceBox)
	for _, item := range items {
		faceIndex[item.ID] = faceFile.For(item.Source.Path)
	}

	info := system.Collect(ctx, log.Logger)

	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		if hasVideo(items) {
			return nil, fmt.Errorf("video items need ffmpeg: %w", err)
		}
		log.Warn().Err(err).Msg("ffmpeg unavailable, photo-only mode")
	}

	durations, err := probeDurations(ctx, exec, items, info.DecoderSessions())
	if err != nil {
		return nil, err
	}

	tl := timeline.Build(items, set,
		func(id uuid.UUID) []media.FaceBox { return faceIndex[id] },
		func(item media.Item) (float64, bool) {
			d, ok := durations[item.Source.Path]
			return d, ok && d > 0
		},
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	var extractor decoder.FrameExtractor = noExtractor{}
	if exec != nil {
		extractor = exec
	}
	pool := decoder.NewPool(extractor, info.DecoderSessions(), log.Logger)
	textures := texture.NewManager(pool, log.Logger)

	log.Info().
		Int("items", len(items)).
		Float64("duration", tl.Total).
		Str("style", string(set.Style)).
		Msg("show assembled")

	return &session{
		cfg:      cfg,
		timeline: tl,
		exec:     exec,
		textures: textures,
		info:     info,
	}, nil
}

func hasVideo(items []media.Item) bool {
	for _, item := range items {
		if item.Kind == media.KindVideo {
			return true
		}
	}
	return false
}

// noExtractor backs the decoder pool when ffmpeg is missing. Photo-only
// shows never touch it.
type noExtractor struct{}

func (noExtractor) ExtractFrame(context.Context, string, float64) (*image.RGBA, error) {
	return nil, fmt.Errorf("ffmpeg unavailable")
}

// probeDurations resolves every clip's intrinsic length up front, a few
// ffprobe runs at a time, deduplicated per path. A failed probe is not
// fatal; the clip just falls back to the slide duration.
func probeDurations(ctx context.Context, exec *ffmpeg.Executor, items []media.Item, workers int) (map[string]float64, error) {
	durations := make(map[string]float64)
	if exec == nil {
		return durations, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	seen := make(map[string]bool)
	for _, item := range items {
		if item.Kind != media.KindVideo || seen[item.Source.Path] {
			continue
		}
		seen[item.Source.Path] = true

		path := item.Source.Path
		g.Go(func() error {
			info, err := exec.Probe(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("clip", path).Msg("probe failed, using slide duration")
				return nil
			}
			mu.Lock()
			durations[path] = info.Duration
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return durations, nil
}

func (s *session) tempDir() string {
	if s.cfg.TempDir != "" {
		return s.cfg.TempDir
	}
	return filepath.Join(os.TempDir(), "driftshow")
}

var playCmd = &cobra.Command{
	Use:   "play [photos and videos...]",
	Short: "Play the slideshow in a window",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, _ := cmd.Flags().GetBool("loop")

		s, err := newSession(cmd.Context(), args)
		if err != nil {
			return err
		}

		p := player.New(s.timeline, s.textures, player.Options{
			Width:  s.cfg.Player.Width,
			Height: s.cfg.Player.Height,
			FPS:    s.cfg.Player.FPS,
			Loop:   loop,
			Seed:   time.Now().UnixNano(),
		}, log.Logger)

		return p.Run(cmd.Context())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [photos and videos...]",
	Short: "Render the slideshow to a video file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		presetName, _ := cmd.Flags().GetString("preset")
		fps, _ := cmd.Flags().GetInt("fps")
		useMJPEG, _ := cmd.Flags().GetBool("mjpeg")

		s, err := newSession(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer s.textures.Close()

		if presetName == "" {
			presetName = s.cfg.Export.Preset
		}
		preset, err := config.PresetByName(presetName)
		if err != nil {
			return err
		}
		if fps <= 0 {
			fps = s.cfg.Export.FPS
		}

		if useMJPEG && filepath.Ext(output) != ".avi" {
			return fmt.Errorf("mjpeg fallback writes AVI, use an .avi output path")
		}

		var composer export.AudioComposer
		var muxer export.Muxer
		writer := mjpegWriterFactory()
		if !useMJPEG {
			if s.exec == nil {
				return fmt.Errorf("H.264 export needs ffmpeg, or pass --mjpeg")
			}
			composer = audio.NewComposer(s.exec, log.Logger)
			muxer = s.exec
			writer = sinkWriterFactory(cmd.Context(), s, preset)
		}

		orch := export.NewOrchestrator(s.textures, composer, muxer, log.Logger)

		lastPct := -10
		err = orch.Run(cmd.Context(), s.timeline, export.Options{
			Output:    output,
			Preset:    preset,
			FPS:       fps,
			TempDir:   s.tempDir(),
			Seed:      time.Now().UnixNano(),
			NewWriter: writer,
			ProgressFn: func(p export.Progress) {
				pct := int(p.Fraction * 100)
				if pct >= lastPct+10 || p.Phase != export.PhaseRendering {
					lastPct = pct
					log.Info().
						Str("phase", string(p.Phase)).
						Int("frame", p.Frame).
						Int("total", p.TotalFrames).
						Int("pct", pct).
						Msg("export progress")
				}
			},
		})
		if err != nil {
			return err
		}

		log.Info().Str("output", output).Msg("done")
		return nil
	},
}

func sinkWriterFactory(ctx context.Context, s *session, preset config.Preset) export.WriterFactory {
	return func(path string, w, h, fps int) (encode.FrameWriter, error) {
		return s.exec.StartFrameStream(ctx, ffmpeg.StreamOptions{
			Output:      path,
			Width:       w,
			Height:      h,
			FPS:         fps,
			Encoder:     s.exec.BestEncoder(ctx),
			BitrateKbps: preset.BitrateKbps,
		})
	}
}

func mjpegWriterFactory() export.WriterFactory {
	return func(path string, w, h, fps int) (encode.FrameWriter, error) {
		return encode.NewMJPEGWriter(path, w, h, fps)
	}
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List export presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.Presets() {
			p, _ := config.PresetByName(name)
			fmt.Printf("%-10s %dx%d @ %dkbps\n", p.Name, p.Width, p.Height, p.BitrateKbps)
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Show media metadata as the engine sees it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		info, err := exec.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		log.Info().
			Str("file", info.FilePath).
			Float64("duration", info.Duration).
			Int("width", info.Width).
			Int("height", info.Height).
			Float64("fps", info.FPS).
			Str("video_codec", info.VideoCodec).
			Bool("has_audio", info.HasAudio).
			Str("audio_codec", info.AudioCodec).
			Msg("probe")
		return nil
	},
}

func init() {
	playCmd.Flags().Bool("loop", false, "loop the show until closed")

	exportCmd.Flags().StringP("output", "o", "", "output video path")
	exportCmd.Flags().String("preset", "", "resolution preset (see 'driftshow presets')")
	exportCmd.Flags().Int("fps", 0, "output frame rate")
	exportCmd.Flags().Bool("mjpeg", false, "use the built-in MJPEG encoder (no ffmpeg, no audio)")
	exportCmd.MarkFlagRequired("output")
}
