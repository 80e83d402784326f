package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanatv/hanatv/internal/config"
	"github.com/hanatv/hanatv/internal/database"
	"github.com/hanatv/hanatv/internal/edcb"
	"github.com/hanatv/hanatv/internal/ffmpeg"
	"github.com/hanatv/hanatv/internal/httpapi"
	"github.com/hanatv/hanatv/internal/iolimiter"
	"github.com/hanatv/hanatv/internal/liveencoder"
	"github.com/hanatv/hanatv/internal/livestream"
	"github.com/hanatv/hanatv/internal/metadata"
	"github.com/hanatv/hanatv/internal/observability"
	"github.com/hanatv/hanatv/internal/repository"
	"github.com/hanatv/hanatv/internal/scanner"
	"github.com/hanatv/hanatv/internal/scheduler"
	"github.com/hanatv/hanatv/internal/startup"
	"github.com/hanatv/hanatv/internal/tuner"
	"github.com/hanatv/hanatv/internal/util"
	"github.com/hanatv/hanatv/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hanatv server",
	Long: `Start hanatv's HTTP server: live LL-HLS/mpegts streaming, recorded-video
HLS playback, EPG refresh, and recorded-file scanning all run from this one
process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if err := resolveFFmpegPaths(ctx, &cfg.FFmpeg, logger); err != nil {
		return fmt.Errorf("resolving ffmpeg installation: %w", err)
	}

	if removed, err := startup.CleanupOrphanedTempDirs(logger, cfg.Storage.TempDir, startup.DefaultCleanupAge); err != nil {
		logger.Warn("temp directory cleanup failed", slog.String("error", err.Error()))
	} else if removed > 0 {
		logger.Info("cleaned up orphaned temp directories", slog.Int("count", removed))
	}

	liveencoder.AddFullHDChannels(cfg.Live.FullHDChannels)

	encoderKind, encoderPath, err := liveencoder.SelectEncoder(cfg.FFmpeg.HWAccelPriority, map[liveencoder.EncoderKind]string{
		liveencoder.EncoderFFmpeg:   cfg.FFmpeg.BinaryPath,
		liveencoder.EncoderQSVEncC:  cfg.FFmpeg.QSVEncCPath,
		liveencoder.EncoderNVEncC:   cfg.FFmpeg.NVEncCPath,
		liveencoder.EncoderVCEEncC:  cfg.FFmpeg.VCEEncCPath,
		liveencoder.EncoderRkmppenc: cfg.FFmpeg.RkmppencPath,
	})
	if err != nil {
		return fmt.Errorf("selecting encoder backend: %w", err)
	}
	logger.Info("selected encoder backend", slog.String("kind", string(encoderKind)), slog.String("path", encoderPath))

	channelRepo := repository.NewChannelRepository(db.DB)
	programRepo := repository.NewProgramRepository(db.DB)
	recordedVideoRepo := repository.NewRecordedVideoRepository(db.DB)
	recordedProgramRepo := repository.NewRecordedProgramRepository(db.DB)

	backendClient, err := newBackendClient(cfg.Backend)
	if err != nil {
		return fmt.Errorf("configuring backend client: %w", err)
	}

	tunerRegistry := tuner.NewRegistry(backendClient, cfg.Backend.TunerOpenRetry)
	streamRegistry := livestream.NewRegistry()

	sched := scheduler.New(
		cfg.Scheduler.EPGRefreshCron,
		cfg.Scheduler.ProgramGCCron,
		scheduler.NewEPGRefresher(backendClient, channelRepo, programRepo).Refresh,
		scheduler.NewProgramGC(programRepo, cfg.Scheduler.ProgramGCRetention, logger).Run,
		logger,
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if err := sched.RunEPGRefreshNow(ctx); err != nil {
		logger.Warn("initial EPG refresh failed", slog.String("error", err.Error()))
	}

	ioLimiter := iolimiter.New(cfg.Scan.Concurrency)
	analyzer := metadata.NewAnalyzer(cfg.FFmpeg.ProbePath)

	recordedScanner := scanner.New(cfg.Storage.RecordedRoots, cfg.Scan, func(scanCtx context.Context, path string) error {
		return processRecording(scanCtx, analyzer, ioLimiter, recordedVideoRepo, recordedProgramRepo, path)
	}, logger)

	go func() {
		if err := recordedScanner.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("recorded-file scanner stopped", slog.String("error", err.Error()))
		}
	}()

	deps := &httpapi.Deps{
		Logger:         logger,
		Streams:        streamRegistry,
		Tuners:         tunerRegistry,
		Channels:       channelRepo,
		RecordedVideos: recordedVideoRepo,
		Live:           cfg.Live,
		FFmpeg:         cfg.FFmpeg,
		Recorded:       cfg.Recorded,
		Encoder:        encoderKind,
		EncoderPath:    encoderPath,
	}
	server := httpapi.NewServer(cfg.Server, logger, httpapi.NewHandlers(deps))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting hanatv server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("version", version.Short()),
	)

	return server.ListenAndServe(ctx)
}

// resolveFFmpegPaths fills in any of FFmpeg.BinaryPath/ProbePath/TsreadexPath
// left empty by the operator ("empty = auto-detect", per config.FFmpegConfig's
// doc comments) using internal/ffmpeg's binary detector and logs the
// detected hardware-acceleration capability FFmpeg itself reports.
func resolveFFmpegPaths(ctx context.Context, cfg *config.FFmpegConfig, logger *slog.Logger) error {
	if cfg.BinaryPath == "" || cfg.ProbePath == "" {
		info, err := ffmpeg.NewBinaryDetector().Detect(ctx)
		if err != nil {
			return fmt.Errorf("detecting ffmpeg/ffprobe: %w", err)
		}
		if cfg.BinaryPath == "" {
			cfg.BinaryPath = info.FFmpegPath
		}
		if cfg.ProbePath == "" {
			cfg.ProbePath = info.FFprobePath
		}
		logger.Info("detected ffmpeg installation",
			slog.String("version", info.Version),
			slog.String("ffmpeg_path", info.FFmpegPath),
			slog.String("ffprobe_path", info.FFprobePath),
		)
		if rec := ffmpeg.GetRecommendedHWAccel(info.HWAccels); rec != nil {
			logger.Info("ffmpeg-reported hardware acceleration available",
				slog.String("type", string(rec.Type)), slog.String("device", rec.DeviceName))
		}
		if !info.SupportsMinVersion(4, 0) {
			logger.Warn("ffmpeg build predates the minimum version this project is tested against",
				slog.String("version", info.Version))
		}
		for _, codec := range []string{"libx264", "libx265", "aac"} {
			if !info.HasEncoder(codec) {
				logger.Warn("software encoder missing from detected ffmpeg build; liveencoder will fail to start sessions that require it",
					slog.String("codec", codec))
			}
		}
		if !info.HasFormat("mpegts") {
			logger.Warn("detected ffmpeg build cannot mux mpegts, which every liveencoder profile requires")
		}
	}

	if cfg.TsreadexPath == "" || cfg.TsreadexPath == "tsreadex" {
		if p, err := util.FindBinary("tsreadex", "HANATV_TSREADEX_BINARY"); err == nil {
			cfg.TsreadexPath = p
		}
	}

	return nil
}

// newBackendClient builds the recorder-daemon RPC client for cfg. Only the
// EDCB binary-protocol backend of spec.md §4.A is implemented; the thinner
// HTTP-based alternative backend spec.md mentions as an external
// collaborator has no wire contract specified beyond its existence, so
// selecting it here fails fast instead of guessing a protocol.
func newBackendClient(cfg config.BackendConfig) (*edcb.Client, error) {
	switch cfg.Type {
	case "edcb", "":
		var dialer edcb.Dialer
		if cfg.Host != "" {
			dialer = edcb.TCPDialer{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)}
		} else {
			dialer = edcb.UnixDialer{Path: cfg.SocketPath}
		}
		client := edcb.NewClient(dialer)
		if cfg.ConnectTimeout > 0 {
			client.Timeout = cfg.ConnectTimeout
		}
		return client, nil
	default:
		return nil, fmt.Errorf("backend type %q is not implemented", cfg.Type)
	}
}

// processRecording is the internal/scanner.Processor closure: it runs the
// metadata analyzer under the drive I/O limiter for path's backing device,
// then persists the resulting RecordedVideo/RecordedProgram pair,
// deduplicating by content hash per spec.md §4.K.
func processRecording(
	ctx context.Context,
	analyzer *metadata.Analyzer,
	limiter *iolimiter.Limiter,
	videoRepo repository.RecordedVideoRepository,
	programRepo repository.RecordedProgramRepository,
	path string,
) error {
	release, err := limiter.AcquireForPath(ctx, path)
	if err != nil {
		return fmt.Errorf("acquiring drive permit for %s: %w", path, err)
	}
	defer release()

	result, err := analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		return err
	}

	if result.Video.FileHash != "" {
		if existing, err := videoRepo.GetByFileHash(ctx, result.Video.FileHash); err == nil && existing != nil {
			return nil
		}
	}

	if existing, err := videoRepo.GetByFilePath(ctx, path); err == nil && existing != nil {
		return nil
	}

	if err := videoRepo.Create(ctx, result.Video); err != nil {
		return fmt.Errorf("saving recorded video for %s: %w", path, err)
	}

	if result.Program != nil {
		result.Program.RecordedVideoID = result.Video.ID
		if err := programRepo.Create(ctx, result.Program); err != nil {
			return fmt.Errorf("saving recorded program for %s: %w", path, err)
		}
	}

	return nil
}
