package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"rbxcache/internal/assets"
	"rbxcache/internal/config"
	"rbxcache/internal/constants"
	"rbxcache/internal/fontresolver"
	"rbxcache/internal/history"
	"rbxcache/internal/logger"
	"rbxcache/internal/mediatool"
	"rbxcache/internal/netfetch"
	"rbxcache/internal/orchestrator"
	"rbxcache/internal/scanner"
	"rbxcache/internal/stats"
	"rbxcache/internal/version"
)

var validKinds = map[string]bool{
	constants.KindAudio:       true,
	constants.KindImage:       true,
	constants.KindFont:        true,
	constants.KindVideo:       true,
	constants.KindTranslation: true,
}

func newExtractCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var (
		outputDir   string
		cachePath   string
		progress    bool
		workersFlag int
	)

	cmd := &cobra.Command{
		Use:   "extract <kind>",
		Short: "extract one asset kind from the Roblox client cache",
		Long: "extract scans the resolved cache (SQLite-indexed or flat file tree),\n" +
			"identifies every payload, and writes matches for <kind> into a\n" +
			"categorized output tree. kind is one of: audio, image, font, video, translation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !validKinds[kind] {
				return fmt.Errorf("unknown kind %q (want one of audio, image, font, video, translation)", kind)
			}

			numWorkers := cfg.Worker.NumWorkers
			if workersFlag > 0 {
				numWorkers = workersFlag
			}

			h, err := history.Load(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}

			dbPath, fsPath, candidates := config.ResolveScanTarget(cachePath)
			sc := scanner.New(log, dbPath, fsPath, candidates)

			userAgent := fmt.Sprintf(constants.FontAssetUserAgentFmt, constants.AppName, version.Version)

			engine := &orchestrator.Engine{
				Log:         log,
				Scanner:     sc,
				AudioOGG:    &assets.AudioProcessor{Prober: mediatool.New(cfg.MediaToolPath), Ext: "ogg"},
				AudioMP3:    &assets.AudioProcessor{Prober: mediatool.New(cfg.MediaToolPath), Ext: "mp3"},
				Image:       &assets.ImageProcessor{},
				Translation: &assets.TranslationProcessor{},
				Font:        &assets.FontProcessor{Resolver: buildFontResolver(cfg, log, userAgent)},
				Video:       buildVideoProcessor(cfg, userAgent),
			}

			token := &orchestrator.CancelToken{}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				token.Cancel()
			}()

			var bar *progressbar.ProgressBar
			var sink orchestrator.ProgressSink
			if progress {
				bar = progressbar.NewOptions64(-1,
					progressbar.OptionSetDescription(fmt.Sprintf("extracting %s", kind)),
					progressbar.OptionShowCount(),
				)
				sink = func(ev orchestrator.ProgressEvent) {
					if ev.Total > 0 {
						bar.ChangeMax64(ev.Total)
					}
					bar.Set64(ev.Done)
				}
			}

			classification := classificationFor(cfg, kind)

			report, err := engine.Extract(ctx, kind, orchestrator.Config{
				OutputDir:            outputDir,
				NumWorkers:           numWorkers,
				ParallelModel:        cfg.Worker.ParallelModel,
				ClassificationMethod: classification,
				BlockAvatarImages:    cfg.BlockAvatarImages,
				History:              h,
				Cancel:               token,
				Progress:             sink,
			})
			if bar != nil {
				bar.Finish()
			}
			if errors.Is(err, orchestrator.ErrCancelled) {
				fmt.Println("run was cancelled before any entries were processed")
				return nil
			}
			if err != nil {
				return err
			}

			printReport(kind, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "destination directory for extracted files")
	cmd.Flags().StringVar(&cachePath, "cache-path", "", "override the auto-detected cache location (db file or directory)")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "worker count (0 = use config default)")

	return cmd
}

func classificationFor(cfg *config.Config, kind string) string {
	switch kind {
	case constants.KindAudio:
		return cfg.Classification.Audio
	case constants.KindFont:
		return cfg.Classification.Font
	case constants.KindImage:
		return cfg.Classification.Image
	case constants.KindVideo:
		return cfg.Classification.Video
	case constants.KindTranslation:
		return cfg.Classification.Translation
	default:
		return constants.ClassifyByNone
	}
}

func buildFontResolver(cfg *config.Config, log *logger.Logger, userAgent string) *fontresolver.Resolver {
	r := fontresolver.New(&httpDoer{timeout: constants.NetworkGETTimeout}, log, userAgent)
	r.MaxRetries = cfg.FontResolver.MaxRetries
	r.BaseWait = msToDuration(cfg.FontResolver.RetryBaseWaitMs)
	return r
}

func buildVideoProcessor(cfg *config.Config, userAgent string) *assets.VideoProcessor {
	return &assets.VideoProcessor{
		Fetcher:           netfetch.New(userAgent),
		Tool:              mediatool.New(cfg.MediaToolPath),
		QualityPreference: cfg.Video.QualityPreference,
		TimestampRepair:   cfg.Video.TimestampRepair,
		AutoCleanup:       cfg.Video.AutoCleanup,
		SegmentMaxRetries: cfg.Video.SegmentMaxRetries,
		SegmentRetryWait:  msToDuration(cfg.Video.SegmentRetryWaitMs),
	}
}

func printReport(kind string, r orchestrator.Report) {
	fmt.Printf("\n%s: %d/%d entries in %s\n", kind, r.Done, r.Total, r.Elapsed.Round(1e6))
	if r.Cancelled {
		fmt.Println("run was cancelled before all entries were processed")
	}
	for _, name := range []string{
		stats.ProcessedFiles, stats.DuplicateFiles, stats.AlreadyProcessed, stats.ErrorFiles,
		stats.IgnoredFiles, stats.UnknownFiles, stats.FontlistFound, stats.FontsDownloaded,
		stats.FontsSkippedLocal, stats.DownloadFailures, stats.SegmentsDownloaded,
		stats.MergedVideos, stats.MergeFailures, stats.ProcessedVideos,
	} {
		if v, ok := r.Counts[name]; ok && v > 0 {
			fmt.Printf("  %-20s %d\n", name, v)
		}
	}
}
