package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytbatch/internal/config"
	"ytbatch/internal/constants"
	"ytbatch/internal/history"
	"ytbatch/internal/logger"
	"ytbatch/internal/notify"
	"ytbatch/internal/orchestrator"
	"ytbatch/internal/progress"
	"ytbatch/internal/ratelimit"
	"ytbatch/internal/task"
	"ytbatch/internal/validate"
	"ytbatch/internal/ytdlp"
)

func newRunCmd() *cobra.Command {
	var (
		quality          string
		format           string
		outputDirectory  string
		namingPattern    string
		maxConcurrent    int
		stopOnFirstError bool
		resolveTitles    bool
		notifyOnFinish   bool
	)

	cmd := &cobra.Command{
		Use:   "run <video_id> [video_id...]",
		Short: "Run one batch to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.AppData)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if quality != "" {
				cfg.Update(func(c *config.Config) { c.Defaults.Quality = quality })
			}
			if format != "" {
				cfg.Update(func(c *config.Config) { c.Defaults.Format = format })
			}
			if outputDirectory != "" {
				cfg.Update(func(c *config.Config) { c.Defaults.OutputDirectory = outputDirectory })
			}
			if namingPattern != "" {
				cfg.Update(func(c *config.Config) { c.Defaults.NamingPattern = namingPattern })
			}
			if cmd.Flags().Changed("concurrent") {
				cfg.Update(func(c *config.Config) { c.MaxConcurrent = maxConcurrent })
			}
			if cmd.Flags().Changed("stop-on-first-error") {
				cfg.Update(func(c *config.Config) { c.StopOnFirstError = stopOnFirstError })
			}

			taskCfg, err := cfg.TaskConfig()
			if err != nil {
				return fmt.Errorf("build task config: %w", err)
			}

			client := ytdlp.NewClient(paths.YtDlpPath(), paths.FFmpegPath())
			client.SetAria2Path(paths.Aria2cPath())

			refs, err := resolveRefs(cmd.Context(), client, args, resolveTitles)
			if err != nil {
				return err
			}

			batchCfg := cfg.BatchConfig()
			orch := orchestrator.New(batchCfg, client)

			if notifyOnFinish {
				n := notify.New("")
				orch.Subscribe(n.OnProgress)
			}

			printer := newProgressPrinter()
			orch.Subscribe(printer.OnProgress)

			startedAt := time.Now()
			orch.Add(refs, taskCfg)
			orch.Start()
			orch.Wait()

			summary := orch.Summary()
			printer.printFinal(summary)

			if err := saveHistory(orch, summary, batchCfg, startedAt); err != nil {
				logger.Log.Warn().Err(err).Msg("ytbatch: failed to record batch history")
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&quality, "quality", "", "override default quality (e.g. 1080p)")
	cmd.Flags().StringVar(&format, "format", "", "override default container format")
	cmd.Flags().StringVar(&outputDirectory, "output", "", "override default output directory")
	cmd.Flags().StringVar(&namingPattern, "naming", "", "override default naming pattern")
	cmd.Flags().IntVar(&maxConcurrent, "concurrent", 0, "max concurrent downloads")
	cmd.Flags().BoolVar(&stopOnFirstError, "stop-on-first-error", false, "cancel the batch as soon as one task ends in Failed (non-retryable error or retries exhausted)")
	cmd.Flags().BoolVar(&resolveTitles, "resolve-titles", true, "look up each video's title via yt-dlp before adding it")
	cmd.Flags().BoolVar(&notifyOnFinish, "notify", true, "send a desktop notification when the batch finishes")

	return cmd
}

// resolveRefs builds a VideoRef per video_id. Title lookups are throttled
// with ratelimit.TitleResolutionConfig so a large batch doesn't fire a
// burst of concurrent yt-dlp metadata processes before Add is even called.
func resolveRefs(ctx context.Context, client *ytdlp.Client, videoIDs []string, resolveTitles bool) ([]task.VideoRef, error) {
	limiter := ratelimit.NewLimiter(ratelimit.TitleResolutionConfig())

	refs := make([]task.VideoRef, 0, len(videoIDs))
	for _, id := range videoIDs {
		if err := validate.VideoID(id); err != nil {
			return nil, err
		}

		title := ""
		if resolveTitles {
			limiter.Wait()
			fetchCtx, cancel := context.WithTimeout(ctx, constants.MetadataTimeout)
			resolved, err := client.FetchTitle(fetchCtx, validate.DeriveURL(id))
			cancel()
			if err != nil {
				logger.Log.Warn().Str("video_id", id).Err(err).Msg("ytbatch: title resolution failed, continuing without it")
			} else {
				title = resolved
			}
		}

		ref, err := task.NewVideoRef(id, title)
		if err != nil {
			return nil, fmt.Errorf("invalid video_id %q: %w", id, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// saveHistory opens the history store and records the batch that just
// finished, including its per-task breakdown.
func saveHistory(orch *orchestrator.Orchestrator, summary progress.BatchSummary, cfg orchestrator.BatchConfig, startedAt time.Time) error {
	db, err := history.New(paths.AppData)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := history.NewRepository(db)

	settled := orch.Settled()
	records := make([]history.TaskRecord, len(settled))
	for i, t := range settled {
		records[i] = history.TaskRecordFrom(t)
	}

	return repo.Save("", summary, cfg, startedAt, records)
}
