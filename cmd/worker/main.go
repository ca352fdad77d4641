package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"adstudio/internal/adapter/repo"
	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/notify"
	"adstudio/internal/pipeline"
	"adstudio/internal/providers/media"
	"adstudio/internal/providers/text"
	"adstudio/internal/storage"
)

const claimInterval = 2 * time.Second

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	textClient, err := text.NewClient(text.Options{
		APIKey:     cfg.GenAPIKey,
		Model:      cfg.TextModel,
		BaseURL:    cfg.GenBaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure text client")
	}
	mediaClient, err := media.NewClient(media.Options{
		APIKey:     cfg.GenAPIKey,
		BaseURL:    cfg.GenBaseURL,
		ImageModel: cfg.ImageModel,
		VideoModel: cfg.VideoModel,
		AudioModel: cfg.AudioModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure media client")
	}

	jobs := repo.NewJobRepository(runner)
	processor := pipeline.NewRunner(pipeline.RunnerOptions{
		Orchestrator: pipeline.NewOrchestrator(pipeline.OrchestratorOptions{
			Provider:     mediaClient,
			PollInterval: cfg.PollInterval,
			MaxPollTries: cfg.MaxPollTries,
			Logger:       logger,
		}),
		Text:      textClient,
		Sanitizer: text.NewSanitizer(textClient, logger),
		Store:     fileStore,
		Artifacts: repo.NewArtifactRepository(runner),
		Stats:     repo.NewStatsRepository(runner),
		Notifier:  notify.NewWebhook(notify.Options{URL: cfg.NotifyWebhook, Logger: logger}),
		Logger:    logger,
	})

	logger.Info().Int("slots", cfg.WorkerSlots).Msg("worker: started")
	runLoop(ctx, logger, jobs, processor, cfg.WorkerSlots)
	logger.Info().Msg("worker: stopped")
}

// runLoop claims queued jobs and processes them on a bounded set of slots.
// The claim statement skips locked rows, so multiple worker processes can
// share one queue.
func runLoop(ctx context.Context, logger infra.Logger, jobs domain.JobRepository, processor *pipeline.Runner, slots int) {
	if slots <= 0 {
		slots = 1
	}
	sem := make(chan struct{}, slots)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		job, err := jobs.Claim(ctx)
		if err != nil {
			<-sem
			if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("worker: claim failed")
			}
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			case <-time.After(claimInterval):
			}
			continue
		}

		wg.Add(1)
		go func(job *domain.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			handle(ctx, logger, jobs, processor, job)
		}(job)
	}
}

func handle(ctx context.Context, logger infra.Logger, jobs domain.JobRepository, processor *pipeline.Runner, job *domain.Job) {
	logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("worker: picked job")

	_, err := processor.Process(ctx, job)
	status := domain.JobSucceeded
	kind := domain.FailureNone
	message := ""
	if err != nil {
		status = domain.JobFailed
		kind = domain.KindForError(err)
		message = err.Error()
		logger.Error().Err(err).Str("job_id", job.ID).Str("failure_kind", string(kind)).Msg("worker: job failed")
	}

	// Record the terminal state even when the run context is gone, so a
	// shutdown mid-job does not leave RUNNING rows behind.
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := jobs.Finish(finishCtx, job.ID, status, kind, message); err != nil {
		logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: update status failed")
	}
}
