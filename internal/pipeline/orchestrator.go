package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/providers/media"
)

// MediaResult is the downloaded output of one successful generation run.
type MediaResult struct {
	Data []byte
	MIME string
}

// OrchestratorOptions configures the poll loop.
type OrchestratorOptions struct {
	Provider     media.Provider
	Clock        Clock
	PollInterval time.Duration
	MaxPollTries int
	Logger       zerolog.Logger
}

// Orchestrator drives one submitted operation to a terminal state: submit,
// poll on a fixed interval, classify failures, download the asset.
type Orchestrator struct {
	provider media.Provider
	clock    Clock
	interval time.Duration
	maxTries int
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = NewClock()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxTries := opts.MaxPollTries
	if maxTries <= 0 {
		maxTries = 60
	}
	return &Orchestrator{
		provider: opts.Provider,
		clock:    clock,
		interval: interval,
		maxTries: maxTries,
		logger:   opts.Logger,
	}
}

// Run executes one generation to completion. On timeout the remote operation
// is abandoned, not cancelled; the provider has no cancellation API, so the
// handle is logged for manual inspection and the run fails with
// domain.ErrTimeout.
func (o *Orchestrator) Run(ctx context.Context, req media.Request) (*MediaResult, error) {
	handle, err := o.provider.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorization) {
			return nil, err
		}
		return nil, classifyProviderError(err.Error())
	}
	log := o.logger.With().Str("operation", handle.Name).Str("kind", string(req.Kind)).Logger()
	log.Info().Msg("generation submitted")

	for attempt := 1; attempt <= o.maxTries; attempt++ {
		op, err := o.provider.Poll(ctx, handle)
		if err != nil {
			if errors.Is(err, domain.ErrAuthorization) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, classifyProviderError(err.Error())
		}

		if msg := op.TerminalError(); msg != "" {
			log.Warn().Str("provider_error", msg).Msg("generation failed at provider")
			return nil, classifyProviderError(msg)
		}
		if op.Done {
			return o.collect(ctx, op)
		}

		if err := o.clock.Sleep(ctx, o.interval); err != nil {
			return nil, err
		}
	}

	log.Error().Int("attempts", o.maxTries).Msg("generation timed out, abandoning remote operation")
	return nil, fmt.Errorf("%w: operation %s did not settle after %d polls", domain.ErrTimeout, handle.Name, o.maxTries)
}

func (o *Orchestrator) collect(ctx context.Context, op media.Operation) (*MediaResult, error) {
	if len(op.AssetData) > 0 {
		return &MediaResult{Data: op.AssetData, MIME: op.MIME}, nil
	}
	if op.AssetURI == "" {
		return nil, fmt.Errorf("%w: operation completed without an asset", domain.ErrGenerationFailed)
	}
	data, mime, err := o.provider.FetchAsset(ctx, op.AssetURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if op.MIME != "" {
		mime = op.MIME
	}
	return &MediaResult{Data: data, MIME: mime}, nil
}
