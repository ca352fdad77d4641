// Package notify pushes job completion events to an optional webhook. Events
// are fire-and-forget: delivery failures are logged and never affect the job.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
)

const defaultTimeout = 3 * time.Second

// Event describes a job reaching a terminal state.
type Event struct {
	JobID       string             `json:"job_id"`
	AccountID   string             `json:"account_id"`
	Status      domain.JobStatus   `json:"status"`
	FailureKind domain.FailureKind `json:"failure_kind,omitempty"`
	ArtifactID  string             `json:"artifact_id,omitempty"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// Notifier is the completion sink the pipeline publishes to.
type Notifier interface {
	JobFinished(ctx context.Context, event Event)
}

// Options configures the webhook notifier.
type Options struct {
	URL        string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Webhook posts events as JSON to a configured URL. An empty URL yields a
// notifier that silently drops events.
type Webhook struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(opts Options) *Webhook {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Webhook{
		url:    strings.TrimSpace(opts.URL),
		client: client,
		logger: opts.Logger,
	}
}

// JobFinished delivers the event. Errors are swallowed after logging.
func (w *Webhook) JobFinished(ctx context.Context, event Event) {
	if w == nil || w.url == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error().Err(err).Msg("notify: encode event")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error().Err(err).Msg("notify: build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn().Err(err).Str("job_id", event.JobID).Msg("notify: delivery failed")
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		w.logger.Warn().Int("status", resp.StatusCode).Str("job_id", event.JobID).Msg("notify: delivery rejected")
	}
}

var _ Notifier = (*Webhook)(nil)
