// Package pipeline executes claimed generation jobs: normalize inputs, drive
// the provider operation, assemble the final artifact.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/imaging"
	"adstudio/internal/notify"
	"adstudio/internal/providers/media"
)

// TextGenerator produces the caption or script accompanying the media.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptSanitizer rewrites a prompt into a policy-safe equivalent before it
// is submitted to the provider. Implementations fall back to the original
// prompt when the rewrite fails.
type PromptSanitizer interface {
	Sanitize(ctx context.Context, prompt, locale string) string
}

// BlobStore persists generated assets.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// RunnerOptions wires a Runner.
type RunnerOptions struct {
	Orchestrator *Orchestrator
	Text         TextGenerator
	Sanitizer    PromptSanitizer
	Store        BlobStore
	Artifacts    domain.ArtifactRepository
	Stats        domain.StatsRepository
	Notifier     notify.Notifier
	Logger       zerolog.Logger
}

// Runner processes one claimed job end to end. Media and caption are
// generated concurrently and the artifact is only persisted when both
// succeed; a failure on either side fails the whole job.
type Runner struct {
	orch      *Orchestrator
	text      TextGenerator
	sanitizer PromptSanitizer
	store     BlobStore
	artifacts domain.ArtifactRepository
	stats     domain.StatsRepository
	notifier  notify.Notifier
	logger    zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		orch:      opts.Orchestrator,
		text:      opts.Text,
		sanitizer: opts.Sanitizer,
		store:     opts.Store,
		artifacts: opts.Artifacts,
		stats:     opts.Stats,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
	}
}

// Process runs the job and persists its artifact. The returned error is nil
// only when the artifact was saved; callers record the job's terminal state
// from it. Tokens were settled at submit time and are never refunded here.
func (r *Runner) Process(ctx context.Context, job *domain.Job) (*domain.Artifact, error) {
	artifact, err := r.run(ctx, job)
	r.recordStats(ctx, job, err)
	r.publish(job, artifact, err)
	return artifact, err
}

func (r *Runner) run(ctx context.Context, job *domain.Job) (*domain.Artifact, error) {
	var payload domain.JobPayload
	if err := json.Unmarshal(job.PayloadJSON, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", domain.ErrGenerationFailed, err)
	}

	refs, err := r.normalizeReferences(payload.References)
	if err != nil {
		return nil, err
	}

	log := r.logger.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Logger()

	type textOut struct {
		body string
		err  error
	}
	textCh := make(chan textOut, 1)
	go func() {
		body, err := r.text.Generate(ctx, captionPrompt(payload))
		textCh <- textOut{body: body, err: err}
	}()

	// The prompt is rewritten before it reaches the provider. An empty
	// rewrite keeps the original.
	prompt := payload.Prompt
	if r.sanitizer != nil {
		if s := strings.TrimSpace(r.sanitizer.Sanitize(ctx, payload.Prompt, payload.Locale)); s != "" {
			prompt = s
		}
	}

	result, err := r.generateMedia(ctx, payload, prompt, refs)
	text := <-textCh
	if err != nil {
		return nil, err
	}
	if text.err != nil {
		return nil, fmt.Errorf("%w: caption: %v", domain.ErrGenerationFailed, text.err)
	}

	key := fmt.Sprintf("jobs/%s/media%s", job.ID, extensionFor(result.MIME))
	storedKey, err := r.store.Write(ctx, key, result.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: store media: %v", domain.ErrGenerationFailed, err)
	}

	artifact := &domain.Artifact{
		ID:          uuid.NewString(),
		JobID:       job.ID,
		AccountID:   job.AccountID,
		Kind:        job.Kind,
		PostType:    job.PostType,
		StorageKey:  storedKey,
		MIME:        result.MIME,
		TextBody:    text.body,
		AspectRatio: payload.AspectRatio,
	}
	// Non-square images get an extra 1:1 crop for feed previews. A failure
	// here only loses the preview, not the job.
	if job.Kind == domain.MediaImage && payload.AspectRatio != "1:1" && strings.HasPrefix(result.MIME, "image/jpeg") {
		if square, cropErr := imaging.CropSquare(result.Data); cropErr == nil {
			adaptedKey := fmt.Sprintf("jobs/%s/media_square.jpg", job.ID)
			if stored, writeErr := r.store.Write(ctx, adaptedKey, square); writeErr == nil {
				artifact.AdaptedKey = stored
			}
		} else {
			log.Warn().Err(cropErr).Msg("square adaptation failed")
		}
	}
	if err := r.artifacts.Save(ctx, artifact); err != nil {
		return nil, fmt.Errorf("%w: save artifact: %v", domain.ErrGenerationFailed, err)
	}
	log.Info().Str("artifact_id", artifact.ID).Msg("job completed")
	return artifact, nil
}

// generateMedia drives the provider operation to a terminal state. Policy
// rejections are not retried here; they surface as failures so the caller
// can offer a user-initiated retry.
func (r *Runner) generateMedia(ctx context.Context, payload domain.JobPayload, prompt string, refs []media.Reference) (*MediaResult, error) {
	req := media.Request{
		Kind:            payload.Kind,
		Prompt:          prompt,
		References:      refs,
		AspectRatio:     payload.AspectRatio,
		Resolution:      payload.Resolution,
		DurationSeconds: payload.DurationSeconds,
	}
	return r.orch.Run(ctx, req)
}

func (r *Runner) normalizeReferences(refs []domain.JobReference) ([]media.Reference, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]media.Reference, 0, len(refs))
	for _, ref := range refs {
		data, err := base64.StdEncoding.DecodeString(ref.DataBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: decode reference %q: %v", domain.ErrImageProcessing, ref.Name, err)
		}
		canonical, err := imaging.Normalize(imaging.RawImage{Data: data, MIME: ref.MIME})
		if err != nil {
			return nil, err
		}
		out = append(out, media.Reference{
			Data: canonical.Data,
			MIME: canonical.MIME,
			Role: ref.Role,
		})
	}
	return out, nil
}

func (r *Runner) recordStats(ctx context.Context, job *domain.Job, runErr error) {
	if r.stats == nil {
		return
	}
	delta := domain.DailyStats{Requests: 1}
	if runErr == nil {
		delta.Successes = 1
		switch job.Kind {
		case domain.MediaImage:
			delta.ImagesGenerated = 1
		case domain.MediaVideo:
			delta.VideosGenerated = 1
		case domain.MediaAudio:
			delta.AudioGenerated = 1
		}
	} else {
		delta.Failures = 1
	}
	if err := r.stats.Increment(ctx, delta); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("stats increment failed")
	}
}

func (r *Runner) publish(job *domain.Job, artifact *domain.Artifact, runErr error) {
	if r.notifier == nil {
		return
	}
	event := notify.Event{
		JobID:      job.ID,
		AccountID:  job.AccountID,
		Status:     domain.JobSucceeded,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		event.Status = domain.JobFailed
		event.FailureKind = domain.KindForError(runErr)
	} else if artifact != nil {
		event.ArtifactID = artifact.ID
	}
	// Delivery is detached from the job's context so a finished job is not
	// held open by a slow webhook.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.notifier.JobFinished(ctx, event)
	}()
}

func captionPrompt(p domain.JobPayload) string {
	var b strings.Builder
	switch p.Kind {
	case domain.MediaAudio:
		b.WriteString("Write a short spoken-ad script")
	default:
		b.WriteString("Write a short social media caption")
	}
	if p.ProductName != "" {
		fmt.Fprintf(&b, " for the product %q", p.ProductName)
	}
	if p.ProductDescription != "" {
		fmt.Fprintf(&b, ". Product description: %s", p.ProductDescription)
	}
	if p.MarketingVibe != "" {
		fmt.Fprintf(&b, ". Tone: %s", p.MarketingVibe)
	}
	if p.Locale != "" {
		fmt.Fprintf(&b, ". Answer in locale %s", p.Locale)
	}
	fmt.Fprintf(&b, ". Creative brief: %s", p.Prompt)
	return b.String()
}

func extensionFor(mime string) string {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return ".mp4"
	case mime == "image/png":
		return ".png"
	case strings.HasPrefix(mime, "image/"):
		return ".jpg"
	case strings.HasPrefix(mime, "audio/"):
		return ".mp3"
	default:
		return ".bin"
	}
}
