package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"adstudio/internal/domain"
	"adstudio/internal/middleware"
)

type referenceRequest struct {
	DataBase64 string `json:"data_base64" validate:"required"`
	MIME       string `json:"mime" validate:"required"`
	Name       string `json:"name"`
	Role       string `json:"role" validate:"omitempty,oneof=background asset start_frame"`
}

type generateRequest struct {
	Kind               string             `json:"kind" validate:"required,oneof=image video audio"`
	PostType           string             `json:"post_type" validate:"required,oneof=product content persona composite"`
	Prompt             string             `json:"prompt" validate:"required,min=3"`
	ProductName        string             `json:"product_name"`
	ProductDescription string             `json:"product_description"`
	MarketingVibe      string             `json:"marketing_vibe"`
	References         []referenceRequest `json:"references" validate:"max=4,dive"`
	AspectRatio        string             `json:"aspect_ratio" validate:"omitempty,oneof=1:1 16:9 9:16 4:5"`
	Resolution         string             `json:"resolution"`
	DurationSeconds    int                `json:"duration_seconds" validate:"omitempty,oneof=5 10 15"`
}

type enqueueResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Cost            int    `json:"cost"`
	RemainingTokens int    `json:"remaining_tokens"`
	Unlimited       bool   `json:"unlimited,omitempty"`
}

// GenerationsSubmit reserves tokens and enqueues a generation job. The debit
// happens strictly before the job row exists; an insufficient balance means
// no work is ever dispatched.
func (a *App) GenerationsSubmit(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}

	kind := domain.MediaKind(req.Kind)
	postType := domain.PostType(req.PostType)
	cost := domain.CostFor(kind, postType, req.DurationSeconds)

	if err := a.Ledger.EnsureAccount(r.Context(), accountID, startingBalance); err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("ensure account failed")
		a.error(w, http.StatusInternalServerError, "internal", "account setup failed")
		return
	}
	receipt, err := a.Ledger.Reserve(r.Context(), accountID, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredit) {
			a.error(w, http.StatusPaymentRequired, "insufficient_credit", "token balance does not cover this generation")
			return
		}
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("token reservation failed")
		a.error(w, http.StatusInternalServerError, "internal", "token reservation failed")
		return
	}

	payload := domain.JobPayload{
		Kind:               kind,
		PostType:           postType,
		Prompt:             req.Prompt,
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		MarketingVibe:      req.MarketingVibe,
		AspectRatio:        req.AspectRatio,
		Resolution:         req.Resolution,
		DurationSeconds:    req.DurationSeconds,
		Locale:             middleware.LocaleFromContext(r.Context()),
	}
	for _, ref := range req.References {
		role := domain.ReferenceRole(ref.Role)
		if role == "" {
			role = domain.RoleAsset
		}
		payload.References = append(payload.References, domain.JobReference{
			DataBase64: ref.DataBase64,
			MIME:       ref.MIME,
			Name:       ref.Name,
			Role:       role,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "encode payload failed")
		return
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		PostType:    postType,
		PayloadJSON: raw,
		Cost:        cost,
	}
	if err := a.Jobs.Enqueue(r.Context(), job); err != nil {
		// Tokens are already gone. The ledger is deliberately one-way, so
		// this surfaces as an internal error rather than a rollback.
		a.Logger.Error().Err(err).Str("account_id", accountID).Int("cost", cost).Msg("enqueue failed after debit")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusAccepted, enqueueResponse{
		JobID:           job.ID,
		Status:          string(domain.JobQueued),
		Cost:            cost,
		RemainingTokens: receipt.Remaining,
		Unlimited:       receipt.Unlimited,
	})
}

// JobStatus reports the current state of one job owned by the caller.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetForAccount(r.Context(), jobID, accountID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	resp := map[string]any{
		"id":         job.ID,
		"kind":       job.Kind,
		"post_type":  job.PostType,
		"status":     job.Status,
		"cost":       job.Cost,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.FailureKind != domain.FailureNone {
		resp["failure_kind"] = job.FailureKind
		resp["error_message"] = job.ErrorMessage
		resp["retryable"] = job.FailureKind == domain.FailurePolicy
	}
	if job.RetryOf != "" {
		resp["retry_of"] = job.RetryOf
	}
	a.json(w, http.StatusOK, resp)
}

// JobRetry re-enqueues a failed job. Only policy rejections are retryable;
// the worker sanitizes the prompt before resubmitting. A retry pays full
// price, the original debit is not refunded.
func (a *App) JobRetry(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetForAccount(r.Context(), jobID, accountID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if err := retryEligible(job); err != nil {
		a.error(w, http.StatusConflict, "retry_not_allowed", err.Error())
		return
	}

	receipt, err := a.Ledger.Reserve(r.Context(), accountID, job.Cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredit) {
			a.error(w, http.StatusPaymentRequired, "insufficient_credit", "token balance does not cover this generation")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "token reservation failed")
		return
	}

	retry := &domain.Job{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        job.Kind,
		PostType:    job.PostType,
		PayloadJSON: job.PayloadJSON,
		Cost:        job.Cost,
		RetryOf:     job.ID,
	}
	if err := a.Jobs.Enqueue(r.Context(), retry); err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("retry enqueue failed after debit")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue retry")
		return
	}

	a.json(w, http.StatusAccepted, enqueueResponse{
		JobID:           retry.ID,
		Status:          string(domain.JobQueued),
		Cost:            retry.Cost,
		RemainingTokens: receipt.Remaining,
		Unlimited:       receipt.Unlimited,
	})
}

// retryEligible gates the retry endpoint: only jobs rejected by the safety
// policy may be resubmitted.
func retryEligible(job *domain.Job) error {
	if job.Status != domain.JobFailed || job.FailureKind != domain.FailurePolicy {
		return fmt.Errorf("%w: only safety policy rejections can be retried", domain.ErrRetryNotAllowed)
	}
	return nil
}
