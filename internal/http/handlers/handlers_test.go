package handlers

import (
	archivezip "archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/ledger"
	"adstudio/internal/middleware"
)

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job)}
}

func (m *memJobs) Enqueue(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = domain.JobQueued
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobs) GetForAccount(_ context.Context, id, accountID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok && job.AccountID == accountID {
		copied := *job
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobs) Claim(_ context.Context) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}

func (m *memJobs) Finish(_ context.Context, id string, status domain.JobStatus, kind domain.FailureKind, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.FailureKind = kind
	job.ErrorMessage = errMsg
	job.UpdatedAt = time.Now()
	return nil
}

type memArtifactsRepo struct {
	mu    sync.Mutex
	items []domain.Artifact
}

func (m *memArtifactsRepo) Save(_ context.Context, a *domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = time.Now()
	m.items = append(m.items, *a)
	return nil
}

func (m *memArtifactsRepo) GetForAccount(_ context.Context, id, accountID string) (*domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].AccountID == accountID {
			a := m.items[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memArtifactsRepo) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Artifact
	for _, a := range m.items {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memBlobs struct {
	blobs map[string][]byte
}

func (m *memBlobs) Read(_ context.Context, key string) ([]byte, error) {
	if data, ok := m.blobs[key]; ok {
		return data, nil
	}
	return nil, domain.ErrNotFound
}

type memStatsRepo struct{}

func (memStatsRepo) Increment(context.Context, domain.DailyStats) error { return nil }

func (memStatsRepo) Summary(context.Context, int) (*domain.DailyStats, error) {
	return &domain.DailyStats{Requests: 12, Successes: 10, Failures: 2, VideosGenerated: 4}, nil
}

func newTestApp(t *testing.T) (*App, *memJobs, *memArtifactsRepo, *ledger.MemoryStore, *memBlobs) {
	t.Helper()
	store := ledger.NewMemoryStore()
	jobs := newMemJobs()
	artifacts := &memArtifactsRepo{}
	blobs := &memBlobs{blobs: make(map[string][]byte)}
	app := &App{
		Jobs:      jobs,
		Artifacts: artifacts,
		Stats:     memStatsRepo{},
		Ledger:    ledger.NewService(store, zerolog.Nop()),
		Blobs:     blobs,
		Validate:  validator.New(),
		Logger:    zerolog.Nop(),
	}
	return app, jobs, artifacts, store, blobs
}

func authed(r *http.Request, accountID string) *http.Request {
	return r.WithContext(middleware.ContextWithAccountID(r.Context(), accountID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGenerationsSubmitQueuesJob(t *testing.T) {
	app, jobs, _, _, _ := newTestApp(t)

	body, _ := json.Marshal(map[string]any{
		"kind":             "video",
		"post_type":        "product",
		"prompt":           "a sparkling water ad on a beach",
		"duration_seconds": 10,
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/generations", bytes.NewReader(body)), "acct-1")
	rec := httptest.NewRecorder()
	app.GenerationsSubmit(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp enqueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Cost != 35 {
		t.Fatalf("cost = %d, want 35 for a 10s video", resp.Cost)
	}
	if resp.RemainingTokens != startingBalance-35 {
		t.Fatalf("remaining = %d, want %d", resp.RemainingTokens, startingBalance-35)
	}
	job, err := jobs.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not queued: %v", err)
	}
	if job.Status != domain.JobQueued || job.Kind != domain.MediaVideo {
		t.Fatalf("job = %+v", job)
	}
}

func TestGenerationsSubmitInsufficientCredit(t *testing.T) {
	app, jobs, _, store, _ := newTestApp(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 2); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"kind":      "image",
		"post_type": "product",
		"prompt":    "a bottle",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/generations", bytes.NewReader(body)), "acct-1")
	rec := httptest.NewRecorder()
	app.GenerationsSubmit(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	if len(jobs.jobs) != 0 {
		t.Fatal("no job may be queued when the reservation fails")
	}
	acct, err := store.Get(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Balance != 2 {
		t.Fatalf("balance = %d, want untouched 2", acct.Balance)
	}
}

func TestGenerationsSubmitValidation(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	body, _ := json.Marshal(map[string]any{"kind": "hologram", "post_type": "product", "prompt": "x"})
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/generations", bytes.NewReader(body)), "acct-1")
	rec := httptest.NewRecorder()
	app.GenerationsSubmit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerationsSubmitUnauthenticated(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/generations", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	app.GenerationsSubmit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJobStatusReportsFailureKind(t *testing.T) {
	app, jobs, _, _, _ := newTestApp(t)
	ctx := context.Background()
	job := &domain.Job{ID: "job-1", AccountID: "acct-1", Kind: domain.MediaVideo, PostType: domain.PostProduct, Cost: 20}
	if err := jobs.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := jobs.Finish(ctx, "job-1", domain.JobFailed, domain.FailurePolicy, "blocked"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil), "acct-1")
	req = withURLParam(req, "job_id", "job-1")
	rec := httptest.NewRecorder()
	app.JobStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["failure_kind"] != "policy_violation" {
		t.Fatalf("failure_kind = %v", resp["failure_kind"])
	}
	if resp["retryable"] != true {
		t.Fatalf("retryable = %v", resp["retryable"])
	}
}

func TestJobStatusForeignJobIsNotFound(t *testing.T) {
	app, jobs, _, _, _ := newTestApp(t)
	job := &domain.Job{ID: "job-1", AccountID: "acct-other", Kind: domain.MediaImage}
	if err := jobs.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil), "acct-1")
	req = withURLParam(req, "job_id", "job-1")
	rec := httptest.NewRecorder()
	app.JobStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobRetryOnlyForPolicyFailures(t *testing.T) {
	app, jobs, _, store, _ := newTestApp(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	timeout := &domain.Job{ID: "job-t", AccountID: "acct-1", Kind: domain.MediaVideo, Cost: 20}
	if err := jobs.Enqueue(ctx, timeout); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := jobs.Finish(ctx, "job-t", domain.JobFailed, domain.FailureTimeout, "timed out"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/jobs/job-t/retry", nil), "acct-1")
	req = withURLParam(req, "job_id", "job-t")
	rec := httptest.NewRecorder()
	app.JobRetry(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for non-policy failure", rec.Code)
	}
}

func TestRetryEligibility(t *testing.T) {
	timeout := &domain.Job{Status: domain.JobFailed, FailureKind: domain.FailureTimeout}
	if err := retryEligible(timeout); !errors.Is(err, domain.ErrRetryNotAllowed) {
		t.Fatalf("err = %v, want ErrRetryNotAllowed", err)
	}
	running := &domain.Job{Status: domain.JobRunning}
	if err := retryEligible(running); !errors.Is(err, domain.ErrRetryNotAllowed) {
		t.Fatalf("err = %v, want ErrRetryNotAllowed", err)
	}
	policy := &domain.Job{Status: domain.JobFailed, FailureKind: domain.FailurePolicy}
	if err := retryEligible(policy); err != nil {
		t.Fatalf("err = %v, want nil for policy failure", err)
	}
}

func TestCurrentAccountIDWithoutAuth(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/account/balance", nil)
	if _, err := app.currentAccountID(req); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestJobRetryDebitsAgain(t *testing.T) {
	app, jobs, _, store, _ := newTestApp(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	failed := &domain.Job{ID: "job-p", AccountID: "acct-1", Kind: domain.MediaVideo, PostType: domain.PostProduct, Cost: 20, PayloadJSON: []byte(`{"kind":"video","prompt":"p"}`)}
	if err := jobs.Enqueue(ctx, failed); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := jobs.Finish(ctx, "job-p", domain.JobFailed, domain.FailurePolicy, "blocked"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/jobs/job-p/retry", nil), "acct-1")
	req = withURLParam(req, "job_id", "job-p")
	rec := httptest.NewRecorder()
	app.JobRetry(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp enqueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RemainingTokens != 80 {
		t.Fatalf("remaining = %d, want 80 (second debit, no refund)", resp.RemainingTokens)
	}
	retry, err := jobs.GetByID(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("retry job missing: %v", err)
	}
	if retry.RetryOf != "job-p" {
		t.Fatalf("retry_of = %q", retry.RetryOf)
	}
}

func TestAccountBalanceBootstrapsAccount(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/account/balance", nil), "acct-new")
	rec := httptest.NewRecorder()
	app.AccountBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["balance"].(float64) != startingBalance {
		t.Fatalf("balance = %v, want %d", resp["balance"], startingBalance)
	}
}

func TestArtifactDownload(t *testing.T) {
	app, _, artifacts, _, blobs := newTestApp(t)
	ctx := context.Background()
	artifact := &domain.Artifact{ID: "art-1", JobID: "job-1", AccountID: "acct-1", Kind: domain.MediaVideo, StorageKey: "jobs/job-1/media.mp4", MIME: "video/mp4"}
	if err := artifacts.Save(ctx, artifact); err != nil {
		t.Fatalf("save: %v", err)
	}
	blobs.blobs["jobs/job-1/media.mp4"] = []byte("mp4-bytes")

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/artifacts/art-1/download", nil), "acct-1")
	req = withURLParam(req, "artifact_id", "art-1")
	rec := httptest.NewRecorder()
	app.ArtifactDownload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("content-type = %q", got)
	}
	if rec.Body.String() != "mp4-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestArtifactBundleContainsMediaAndCaption(t *testing.T) {
	app, _, artifacts, _, blobs := newTestApp(t)
	ctx := context.Background()
	artifact := &domain.Artifact{ID: "art-1", JobID: "job-1", AccountID: "acct-1", Kind: domain.MediaImage, StorageKey: "jobs/job-1/media.jpg", MIME: "image/jpeg", TextBody: "a caption"}
	if err := artifacts.Save(ctx, artifact); err != nil {
		t.Fatalf("save: %v", err)
	}
	blobs.blobs["jobs/job-1/media.jpg"] = []byte("jpeg-bytes")

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/artifacts/art-1/bundle", nil), "acct-1")
	req = withURLParam(req, "artifact_id", "art-1")
	rec := httptest.NewRecorder()
	app.ArtifactBundle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content-type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "adstudio_art-1.zip") {
		t.Fatalf("content-disposition = %q", got)
	}
	zr, err := archivezip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["media.jpg"] || !names["caption.txt"] {
		t.Fatalf("zip entries = %v", names)
	}
}

func TestHistoryScopedToAccount(t *testing.T) {
	app, _, artifacts, _, _ := newTestApp(t)
	ctx := context.Background()
	for _, a := range []*domain.Artifact{
		{ID: "a1", AccountID: "acct-1", Kind: domain.MediaImage, TextBody: "c1"},
		{ID: "a2", AccountID: "acct-2", Kind: domain.MediaImage, TextBody: "c2"},
		{ID: "a3", AccountID: "acct-1", Kind: domain.MediaVideo, TextBody: "c3"},
	} {
		if err := artifacts.Save(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/history", nil), "acct-1")
	rec := httptest.NewRecorder()
	app.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
}

func TestStatsSummary(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats/summary", nil)
	rec := httptest.NewRecorder()
	app.StatsSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["requests"].(float64) != 12 {
		t.Fatalf("requests = %v", resp["requests"])
	}
}
