// Package handlers exposes the HTTP surface of the generation service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/ledger"
	"adstudio/internal/middleware"
)

// TokenLedger is the slice of the ledger the API needs.
type TokenLedger interface {
	Reserve(ctx context.Context, accountID string, cost int) (ledger.Receipt, error)
	Balance(ctx context.Context, accountID string) (*domain.TokenAccount, error)
	EnsureAccount(ctx context.Context, accountID string, startingBalance int) error
}

// BlobReader reads stored artifacts for download.
type BlobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// New accounts start with enough tokens for a handful of runs.
const startingBalance = 100

// App bundles the dependencies the handlers share.
type App struct {
	Jobs      domain.JobRepository
	Artifacts domain.ArtifactRepository
	Stats     domain.StatsRepository
	Ledger    TokenLedger
	Blobs     BlobReader
	Validate  *validator.Validate
	Logger    infra.Logger
	Cfg       *infra.Config
}

// NewApp wires an App with a fresh validator.
func NewApp() *App {
	return &App{Validate: validator.New()}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func (a *App) currentAccountID(r *http.Request) (string, error) {
	if id := middleware.AccountIDFromContext(r.Context()); id != "" {
		return id, nil
	}
	return "", domain.ErrUnauthorized
}

func (a *App) unauthorized(w http.ResponseWriter) {
	a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
}
