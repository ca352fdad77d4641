// Package ledger settles token costs before any generation work is
// dispatched. Debits are final: a failed run does not refund, which keeps the
// ledger monotonic and makes abuse via deliberately failing jobs unprofitable.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
)

// Receipt reports the account state right after a reservation.
type Receipt struct {
	Remaining int
	Unlimited bool
}

// Reserver is the surface job submission depends on.
type Reserver interface {
	Reserve(ctx context.Context, accountID string, cost int) (Receipt, error)
}

// Store abstracts the balance storage behind the service.
type Store interface {
	// Debit subtracts cost from the account's balance atomically. It returns
	// domain.ErrInsufficientCredit when the balance does not cover the cost
	// and domain.ErrNotFound for unknown accounts. Unlimited accounts always
	// succeed without a balance change.
	Debit(ctx context.Context, accountID string, cost int) (remaining int, unlimited bool, err error)
	Get(ctx context.Context, accountID string) (*domain.TokenAccount, error)
	Ensure(ctx context.Context, accountID string, startingBalance int) error
}

// Service applies token accounting policy on top of a Store.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a ledger service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Reserve debits the full cost up front. Callers must only dispatch work
// after a successful reservation; there is no refund path for failed runs.
func (s *Service) Reserve(ctx context.Context, accountID string, cost int) (Receipt, error) {
	if cost < 0 {
		return Receipt{}, fmt.Errorf("negative cost %d", cost)
	}
	remaining, unlimited, err := s.store.Debit(ctx, accountID, cost)
	if err != nil {
		return Receipt{}, err
	}
	s.logger.Info().
		Str("account_id", accountID).
		Int("cost", cost).
		Int("remaining", remaining).
		Bool("unlimited", unlimited).
		Msg("tokens reserved")
	return Receipt{Remaining: remaining, Unlimited: unlimited}, nil
}

// Balance reads the current account state without mutating it.
func (s *Service) Balance(ctx context.Context, accountID string) (*domain.TokenAccount, error) {
	return s.store.Get(ctx, accountID)
}

// EnsureAccount creates the account with a starting balance when it does not
// exist yet. Existing accounts are left untouched.
func (s *Service) EnsureAccount(ctx context.Context, accountID string, startingBalance int) error {
	return s.store.Ensure(ctx, accountID, startingBalance)
}

var _ Reserver = (*Service)(nil)
