package ledger

import (
	"context"
	"fmt"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
	"adstudio/internal/sqlinline"
)

// PGStore persists balances in PostgreSQL. The debit is a single guarded
// UPDATE so concurrent reservations against one account serialize on the row
// without an explicit transaction.
type PGStore struct {
	sql infra.SQLExecutor
}

// NewPGStore creates a PostgreSQL-backed balance store.
func NewPGStore(sql infra.SQLExecutor) *PGStore {
	return &PGStore{sql: sql}
}

func (s *PGStore) Debit(ctx context.Context, accountID string, cost int) (int, bool, error) {
	var (
		remaining int
		unlimited bool
	)
	row := s.sql.QueryRow(ctx, sqlinline.QReserveTokens, accountID, cost)
	err := row.Scan(&remaining, &unlimited)
	if err == nil {
		return remaining, unlimited, nil
	}
	if !infra.IsNoRows(err) {
		return 0, false, fmt.Errorf("debit: %w", err)
	}

	// The guarded update matched nothing. Look the account up to tell a
	// missing account apart from an uncovered cost.
	if _, getErr := s.Get(ctx, accountID); getErr != nil {
		return 0, false, getErr
	}
	return 0, false, domain.ErrInsufficientCredit
}

func (s *PGStore) Get(ctx context.Context, accountID string) (*domain.TokenAccount, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectAccount, accountID)
	var acct domain.TokenAccount
	err := row.Scan(&acct.ID, &acct.Balance, &acct.Unlimited, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

func (s *PGStore) Ensure(ctx context.Context, accountID string, startingBalance int) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureAccount, accountID, startingBalance); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
