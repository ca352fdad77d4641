package ledger

import (
	"context"
	"sync"
	"time"

	"adstudio/internal/domain"
)

// MemoryStore keeps balances in memory. It backs tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.TokenAccount
}

// NewMemoryStore creates an empty in-memory balance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*domain.TokenAccount)}
}

func (s *MemoryStore) Debit(_ context.Context, accountID string, cost int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return 0, false, domain.ErrNotFound
	}
	if acct.Unlimited {
		return acct.Balance, true, nil
	}
	if acct.Balance < cost {
		return 0, false, domain.ErrInsufficientCredit
	}
	acct.Balance -= cost
	acct.UpdatedAt = time.Now()
	return acct.Balance, false, nil
}

func (s *MemoryStore) Get(_ context.Context, accountID string) (*domain.TokenAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *acct
	return &copied, nil
}

func (s *MemoryStore) Ensure(_ context.Context, accountID string, startingBalance int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; ok {
		return nil
	}
	now := time.Now()
	s.accounts[accountID] = &domain.TokenAccount{
		ID:        accountID,
		Balance:   startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// SetUnlimited flags an account as exempt from debits.
func (s *MemoryStore) SetUnlimited(accountID string, unlimited bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		acct.Unlimited = unlimited
	}
}

var _ Store = (*MemoryStore)(nil)
