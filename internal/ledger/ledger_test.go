package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, zerolog.Nop()), store
}

func TestReserveDebitsBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	receipt, err := svc.Reserve(ctx, "acct-1", domain.CostProductVideo)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if receipt.Remaining != 80 {
		t.Fatalf("remaining = %d, want 80", receipt.Remaining)
	}
	if receipt.Unlimited {
		t.Fatal("unexpected unlimited receipt")
	}
}

func TestReserveInsufficientCredit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 3); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	_, err := svc.Reserve(ctx, "acct-1", domain.CostProductImage)
	if !errors.Is(err, domain.ErrInsufficientCredit) {
		t.Fatalf("err = %v, want ErrInsufficientCredit", err)
	}

	// A rejected reservation must leave the balance untouched.
	acct, err := svc.Balance(ctx, "acct-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 3 {
		t.Fatalf("balance = %d, want 3", acct.Balance)
	}
}

func TestReserveUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Reserve(context.Background(), "nope", 5)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReserveUnlimitedBypassesDebit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "admin", 7); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	store.SetUnlimited("admin", true)

	receipt, err := svc.Reserve(ctx, "admin", domain.CostCompositeVideo)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !receipt.Unlimited {
		t.Fatal("expected unlimited receipt")
	}

	acct, err := svc.Balance(ctx, "admin")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 7 {
		t.Fatalf("balance = %d, want 7 (unchanged)", acct.Balance)
	}
}

func TestConcurrentReservesNeverOverdraw(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 50); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(ctx, "acct-1", 5); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("succeeded = %d, want exactly 10", succeeded)
	}
	acct, err := svc.Balance(ctx, "acct-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("balance = %d, want 0", acct.Balance)
	}
}

func TestReserveRejectsNegativeCost(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Ensure(ctx, "acct-1", 10); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.Reserve(ctx, "acct-1", -1); err == nil {
		t.Fatal("expected error for negative cost")
	}
}
