package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository is the in-memory account store used by tests and the
// standalone dev mode. Records are copied on both reads and writes so
// callers never share memory with the store.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uuid.UUID]*domain.Account),
	}
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return fmt.Errorf("%w: account %s", domain.ErrDuplicate, account.ID)
	}

	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	out := *account
	return &out, nil
}

func (r *AccountRepository) UpdateBalances(_ context.Context, id uuid.UUID, availableCredit, currentBalance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}

	account.AvailableCredit = availableCredit
	account.CurrentBalance = currentBalance
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AccountRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}

	account.Active = active
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AccountRepository) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		out := *account
		result = append(result, &out)
	}
	return result, nil
}
