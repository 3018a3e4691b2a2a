package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
)

// TransactionRepository is the in-memory transaction store.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[uuid.UUID]*domain.Transaction),
	}
}

func (r *TransactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; exists {
		return fmt.Errorf("%w: transaction %s", domain.ErrDuplicate, tx.ID)
	}

	stored := *tx
	r.transactions[tx.ID] = &stored
	return nil
}

func (r *TransactionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[id]
	if !exists {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	out := *tx
	return &out, nil
}

func (r *TransactionRepository) Update(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; !exists {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, tx.ID)
	}

	stored := *tx
	r.transactions[tx.ID] = &stored
	return nil
}

func (r *TransactionRepository) List(_ context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error) {
	r.mu.RLock()
	matched := make([]*domain.Transaction, 0)
	for _, tx := range r.transactions {
		if !matches(tx, filter) {
			continue
		}
		out := *tx
		matched = append(matched, &out)
	}
	r.mu.RUnlock()

	sortTransactions(matched, filter.SortBy)

	total := int64(len(matched))
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return &repository.TransactionPage{
		Transactions: matched,
		TotalCount:   total,
		HasMore:      total > int64(filter.Offset+len(matched)),
	}, nil
}

func matches(tx *domain.Transaction, f repository.TransactionFilter) bool {
	if f.AccountID != nil && tx.AccountID != *f.AccountID {
		return false
	}
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}
	if f.RiskTier != nil && tx.RiskTier != *f.RiskTier {
		return false
	}
	if f.Category != nil && tx.Category != *f.Category {
		return false
	}
	if f.MinAmount != nil && tx.Amount < *f.MinAmount {
		return false
	}
	if f.Since != nil && tx.SubmittedAt.Before(*f.Since) {
		return false
	}
	return true
}

func sortTransactions(txs []*domain.Transaction, sortBy string) {
	switch sortBy {
	case "probability":
		sort.Slice(txs, func(i, j int) bool {
			return txs[i].FraudProbability > txs[j].FraudProbability
		})
	case "amount":
		sort.Slice(txs, func(i, j int) bool {
			return txs[i].Amount > txs[j].Amount
		})
	default:
		sort.Slice(txs, func(i, j int) bool {
			return txs[i].SubmittedAt.Before(txs[j].SubmittedAt)
		})
	}
}
