package repository

import (
	"context"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/google/uuid"
)

// TransactionFilter narrows transaction listings. Nil fields match
// everything.
type TransactionFilter struct {
	AccountID *uuid.UUID
	Status    *domain.TransactionStatus
	RiskTier  *domain.RiskTier
	Category  *domain.Category
	MinAmount *float64
	Since     *time.Time

	// SortBy is one of "probability", "amount", "submitted_at".
	// Probability and amount sort descending, submission time ascending
	// (oldest pending work first).
	SortBy string

	Limit  int
	Offset int
}

// TransactionPage is one page of a filtered listing.
type TransactionPage struct {
	Transactions []*domain.Transaction
	TotalCount   int64
	HasMore      bool
}

// AccountRepository persists credit accounts. Balance mutations go through
// UpdateBalances so every write carries the full invariant triple.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateBalances(ctx context.Context, id uuid.UUID, availableCredit, currentBalance float64) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context) ([]*domain.Account, error)
}

// TransactionRepository persists transaction records through their
// lifecycle.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	Update(ctx context.Context, tx *domain.Transaction) error
	List(ctx context.Context, filter TransactionFilter) (*TransactionPage, error)
}

// AlertRepository persists fraud alerts raised on flagged transactions.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.FraudAlert) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error)
	Update(ctx context.Context, alert *domain.FraudAlert) error
	ListActive(ctx context.Context) ([]*domain.FraudAlert, error)
}
