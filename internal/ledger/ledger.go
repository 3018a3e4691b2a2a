package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditLedger owns all balance movement on accounts. Credit is reserved
// when a transaction is submitted, finalized on approval and refunded
// exactly once on rejection or fraud flagging. The identity
// available_credit + current_balance == credit_limit holds after every
// operation.
//
// Concurrency control is a per-account mutex: two reservations against the
// same account serialize, reservations against different accounts do not.
type CreditLedger struct {
	accounts repository.AccountRepository
	// One stripe per account ever touched. Accounts are never deleted,
	// only deactivated, so the map tracks the live account population and
	// needs no eviction.
	locks  sync.Map // uuid.UUID -> *sync.Mutex
	logger *zap.Logger
}

func NewCreditLedger(accounts repository.AccountRepository, logger *zap.Logger) *CreditLedger {
	return &CreditLedger{
		accounts: accounts,
		logger:   logger,
	}
}

func (l *CreditLedger) lock(accountID uuid.UUID) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(accountID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Reserve moves amount from available credit to the current balance. It
// fails with ErrInsufficientCredit when the account cannot cover the
// amount, leaving balances untouched.
func (l *CreditLedger) Reserve(ctx context.Context, accountID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: reservation amount must be positive, got %.2f", domain.ErrValidation, amount)
	}

	mu := l.lock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Active {
		return fmt.Errorf("%w: account %s is deactivated", domain.ErrValidation, accountID)
	}
	if account.AvailableCredit < amount {
		return fmt.Errorf("%w: account %s has %.2f available, needs %.2f",
			domain.ErrInsufficientCredit, accountID, account.AvailableCredit, amount)
	}

	account.AvailableCredit -= amount
	account.CurrentBalance += amount
	if err := account.CheckInvariant(); err != nil {
		return fmt.Errorf("reserve would corrupt ledger: %w", err)
	}

	if err := l.accounts.UpdateBalances(ctx, accountID, account.AvailableCredit, account.CurrentBalance); err != nil {
		return fmt.Errorf("failed to persist reservation: %w", err)
	}

	l.logger.Debug("Credit reserved",
		zap.String("account_id", accountID.String()),
		zap.Float64("amount", amount),
		zap.Float64("available_credit", account.AvailableCredit),
	)
	return nil
}

// Finalize confirms a reservation after approval. The charge stays on the
// balance, so no numbers move; the call verifies the account is still
// consistent and records the confirmation.
func (l *CreditLedger) Finalize(ctx context.Context, accountID uuid.UUID, amount float64) error {
	mu := l.lock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := account.CheckInvariant(); err != nil {
		return fmt.Errorf("finalize found corrupt ledger: %w", err)
	}

	l.logger.Debug("Reservation finalized",
		zap.String("account_id", accountID.String()),
		zap.Float64("amount", amount),
	)
	return nil
}

// Refund returns a reserved amount to available credit. Callers guarantee
// single invocation per transaction through the lifecycle state machine;
// the ledger itself only rejects refunds that would push available credit
// past the limit.
func (l *CreditLedger) Refund(ctx context.Context, accountID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: refund amount must be positive, got %.2f", domain.ErrValidation, amount)
	}

	mu := l.lock(accountID)
	mu.Lock()
	defer mu.Unlock()

	account, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.AvailableCredit+amount > account.CreditLimit+1e-6 {
		return fmt.Errorf("refund of %.2f would exceed credit limit on account %s", amount, accountID)
	}

	account.AvailableCredit += amount
	account.CurrentBalance -= amount
	if err := account.CheckInvariant(); err != nil {
		return fmt.Errorf("refund would corrupt ledger: %w", err)
	}

	if err := l.accounts.UpdateBalances(ctx, accountID, account.AvailableCredit, account.CurrentBalance); err != nil {
		return fmt.Errorf("failed to persist refund: %w", err)
	}

	l.logger.Debug("Credit refunded",
		zap.String("account_id", accountID.String()),
		zap.Float64("amount", amount),
		zap.Float64("available_credit", account.AvailableCredit),
	)
	return nil
}
