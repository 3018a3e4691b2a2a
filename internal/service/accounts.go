package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Red flag thresholds for account profiling. These are dashboard
// heuristics, not gating logic.
const (
	rapidWindow           = 10 * time.Minute
	rapidCount            = 3
	highTierPendingFlag   = 2
	cumulativeProbFlag    = 2.0
	merchantSpreadDegrees = 5.0
	amountSpikeFactor     = 10.0
	suspiciousFlagCount   = 2
)

// AccountSummary is the per-account credit utilization view.
type AccountSummary struct {
	Account     *domain.Account `json:"account"`
	Utilization float64         `json:"utilization_pct"`
	Pending     int             `json:"pending_transactions"`
}

// RiskProfile is the read-only red flag analysis for an account.
type RiskProfile struct {
	AccountID  uuid.UUID `json:"account_id"`
	Flags      []string  `json:"flags"`
	Suspicious bool      `json:"suspicious"`
}

// AccountService covers account opening, summaries, deactivation and the
// red flag profiling used by the admin dashboard.
type AccountService struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	logger       *zap.Logger
}

func NewAccountService(accounts repository.AccountRepository, transactions repository.TransactionRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts:     accounts,
		transactions: transactions,
		logger:       logger,
	}
}

// Open creates an account with the full credit limit available.
func (s *AccountService) Open(ctx context.Context, holderName, cardNumber string, creditLimit float64, home domain.Coordinates) (*domain.Account, error) {
	if holderName == "" {
		return nil, fmt.Errorf("%w: holder name is required", domain.ErrValidation)
	}
	if creditLimit <= 0 {
		return nil, fmt.Errorf("%w: credit limit must be positive, got %.2f", domain.ErrValidation, creditLimit)
	}

	account := domain.NewAccount(holderName, creditLimit, home)
	account.CardNumber = cardNumber
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account opened",
		zap.String("account_id", account.ID.String()),
		zap.Float64("credit_limit", creditLimit),
	)
	return account, nil
}

// Summary returns the utilization view for one account.
func (s *AccountService) Summary(ctx context.Context, id uuid.UUID) (*AccountSummary, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.pendingFor(ctx, id)
	if err != nil {
		return nil, err
	}

	return &AccountSummary{
		Account:     account,
		Utilization: account.Utilization(),
		Pending:     len(pending),
	}, nil
}

// Deactivate freezes an account. Frozen accounts reject new submissions;
// existing pending transactions still resolve normally.
func (s *AccountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.logger.Warn("Account deactivated", zap.String("account_id", id.String()))
	return nil
}

// Reactivate lifts a freeze.
func (s *AccountService) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return err
	}
	return s.accounts.SetActive(ctx, id, true)
}

// Profile runs the red flag heuristics over an account's pending
// transactions. Two or more flags mark the account suspicious.
func (s *AccountService) Profile(ctx context.Context, id uuid.UUID) (*RiskProfile, error) {
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return nil, err
	}

	pending, err := s.pendingFor(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := &RiskProfile{AccountID: id, Flags: []string{}}
	if len(pending) == 0 {
		return profile, nil
	}

	if hasRapidBurst(pending) {
		profile.Flags = append(profile.Flags, "rapid_submissions")
	}

	highTier := 0
	cumulative := 0.0
	total := 0.0
	maxAmount := 0.0
	for _, tx := range pending {
		if tx.RiskTier == domain.TierHigh {
			highTier++
		}
		cumulative += tx.FraudProbability
		total += tx.Amount
		if tx.Amount > maxAmount {
			maxAmount = tx.Amount
		}
	}
	if highTier >= highTierPendingFlag {
		profile.Flags = append(profile.Flags, "multiple_high_risk")
	}
	if cumulative > cumulativeProbFlag {
		profile.Flags = append(profile.Flags, "cumulative_probability")
	}
	if merchantSpread(pending) > merchantSpreadDegrees {
		profile.Flags = append(profile.Flags, "dispersed_merchants")
	}
	if len(pending) > 1 {
		// Compare the largest charge against the average of the rest;
		// including it in its own baseline would hide the spike.
		restAverage := (total - maxAmount) / float64(len(pending)-1)
		if restAverage > 0 && maxAmount >= amountSpikeFactor*restAverage {
			profile.Flags = append(profile.Flags, "amount_spike")
		}
	}

	profile.Suspicious = len(profile.Flags) >= suspiciousFlagCount
	if profile.Suspicious {
		s.logger.Warn("Account flagged suspicious",
			zap.String("account_id", id.String()),
			zap.Strings("flags", profile.Flags),
		)
	}
	return profile, nil
}

func (s *AccountService) pendingFor(ctx context.Context, id uuid.UUID) ([]*domain.Transaction, error) {
	pending := domain.StatusSubmitted
	page, err := s.transactions.List(ctx, repository.TransactionFilter{
		AccountID: &id,
		Status:    &pending,
	})
	if err != nil {
		return nil, err
	}
	return page.Transactions, nil
}

// hasRapidBurst reports whether any rapidCount submissions landed inside a
// single rapidWindow span.
func hasRapidBurst(txs []*domain.Transaction) bool {
	if len(txs) < rapidCount {
		return false
	}
	times := make([]time.Time, len(txs))
	for i, tx := range txs {
		times[i] = tx.SubmittedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i := 0; i+rapidCount-1 < len(times); i++ {
		if times[i+rapidCount-1].Sub(times[i]) <= rapidWindow {
			return true
		}
	}
	return false
}

// merchantSpread returns the largest pairwise degree distance between
// merchant locations.
func merchantSpread(txs []*domain.Transaction) float64 {
	spread := 0.0
	for i := 0; i < len(txs); i++ {
		for j := i + 1; j < len(txs); j++ {
			a, b := txs[i].MerchantLocation, txs[j].MerchantLocation
			d := math.Sqrt((a.Lat-b.Lat)*(a.Lat-b.Lat) + (a.Lon-b.Lon)*(a.Lon-b.Lon))
			if d > spread {
				spread = d
			}
		}
	}
	return spread
}
