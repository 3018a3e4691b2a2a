package service

import (
	"context"
	"testing"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAccountFixture(t *testing.T) (*AccountService, *memory.AccountRepository, *memory.TransactionRepository, *domain.Account) {
	t.Helper()
	accounts := memory.NewAccountRepository()
	transactions := memory.NewTransactionRepository()
	svc := NewAccountService(accounts, transactions, zap.NewNop())

	account := domain.NewAccount("Test Holder", 2000, domain.Coordinates{Lat: 6.9, Lon: 79.8})
	require.NoError(t, accounts.Create(context.Background(), account))
	return svc, accounts, transactions, account
}

func pendingTx(t *testing.T, repo *memory.TransactionRepository, accountID uuid.UUID, amount, prob float64, tier domain.RiskTier, submittedAt time.Time, merchLoc domain.Coordinates) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction(accountID, amount, domain.CategoryShoppingPOS)
	tx.MerchantName = "Merchant"
	tx.FraudProbability = prob
	tx.RiskTier = tier
	tx.SubmittedAt = submittedAt
	tx.MerchantLocation = merchLoc
	require.NoError(t, repo.Create(context.Background(), tx))
	return tx
}

func TestOpen_Validation(t *testing.T) {
	svc, _, _, _ := newAccountFixture(t)

	_, err := svc.Open(context.Background(), "", "4111111111111111", 1000, domain.Coordinates{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Open(context.Background(), "Holder", "4111111111111111", 0, domain.Coordinates{})
	require.ErrorIs(t, err, domain.ErrValidation)

	account, err := svc.Open(context.Background(), "Holder", "4111111111111111", 1500, domain.Coordinates{Lat: 6.9, Lon: 79.8})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, account.AvailableCredit)
	assert.True(t, account.Active)
}

func TestSummary(t *testing.T) {
	svc, accounts, transactions, account := newAccountFixture(t)

	// Simulate a $500 reservation.
	require.NoError(t, accounts.UpdateBalances(context.Background(), account.ID, 1500, 500))
	pendingTx(t, transactions, account.ID, 500, 0.2, domain.TierMedium, time.Now().UTC(), domain.Coordinates{})

	summary, err := svc.Summary(context.Background(), account.ID)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, summary.Utilization, 1e-9)
	assert.Equal(t, 1, summary.Pending)
}

func TestDeactivateReactivate(t *testing.T) {
	svc, accounts, _, account := newAccountFixture(t)

	require.NoError(t, svc.Deactivate(context.Background(), account.ID))
	stored, err := accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.NoError(t, svc.Reactivate(context.Background(), account.ID))
	stored, err = accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	require.ErrorIs(t, svc.Deactivate(context.Background(), uuid.New()), domain.ErrNotFound)
}

func TestProfile_CleanAccount(t *testing.T) {
	svc, _, transactions, account := newAccountFixture(t)
	pendingTx(t, transactions, account.ID, 50, 0.05, domain.TierLow, time.Now().UTC(), domain.Coordinates{Lat: 6.9, Lon: 79.8})

	profile, err := svc.Profile(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Flags)
	assert.False(t, profile.Suspicious)
}

func TestProfile_RapidSubmissionsAndHighTier(t *testing.T) {
	svc, _, transactions, account := newAccountFixture(t)

	base := time.Now().UTC()
	loc := domain.Coordinates{Lat: 6.9, Lon: 79.8}
	pendingTx(t, transactions, account.ID, 100, 0.9, domain.TierHigh, base, loc)
	pendingTx(t, transactions, account.ID, 110, 0.9, domain.TierHigh, base.Add(2*time.Minute), loc)
	pendingTx(t, transactions, account.ID, 120, 0.5, domain.TierHigh, base.Add(5*time.Minute), loc)

	profile, err := svc.Profile(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Contains(t, profile.Flags, "rapid_submissions")
	assert.Contains(t, profile.Flags, "multiple_high_risk")
	assert.Contains(t, profile.Flags, "cumulative_probability")
	assert.True(t, profile.Suspicious)
}

func TestProfile_DispersedMerchantsAndAmountSpike(t *testing.T) {
	svc, _, transactions, account := newAccountFixture(t)

	base := time.Now().UTC()
	pendingTx(t, transactions, account.ID, 100, 0.1, domain.TierLow, base, domain.Coordinates{Lat: 6.9, Lon: 79.8})
	pendingTx(t, transactions, account.ID, 500, 0.1, domain.TierLow, base.Add(time.Hour), domain.Coordinates{Lat: 48.85, Lon: 2.35})

	profile, err := svc.Profile(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Contains(t, profile.Flags, "dispersed_merchants")
	// 500 is only 5x the other pending charge, under the spike factor.
	assert.NotContains(t, profile.Flags, "amount_spike")

	pendingTx(t, transactions, account.ID, 9000, 0.1, domain.TierLow, base.Add(2*time.Hour), domain.Coordinates{Lat: 6.9, Lon: 79.8})
	profile, err = svc.Profile(context.Background(), account.ID)
	require.NoError(t, err)
	// 9000 against an average of 300 for the rest trips the spike.
	assert.Contains(t, profile.Flags, "amount_spike")
	assert.True(t, profile.Suspicious)
}

func TestProfile_UnknownAccount(t *testing.T) {
	svc, _, _, _ := newAccountFixture(t)
	_, err := svc.Profile(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}
