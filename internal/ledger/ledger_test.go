package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLedger(t *testing.T, creditLimit float64) (*CreditLedger, *memory.AccountRepository, uuid.UUID) {
	t.Helper()
	repo := memory.NewAccountRepository()
	account := domain.NewAccount("Test Holder", creditLimit, domain.Coordinates{Lat: 6.9, Lon: 79.8})
	require.NoError(t, repo.Create(context.Background(), account))
	return NewCreditLedger(repo, zap.NewNop()), repo, account.ID
}

func getAccount(t *testing.T, repo *memory.AccountRepository, id uuid.UUID) *domain.Account {
	t.Helper()
	account, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func TestReserve(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	require.NoError(t, l.Reserve(context.Background(), id, 500))

	account := getAccount(t, repo, id)
	assert.Equal(t, 500.0, account.AvailableCredit)
	assert.Equal(t, 500.0, account.CurrentBalance)
	assert.NoError(t, account.CheckInvariant())
}

func TestReserve_InsufficientCredit(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	err := l.Reserve(context.Background(), id, 1500)
	require.ErrorIs(t, err, domain.ErrInsufficientCredit)

	account := getAccount(t, repo, id)
	assert.Equal(t, 1000.0, account.AvailableCredit)
	assert.Equal(t, 0.0, account.CurrentBalance)
}

func TestReserve_ExactRemainder(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	require.NoError(t, l.Reserve(context.Background(), id, 1000))
	account := getAccount(t, repo, id)
	assert.Equal(t, 0.0, account.AvailableCredit)

	err := l.Reserve(context.Background(), id, 0.01)
	require.ErrorIs(t, err, domain.ErrInsufficientCredit)
}

func TestReserve_InvalidAmount(t *testing.T) {
	l, _, id := setupLedger(t, 1000)

	require.ErrorIs(t, l.Reserve(context.Background(), id, 0), domain.ErrValidation)
	require.ErrorIs(t, l.Reserve(context.Background(), id, -10), domain.ErrValidation)
}

func TestReserve_DeactivatedAccount(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)
	require.NoError(t, repo.SetActive(context.Background(), id, false))

	err := l.Reserve(context.Background(), id, 100)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReserve_UnknownAccount(t *testing.T) {
	l, _, _ := setupLedger(t, 1000)

	err := l.Reserve(context.Background(), uuid.New(), 100)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefund_RestoresBalances(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	require.NoError(t, l.Reserve(context.Background(), id, 500))
	require.NoError(t, l.Refund(context.Background(), id, 500))

	account := getAccount(t, repo, id)
	assert.Equal(t, 1000.0, account.AvailableCredit)
	assert.Equal(t, 0.0, account.CurrentBalance)
	assert.NoError(t, account.CheckInvariant())
}

func TestRefund_CannotExceedLimit(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	require.NoError(t, l.Reserve(context.Background(), id, 200))
	require.NoError(t, l.Refund(context.Background(), id, 200))

	// Nothing left reserved; another refund would overflow the limit.
	err := l.Refund(context.Background(), id, 200)
	require.Error(t, err)

	account := getAccount(t, repo, id)
	assert.Equal(t, 1000.0, account.AvailableCredit)
}

func TestFinalize_LeavesBalancesUnchanged(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	require.NoError(t, l.Reserve(context.Background(), id, 300))
	require.NoError(t, l.Finalize(context.Background(), id, 300))

	account := getAccount(t, repo, id)
	assert.Equal(t, 700.0, account.AvailableCredit)
	assert.Equal(t, 300.0, account.CurrentBalance)
}

func TestReserve_ConcurrentSameAccount(t *testing.T) {
	l, repo, id := setupLedger(t, 1000)

	const workers = 20
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve(context.Background(), id, 100); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	granted := 0
	for range successes {
		granted++
	}

	// Exactly ten $100 reservations fit in a $1000 limit.
	assert.Equal(t, 10, granted)

	account := getAccount(t, repo, id)
	assert.Equal(t, 0.0, account.AvailableCredit)
	assert.Equal(t, 1000.0, account.CurrentBalance)
	assert.NoError(t, account.CheckInvariant())
}

func TestReserve_ConcurrentDistinctAccounts(t *testing.T) {
	repo := memory.NewAccountRepository()
	l := NewCreditLedger(repo, zap.NewNop())

	ids := make([]uuid.UUID, 8)
	for i := range ids {
		account := domain.NewAccount("Holder", 500, domain.Coordinates{})
		require.NoError(t, repo.Create(context.Background(), account))
		ids[i] = account.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, l.Reserve(context.Background(), id, 250))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		account := getAccount(t, repo, id)
		assert.Equal(t, 250.0, account.AvailableCredit)
		assert.NoError(t, account.CheckInvariant())
	}
}
