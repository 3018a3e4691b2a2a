package service

import (
	"context"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/metrics"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveStore receives batches of resolved transactions for long term
// retention. Implemented by the S3 repository.
type ArchiveStore interface {
	ArchiveBatch(ctx context.Context, transactions []*domain.Transaction, batchID string) error
}

// Archiver periodically ships resolved transactions to object storage.
// Archival is additive: rows stay in postgres, the archive is the
// retention copy.
type Archiver struct {
	transactions repository.TransactionRepository
	store        ArchiveStore
	interval     time.Duration
	retainFor    time.Duration
	logger       *zap.Logger

	lastRun time.Time
}

func NewArchiver(transactions repository.TransactionRepository, store ArchiveStore, interval, retainFor time.Duration, logger *zap.Logger) *Archiver {
	return &Archiver{
		transactions: transactions,
		store:        store,
		interval:     interval,
		retainFor:    retainFor,
		logger:       logger,
	}
}

// Run archives on the configured interval until the context is canceled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("Archive run failed", zap.Error(err))
			}
		}
	}
}

// ArchiveOnce collects transactions resolved since the previous run and
// uploads them as one batch.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	since := a.lastRun
	if since.IsZero() {
		since = time.Now().UTC().Add(-a.retainFor)
	}
	runStarted := time.Now().UTC()

	var batch []*domain.Transaction
	for _, status := range []domain.TransactionStatus{
		domain.StatusApproved, domain.StatusRejected, domain.StatusFraudFlagged,
	} {
		st := status
		// Since filters on submission time; resolution time is checked
		// below because a transaction can resolve long after submission.
		page, err := a.transactions.List(ctx, repository.TransactionFilter{
			Status: &st,
			Limit:  10000,
		})
		if err != nil {
			return err
		}
		for _, tx := range page.Transactions {
			if tx.ResolvedAt != nil && tx.ResolvedAt.After(since) {
				batch = append(batch, tx)
			}
		}
	}

	if len(batch) == 0 {
		a.lastRun = runStarted
		return nil
	}

	batchID := uuid.New().String()
	if err := a.store.ArchiveBatch(ctx, batch, batchID); err != nil {
		return err
	}

	a.lastRun = runStarted
	metrics.ArchivedTransactionsTotal.Add(float64(len(batch)))
	a.logger.Info("Archived resolved transactions",
		zap.Int("count", len(batch)),
		zap.String("batch_id", batchID),
	)
	return nil
}
