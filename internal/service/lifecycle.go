package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banking/fraud-risk/internal/crypto"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/ledger"
	"github.com/banking/fraud-risk/internal/metrics"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/banking/fraud-risk/internal/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchIndexer receives resolved transactions for the admin search
// console. Implemented by the elasticsearch repository; nil disables
// indexing.
type SearchIndexer interface {
	IndexTransaction(ctx context.Context, tx *domain.Transaction) error
}

// AlertPublisher pushes new fraud alerts to the alert topic. Nil disables
// publishing.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.FraudAlert) error
}

// AddressResolver turns a merchant street address into coordinates.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) domain.Coordinates
}

// SubmitRequest carries everything needed to submit a transaction.
// Locations are optional: a missing submitter location defaults to the
// account's home location, a missing merchant location is geocoded from
// the address.
type SubmitRequest struct {
	AccountID         uuid.UUID
	Amount            float64
	Category          domain.Category
	MerchantName      string
	MerchantAddress   string
	Description       string
	SubmitterLocation *domain.Coordinates
	MerchantLocation  *domain.Coordinates
}

// LifecycleService drives a transaction from submission through scoring and
// credit reservation to an admin decision. Scoring failures degrade, ledger
// failures surface; a failed submission leaves no residual state.
type LifecycleService struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	alerts       repository.AlertRepository
	ledger       *ledger.CreditLedger
	transformer  *scoring.FeatureTransformer
	blender      *scoring.HybridBlender
	classifier   *scoring.RiskClassifier
	geocoder     AddressResolver
	encryptor    *crypto.FieldEncryptor
	indexer      SearchIndexer
	publisher    AlertPublisher
	logger       *zap.Logger

	// decisionLocks serializes admin decisions per transaction so two
	// concurrent rejects cannot both observe the Submitted state. A
	// stripe is dropped once its transaction reaches a terminal state.
	decisionLocks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewLifecycleService(
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	alerts repository.AlertRepository,
	creditLedger *ledger.CreditLedger,
	transformer *scoring.FeatureTransformer,
	blender *scoring.HybridBlender,
	classifier *scoring.RiskClassifier,
	geocoder AddressResolver,
	encryptor *crypto.FieldEncryptor,
	indexer SearchIndexer,
	publisher AlertPublisher,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		accounts:     accounts,
		transactions: transactions,
		alerts:       alerts,
		ledger:       creditLedger,
		transformer:  transformer,
		blender:      blender,
		classifier:   classifier,
		geocoder:     geocoder,
		encryptor:    encryptor,
		indexer:      indexer,
		publisher:    publisher,
		logger:       logger,
	}
}

// Submit scores a transaction, reserves credit and persists the pending
// record. On any failure after the reservation the credit is returned, so
// a failed submission never leaves money held.
func (s *LifecycleService) Submit(ctx context.Context, req SubmitRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		metrics.SubmissionFailuresTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: amount must be positive, got %.2f", domain.ErrValidation, req.Amount)
	}
	if !req.Category.Valid() {
		metrics.SubmissionFailuresTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, req.Category)
	}
	if req.MerchantName == "" {
		metrics.SubmissionFailuresTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: merchant name is required", domain.ErrValidation)
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		metrics.SubmissionFailuresTotal.WithLabelValues("account").Inc()
		return nil, err
	}
	if !account.Active {
		metrics.SubmissionFailuresTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: account %s is deactivated", domain.ErrValidation, account.ID)
	}

	tx := domain.NewTransaction(req.AccountID, req.Amount, req.Category)
	tx.MerchantName = req.MerchantName
	tx.MerchantAddress = req.MerchantAddress
	tx.Description = req.Description
	tx.SubmitterLocation = s.resolveSubmitterLocation(req, account)
	tx.MerchantLocation = s.resolveMerchantLocation(ctx, req, tx.SubmitterLocation)

	vec, err := s.transformer.Transform(tx, tx.SubmittedAt)
	if err != nil {
		metrics.SubmissionFailuresTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	probability, strategy := s.blender.Score(ctx, vec, tx.Amount, tx.SubmitterLocation, tx.MerchantLocation)
	tx.FraudProbability = probability
	tx.RiskTier = s.classifier.Classify(probability)
	metrics.BlendStrategiesTotal.WithLabelValues(strategy).Inc()
	metrics.FraudProbability.Observe(probability)

	if err := s.ledger.Reserve(ctx, tx.AccountID, tx.Amount); err != nil {
		metrics.SubmissionFailuresTotal.WithLabelValues("credit").Inc()
		return nil, err
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		// Return the held credit; the submission must leave no trace.
		if refundErr := s.ledger.Refund(ctx, tx.AccountID, tx.Amount); refundErr != nil {
			s.logger.Error("Compensating refund failed after persist error",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(refundErr),
			)
		}
		metrics.SubmissionFailuresTotal.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(string(tx.RiskTier)).Inc()
	metrics.PendingTransactions.Inc()

	s.logger.Info("Transaction submitted",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("account_id", tx.AccountID.String()),
		zap.Float64("amount", tx.Amount),
		zap.Float64("fraud_probability", tx.FraudProbability),
		zap.String("risk_tier", string(tx.RiskTier)),
		zap.String("blend_strategy", strategy),
	)
	return tx, nil
}

// resolveSubmitterLocation prefers explicit request coordinates; presence
// is the pointer, so a literal (0,0) is honored as a real location.
func (s *LifecycleService) resolveSubmitterLocation(req SubmitRequest, account *domain.Account) domain.Coordinates {
	if req.SubmitterLocation != nil {
		return *req.SubmitterLocation
	}
	if !account.HomeLocation.IsZero() {
		return account.HomeLocation
	}
	return s.geocoder.Resolve(context.Background(), "")
}

// resolveMerchantLocation defaults an absent merchant location to the
// submitter's coordinates, so a transaction with no merchant data scores
// at zero distance. Geocoding only happens when an address was given.
func (s *LifecycleService) resolveMerchantLocation(ctx context.Context, req SubmitRequest, submitter domain.Coordinates) domain.Coordinates {
	if req.MerchantLocation != nil {
		return *req.MerchantLocation
	}
	if req.MerchantAddress == "" {
		return submitter
	}
	return s.geocoder.Resolve(ctx, req.MerchantAddress)
}

// Get returns a transaction by ID.
func (s *LifecycleService) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// Approve finalizes the reservation: the charge stays on the balance and
// the transaction reaches its terminal Approved state.
func (s *LifecycleService) Approve(ctx context.Context, id uuid.UUID, adminID, note string) (*domain.Transaction, error) {
	return s.decide(ctx, id, adminID, note, domain.StatusApproved)
}

// Reject refunds the reservation and records the rejection.
func (s *LifecycleService) Reject(ctx context.Context, id uuid.UUID, adminID, note string) (*domain.Transaction, error) {
	return s.decide(ctx, id, adminID, note, domain.StatusRejected)
}

// FlagFraud refunds the reservation, records the flag and raises a fraud
// alert.
func (s *LifecycleService) FlagFraud(ctx context.Context, id uuid.UUID, adminID, note string) (*domain.Transaction, error) {
	tx, err := s.decide(ctx, id, adminID, note, domain.StatusFraudFlagged)
	if err != nil {
		return nil, err
	}

	alert := domain.NewFraudAlert(tx)
	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("Failed to persist fraud alert",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
	} else {
		metrics.AlertsTotal.WithLabelValues(string(alert.Priority)).Inc()
		s.publishAlert(alert)
	}

	return tx, nil
}

func (s *LifecycleService) decide(ctx context.Context, id uuid.UUID, adminID, note string, target domain.TransactionStatus) (*domain.Transaction, error) {
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin identity is required", domain.ErrValidation)
	}

	muAny, _ := s.decisionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusSubmitted {
		return nil, fmt.Errorf("%w: transaction %s is %s", domain.ErrInvalidState, id, tx.Status)
	}

	// Money moves before the record flips. If persisting the decision
	// fails the movement is compensated, so the Submitted state always
	// means "credit held".
	switch target {
	case domain.StatusApproved:
		if err := s.ledger.Finalize(ctx, tx.AccountID, tx.Amount); err != nil {
			return nil, err
		}
	default:
		if err := s.ledger.Refund(ctx, tx.AccountID, tx.Amount); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	tx.Status = target
	tx.ResolvedAt = &now
	tx.ResolvedBy = &adminID
	tx.ResolutionNote = &note
	tx.DecisionSignature = s.encryptor.SignDecision(
		tx.ID.String(), string(target), adminID, note, now.Format(time.RFC3339Nano),
	)

	if err := s.transactions.Update(ctx, tx); err != nil {
		if target != domain.StatusApproved {
			if reserveErr := s.ledger.Reserve(ctx, tx.AccountID, tx.Amount); reserveErr != nil {
				s.logger.Error("Compensating re-reservation failed after persist error",
					zap.String("transaction_id", tx.ID.String()),
					zap.Error(reserveErr),
				)
			}
		}
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	// The terminal status is persisted, so late callers fail on the status
	// check no matter which mutex they hold. The stripe can go.
	s.decisionLocks.Delete(id)

	metrics.DecisionsTotal.WithLabelValues(string(target)).Inc()
	metrics.PendingTransactions.Dec()
	s.asyncIndex(tx)

	s.logger.Info("Transaction resolved",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("status", string(target)),
		zap.String("resolved_by", adminID),
	)
	return tx, nil
}

// asyncIndex ships a resolved transaction to the search index without
// blocking the decision path.
func (s *LifecycleService) asyncIndex(tx *domain.Transaction) {
	if s.indexer == nil {
		return
	}
	indexed := *tx
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in async index", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.indexer.IndexTransaction(asyncCtx, &indexed); err != nil {
			s.logger.Error("Failed to index transaction",
				zap.String("transaction_id", indexed.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *LifecycleService) publishAlert(alert *domain.FraudAlert) {
	if s.publisher == nil {
		return
	}
	published := *alert
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in alert publish", zap.Any("panic", r))
			}
		}()

		asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.PublishAlert(asyncCtx, &published); err != nil {
			s.logger.Error("Failed to publish fraud alert",
				zap.String("alert_id", published.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// PendingQueue lists transactions awaiting a decision. Filters and sort
// orders come straight from the admin dashboard.
func (s *LifecycleService) PendingQueue(ctx context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error) {
	pending := domain.StatusSubmitted
	filter.Status = &pending
	return s.transactions.List(ctx, filter)
}

// History lists all transactions for an account, oldest first.
func (s *LifecycleService) History(ctx context.Context, accountID uuid.UUID, limit, offset int) (*repository.TransactionPage, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transactions.List(ctx, repository.TransactionFilter{
		AccountID: &accountID,
		Limit:     limit,
		Offset:    offset,
	})
}

// VerifyDecision re-checks the stored decision signature on a resolved
// transaction.
func (s *LifecycleService) VerifyDecision(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !tx.Status.Terminal() || tx.ResolvedAt == nil || tx.ResolvedBy == nil {
		return false, fmt.Errorf("%w: transaction %s is not resolved", domain.ErrInvalidState, id)
	}

	note := ""
	if tx.ResolutionNote != nil {
		note = *tx.ResolutionNote
	}
	valid := s.encryptor.VerifyDecision(
		tx.ID.String(), string(tx.Status), *tx.ResolvedBy, note,
		tx.ResolvedAt.Format(time.RFC3339Nano), tx.DecisionSignature,
	)
	if !valid {
		s.logger.Error("Decision signature mismatch",
			zap.String("transaction_id", tx.ID.String()),
		)
	}
	return valid, nil
}
