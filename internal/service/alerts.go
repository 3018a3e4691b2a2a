package service

import (
	"context"
	"fmt"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertService manages the fraud alert queue: listing active alerts,
// resolving them and escalating priority.
type AlertService struct {
	alerts repository.AlertRepository
	logger *zap.Logger
}

func NewAlertService(alerts repository.AlertRepository, logger *zap.Logger) *AlertService {
	return &AlertService{alerts: alerts, logger: logger}
}

// Active returns unresolved alerts, optionally restricted to one priority.
func (s *AlertService) Active(ctx context.Context, priority *domain.AlertPriority) ([]*domain.FraudAlert, error) {
	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if priority == nil {
		return alerts, nil
	}

	filtered := alerts[:0]
	for _, alert := range alerts {
		if alert.Priority == *priority {
			filtered = append(filtered, alert)
		}
	}
	return filtered, nil
}

// Resolve closes an alert, recording who closed it. Resolving twice is an
// invalid state transition.
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID, adminID string) (*domain.FraudAlert, error) {
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin identity is required", domain.ErrValidation)
	}

	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == domain.AlertStatusResolved {
		return nil, fmt.Errorf("%w: alert %s is already resolved", domain.ErrInvalidState, id)
	}

	now := time.Now().UTC()
	alert.Status = domain.AlertStatusResolved
	alert.ResolvedBy = &adminID
	alert.ResolvedAt = &now

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info("Fraud alert resolved",
		zap.String("alert_id", id.String()),
		zap.String("resolved_by", adminID),
	)
	return alert, nil
}

// Escalate raises an open alert to URGENT priority.
func (s *AlertService) Escalate(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == domain.AlertStatusResolved {
		return nil, fmt.Errorf("%w: alert %s is already resolved", domain.ErrInvalidState, id)
	}

	alert.Priority = domain.PriorityUrgent
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Warn("Fraud alert escalated",
		zap.String("alert_id", id.String()),
		zap.String("transaction_id", alert.TransactionID.String()),
	)
	return alert, nil
}
