package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/google/uuid"
)

// AlertRepository is the in-memory fraud alert store.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*domain.FraudAlert
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[uuid.UUID]*domain.FraudAlert),
	}
}

func (r *AlertRepository) Create(_ context.Context, alert *domain.FraudAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; exists {
		return fmt.Errorf("%w: alert %s", domain.ErrDuplicate, alert.ID)
	}

	stored := *alert
	r.alerts[alert.ID] = &stored
	return nil
}

func (r *AlertRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, exists := r.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	out := *alert
	return &out, nil
}

func (r *AlertRepository) Update(_ context.Context, alert *domain.FraudAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; !exists {
		return fmt.Errorf("%w: alert %s", domain.ErrNotFound, alert.ID)
	}

	stored := *alert
	r.alerts[alert.ID] = &stored
	return nil
}

// ListActive returns unresolved alerts, most recent first.
func (r *AlertRepository) ListActive(_ context.Context) ([]*domain.FraudAlert, error) {
	r.mu.RLock()
	result := make([]*domain.FraudAlert, 0)
	for _, alert := range r.alerts {
		if alert.Status == domain.AlertStatusResolved {
			continue
		}
		out := *alert
		result = append(result, &out)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
