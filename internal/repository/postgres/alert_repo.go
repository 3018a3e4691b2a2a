package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertColumns = `
	id, transaction_id, account_id, amount, merchant,
	fraud_probability, priority, status, created_at, resolved_by, resolved_at
`

// AlertRepository persists fraud alerts.
type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.FraudAlert) error {
	const query = `
		INSERT INTO fraud_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID, alert.TransactionID, alert.AccountID, alert.Amount, alert.Merchant,
		alert.FraudProbability, alert.Priority, alert.Status, alert.CreatedAt,
		alert.ResolvedBy, alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	return alert, nil
}

func (r *AlertRepository) Update(ctx context.Context, alert *domain.FraudAlert) error {
	const query = `
		UPDATE fraud_alerts
		SET priority = $2, status = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		alert.ID, alert.Priority, alert.Status, alert.ResolvedBy, alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: alert %s", domain.ErrNotFound, alert.ID)
	}
	return nil
}

// ListActive returns unresolved alerts, most recent first.
func (r *AlertRepository) ListActive(ctx context.Context) ([]*domain.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE status != $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, domain.AlertStatusResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.FraudAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.FraudAlert, error) {
	var a domain.FraudAlert
	err := row.Scan(
		&a.ID, &a.TransactionID, &a.AccountID, &a.Amount, &a.Merchant,
		&a.FraudProbability, &a.Priority, &a.Status, &a.CreatedAt,
		&a.ResolvedBy, &a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
