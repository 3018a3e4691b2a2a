package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/banking/fraud-risk/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `
	id, account_id, amount, category, merchant_name, merchant_address,
	description, submitter_lat, submitter_lon, merchant_lat, merchant_lon,
	fraud_probability, risk_tier, status, submitted_at,
	resolved_at, resolved_by, resolution_note, decision_signature
`

// TransactionRepository persists transaction records. Rows are inserted at
// submission and updated exactly once by the resolving decision; there is
// no delete path.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.pool.Exec(ctx, query,
		tx.ID, tx.AccountID, tx.Amount, tx.Category, tx.MerchantName, tx.MerchantAddress,
		tx.Description, tx.SubmitterLocation.Lat, tx.SubmitterLocation.Lon,
		tx.MerchantLocation.Lat, tx.MerchantLocation.Lon,
		tx.FraudProbability, tx.RiskTier, tx.Status, tx.SubmittedAt,
		tx.ResolvedAt, tx.ResolvedBy, tx.ResolutionNote, tx.DecisionSignature,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		UPDATE transactions
		SET status = $2, resolved_at = $3, resolved_by = $4,
		    resolution_note = $5, decision_signature = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		tx.ID, tx.Status, tx.ResolvedAt, tx.ResolvedBy, tx.ResolutionNote, tx.DecisionSignature,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, tx.ID)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error) {
	// Build query dynamically
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND account_id = $%d", argIdx)
		args = append(args, *filter.AccountID)
		argIdx++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.RiskTier != nil {
		query += fmt.Sprintf(" AND risk_tier = $%d", argIdx)
		args = append(args, *filter.RiskTier)
		argIdx++
	}
	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, *filter.Category)
		argIdx++
	}
	if filter.MinAmount != nil {
		query += fmt.Sprintf(" AND amount >= $%d", argIdx)
		args = append(args, *filter.MinAmount)
		argIdx++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND submitted_at >= $%d", argIdx)
		args = append(args, *filter.Since)
		argIdx++
	}

	// Count total
	countQuery := "SELECT COUNT(*) FROM (" + query + ") as total"
	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	switch filter.SortBy {
	case "probability":
		query += " ORDER BY fraud_probability DESC"
	case "amount":
		query += " ORDER BY amount DESC"
	default:
		query += " ORDER BY submitted_at ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.TransactionPage{
		Transactions: transactions,
		TotalCount:   totalCount,
		HasMore:      totalCount > int64(filter.Offset+len(transactions)),
	}, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.Amount, &tx.Category, &tx.MerchantName, &tx.MerchantAddress,
		&tx.Description, &tx.SubmitterLocation.Lat, &tx.SubmitterLocation.Lon,
		&tx.MerchantLocation.Lat, &tx.MerchantLocation.Lon,
		&tx.FraudProbability, &tx.RiskTier, &tx.Status, &tx.SubmittedAt,
		&tx.ResolvedAt, &tx.ResolvedBy, &tx.ResolutionNote, &tx.DecisionSignature,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
