package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banking/fraud-risk/internal/crypto"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository persists credit accounts. Card numbers are encrypted
// at rest with the versioned field encryptor; the key version is stored
// next to the ciphertext so old rows survive rotation.
type AccountRepository struct {
	pool      *pgxpool.Pool
	encryptor *crypto.FieldEncryptor
}

func NewAccountRepository(pool *pgxpool.Pool, encryptor *crypto.FieldEncryptor) *AccountRepository {
	return &AccountRepository{
		pool:      pool,
		encryptor: encryptor,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, holder_name, card_number_enc, card_key_version,
			credit_limit, available_credit, current_balance, active,
			home_lat, home_lon, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	cardEnc, keyVersion, err := r.encryptor.Encrypt(account.CardNumber)
	if err != nil {
		return fmt.Errorf("failed to encrypt card number: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		account.ID, account.HolderName, cardEnc, keyVersion,
		account.CreditLimit, account.AvailableCredit, account.CurrentBalance, account.Active,
		account.HomeLocation.Lat, account.HomeLocation.Lon, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const query = `
		SELECT id, holder_name, card_number_enc, card_key_version,
		       credit_limit, available_credit, current_balance, active,
		       home_lat, home_lon, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	account, err := r.scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) UpdateBalances(ctx context.Context, id uuid.UUID, availableCredit, currentBalance float64) error {
	const query = `
		UPDATE accounts
		SET available_credit = $2, current_balance = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, availableCredit, currentBalance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *AccountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	const query = `UPDATE accounts SET active = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	const query = `
		SELECT id, holder_name, card_number_enc, card_key_version,
		       credit_limit, available_credit, current_balance, active,
		       home_lat, home_lon, created_at, updated_at
		FROM accounts ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a          domain.Account
		cardEnc    string
		keyVersion int
	)
	err := row.Scan(
		&a.ID, &a.HolderName, &cardEnc, &keyVersion,
		&a.CreditLimit, &a.AvailableCredit, &a.CurrentBalance, &a.Active,
		&a.HomeLocation.Lat, &a.HomeLocation.Lon, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card, err := r.encryptor.Decrypt(cardEnc, keyVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt card number: %w", err)
	}
	a.CardNumber = card
	return &a, nil
}
