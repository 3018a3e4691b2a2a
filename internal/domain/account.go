package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// balanceEpsilon absorbs float drift when checking the ledger identity.
const balanceEpsilon = 1e-6

// Account is a line of credit. The ledger identity
// available_credit + current_balance == credit_limit must hold after every
// mutation; only the CreditLedger is allowed to move these fields.
// Accounts are never deleted, only deactivated.
type Account struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	HolderName      string      `json:"holder_name" db:"holder_name"`
	CardNumber      string      `json:"-" db:"card_number"`
	CreditLimit     float64     `json:"credit_limit" db:"credit_limit"`
	AvailableCredit float64     `json:"available_credit" db:"available_credit"`
	CurrentBalance  float64     `json:"current_balance" db:"current_balance"`
	Active          bool        `json:"active" db:"active"`
	HomeLocation    Coordinates `json:"home_location" db:"home_location"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// NewAccount opens an account with the full limit available.
func NewAccount(holderName string, creditLimit float64, home Coordinates) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:              uuid.New(),
		HolderName:      holderName,
		CreditLimit:     creditLimit,
		AvailableCredit: creditLimit,
		CurrentBalance:  0,
		Active:          true,
		HomeLocation:    home,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CheckInvariant verifies the ledger identity and the bounds on
// available credit. Returned errors indicate ledger corruption, not
// recoverable business conditions.
func (a *Account) CheckInvariant() error {
	if a.CreditLimit < 0 {
		return fmt.Errorf("account %s: negative credit limit %.2f", a.ID, a.CreditLimit)
	}
	if a.AvailableCredit < -balanceEpsilon || a.AvailableCredit > a.CreditLimit+balanceEpsilon {
		return fmt.Errorf("account %s: available credit %.2f outside [0, %.2f]",
			a.ID, a.AvailableCredit, a.CreditLimit)
	}
	if diff := math.Abs(a.AvailableCredit + a.CurrentBalance - a.CreditLimit); diff > balanceEpsilon {
		return fmt.Errorf("account %s: available %.2f + balance %.2f != limit %.2f",
			a.ID, a.AvailableCredit, a.CurrentBalance, a.CreditLimit)
	}
	return nil
}

// Utilization returns the used share of the credit limit as a percentage.
func (a *Account) Utilization() float64 {
	if a.CreditLimit <= 0 {
		return 0
	}
	return (a.CreditLimit - a.AvailableCredit) / a.CreditLimit * 100
}
