package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertPriority represents the urgency of a fraud alert
type AlertPriority string

const (
	PriorityMedium AlertPriority = "MEDIUM"
	PriorityHigh   AlertPriority = "HIGH"
	PriorityUrgent AlertPriority = "URGENT" // set by admin escalation only
)

// AlertStatus represents the handling state of a fraud alert
type AlertStatus string

const (
	AlertStatusNew      AlertStatus = "NEW"
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// alertHighPriorityThreshold: probability above which a new alert is HIGH.
const alertHighPriorityThreshold = 0.8

// FraudAlert is emitted when a transaction is flagged as fraud. It is
// mutated only by admin resolution or escalation.
type FraudAlert struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	TransactionID    uuid.UUID     `json:"transaction_id" db:"transaction_id"`
	AccountID        uuid.UUID     `json:"account_id" db:"account_id"`
	Amount           float64       `json:"amount" db:"amount"`
	Merchant         string        `json:"merchant" db:"merchant"`
	FraudProbability float64       `json:"fraud_probability" db:"fraud_probability"`
	Priority         AlertPriority `json:"priority" db:"priority"`
	Status           AlertStatus   `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	ResolvedBy       *string       `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}

// NewFraudAlert derives an alert from a flagged transaction. Priority is
// HIGH when the fraud probability exceeds 0.8, MEDIUM otherwise.
func NewFraudAlert(tx *Transaction) *FraudAlert {
	priority := PriorityMedium
	if tx.FraudProbability > alertHighPriorityThreshold {
		priority = PriorityHigh
	}
	return &FraudAlert{
		ID:               uuid.New(),
		TransactionID:    tx.ID,
		AccountID:        tx.AccountID,
		Amount:           tx.Amount,
		Merchant:         tx.MerchantName,
		FraudProbability: tx.FraudProbability,
		Priority:         priority,
		Status:           AlertStatusNew,
		CreatedAt:        time.Now().UTC(),
	}
}
