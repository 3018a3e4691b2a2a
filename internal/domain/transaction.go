package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of merchant categories the scoring models were
// trained against. Anything outside this enum is rejected at the boundary.
type Category string

const (
	CategoryEntertainment Category = "entertainment"
	CategoryFoodDining    Category = "food_dining"
	CategoryGasTransport  Category = "gas_transport"
	CategoryGroceryNet    Category = "grocery_net"
	CategoryGroceryPOS    Category = "grocery_pos"
	CategoryHealthFitness Category = "health_fitness"
	CategoryHome          Category = "home"
	CategoryKidsPets      Category = "kids_pets"
	CategoryMiscNet       Category = "misc_net"
	CategoryMiscPOS       Category = "misc_pos"
	CategoryPersonalCare  Category = "personal_care"
	CategoryShoppingNet   Category = "shopping_net"
	CategoryShoppingPOS   Category = "shopping_pos"
	CategoryTravel        Category = "travel"
)

// Categories returns the closed category enum in its canonical order.
// The one-hot encoding in the feature schema follows this order exactly.
func Categories() []Category {
	return []Category{
		CategoryEntertainment, CategoryFoodDining, CategoryGasTransport,
		CategoryGroceryNet, CategoryGroceryPOS, CategoryHealthFitness,
		CategoryHome, CategoryKidsPets, CategoryMiscNet, CategoryMiscPOS,
		CategoryPersonalCare, CategoryShoppingNet, CategoryShoppingPOS,
		CategoryTravel,
	}
}

// Valid reports whether c belongs to the closed category enum.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	StatusSubmitted    TransactionStatus = "SUBMITTED"
	StatusApproved     TransactionStatus = "APPROVED"
	StatusRejected     TransactionStatus = "REJECTED"
	StatusFraudFlagged TransactionStatus = "FRAUD_FLAGGED"
)

// Terminal reports whether no further transitions may leave this status.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusFraudFlagged
}

// RiskTier is the discrete risk bucket derived from a fraud probability
type RiskTier string

const (
	TierLow    RiskTier = "LOW"
	TierMedium RiskTier = "MEDIUM"
	TierHigh   RiskTier = "HIGH"
)

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the pair holds the zero value. Only meaningful
// for value fields like an account home; request paths carry *Coordinates
// and use nil for absence.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Transaction is a credit transaction held for adjudication.
// fraud_probability and risk_tier are assigned exactly once at submission;
// status/resolved fields are mutated exactly once by an admin decision.
// Transactions are never deleted - they form the audit trail.
type Transaction struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	AccountID         uuid.UUID         `json:"account_id" db:"account_id"`
	Amount            float64           `json:"amount" db:"amount"`
	Category          Category          `json:"category" db:"category"`
	MerchantName      string            `json:"merchant_name" db:"merchant_name"`
	MerchantAddress   string            `json:"merchant_address,omitempty" db:"merchant_address"`
	Description       string            `json:"description,omitempty" db:"description"`
	SubmitterLocation Coordinates       `json:"submitter_location" db:"submitter_location"`
	MerchantLocation  Coordinates       `json:"merchant_location" db:"merchant_location"`
	FraudProbability  float64           `json:"fraud_probability" db:"fraud_probability"`
	RiskTier          RiskTier          `json:"risk_tier" db:"risk_tier"`
	Status            TransactionStatus `json:"status" db:"status"`
	SubmittedAt       time.Time         `json:"submitted_at" db:"submitted_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy        *string           `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNote    *string           `json:"resolution_note,omitempty" db:"resolution_note"`
	DecisionSignature string            `json:"-" db:"decision_signature"`
}

// NewTransaction creates a transaction in the Submitted state with an
// auto-generated ID. Probability and tier are attached by the scoring
// pipeline before the record becomes visible.
func NewTransaction(accountID uuid.UUID, amount float64, category Category) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Category:    category,
		Status:      StatusSubmitted,
		SubmittedAt: time.Now().UTC(),
	}
}
