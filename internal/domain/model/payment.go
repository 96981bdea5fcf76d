package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // checkout started, awaiting gateway callback
	PaymentStatusApproved PaymentStatus = "approved" // gateway reported 'A'
	PaymentStatusDeclined PaymentStatus = "declined" // any other gateway status
)

// GatewayStatusApproved is the single-character response code the gateway
// sends for a successful charge.
const GatewayStatusApproved = "A"

// PaymentTransaction records one checkout attempt and its gateway outcome.
// The unique TranRef is the idempotence anchor: replaying an approved
// callback finds the existing row instead of granting premium twice.
type PaymentTransaction struct {
	ID        string
	AccountID string
	CartID    string  // our order identifier, handed to the gateway
	TranRef   *string // gateway transaction reference, set on callback
	Status    PaymentStatus
	RawStatus string // gateway respStatus as received
	Message   string // gateway respMessage, kept for support lookups
	Amount    Money
	PromoID   *string // consumed promo code, if any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPendingTransaction opens a checkout attempt. The CartID doubles as the
// ID so the gateway round-trips a single opaque token.
func NewPendingTransaction(accountID string, amount Money, promoID *string) *PaymentTransaction {
	now := time.Now()
	id := ulid.Make().String()
	return &PaymentTransaction{
		ID:        id,
		AccountID: accountID,
		CartID:    id,
		Status:    PaymentStatusPending,
		Amount:    amount,
		PromoID:   promoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
