package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	AccountRegistered     = "account.registered"
	AccountUpdated        = "account.updated"
	AccountDeleted        = "account.deleted"
	AccountCardAssociated = "account.card.associated"
	AccountMadePrimary    = "account.primary"

	BalanceUpdated = "balance.updated"

	CommissionApplied = "commission.applied"
	CommissionSkipped = "commission.skipped"
	CommissionFailed  = "commission.failed"
)

// Stream names
const (
	AccountEventsStream = "account.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Account events
type AccountRegisteredEvent struct {
	AccountID     string `json:"accountId"`
	CustomerID    string `json:"customerId"`
	Type          string `json:"type"`
	NumberAccount string `json:"numberAccount"`
}

type AccountUpdatedEvent struct {
	AccountID string `json:"accountId"`
	Version   int64  `json:"version"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"accountId"`
}

type AccountCardAssociatedEvent struct {
	AccountID   string `json:"accountId"`
	DebitCardID string `json:"debitCardId"`
}

type AccountMadePrimaryEvent struct {
	AccountID string `json:"accountId"`
}

// Balance events
type BalanceUpdatedEvent struct {
	AccountID       string          `json:"accountId"`
	TransactionType string          `json:"transactionType"`
	Change          decimal.Decimal `json:"change"`
	NewBalance      decimal.Decimal `json:"newBalance"`
}

// CommissionEvent reports the outcome of a commission check. Reason is set
// for skipped and failed outcomes.
type CommissionEvent struct {
	AccountID  string          `json:"accountId"`
	Commission decimal.Decimal `json:"commission"`
	NewBalance decimal.Decimal `json:"newBalance,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}
