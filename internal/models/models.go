package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for creation and ledger dates.
const DateLayout = "2006-01-02"

// Account is the write model owned by the AccountStore.
// Version is bumped by the store on every successful write.
type Account struct {
	ID                   string          `json:"id"`
	CustomerID           string          `json:"customerId"`
	Type                 string          `json:"type"`
	NumberAccount        string          `json:"numberAccount"`
	Amount               decimal.Decimal `json:"amount"`
	NumberOfTransactions int             `json:"numberOfTransactions"`
	TransactionLimit     int             `json:"transactionLimit"`
	Commission           decimal.Decimal `json:"commission"`
	DebitCardID          string          `json:"debitCardId,omitempty"`
	AssociationDate      string          `json:"associationDate,omitempty"`
	PrimaryAccount       bool            `json:"primaryAccount"`
	CreationDate         string          `json:"creationDate"`
	Version              int64           `json:"version"`
}

// Operation is a single deposit or withdrawal request against one account.
type Operation struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

// TransactionType is the movement kind reported to the ledger.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionCommission TransactionType = "commission"
)

// Transaction is the ledger record for one balance movement. It is never stored locally.
type Transaction struct {
	ID            string          `json:"id,omitempty"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	CustomerID    string          `json:"customerId"`
	AccountID     string          `json:"accountId"`
	AccountAmount decimal.Decimal `json:"accountAmount"`
	DebitCardID   string          `json:"debitCardId,omitempty"`
}

type TransferRequest struct {
	SenderAccountID   string          `json:"senderAccountId"`
	ReceptorAccountID string          `json:"receptorAccountId"`
	Amount            decimal.Decimal `json:"amount"`
}

type PayCreditRequest struct {
	SenderAccountID  string          `json:"senderAccountId"`
	ReceptorCreditID string          `json:"receptorCreditId"`
	Amount           decimal.Decimal `json:"amount"`
}

// Customer is the subset of the customer registry record this service reads.
type Customer struct {
	ID             string       `json:"id"`
	Type           CustomerType `json:"type"`
	Name           string       `json:"name,omitempty"`
	LastName       string       `json:"lastName,omitempty"`
	DocumentNumber string       `json:"documentNumber,omitempty"`
}

type Debt struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customerId"`
	Amount         decimal.Decimal `json:"amount"`
	ExpirationDate string          `json:"expirationDate,omitempty"`
}

// CreditRecord is returned by the credit registry after a payment is accepted.
type CreditRecord struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
}

// AccountType is an entry of the account-type catalogue referenced by Account.Type.
type AccountType struct {
	ID          string          `json:"id"`
	Code        AccountTypeCode `json:"code"`
	Description string          `json:"description"`
}

// Today returns the current calendar day in DateLayout.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}
