package cqrs

import "github.com/shopspring/decimal"

type RegisterAccountCommand struct {
	CustomerID       string
	Type             string
	NumberAccount    string
	Amount           decimal.Decimal
	TransactionLimit int
	Commission       decimal.Decimal
}

type UpdateAccountCommand struct {
	AccountID        string
	Type             string
	NumberAccount    string
	TransactionLimit int
	Commission       decimal.Decimal
}

type DeleteAccountCommand struct {
	AccountID string
}

type AssociateDebitCardCommand struct {
	AccountID   string
	DebitCardID string
}
