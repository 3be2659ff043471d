package peer

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/shopspring/decimal"
)

type CustomerClient struct {
	client
}

func NewCustomerClient(baseURL string, timeout time.Duration) *CustomerClient {
	return &CustomerClient{client: newClient("customer-service", baseURL, timeout)}
}

// GetCustomer returns ErrNotFound when the registry has no such customer.
func (c *CustomerClient) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	var customer models.Customer
	if err := c.do(ctx, http.MethodGet, "/customer/"+url.PathEscape(customerID), nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

type DebtClient struct {
	client
}

func NewDebtClient(baseURL string, timeout time.Duration) *DebtClient {
	return &DebtClient{client: newClient("debt-service", baseURL, timeout)}
}

// ListDebts returns the customer's overdue debts. A 404 is an empty list.
func (c *DebtClient) ListDebts(ctx context.Context, customerID string) ([]models.Debt, error) {
	var debts []models.Debt
	err := c.do(ctx, http.MethodGet, "/bankDebt/debtByCustomerId/"+url.PathEscape(customerID), nil, &debts)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return debts, nil
}

type CreditClient struct {
	client
}

func NewCreditClient(baseURL string, timeout time.Duration) *CreditClient {
	return &CreditClient{client: newClient("credit-service", baseURL, timeout)}
}

// PayCredit applies amount to the credit identified by creditID.
func (c *CreditClient) PayCredit(ctx context.Context, creditID string, amount decimal.Decimal) (*models.CreditRecord, error) {
	body := models.Operation{AccountID: creditID, Amount: amount}
	var record models.CreditRecord
	if err := c.do(ctx, http.MethodPut, "/bankCredit/paycredit", body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

type LedgerClient struct {
	client
}

// NewLedgerClient returns a client whose 404 answers are failures: the ledger
// endpoint always exists, so a 404 never means a missing account.
func NewLedgerClient(baseURL string, timeout time.Duration) *LedgerClient {
	c := newClient("transaction-service", baseURL, timeout)
	c.notFound = false
	return &LedgerClient{client: c}
}

// Record posts a transaction and returns the ledger's acknowledged copy.
func (c *LedgerClient) Record(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	var recorded models.Transaction
	if err := c.do(ctx, http.MethodPost, "/transaction/", tx, &recorded); err != nil {
		return nil, err
	}
	return &recorded, nil
}
