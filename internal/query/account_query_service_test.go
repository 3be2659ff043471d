package query

import (
	"context"
	"testing"

	"github.com/eaglebank/bank-account-service/internal/cqrs"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/eaglebank/bank-account-service/internal/peer"
	"github.com/eaglebank/bank-account-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCustomers struct {
	getFn func(ctx context.Context, customerID string) (*models.Customer, error)
}

func (m *mockCustomers) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	return m.getFn(ctx, customerID)
}

func newService(t *testing.T) *AccountQueryService {
	t.Helper()
	store := repository.NewMemoryAccountRepository()
	seed := []models.Account{
		{ID: "a1", CustomerID: "c1", Type: "savings", NumberAccount: "19100000000001", DebitCardID: "card-1"},
		{ID: "a2", CustomerID: "c1", Type: "checking", NumberAccount: "19100000000002", DebitCardID: "card-1"},
		{ID: "a3", CustomerID: "c2", Type: "savings", NumberAccount: "19100000000003"},
	}
	for i := range seed {
		seed[i].Amount = decimal.NewFromInt(10)
		require.NoError(t, store.Create(context.Background(), &seed[i]))
	}

	customers := &mockCustomers{getFn: func(_ context.Context, id string) (*models.Customer, error) {
		if id == "c1" {
			return &models.Customer{ID: "c1", Type: models.CustomerBusiness}, nil
		}
		return nil, peer.ErrNotFound
	}}
	return NewAccountQueryService(repository.NewAccountReadRepository(store, nil, 0), customers)
}

func TestAccountQueryService_GetAndFind(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	account, err := s.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: "a2"})
	require.NoError(t, err)
	assert.Equal(t, "checking", account.Type)

	_, err = s.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: "zz"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	byNumber, err := s.FindByNumber(ctx, cqrs.FindByNumberQuery{NumberAccount: "19100000000003"})
	require.NoError(t, err)
	assert.Equal(t, "a3", byNumber.ID)

	exists, err := s.Exists(ctx, cqrs.GetAccountQuery{AccountID: "a1"})
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountQueryService_ListAccounts(t *testing.T) {
	s := newService(t)

	tests := []struct {
		name    string
		query   cqrs.ListAccountsQuery
		wantIDs []string
	}{
		{name: "all", query: cqrs.ListAccountsQuery{}, wantIDs: []string{"a1", "a2", "a3"}},
		{name: "by customer", query: cqrs.ListAccountsQuery{CustomerID: "c1"}, wantIDs: []string{"a1", "a2"}},
		{name: "by customer and type", query: cqrs.ListAccountsQuery{CustomerID: "c1", Type: "checking"}, wantIDs: []string{"a2"}},
		{name: "type alone is ignored", query: cqrs.ListAccountsQuery{Type: "checking"}, wantIDs: []string{"a1", "a2", "a3"}},
		{name: "no match", query: cqrs.ListAccountsQuery{CustomerID: "c9"}, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, err := s.ListAccounts(context.Background(), tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(accounts))
			for _, a := range accounts {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAccountQueryService_ValidateBankAccount(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	account, err := s.ValidateBankAccount(ctx, cqrs.ValidateBankAccountQuery{CustomerID: "c1", Type: "savings"})
	require.NoError(t, err)
	assert.Equal(t, "a1", account.ID)

	_, err = s.ValidateBankAccount(ctx, cqrs.ValidateBankAccountQuery{CustomerID: "c2", Type: "checking"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountQueryService_ListByDebitCardAndCustomer(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	accounts, err := s.ListByDebitCard(ctx, cqrs.ListByDebitCardQuery{DebitCardID: "card-1"})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	none, err := s.ListByDebitCard(ctx, cqrs.ListByDebitCardQuery{DebitCardID: "card-x"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	customer, err := s.GetCustomer(ctx, cqrs.GetCustomerQuery{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerBusiness, customer.Type)

	_, err = s.GetCustomer(ctx, cqrs.GetCustomerQuery{CustomerID: "c2"})
	assert.ErrorIs(t, err, peer.ErrNotFound)
}
