package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/bank-account-service/internal/cqrs"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/eaglebank/bank-account-service/internal/repository"
)

type CustomerClient interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
}

type AccountQueryService struct {
	readRepo  repository.AccountReader
	customers CustomerClient
}

// NewAccountQueryService serves reads from readRepo, which is normally a
// cache-fronted *repository.AccountReadRepository.
func NewAccountQueryService(readRepo repository.AccountReader, customers CustomerClient) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo, customers: customers}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error) {
	return s.readRepo.Get(ctx, q.AccountID)
}

// ListAccounts filters by customer, and by type when both are given.
// A type filter without a customer is ignored.
func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.Account, error) {
	var (
		accounts []models.Account
		err      error
	)
	switch {
	case q.CustomerID != "" && q.Type != "":
		accounts, err = s.readRepo.ListByCustomerAndType(ctx, q.CustomerID, q.Type)
	case q.CustomerID != "":
		accounts, err = s.readRepo.ListByCustomer(ctx, q.CustomerID)
	default:
		accounts, err = s.readRepo.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// ValidateBankAccount returns the first account the customer holds of the
// given type, or repository.ErrNotFound.
func (s *AccountQueryService) ValidateBankAccount(ctx context.Context, q cqrs.ValidateBankAccountQuery) (*models.Account, error) {
	accounts, err := s.readRepo.ListByCustomerAndType(ctx, q.CustomerID, q.Type)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: customer %s has no %s account", repository.ErrNotFound, q.CustomerID, q.Type)
	}
	return &accounts[0], nil
}

func (s *AccountQueryService) ListByDebitCard(ctx context.Context, q cqrs.ListByDebitCardQuery) ([]models.Account, error) {
	accounts, err := s.readRepo.ListByDebitCard(ctx, q.DebitCardID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

func (s *AccountQueryService) FindByNumber(ctx context.Context, q cqrs.FindByNumberQuery) (*models.Account, error) {
	return s.readRepo.FindByNumber(ctx, q.NumberAccount)
}

func (s *AccountQueryService) Exists(ctx context.Context, q cqrs.GetAccountQuery) (bool, error) {
	return s.readRepo.Exists(ctx, q.AccountID)
}

// GetCustomer passes through to the customer registry.
func (s *AccountQueryService) GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.Customer, error) {
	return s.customers.GetCustomer(ctx, q.CustomerID)
}
