package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/eaglebank/bank-account-service/internal/models"
)

// DefaultAccountTypes is the catalogue seeded into fresh stores.
var DefaultAccountTypes = []models.AccountType{
	{ID: "savings", Code: models.CodeSavings, Description: "Savings account"},
	{ID: "fixed-term", Code: models.CodeFixedTerm, Description: "Fixed-term deposit account"},
	{ID: "checking", Code: models.CodeChecking, Description: "Checking account"},
}

// MemoryAccountRepository keeps accounts in process memory. It applies the
// same version rules as the database stores.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	seq      map[string]int64
	next     int64
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]models.Account),
		seq:      make(map[string]int64),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return ErrDuplicate
	}
	for _, a := range r.accounts {
		if a.NumberAccount == account.NumberAccount {
			return ErrDuplicate
		}
	}
	account.Version = 1
	r.accounts[account.ID] = *account
	r.next++
	r.seq[account.ID] = r.next
	return nil
}

func (r *MemoryAccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccountRepository) FindByNumber(ctx context.Context, numberAccount string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.NumberAccount == numberAccount {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != account.Version {
		return ErrVersionConflict
	}
	account.Version++
	r.accounts[account.ID] = *account
	return nil
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryAccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[id]
	return ok, nil
}

func (r *MemoryAccountRepository) List(ctx context.Context) ([]models.Account, error) {
	return r.filter(func(models.Account) bool { return true }), nil
}

func (r *MemoryAccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Account, error) {
	return r.filter(func(a models.Account) bool { return a.CustomerID == customerID }), nil
}

func (r *MemoryAccountRepository) ListByCustomerAndType(ctx context.Context, customerID, accountType string) ([]models.Account, error) {
	return r.filter(func(a models.Account) bool {
		return a.CustomerID == customerID && a.Type == accountType
	}), nil
}

func (r *MemoryAccountRepository) ListByDebitCard(ctx context.Context, debitCardID string) ([]models.Account, error) {
	return r.filter(func(a models.Account) bool { return a.DebitCardID == debitCardID }), nil
}

// filter returns matching accounts in insertion order.
func (r *MemoryAccountRepository) filter(match func(models.Account) bool) []models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Account
	for _, a := range r.accounts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out
}

// MemoryAccountTypeRepository is a fixed account-type catalogue.
type MemoryAccountTypeRepository struct {
	types map[string]models.AccountType
}

func NewMemoryAccountTypeRepository(types ...models.AccountType) *MemoryAccountTypeRepository {
	if len(types) == 0 {
		types = DefaultAccountTypes
	}
	r := &MemoryAccountTypeRepository{types: make(map[string]models.AccountType, len(types))}
	for _, t := range types {
		r.types[t.ID] = t
	}
	return r
}

func (r *MemoryAccountTypeRepository) Get(ctx context.Context, id string) (*models.AccountType, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, ErrTypeNotFound
	}
	return &t, nil
}
