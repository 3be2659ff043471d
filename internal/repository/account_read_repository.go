package repository

import (
	"context"
	"time"

	"github.com/eaglebank/bank-account-service/internal/models"
	sharedredis "github.com/eaglebank/bank-account-service/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const accountViewKeyPrefix = "account:view:"

// AccountReader is the read side of an account store.
type AccountReader interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	FindByNumber(ctx context.Context, numberAccount string) (*models.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.Account, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Account, error)
	ListByCustomerAndType(ctx context.Context, customerID, accountType string) ([]models.Account, error)
	ListByDebitCard(ctx context.Context, debitCardID string) ([]models.Account, error)
}

// AccountReadRepository handles all read operations for accounts.
// Single-account lookups try Redis first and fall back to the store, warming
// the cache on every cold read. Lists always go to the store.
type AccountReadRepository struct {
	AccountReader
	cache *sharedredis.ViewCache[models.Account]
}

// NewAccountReadRepository wraps store with a Redis view cache. A nil client
// disables caching.
func NewAccountReadRepository(store AccountReader, redisClient goredis.Cmdable, ttl time.Duration) *AccountReadRepository {
	r := &AccountReadRepository{AccountReader: store}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.Account](redisClient, accountViewKeyPrefix, ttl)
	}
	return r
}

func (r *AccountReadRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	if r.cache != nil {
		if account, ok := r.cache.Get(ctx, id); ok {
			return account, nil
		}
	}

	account, err := r.AccountReader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.CacheAccount(ctx, account)
	return account, nil
}

// CacheAccount stores or refreshes the cached view of an account.
// Called by the command service after every mutation.
func (r *AccountReadRepository) CacheAccount(ctx context.Context, account *models.Account) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, account.ID, account)
}

// InvalidateAccount removes the cached view of a deleted account.
func (r *AccountReadRepository) InvalidateAccount(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, id)
}
