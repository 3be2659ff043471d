package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/bank-account-service/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(id, number string) *models.Account {
	return &models.Account{
		ID:            id,
		CustomerID:    "cust-1",
		Type:          "savings",
		NumberAccount: number,
		Amount:        decimal.NewFromInt(100),
		Commission:    decimal.NewFromInt(1),
		CreationDate:  "2024-01-01",
	}
}

func TestMemoryAccountRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	account := newAccount("acc-1", "19100000000001")
	require.NoError(t, repo.Create(ctx, account))
	assert.Equal(t, int64(1), account.Version)

	got, err := repo.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "19100000000001", got.NumberAccount)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))

	byNumber, err := repo.FindByNumber(ctx, "19100000000001")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", byNumber.ID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Create(ctx, newAccount("acc-2", "19100000000001")), ErrDuplicate)
	assert.ErrorIs(t, repo.Create(ctx, newAccount("acc-1", "19100000000002")), ErrDuplicate)
}

func TestMemoryAccountRepository_UpdateVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount("acc-1", "19100000000001")))

	first, err := repo.Get(ctx, "acc-1")
	require.NoError(t, err)
	stale, err := repo.Get(ctx, "acc-1")
	require.NoError(t, err)

	first.Amount = decimal.NewFromInt(150)
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Amount = decimal.NewFromInt(10)
	assert.ErrorIs(t, repo.Update(ctx, stale), ErrVersionConflict)

	got, err := repo.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))

	assert.ErrorIs(t, repo.Update(ctx, newAccount("missing", "19100000000009")), ErrNotFound)
}

func TestMemoryAccountRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	a := newAccount("acc-1", "19100000000001")
	a.DebitCardID = "card-1"
	b := newAccount("acc-2", "19100000000002")
	b.Type = "checking"
	b.DebitCardID = "card-1"
	c := newAccount("acc-3", "19100000000003")
	c.CustomerID = "cust-2"
	for _, acc := range []*models.Account{a, b, c} {
		require.NoError(t, repo.Create(ctx, acc))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byCustomer, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, "acc-1", byCustomer[0].ID)
	assert.Equal(t, "acc-2", byCustomer[1].ID)

	byType, err := repo.ListByCustomerAndType(ctx, "cust-1", "checking")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "acc-2", byType[0].ID)

	byCard, err := repo.ListByDebitCard(ctx, "card-1")
	require.NoError(t, err)
	assert.Len(t, byCard, 2)

	require.NoError(t, repo.Delete(ctx, "acc-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "acc-1"), ErrNotFound)
	exists, err := repo.Exists(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryAccountTypeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountTypeRepository()

	checking, err := repo.Get(ctx, "checking")
	require.NoError(t, err)
	assert.Equal(t, models.CodeChecking, checking.Code)

	_, err = repo.Get(ctx, "premium")
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestAccountReadRepository_CacheFirst(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewMemoryAccountRepository()
	require.NoError(t, store.Create(ctx, newAccount("acc-1", "19100000000001")))

	reader := NewAccountReadRepository(store, rdb, time.Minute)

	got, err := reader.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.True(t, mr.Exists(accountViewKeyPrefix+"acc-1"), "cold read should warm the cache")

	// Served from cache even after the store loses the row.
	require.NoError(t, store.Delete(ctx, "acc-1"))
	cached, err := reader.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, cached.Amount.Equal(decimal.NewFromInt(100)))

	reader.InvalidateAccount(ctx, "acc-1")
	_, err = reader.Get(ctx, "acc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountReadRepository_NoCache(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAccountRepository()
	require.NoError(t, store.Create(ctx, newAccount("acc-1", "19100000000001")))

	reader := NewAccountReadRepository(store, nil, 0)
	reader.CacheAccount(ctx, newAccount("acc-1", "19100000000001"))

	got, err := reader.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)

	list, err := reader.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
