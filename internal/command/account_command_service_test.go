package command

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/bank-account-service/internal/cqrs"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/eaglebank/bank-account-service/internal/peer"
	"github.com/eaglebank/bank-account-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockCustomers struct {
	getFn func(ctx context.Context, customerID string) (*models.Customer, error)
}

func (m *mockCustomers) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	return m.getFn(ctx, customerID)
}

type mockDebts struct {
	listFn func(ctx context.Context, customerID string) ([]models.Debt, error)
}

func (m *mockDebts) ListDebts(ctx context.Context, customerID string) ([]models.Debt, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, customerID)
}

type mockCredits struct {
	calls int
	payFn func(ctx context.Context, creditID string, amount decimal.Decimal) (*models.CreditRecord, error)
}

func (m *mockCredits) PayCredit(ctx context.Context, creditID string, amount decimal.Decimal) (*models.CreditRecord, error) {
	m.calls++
	if m.payFn == nil {
		return &models.CreditRecord{ID: creditID, Amount: amount}, nil
	}
	return m.payFn(ctx, creditID, amount)
}

type fakeLedger struct {
	mu      sync.Mutex
	records []models.Transaction
	err     error
}

func (l *fakeLedger) Record(_ context.Context, tx models.Transaction) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.records = append(l.records, tx)
	return &tx, nil
}

func (l *fakeLedger) recorded() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Transaction(nil), l.records...)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, _, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

type commissionCall struct {
	accountID string
	outcome   CommissionOutcome
	err       error
}

type fixture struct {
	service     *AccountCommandService
	store       *repository.MemoryAccountRepository
	customers   *mockCustomers
	debts       *mockDebts
	credits     *mockCredits
	ledger      *fakeLedger
	publisher   *recordingPublisher
	mu          sync.Mutex
	commissions []commissionCall
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryAccountRepository(),
		customers: &mockCustomers{getFn: func(_ context.Context, id string) (*models.Customer, error) {
			return &models.Customer{ID: id, Type: models.CustomerPersonal}, nil
		}},
		debts:     &mockDebts{},
		credits:   &mockCredits{},
		ledger:    &fakeLedger{},
		publisher: &recordingPublisher{},
	}
	f.service = NewAccountCommandService(Dependencies{
		Store:     f.store,
		Types:     repository.NewMemoryAccountTypeRepository(),
		Customers: f.customers,
		Debts:     f.debts,
		Credits:   f.credits,
		Ledger:    f.ledger,
		Publisher: f.publisher,
		OnCommission: func(_ context.Context, accountID string, outcome CommissionOutcome, err error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.commissions = append(f.commissions, commissionCall{accountID: accountID, outcome: outcome, err: err})
		},
	})
	return f
}

func (f *fixture) seed(t *testing.T, id string, amount int64, count, limit int, commission int64) {
	t.Helper()
	require.NoError(t, f.store.Create(context.Background(), &models.Account{
		ID:                   id,
		CustomerID:           "cust-" + id,
		Type:                 "savings",
		NumberAccount:        "191000000000" + id,
		Amount:               decimal.NewFromInt(amount),
		NumberOfTransactions: count,
		TransactionLimit:     limit,
		Commission:           decimal.NewFromInt(commission),
		CreationDate:         "2024-01-01",
	}))
}

func (f *fixture) stored(t *testing.T, id string) *models.Account {
	t.Helper()
	account, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return account
}

func (f *fixture) lastCommission(t *testing.T) commissionCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.commissions)
	return f.commissions[len(f.commissions)-1]
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// --- Deposit / Withdraw ---

func TestDeposit_AppliesCommissionWhenLimitExceeded(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 5, 5, 10)

	account, err := f.service.Deposit(context.Background(), models.Operation{AccountID: "01", Amount: dec(50)})
	require.NoError(t, err)

	assert.True(t, account.Amount.Equal(dec(150)), "deposit result reflects the deposit")
	assert.Equal(t, 6, account.NumberOfTransactions)

	stored := f.stored(t, "01")
	assert.True(t, stored.Amount.Equal(dec(140)), "got %s", stored.Amount)
	assert.Equal(t, 6, stored.NumberOfTransactions, "commission does not count as a transaction")

	records := f.ledger.recorded()
	require.Len(t, records, 2)
	assert.Equal(t, models.TransactionDeposit, records[0].Type)
	assert.True(t, records[0].AccountAmount.Equal(dec(150)))
	assert.Equal(t, models.TransactionCommission, records[1].Type)
	assert.True(t, records[1].Amount.Equal(dec(10)))
	assert.True(t, records[1].AccountAmount.Equal(dec(140)))
	assert.Equal(t, "cust-01", records[1].CustomerID)

	call := f.lastCommission(t)
	assert.Equal(t, CommissionApplied, call.outcome)
	assert.NoError(t, call.err)
}

func TestDeposit_CommissionNotDue(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	account, err := f.service.Deposit(context.Background(), models.Operation{AccountID: "01", Amount: dec(25)})
	require.NoError(t, err)
	assert.True(t, account.Amount.Equal(dec(125)))
	assert.Equal(t, 1, account.NumberOfTransactions)

	call := f.lastCommission(t)
	assert.Equal(t, CommissionSkipped, call.outcome)
	assert.ErrorIs(t, call.err, ErrCommissionNotDue)
	assert.Len(t, f.ledger.recorded(), 1)
}

func TestWithdraw_CommissionSkippedWhenItWouldOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 55, 10, 5, 10)

	account, err := f.service.Withdraw(context.Background(), models.Operation{AccountID: "01", Amount: dec(50)})
	require.NoError(t, err)
	assert.True(t, account.Amount.Equal(dec(5)))

	call := f.lastCommission(t)
	assert.Equal(t, CommissionSkipped, call.outcome)
	assert.ErrorIs(t, call.err, ErrInsufficientFunds)
	assert.True(t, f.stored(t, "01").Amount.Equal(dec(5)))
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 30, 2, 5, 10)

	account, err := f.service.Withdraw(context.Background(), models.Operation{AccountID: "01", Amount: dec(50)})
	assert.Nil(t, account)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, IsNoOp(err))

	stored := f.stored(t, "01")
	assert.True(t, stored.Amount.Equal(dec(30)))
	assert.Equal(t, 2, stored.NumberOfTransactions)
	assert.Equal(t, int64(1), stored.Version)
	assert.Empty(t, f.ledger.recorded())
}

func TestWithdraw_ExactBalanceLeavesZero(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 30, 0, 5, 10)

	account, err := f.service.Withdraw(context.Background(), models.Operation{AccountID: "01", Amount: dec(30)})
	require.NoError(t, err)
	assert.True(t, account.Amount.IsZero())
}

func TestMovement_LedgerFailurePreventsPersist(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 3, 5, 10)
	f.ledger.err = &peer.Error{Service: "transaction-service", StatusCode: 503}

	_, err := f.service.Deposit(context.Background(), models.Operation{AccountID: "01", Amount: dec(50)})
	require.Error(t, err)
	assert.True(t, IsPeerFailure(err))

	stored := f.stored(t, "01")
	assert.True(t, stored.Amount.Equal(dec(100)))
	assert.Equal(t, 3, stored.NumberOfTransactions)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.commissions, "no commission check after a failed movement")
}

func TestMovement_LedgerNotFoundIsPeerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)
	service := NewAccountCommandService(Dependencies{
		Store:     f.store,
		Types:     repository.NewMemoryAccountTypeRepository(),
		Customers: f.customers,
		Debts:     f.debts,
		Credits:   f.credits,
		Ledger:    peer.NewLedgerClient(server.URL, time.Second),
	})

	_, err := service.Deposit(context.Background(), models.Operation{AccountID: "01", Amount: dec(10)})
	require.Error(t, err)
	assert.True(t, IsPeerFailure(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "error", outcomeOf(err))

	stored := f.stored(t, "01")
	assert.True(t, stored.Amount.Equal(dec(100)))
	assert.Zero(t, stored.NumberOfTransactions)
}

func TestMovement_Validation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	tests := []struct {
		name    string
		op      models.Operation
		wantErr error
	}{
		{name: "zero amount", op: models.Operation{AccountID: "01", Amount: decimal.Zero}, wantErr: ErrInvalidAmount},
		{name: "negative amount", op: models.Operation{AccountID: "01", Amount: dec(-5)}, wantErr: ErrInvalidAmount},
		{name: "unknown account", op: models.Operation{AccountID: "nope", Amount: dec(5)}, wantErr: ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Deposit(context.Background(), tt.op)
			assert.ErrorIs(t, err, tt.wantErr)
			_, err = f.service.Withdraw(context.Background(), tt.op)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.ledger.recorded())
}

func TestWithdraw_ConcurrentCallsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 1000, 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Withdraw(context.Background(), models.Operation{AccountID: "01", Amount: dec(10)})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	stored := f.stored(t, "01")
	assert.Equal(t, 10, succeeded)
	assert.True(t, stored.Amount.IsZero(), "got %s", stored.Amount)
	assert.Equal(t, 10, stored.NumberOfTransactions)
	assert.Len(t, f.ledger.recorded(), 10)
}

// gateCache blocks the first CacheAccount call until hold is closed.
type gateCache struct {
	mu      sync.Mutex
	views   map[string]models.Account
	once    sync.Once
	entered chan struct{}
	hold    chan struct{}
}

func (c *gateCache) CacheAccount(_ context.Context, account *models.Account) {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.hold
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[account.ID] = *account
}

func (c *gateCache) InvalidateAccount(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, id)
}

func TestDeposit_CacheRefreshedInLockOrder(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 1000, 0)
	cache := &gateCache{
		views:   make(map[string]models.Account),
		entered: make(chan struct{}),
		hold:    make(chan struct{}),
	}
	service := NewAccountCommandService(Dependencies{
		Store:     f.store,
		Types:     repository.NewMemoryAccountTypeRepository(),
		Customers: f.customers,
		Debts:     f.debts,
		Credits:   f.credits,
		Ledger:    f.ledger,
		Cache:     cache,
	})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := service.Deposit(ctx, models.Operation{AccountID: "01", Amount: dec(10)})
		first <- err
	}()
	<-cache.entered

	second := make(chan error, 1)
	go func() {
		_, err := service.Deposit(ctx, models.Operation{AccountID: "01", Amount: dec(5)})
		second <- err
	}()

	select {
	case <-second:
		t.Fatal("second deposit completed while the first still held the account")
	case <-time.After(50 * time.Millisecond):
	}

	close(cache.hold)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	stored := f.stored(t, "01")
	cache.mu.Lock()
	cached := cache.views["01"]
	cache.mu.Unlock()
	assert.True(t, stored.Amount.Equal(dec(115)), "got %s", stored.Amount)
	assert.True(t, cached.Amount.Equal(stored.Amount), "cached %s, stored %s", cached.Amount, stored.Amount)
	assert.Equal(t, stored.Version, cached.Version)
}

// --- Transfer / PayCredit ---

func TestTransfer_MovesFunds(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)
	f.seed(t, "02", 10, 0, 5, 10)

	receptor, err := f.service.TransferBetweenAccounts(context.Background(), models.TransferRequest{
		SenderAccountID:   "01",
		ReceptorAccountID: "02",
		Amount:            dec(40),
	})
	require.NoError(t, err)
	assert.Equal(t, "02", receptor.ID)
	assert.True(t, receptor.Amount.Equal(dec(50)))
	assert.True(t, f.stored(t, "01").Amount.Equal(dec(60)))

	records := f.ledger.recorded()
	require.Len(t, records, 2)
	assert.Equal(t, models.TransactionWithdrawal, records[0].Type)
	assert.Equal(t, "01", records[0].AccountID)
	assert.Equal(t, models.TransactionDeposit, records[1].Type)
	assert.Equal(t, "02", records[1].AccountID)
}

func TestTransfer_InsufficientFundsSkipsDeposit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 20, 0, 5, 10)
	f.seed(t, "02", 10, 0, 5, 10)

	receptor, err := f.service.TransferBetweenAccounts(context.Background(), models.TransferRequest{
		SenderAccountID:   "01",
		ReceptorAccountID: "02",
		Amount:            dec(50),
	})
	assert.Nil(t, receptor)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, f.stored(t, "01").Amount.Equal(dec(20)))
	assert.True(t, f.stored(t, "02").Amount.Equal(dec(10)))
	assert.Equal(t, 0, f.stored(t, "02").NumberOfTransactions)
	assert.Empty(t, f.ledger.recorded())
}

func TestTransfer_MissingReceptorLeavesSenderDebited(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	_, err := f.service.TransferBetweenAccounts(context.Background(), models.TransferRequest{
		SenderAccountID:   "01",
		ReceptorAccountID: "missing",
		Amount:            dec(30),
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.True(t, f.stored(t, "01").Amount.Equal(dec(70)))
}

func TestPayCredit(t *testing.T) {
	t.Run("pays then withdraws", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "01", 100, 0, 5, 10)

		var paid decimal.Decimal
		f.credits.payFn = func(_ context.Context, creditID string, amount decimal.Decimal) (*models.CreditRecord, error) {
			assert.Equal(t, "credit-9", creditID)
			assert.Empty(t, f.ledger.recorded(), "credit is paid before the withdrawal")
			paid = amount
			return &models.CreditRecord{ID: creditID, Amount: amount}, nil
		}

		account, err := f.service.PayCreditFromAccount(context.Background(), models.PayCreditRequest{
			SenderAccountID:  "01",
			ReceptorCreditID: "credit-9",
			Amount:           dec(60),
		})
		require.NoError(t, err)
		assert.True(t, paid.Equal(dec(60)))
		assert.True(t, account.Amount.Equal(dec(40)))
	})

	t.Run("credit failure skips withdrawal", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "01", 100, 0, 5, 10)
		f.credits.payFn = func(context.Context, string, decimal.Decimal) (*models.CreditRecord, error) {
			return nil, &peer.Error{Service: "credit-service", StatusCode: 500}
		}

		_, err := f.service.PayCreditFromAccount(context.Background(), models.PayCreditRequest{
			SenderAccountID: "01", ReceptorCreditID: "c", Amount: dec(60),
		})
		assert.True(t, IsPeerFailure(err))
		assert.True(t, f.stored(t, "01").Amount.Equal(dec(100)))
		assert.Empty(t, f.ledger.recorded())
	})

	t.Run("unknown credit", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "01", 100, 0, 5, 10)
		f.credits.payFn = func(context.Context, string, decimal.Decimal) (*models.CreditRecord, error) {
			return nil, peer.ErrNotFound
		}

		_, err := f.service.PayCreditFromAccount(context.Background(), models.PayCreditRequest{
			SenderAccountID: "01", ReceptorCreditID: "c", Amount: dec(60),
		})
		assert.ErrorIs(t, err, ErrCreditNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing sender never pays", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.PayCreditFromAccount(context.Background(), models.PayCreditRequest{
			SenderAccountID: "nope", ReceptorCreditID: "c", Amount: dec(60),
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Zero(t, f.credits.calls)
	})

	t.Run("insufficient funds after payment", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "01", 10, 0, 5, 10)

		_, err := f.service.PayCreditFromAccount(context.Background(), models.PayCreditRequest{
			SenderAccountID: "01", ReceptorCreditID: "c", Amount: dec(60),
		})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, 1, f.credits.calls)
	})
}

// --- Registration ---

func TestRegisterWithValidation(t *testing.T) {
	tests := []struct {
		name         string
		customerType models.CustomerType
		accountType  string
		debts        []models.Debt
		wantErr      error
	}{
		{name: "personal without debt", customerType: models.CustomerPersonal, accountType: "savings"},
		{name: "personal with debt", customerType: models.CustomerPersonal, accountType: "savings",
			debts: []models.Debt{{ID: "d1"}}, wantErr: ErrOverdueDebt},
		{name: "business checking", customerType: models.CustomerBusiness, accountType: "checking"},
		{name: "business savings", customerType: models.CustomerBusiness, accountType: "savings",
			wantErr: ErrRegistrationSkipped},
		{name: "other segment without debt", customerType: models.CustomerType(9), accountType: "savings"},
		{name: "other segment with debt", customerType: models.CustomerType(9), accountType: "savings",
			debts: []models.Debt{{ID: "d1"}}, wantErr: ErrOverdueDebt},
		{name: "unknown type", customerType: models.CustomerPersonal, accountType: "premium",
			wantErr: ErrAccountTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.customers.getFn = func(_ context.Context, id string) (*models.Customer, error) {
				return &models.Customer{ID: id, Type: tt.customerType}, nil
			}
			f.debts.listFn = func(context.Context, string) ([]models.Debt, error) {
				return tt.debts, nil
			}

			account, err := f.service.RegisterWithValidation(context.Background(), cqrs.RegisterAccountCommand{
				CustomerID:       "c1",
				Type:             tt.accountType,
				Amount:           dec(100),
				TransactionLimit: 5,
				Commission:       dec(2),
			})

			all, listErr := f.store.List(context.Background())
			require.NoError(t, listErr)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, account)
				assert.Empty(t, all, "no account is created")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, account.ID)
			assert.Len(t, account.NumberAccount, 14)
			assert.Equal(t, models.Today(), account.CreationDate)
			assert.Equal(t, "c1", account.CustomerID)
			assert.Len(t, all, 1)
		})
	}
}

func TestRegisterWithValidation_PeerErrors(t *testing.T) {
	t.Run("customer not found", func(t *testing.T) {
		f := newFixture(t)
		f.customers.getFn = func(context.Context, string) (*models.Customer, error) {
			return nil, peer.ErrNotFound
		}
		_, err := f.service.RegisterWithValidation(context.Background(), cqrs.RegisterAccountCommand{CustomerID: "x", Type: "savings"})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	t.Run("debt service down", func(t *testing.T) {
		f := newFixture(t)
		f.debts.listFn = func(context.Context, string) ([]models.Debt, error) {
			return nil, &peer.Error{Service: "debt-service", Err: errors.New("connection refused")}
		}
		_, err := f.service.RegisterWithValidation(context.Background(), cqrs.RegisterAccountCommand{CustomerID: "x", Type: "savings"})
		assert.True(t, IsPeerFailure(err))
	})

	t.Run("keeps requested number", func(t *testing.T) {
		f := newFixture(t)
		account, err := f.service.RegisterWithValidation(context.Background(), cqrs.RegisterAccountCommand{
			CustomerID: "x", Type: "savings", NumberAccount: "19112345678901",
		})
		require.NoError(t, err)
		assert.Equal(t, "19112345678901", account.NumberAccount)
	})
}

func TestFindCustomerHasDebt(t *testing.T) {
	f := newFixture(t)
	f.debts.listFn = func(_ context.Context, id string) ([]models.Debt, error) {
		if id == "debtor" {
			return []models.Debt{{ID: "d1"}, {ID: "d2"}}, nil
		}
		return nil, nil
	}

	has, err := f.service.FindCustomerHasDebt(context.Background(), "debtor")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = f.service.FindCustomerHasDebt(context.Background(), "clean")
	require.NoError(t, err)
	assert.False(t, has)
}

// --- Card / primary / lifecycle ---

func TestAssociateDebitCard(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)
	_, err := f.service.MakePrimary(context.Background(), "01")
	require.NoError(t, err)

	account, err := f.service.AssociateDebitCard(context.Background(), cqrs.AssociateDebitCardCommand{
		AccountID: "01", DebitCardID: "card-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "card-1", account.DebitCardID)
	assert.NotEmpty(t, account.AssociationDate)
	assert.False(t, account.PrimaryAccount)
	assert.Equal(t, "card-1", f.stored(t, "01").DebitCardID)

	_, err = f.service.AssociateDebitCard(context.Background(), cqrs.AssociateDebitCardCommand{AccountID: "nope", DebitCardID: "c"})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMakePrimary_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	first, err := f.service.MakePrimary(context.Background(), "01")
	require.NoError(t, err)
	assert.True(t, first.PrimaryAccount)
	assert.Equal(t, int64(2), first.Version)

	second, err := f.service.MakePrimary(context.Background(), "01")
	require.NoError(t, err)
	assert.True(t, second.PrimaryAccount)
	assert.Equal(t, int64(2), f.stored(t, "01").Version, "no write for an already primary account")

	_, err = f.service.MakePrimary(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.True(t, IsNotFound(err))
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	account, err := f.service.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{
		AccountID:        "01",
		Type:             "checking",
		TransactionLimit: 20,
		Commission:       dec(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "checking", account.Type)
	assert.Equal(t, 20, account.TransactionLimit)
	assert.True(t, account.Commission.Equal(dec(3)))
	assert.Equal(t, "19100000000001", account.NumberAccount)
	assert.True(t, account.Amount.Equal(dec(100)), "balance is not configurable")

	_, err = f.service.UpdateAccount(context.Background(), cqrs.UpdateAccountCommand{AccountID: "01", Type: "premium"})
	assert.ErrorIs(t, err, ErrAccountTypeNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "01", 100, 0, 5, 10)

	require.NoError(t, f.service.DeleteAccount(context.Background(), cqrs.DeleteAccountCommand{AccountID: "01"}))
	_, err := f.store.Get(context.Background(), "01")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = f.service.DeleteAccount(context.Background(), cqrs.DeleteAccountCommand{AccountID: "01"})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.Contains(t, f.publisher.types, "account.deleted")
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNoOp(ErrRegistrationSkipped))
	assert.True(t, IsNoOp(ErrCommissionNotDue))
	assert.False(t, IsNoOp(ErrOverdueDebt))
	assert.True(t, IsNotFound(peer.ErrNotFound))
	assert.False(t, IsPeerFailure(ErrAccountNotFound))

	assert.Equal(t, "success", outcomeOf(nil))
	assert.Equal(t, "noop", outcomeOf(ErrInsufficientFunds))
	assert.Equal(t, "not_found", outcomeOf(ErrAccountNotFound))
	assert.Equal(t, "rejected", outcomeOf(ErrOverdueDebt))
	assert.Equal(t, "conflict", outcomeOf(storeError(repository.ErrVersionConflict, "01")))
}
