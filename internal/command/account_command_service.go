package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eaglebank/bank-account-service/internal/cqrs"
	"github.com/eaglebank/bank-account-service/internal/events"
	"github.com/eaglebank/bank-account-service/internal/lock"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/eaglebank/bank-account-service/internal/peer"
	"github.com/eaglebank/bank-account-service/internal/repository"
	"github.com/eaglebank/bank-account-service/internal/utils"
	"github.com/shopspring/decimal"
)

type AccountStore interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

type AccountTypeStore interface {
	Get(ctx context.Context, id string) (*models.AccountType, error)
}

type CustomerClient interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
}

type DebtClient interface {
	ListDebts(ctx context.Context, customerID string) ([]models.Debt, error)
}

type CreditClient interface {
	PayCredit(ctx context.Context, creditID string, amount decimal.Decimal) (*models.CreditRecord, error)
}

type LedgerClient interface {
	Record(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountCache is the read model refreshed after every write.
type AccountCache interface {
	CacheAccount(ctx context.Context, account *models.Account)
	InvalidateAccount(ctx context.Context, id string)
}

// Recorder receives operation and commission outcomes for metrics.
type Recorder interface {
	RecordOperation(ctx context.Context, operation, outcome string)
	RecordCommission(ctx context.Context, outcome string)
}

type CommissionOutcome string

const (
	CommissionApplied CommissionOutcome = "applied"
	CommissionSkipped CommissionOutcome = "skipped"
	CommissionFailed  CommissionOutcome = "failed"
)

// CommissionObserver is told the outcome of every commission check that
// follows a deposit or withdrawal. err is nil for CommissionApplied.
type CommissionObserver func(ctx context.Context, accountID string, outcome CommissionOutcome, err error)

// Dependencies wires an AccountCommandService. Store, Types, Customers, Debts,
// Credits and Ledger are required; the rest default to no-ops.
type Dependencies struct {
	Store     AccountStore
	Types     AccountTypeStore
	Customers CustomerClient
	Debts     DebtClient
	Credits   CreditClient
	Ledger    LedgerClient

	Locker       lock.Locker
	Publisher    EventPublisher
	Cache        AccountCache
	Metrics      Recorder
	OnCommission CommissionObserver
}

// AccountCommandService applies balance movements and account lifecycle
// changes. Every mutation of one account runs under that account's lock, and
// a movement is persisted only after the ledger acknowledged it.
type AccountCommandService struct {
	store     AccountStore
	types     AccountTypeStore
	customers CustomerClient
	debts     DebtClient
	credits   CreditClient
	ledger    LedgerClient

	locker       lock.Locker
	publisher    EventPublisher
	cache        AccountCache
	metrics      Recorder
	onCommission CommissionObserver
}

func NewAccountCommandService(deps Dependencies) *AccountCommandService {
	s := &AccountCommandService{
		store:        deps.Store,
		types:        deps.Types,
		customers:    deps.Customers,
		debts:        deps.Debts,
		credits:      deps.Credits,
		ledger:       deps.Ledger,
		locker:       deps.Locker,
		publisher:    deps.Publisher,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		onCommission: deps.OnCommission,
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	return s
}

// RegisterWithValidation creates an account after checking the customer's
// segment rules: business customers may only open checking accounts and
// every other customer must not have overdue debt.
func (s *AccountCommandService) RegisterWithValidation(ctx context.Context, cmd cqrs.RegisterAccountCommand) (account *models.Account, err error) {
	defer func() { s.metrics.RecordOperation(ctx, "register", outcomeOf(err)) }()

	if cmd.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: opening amount %s", ErrInvalidAmount, cmd.Amount)
	}

	customer, err := s.customers.GetCustomer(ctx, cmd.CustomerID)
	if errors.Is(err, peer.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, cmd.CustomerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", cmd.CustomerID, err)
	}

	accountType, err := s.types.Get(ctx, cmd.Type)
	if errors.Is(err, repository.ErrTypeNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountTypeNotFound, cmd.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type %s: %w", cmd.Type, err)
	}

	account = &models.Account{
		ID:               utils.GenerateAccountID(),
		CustomerID:       cmd.CustomerID,
		Type:             cmd.Type,
		NumberAccount:    cmd.NumberAccount,
		Amount:           cmd.Amount,
		TransactionLimit: cmd.TransactionLimit,
		Commission:       cmd.Commission,
		CreationDate:     models.Today(),
	}
	if account.NumberAccount == "" {
		account.NumberAccount = utils.GenerateAccountNumber()
	}

	if customer.Type == models.CustomerBusiness {
		if accountType.Code != models.CodeChecking {
			slog.Info("registration skipped",
				"customerId", cmd.CustomerID, "type", cmd.Type, "code", accountType.Code)
			return nil, ErrRegistrationSkipped
		}
	} else {
		hasDebt, err := s.FindCustomerHasDebt(ctx, cmd.CustomerID)
		if err != nil {
			return nil, err
		}
		if hasDebt {
			return nil, fmt.Errorf("%w: %s", ErrOverdueDebt, cmd.CustomerID)
		}
	}

	if err := s.store.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	s.cache.CacheAccount(ctx, account)
	s.publish(ctx, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID:     account.ID,
		CustomerID:    account.CustomerID,
		Type:          account.Type,
		NumberAccount: account.NumberAccount,
	})
	slog.Info("account registered", "accountId", account.ID, "customerId", account.CustomerID)
	return account, nil
}

// FindCustomerHasDebt reports whether the debt registry holds at least one
// record for the customer.
func (s *AccountCommandService) FindCustomerHasDebt(ctx context.Context, customerID string) (bool, error) {
	debts, err := s.debts.ListDebts(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("failed to check debts for %s: %w", customerID, err)
	}
	return len(debts) > 0, nil
}

// Deposit adds op.Amount to the account and then runs the commission check.
// The returned account reflects the deposit; a commission applied afterwards
// is reported through events and the CommissionObserver.
func (s *AccountCommandService) Deposit(ctx context.Context, op models.Operation) (*models.Account, error) {
	return s.move(ctx, op, models.TransactionDeposit)
}

// Withdraw subtracts op.Amount from the account. It returns
// ErrInsufficientFunds, with nothing recorded, when the balance would go negative.
func (s *AccountCommandService) Withdraw(ctx context.Context, op models.Operation) (*models.Account, error) {
	return s.move(ctx, op, models.TransactionWithdrawal)
}

func (s *AccountCommandService) move(ctx context.Context, op models.Operation, kind models.TransactionType) (*models.Account, error) {
	account, tx, err := s.moveLocked(ctx, op, kind)
	s.metrics.RecordOperation(ctx, string(kind), outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountID:       account.ID,
		TransactionType: string(kind),
		Change:          op.Amount,
		NewBalance:      account.Amount,
	})
	slog.Info("balance updated",
		"accountId", account.ID, "type", kind, "amount", op.Amount, "balance", account.Amount)

	s.runCommission(ctx, *tx)
	return account, nil
}

func (s *AccountCommandService) moveLocked(ctx context.Context, op models.Operation, kind models.TransactionType) (*models.Account, *models.Transaction, error) {
	if !op.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidAmount, op.Amount)
	}

	release, err := s.locker.Lock(ctx, op.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account %s: %w", op.AccountID, err)
	}
	defer release()

	account, err := s.load(ctx, op.AccountID)
	if err != nil {
		return nil, nil, err
	}

	newAmount := account.Amount.Add(op.Amount)
	if kind == models.TransactionWithdrawal {
		newAmount = account.Amount.Sub(op.Amount)
		if newAmount.IsNegative() {
			slog.Info("withdrawal rejected: insufficient funds",
				"accountId", account.ID, "balance", account.Amount, "amount", op.Amount)
			return nil, nil, ErrInsufficientFunds
		}
	}

	tx := models.Transaction{
		Date:          models.Today(),
		Amount:        op.Amount,
		Type:          kind,
		CustomerID:    account.CustomerID,
		AccountID:     account.ID,
		AccountAmount: newAmount,
		DebitCardID:   account.DebitCardID,
	}
	if _, err := s.ledger.Record(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("failed to record %s on ledger: %w", kind, err)
	}

	account.Amount = newAmount
	account.NumberOfTransactions++
	if err := s.store.Update(ctx, account); err != nil {
		slog.Error("ledger recorded a movement that was not persisted",
			"accountId", account.ID, "type", kind, "amount", op.Amount, "error", err)
		return nil, nil, storeError(err, account.ID)
	}
	s.cache.CacheAccount(ctx, account)
	return account, &tx, nil
}

// TransferBetweenAccounts withdraws from the sender and, only if that
// succeeded, deposits into the receptor. It returns the receptor account.
func (s *AccountCommandService) TransferBetweenAccounts(ctx context.Context, req models.TransferRequest) (*models.Account, error) {
	if _, err := s.Withdraw(ctx, models.Operation{AccountID: req.SenderAccountID, Amount: req.Amount}); err != nil {
		return nil, fmt.Errorf("transfer from %s: %w", req.SenderAccountID, err)
	}

	receptor, err := s.Deposit(ctx, models.Operation{AccountID: req.ReceptorAccountID, Amount: req.Amount})
	if err != nil {
		slog.Error("transfer deposit failed after sender was debited",
			"sender", req.SenderAccountID, "receptor", req.ReceptorAccountID, "amount", req.Amount, "error", err)
		return nil, fmt.Errorf("transfer to %s: %w", req.ReceptorAccountID, err)
	}
	return receptor, nil
}

// Commission charges the account's commission when its transaction count has
// exceeded the limit. tx is the movement that triggered the check.
func (s *AccountCommandService) Commission(ctx context.Context, tx models.Transaction) (*models.Account, error) {
	release, err := s.locker.Lock(ctx, tx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", tx.AccountID, err)
	}
	defer release()

	account, err := s.load(ctx, tx.AccountID)
	if err != nil {
		return nil, err
	}
	if account.NumberOfTransactions <= account.TransactionLimit {
		return nil, ErrCommissionNotDue
	}

	newAmount := account.Amount.Sub(account.Commission)
	if newAmount.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	tx.Type = models.TransactionCommission
	tx.CustomerID = account.CustomerID
	tx.Amount = account.Commission
	tx.AccountAmount = newAmount
	if tx.Date == "" {
		tx.Date = models.Today()
	}
	if _, err := s.ledger.Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record commission on ledger: %w", err)
	}

	account.Amount = newAmount
	if err := s.store.Update(ctx, account); err != nil {
		slog.Error("ledger recorded a commission that was not persisted",
			"accountId", account.ID, "commission", account.Commission, "error", err)
		return nil, storeError(err, account.ID)
	}
	s.cache.CacheAccount(ctx, account)
	return account, nil
}

// runCommission is the secondary step after a deposit or withdrawal. Its
// outcome never changes the result of the movement that triggered it.
func (s *AccountCommandService) runCommission(ctx context.Context, tx models.Transaction) {
	account, err := s.Commission(ctx, tx)

	var outcome CommissionOutcome
	switch {
	case err == nil:
		outcome = CommissionApplied
		slog.Info("commission applied",
			"accountId", account.ID, "commission", account.Commission, "balance", account.Amount)
		s.publish(ctx, events.CommissionApplied, events.CommissionEvent{
			AccountID:  account.ID,
			Commission: account.Commission,
			NewBalance: account.Amount,
		})
	case IsNoOp(err):
		outcome = CommissionSkipped
		slog.Debug("commission skipped", "accountId", tx.AccountID, "reason", err)
		s.publish(ctx, events.CommissionSkipped, events.CommissionEvent{
			AccountID: tx.AccountID,
			Reason:    err.Error(),
		})
	default:
		outcome = CommissionFailed
		slog.Error("commission failed", "accountId", tx.AccountID, "error", err)
		s.publish(ctx, events.CommissionFailed, events.CommissionEvent{
			AccountID: tx.AccountID,
			Reason:    err.Error(),
		})
	}

	s.metrics.RecordCommission(ctx, string(outcome))
	if s.onCommission != nil {
		s.onCommission(ctx, tx.AccountID, outcome, err)
	}
}

// PayCreditFromAccount pays a credit from the sender account. The credit
// registry is paid first; the withdrawal runs only after it acknowledged.
func (s *AccountCommandService) PayCreditFromAccount(ctx context.Context, req models.PayCreditRequest) (*models.Account, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}
	if _, err := s.load(ctx, req.SenderAccountID); err != nil {
		return nil, err
	}

	record, err := s.credits.PayCredit(ctx, req.ReceptorCreditID, req.Amount)
	if errors.Is(err, peer.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCreditNotFound, req.ReceptorCreditID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pay credit %s: %w", req.ReceptorCreditID, err)
	}
	slog.Info("credit payment accepted", "creditId", record.ID, "amount", req.Amount)

	account, err := s.Withdraw(ctx, models.Operation{AccountID: req.SenderAccountID, Amount: req.Amount})
	if err != nil {
		slog.Warn("credit paid but sender withdrawal did not complete",
			"sender", req.SenderAccountID, "creditId", req.ReceptorCreditID, "error", err)
		return nil, err
	}
	return account, nil
}

// AssociateDebitCard links the account to a debit card. The association
// date is stamped and the account stops being primary.
func (s *AccountCommandService) AssociateDebitCard(ctx context.Context, cmd cqrs.AssociateDebitCardCommand) (*models.Account, error) {
	account, err := s.mutate(ctx, "associate_card", cmd.AccountID, func(a *models.Account) bool {
		a.DebitCardID = cmd.DebitCardID
		a.AssociationDate = time.Now().UTC().Format(time.RFC3339)
		a.PrimaryAccount = false
		return true
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.AccountCardAssociated, events.AccountCardAssociatedEvent{
		AccountID:   account.ID,
		DebitCardID: account.DebitCardID,
	})
	return account, nil
}

// MakePrimary marks the account as primary. Already-primary accounts are
// returned without a write.
func (s *AccountCommandService) MakePrimary(ctx context.Context, accountID string) (*models.Account, error) {
	changed := false
	account, err := s.mutate(ctx, "make_primary", accountID, func(a *models.Account) bool {
		if a.PrimaryAccount {
			return false
		}
		a.PrimaryAccount = true
		changed = true
		return true
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.AccountMadePrimary, events.AccountMadePrimaryEvent{AccountID: account.ID})
		slog.Info("account made primary", "accountId", account.ID)
	}
	return account, nil
}

// UpdateAccount replaces the account's configurable fields. Empty Type and
// NumberAccount keep the stored values.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	if cmd.Commission.IsNegative() {
		return nil, fmt.Errorf("%w: commission %s", ErrInvalidAmount, cmd.Commission)
	}
	if cmd.Type != "" {
		if _, err := s.types.Get(ctx, cmd.Type); err != nil {
			if errors.Is(err, repository.ErrTypeNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAccountTypeNotFound, cmd.Type)
			}
			return nil, fmt.Errorf("failed to get account type %s: %w", cmd.Type, err)
		}
	}

	account, err := s.mutate(ctx, "update", cmd.AccountID, func(a *models.Account) bool {
		if cmd.Type != "" {
			a.Type = cmd.Type
		}
		if cmd.NumberAccount != "" {
			a.NumberAccount = cmd.NumberAccount
		}
		a.TransactionLimit = cmd.TransactionLimit
		a.Commission = cmd.Commission
		return true
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID: account.ID,
		Version:   account.Version,
	})
	return account, nil
}

func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) (err error) {
	defer func() { s.metrics.RecordOperation(ctx, "delete", outcomeOf(err)) }()

	release, err := s.locker.Lock(ctx, cmd.AccountID)
	if err != nil {
		return fmt.Errorf("failed to lock account %s: %w", cmd.AccountID, err)
	}
	defer release()

	if err := s.store.Delete(ctx, cmd.AccountID); err != nil {
		return storeError(err, cmd.AccountID)
	}
	s.cache.InvalidateAccount(ctx, cmd.AccountID)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{AccountID: cmd.AccountID})
	slog.Info("account deleted", "accountId", cmd.AccountID)
	return nil
}

// mutate loads the account under its lock, applies change and persists the
// result when change reports a modification.
func (s *AccountCommandService) mutate(ctx context.Context, operation, accountID string, change func(*models.Account) bool) (account *models.Account, err error) {
	defer func() { s.metrics.RecordOperation(ctx, operation, outcomeOf(err)) }()

	release, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	defer release()

	account, err = s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !change(account) {
		return account, nil
	}
	if err := s.store.Update(ctx, account); err != nil {
		return nil, storeError(err, accountID)
	}
	s.cache.CacheAccount(ctx, account)
	return account, nil
}

func (s *AccountCommandService) load(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.store.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, eventType, data); err != nil {
		slog.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

type nopCache struct{}

func (nopCache) CacheAccount(context.Context, *models.Account) {}
func (nopCache) InvalidateAccount(context.Context, string)     {}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, string, string) {}
func (nopRecorder) RecordCommission(context.Context, string)        {}
