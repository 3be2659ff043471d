package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/lib/pq"
)

const accountColumns = `
	id, customer_id, type, number_account, amount, number_of_transactions,
	transaction_limit, commission, COALESCE(debit_card_id, ''), association_date,
	primary_account, creation_date, version`

// AccountRepository is the PostgreSQL AccountStore. Every update is guarded by
// the version column, so a stale read can never overwrite a newer balance.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, customer_id, type, number_account, amount, number_of_transactions,
			transaction_limit, commission, debit_card_id, association_date, primary_account, creation_date, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, 1)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.CustomerID, account.Type, account.NumberAccount,
		account.Amount, account.NumberOfTransactions, account.TransactionLimit, account.Commission,
		account.DebitCardID, account.AssociationDate, account.PrimaryAccount, account.CreationDate,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.Version = 1
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) FindByNumber(ctx context.Context, numberAccount string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE number_account = $1 AND deleted_at IS NULL`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, numberAccount))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by number: %w", err)
	}
	return account, nil
}

// Update writes every mutable field if the stored version still matches
// account.Version, then advances account.Version.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET customer_id = $3, type = $4, number_account = $5, amount = $6, number_of_transactions = $7,
			transaction_limit = $8, commission = $9, debit_card_id = NULLIF($10, ''), association_date = $11,
			primary_account = $12, creation_date = $13, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		account.ID, account.Version, account.CustomerID, account.Type, account.NumberAccount,
		account.Amount, account.NumberOfTransactions, account.TransactionLimit, account.Commission,
		account.DebitCardID, account.AssociationDate, account.PrimaryAccount, account.CreationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		exists, err := r.Exists(ctx, account.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	account.Version++
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE accounts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NULL ORDER BY created_at DESC`
	return r.queryAccounts(ctx, query)
}

func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE customer_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`
	return r.queryAccounts(ctx, query, customerID)
}

func (r *AccountRepository) ListByCustomerAndType(ctx context.Context, customerID, accountType string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE customer_id = $1 AND type = $2 AND deleted_at IS NULL ORDER BY created_at DESC`
	return r.queryAccounts(ctx, query, customerID, accountType)
}

func (r *AccountRepository) ListByDebitCard(ctx context.Context, debitCardID string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE debit_card_id = $1 AND deleted_at IS NULL ORDER BY association_date ASC`
	return r.queryAccounts(ctx, query, debitCardID)
}

func (r *AccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.Type, &a.NumberAccount, &a.Amount, &a.NumberOfTransactions,
		&a.TransactionLimit, &a.Commission, &a.DebitCardID, &a.AssociationDate,
		&a.PrimaryAccount, &a.CreationDate, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
