package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/bank-account-service/internal/models"
)

// AccountTypeRepository reads the account-type catalogue from PostgreSQL.
type AccountTypeRepository struct {
	db *sql.DB
}

func NewAccountTypeRepository(db *sql.DB) *AccountTypeRepository {
	return &AccountTypeRepository{db: db}
}

func (r *AccountTypeRepository) Get(ctx context.Context, id string) (*models.AccountType, error) {
	query := `SELECT id, code, description FROM account_types WHERE id = $1`
	var (
		t    models.AccountType
		code string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &code, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type: %w", err)
	}
	if t.Code, err = models.ParseAccountTypeCode(code); err != nil {
		return nil, fmt.Errorf("account type %s: %w", id, err)
	}
	return &t, nil
}
