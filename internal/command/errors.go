package command

import (
	"errors"
	"fmt"

	"github.com/eaglebank/bank-account-service/internal/peer"
	"github.com/eaglebank/bank-account-service/internal/repository"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrAccountTypeNotFound = errors.New("account type not found")
	ErrCreditNotFound      = errors.New("credit not found")

	// ErrInsufficientFunds means the movement would leave a negative balance.
	// Nothing was recorded or persisted.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRegistrationSkipped means a business customer asked for an account
	// type other than checking. No account was created.
	ErrRegistrationSkipped = errors.New("registration skipped: business customers may only open checking accounts")
	// ErrCommissionNotDue means the account is still within its transaction limit.
	ErrCommissionNotDue = errors.New("commission not due")

	ErrOverdueDebt     = errors.New("customer has overdue debt")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrVersionConflict = errors.New("account was modified concurrently")
)

// IsNoOp reports whether err is an expected outcome that left state untouched.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrRegistrationSkipped) ||
		errors.Is(err, ErrCommissionNotDue)
}

// IsNotFound reports whether err means a referenced record does not exist,
// locally or at a peer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrAccountTypeNotFound) ||
		errors.Is(err, ErrCreditNotFound) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrTypeNotFound) ||
		errors.Is(err, peer.ErrNotFound)
}

// IsPeerFailure reports whether err came from a failed call to a peer service.
func IsPeerFailure(err error) bool {
	var peerErr *peer.Error
	return errors.As(err, &peerErr)
}

// storeError maps repository errors onto the command sentinels.
func storeError(err error, accountID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s", ErrVersionConflict, accountID)
	default:
		return err
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNoOp(err):
		return "noop"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrOverdueDebt), errors.Is(err, ErrInvalidAmount):
		return "rejected"
	case errors.Is(err, ErrVersionConflict):
		return "conflict"
	default:
		return "error"
	}
}
