package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GenerateAccountID returns a new random account identifier.
func GenerateAccountID() string {
	return uuid.NewString()
}

// GenerateAccountNumber generates a 14-digit account number starting with 191
func GenerateAccountNumber() string {
	num, _ := rand.Int(rand.Reader, big.NewInt(100000000000))
	return fmt.Sprintf("191%011d", num.Int64())
}

// ValidateAccountNumber validates the account number format
func ValidateAccountNumber(accountNumber string) bool {
	if len(accountNumber) != 14 || !strings.HasPrefix(accountNumber, "191") {
		return false
	}
	for _, r := range accountNumber {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateAccountID reports whether id parses as a UUID.
func ValidateAccountID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
