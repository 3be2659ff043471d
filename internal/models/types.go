package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CustomerType is the customer segment reported by the customer registry.
// Only business customers get their own rules; every other segment follows
// the personal ones.
type CustomerType int

const (
	CustomerPersonal CustomerType = iota
	CustomerBusiness
)

// ParseCustomerType maps "business" (any case) to CustomerBusiness and
// anything else, including an empty string, to CustomerPersonal.
func ParseCustomerType(s string) CustomerType {
	if strings.EqualFold(strings.TrimSpace(s), "business") {
		return CustomerBusiness
	}
	return CustomerPersonal
}

func (t CustomerType) String() string {
	switch t {
	case CustomerPersonal:
		return "personal"
	case CustomerBusiness:
		return "business"
	default:
		return "unknown"
	}
}

func (t CustomerType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CustomerType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseCustomerType(s)
	return nil
}

// AccountTypeCode is the category code of an account type.
// Business customers may only open CodeChecking accounts.
type AccountTypeCode string

const (
	CodeSavings   AccountTypeCode = "1"
	CodeFixedTerm AccountTypeCode = "2"
	CodeChecking  AccountTypeCode = "3"
)

func ParseAccountTypeCode(s string) (AccountTypeCode, error) {
	switch c := AccountTypeCode(strings.TrimSpace(s)); c {
	case CodeSavings, CodeFixedTerm, CodeChecking:
		return c, nil
	default:
		return "", fmt.Errorf("unknown account type code %q", s)
	}
}
