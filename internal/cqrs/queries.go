package cqrs

// GetAccountQuery fetches a single account by id.
type GetAccountQuery struct {
	AccountID string
}

// ListAccountsQuery lists accounts. Empty filters mean "all accounts";
// Type is only honoured together with CustomerID.
type ListAccountsQuery struct {
	CustomerID string
	Type       string
}

// ValidateBankAccountQuery returns the first account a customer holds of the given type.
type ValidateBankAccountQuery struct {
	CustomerID string
	Type       string
}

type ListByDebitCardQuery struct {
	DebitCardID string
}

type FindByNumberQuery struct {
	NumberAccount string
}

type GetCustomerQuery struct {
	CustomerID string
}
