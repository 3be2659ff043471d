package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eaglebank/bank-account-service/internal/command"
	"github.com/eaglebank/bank-account-service/internal/cqrs"
	"github.com/eaglebank/bank-account-service/internal/lock"
	"github.com/eaglebank/bank-account-service/internal/middleware"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/eaglebank/bank-account-service/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	RegisterWithValidation(ctx context.Context, cmd cqrs.RegisterAccountCommand) (*models.Account, error)
	UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error)
	DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error
	Deposit(ctx context.Context, op models.Operation) (*models.Account, error)
	Withdraw(ctx context.Context, op models.Operation) (*models.Account, error)
	TransferBetweenAccounts(ctx context.Context, req models.TransferRequest) (*models.Account, error)
	Commission(ctx context.Context, tx models.Transaction) (*models.Account, error)
	PayCreditFromAccount(ctx context.Context, req models.PayCreditRequest) (*models.Account, error)
	AssociateDebitCard(ctx context.Context, cmd cqrs.AssociateDebitCardCommand) (*models.Account, error)
	MakePrimary(ctx context.Context, accountID string) (*models.Account, error)
	FindCustomerHasDebt(ctx context.Context, customerID string) (bool, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.Account, error)
	ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.Account, error)
	ValidateBankAccount(ctx context.Context, q cqrs.ValidateBankAccountQuery) (*models.Account, error)
	ListByDebitCard(ctx context.Context, q cqrs.ListByDebitCardQuery) ([]models.Account, error)
	FindByNumber(ctx context.Context, q cqrs.FindByNumberQuery) (*models.Account, error)
	Exists(ctx context.Context, q cqrs.GetAccountQuery) (bool, error)
	GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.Customer, error)
}

// AccountHandler handles bank-account HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type RegisterAccountRequest struct {
	CustomerID       string          `json:"customerId" validate:"required"`
	Type             string          `json:"type" validate:"required"`
	NumberAccount    string          `json:"numberAccount" validate:"omitempty,len=14,numeric"`
	Amount           decimal.Decimal `json:"amount" validate:"gte=0"`
	TransactionLimit int             `json:"transactionLimit" validate:"gte=0"`
	Commission       decimal.Decimal `json:"commission" validate:"gte=0"`
}

type UpdateAccountRequest struct {
	Type             string          `json:"type"`
	NumberAccount    string          `json:"numberAccount" validate:"omitempty,len=14,numeric"`
	TransactionLimit int             `json:"transactionLimit" validate:"gte=0"`
	Commission       decimal.Decimal `json:"commission" validate:"gte=0"`
}

type OperationRequest struct {
	AccountID string          `json:"accountId" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
}

type TransferRequest struct {
	SenderAccountID   string          `json:"senderAccountId" validate:"required"`
	ReceptorAccountID string          `json:"receptorAccountId" validate:"required,nefield=SenderAccountID"`
	Amount            decimal.Decimal `json:"amount" validate:"gt=0"`
}

type PayCreditRequest struct {
	SenderAccountID  string          `json:"senderAccountId" validate:"required"`
	ReceptorCreditID string          `json:"receptorCreditId" validate:"required"`
	Amount           decimal.Decimal `json:"amount" validate:"gt=0"`
}

type CommissionRequest struct {
	AccountID   string `json:"accountId" validate:"required"`
	Date        string `json:"date"`
	DebitCardID string `json:"debitCardId"`
}

type AssociateDebitCardRequest struct {
	DebitCardID string `json:"debitCardId" validate:"required"`
}

type ListAccountsResponse struct {
	Accounts []models.Account `json:"accounts"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts every account endpoint on group.
func (h *AccountHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.RegisterAccount)
	group.GET("", h.ListAccounts)
	group.GET("/validate", h.ValidateBankAccount)
	group.GET("/number/:numberAccount", h.FindByNumber)
	group.GET("/debitCard/:debitCardId", h.ListByDebitCard)
	group.GET("/customer/:customerId", h.GetCustomer)
	group.GET("/customer/:customerId/debt", h.CustomerHasDebt)

	group.POST("/deposit", h.Deposit)
	group.POST("/withdrawal", h.Withdraw)
	group.POST("/transfer", h.Transfer)
	group.POST("/payCredit", h.PayCredit)
	group.POST("/commission", h.Commission)

	group.GET("/:id", h.GetAccount)
	group.GET("/:id/exists", h.Exists)
	group.PUT("/:id", h.UpdateAccount)
	group.DELETE("/:id", h.DeleteAccount)
	group.PUT("/:id/debitCard", h.AssociateDebitCard)
	group.PUT("/:id/primary", h.MakePrimary)
}

func (h *AccountHandler) RegisterAccount(c *gin.Context) {
	var req RegisterAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.commands.RegisterWithValidation(c.Request.Context(), cqrs.RegisterAccountCommand{
		CustomerID:       req.CustomerID,
		Type:             req.Type,
		NumberAccount:    req.NumberAccount,
		Amount:           req.Amount,
		TransactionLimit: req.TransactionLimit,
		Commission:       req.Commission,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{
		CustomerID: c.Query("customerId"),
		Type:       c.Query("type"),
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{AccountID: c.Param("id")})
	if err != nil {
		respondWithDomainError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) Exists(c *gin.Context) {
	exists, err := h.queries.Exists(c.Request.Context(), cqrs.GetAccountQuery{AccountID: c.Param("id")})
	if err != nil {
		respondWithDomainError(c, err, "Failed to check account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *AccountHandler) ValidateBankAccount(c *gin.Context) {
	customerID, accountType := c.Query("customerId"), c.Query("type")
	if customerID == "" || accountType == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "customerId and type are required")
		return
	}

	account, err := h.queries.ValidateBankAccount(c.Request.Context(), cqrs.ValidateBankAccountQuery{
		CustomerID: customerID,
		Type:       accountType,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to validate account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) FindByNumber(c *gin.Context) {
	account, err := h.queries.FindByNumber(c.Request.Context(), cqrs.FindByNumberQuery{
		NumberAccount: c.Param("numberAccount"),
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to find account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) ListByDebitCard(c *gin.Context) {
	accounts, err := h.queries.ListByDebitCard(c.Request.Context(), cqrs.ListByDebitCardQuery{
		DebitCardID: c.Param("debitCardId"),
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

func (h *AccountHandler) GetCustomer(c *gin.Context) {
	customer, err := h.queries.GetCustomer(c.Request.Context(), cqrs.GetCustomerQuery{
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to get customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *AccountHandler) CustomerHasDebt(c *gin.Context) {
	hasDebt, err := h.commands.FindCustomerHasDebt(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondWithDomainError(c, err, "Failed to check debts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasDebt": hasDebt})
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:        c.Param("id"),
		Type:             req.Type,
		NumberAccount:    req.NumberAccount,
		TransactionLimit: req.TransactionLimit,
		Commission:       req.Commission,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to update account")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{AccountID: c.Param("id")})
	if err != nil {
		respondWithDomainError(c, err, "Failed to delete account")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Deposit(c *gin.Context) {
	var req OperationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.Deposit(c.Request.Context(), models.Operation{AccountID: req.AccountID, Amount: req.Amount})
	if err != nil {
		respondWithDomainError(c, err, "Failed to deposit")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req OperationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.Withdraw(c.Request.Context(), models.Operation{AccountID: req.AccountID, Amount: req.Amount})
	if err != nil {
		respondWithDomainError(c, err, "Failed to withdraw")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.TransferBetweenAccounts(c.Request.Context(), models.TransferRequest{
		SenderAccountID:   req.SenderAccountID,
		ReceptorAccountID: req.ReceptorAccountID,
		Amount:            req.Amount,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to transfer")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) PayCredit(c *gin.Context) {
	var req PayCreditRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.PayCreditFromAccount(c.Request.Context(), models.PayCreditRequest{
		SenderAccountID:  req.SenderAccountID,
		ReceptorCreditID: req.ReceptorCreditID,
		Amount:           req.Amount,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to pay credit")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) Commission(c *gin.Context) {
	var req CommissionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.Commission(c.Request.Context(), models.Transaction{
		AccountID:   req.AccountID,
		Date:        req.Date,
		DebitCardID: req.DebitCardID,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to apply commission")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) AssociateDebitCard(c *gin.Context) {
	var req AssociateDebitCardRequest
	if !bindAndValidate(c, &req) {
		return
	}
	account, err := h.commands.AssociateDebitCard(c.Request.Context(), cqrs.AssociateDebitCardCommand{
		AccountID:   c.Param("id"),
		DebitCardID: req.DebitCardID,
	})
	if err != nil {
		respondWithDomainError(c, err, "Failed to associate debit card")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) MakePrimary(c *gin.Context) {
	account, err := h.commands.MakePrimary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithDomainError(c, err, "Failed to make account primary")
		return
	}
	c.JSON(http.StatusOK, account)
}

func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

// respondWithDomainError maps service errors onto HTTP statuses. Unclassified
// errors are logged and answered with 500 and fallback.
func respondWithDomainError(c *gin.Context, err error, fallback string) {
	switch {
	case command.IsNotFound(err):
		middleware.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, command.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusUnprocessableEntity, "Insufficient funds")
	case errors.Is(err, command.ErrRegistrationSkipped),
		errors.Is(err, command.ErrCommissionNotDue):
		middleware.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, command.ErrOverdueDebt):
		middleware.RespondWithError(c, http.StatusForbidden, "Customer has overdue debt")
	case errors.Is(err, command.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, command.ErrVersionConflict),
		errors.Is(err, repository.ErrDuplicate):
		middleware.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, lock.ErrNotAcquired):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Account is busy, retry later")
	case command.IsPeerFailure(err):
		slog.Warn("peer call failed", "path", c.FullPath(), "error", err)
		middleware.RespondWithError(c, http.StatusBadGateway, "Upstream service unavailable")
	default:
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
