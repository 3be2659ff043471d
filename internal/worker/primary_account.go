package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eaglebank/bank-account-service/internal/command"
	"github.com/eaglebank/bank-account-service/internal/models"
)

type PrimaryMarker interface {
	MakePrimary(ctx context.Context, accountID string) (*models.Account, error)
}

// PrimaryAccountUpdater consumes "mark account primary" messages. Each
// message value is a plain-text account id. Delivery is at least once, which
// is safe because MakePrimary is idempotent.
type PrimaryAccountUpdater struct {
	accounts PrimaryMarker
}

func NewPrimaryAccountUpdater(accounts PrimaryMarker) *PrimaryAccountUpdater {
	return &PrimaryAccountUpdater{accounts: accounts}
}

// HandleMessage returns nil when the message should be acknowledged. Unknown
// accounts and empty messages are logged and dropped; any other failure is
// returned so the message is redelivered.
func (u *PrimaryAccountUpdater) HandleMessage(ctx context.Context, payload []byte) error {
	accountID := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(payload)), `"`))
	if accountID == "" {
		slog.Warn("primary account message without account id, discarding")
		return nil
	}

	account, err := u.accounts.MakePrimary(ctx, accountID)
	if command.IsNotFound(err) {
		slog.Warn("primary account update for unknown account, discarding", "accountId", accountID)
		return nil
	}
	if err != nil {
		slog.Error("primary account update failed", "accountId", accountID, "error", err)
		return fmt.Errorf("make %s primary: %w", accountID, err)
	}

	slog.Info("primary account updated", "accountId", account.ID)
	return nil
}
