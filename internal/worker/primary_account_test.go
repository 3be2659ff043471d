package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/eaglebank/bank-account-service/internal/command"
	"github.com/eaglebank/bank-account-service/internal/models"
	"github.com/stretchr/testify/assert"
)

type mockMarker struct {
	calls  []string
	makeFn func(ctx context.Context, accountID string) (*models.Account, error)
}

func (m *mockMarker) MakePrimary(ctx context.Context, accountID string) (*models.Account, error) {
	m.calls = append(m.calls, accountID)
	return m.makeFn(ctx, accountID)
}

func TestPrimaryAccountUpdater_HandleMessage(t *testing.T) {
	errDown := errors.New("store unavailable")

	tests := []struct {
		name      string
		payload   string
		result    error
		wantCalls []string
		wantErr   bool
	}{
		{name: "marks account", payload: "acc-1", wantCalls: []string{"acc-1"}},
		{name: "trims whitespace and quotes", payload: " \"acc-2\"\n", wantCalls: []string{"acc-2"}},
		{name: "unknown account is acked", payload: "ghost",
			result: fmt.Errorf("%w: ghost", command.ErrAccountNotFound), wantCalls: []string{"ghost"}},
		{name: "store failure is retried", payload: "acc-3", result: errDown,
			wantCalls: []string{"acc-3"}, wantErr: true},
		{name: "empty payload is dropped", payload: "  ", wantCalls: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := &mockMarker{makeFn: func(_ context.Context, id string) (*models.Account, error) {
				if tt.result != nil {
					return nil, tt.result
				}
				return &models.Account{ID: id, PrimaryAccount: true}, nil
			}}
			updater := NewPrimaryAccountUpdater(marker)

			err := updater.HandleMessage(context.Background(), []byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.result)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, marker.calls)
		})
	}
}
