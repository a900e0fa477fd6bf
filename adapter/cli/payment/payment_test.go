package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/adapter/cli/clitest"
	"github.com/jurzon/backy/internal/payments/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	env := clitest.Setup(t, now)

	out, err := clitest.Run(t, listCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "No payment intents found.\n", out)

	commitmentID := uuid.MustParse("abcdef01-0000-0000-0000-000000000000")
	intent, err := domain.NewPaymentIntentLog(commitmentID, env.App.CurrentUserID, 4050, "CHF", now)
	require.NoError(t, err)
	_, err = env.Container.PaymentIntentRepo.Record(context.Background(), intent)
	require.NoError(t, err)

	out, err = clitest.Run(t, listCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "Payment intents (1):\n"+
		"------------------------------------------------------------\n"+
		"pending 40.50 CHF  commitment abcdef01\n"+
		"   Created: 2025-03-01 10:00 UTC  Attempts: 0\n", out)
}
