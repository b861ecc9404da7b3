package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithRetry_MaxAttempts(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		MaxAttempts: 2,
	}

	var logged int
	logf := func(format string, args ...any) { logged++ }

	db, err := ConnectWithRetry(context.Background(), "nosuchdriver", "dsn", cfg, logf)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.EqualError(t, err, "db connect: max attempts reached")
	assert.Equal(t, 2, logged)
}

func TestConnectWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{BaseDelay: time.Hour}
	db, err := ConnectWithRetry(ctx, "nosuchdriver", "dsn", cfg, nil)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.ErrorIs(t, err, context.Canceled)
}
