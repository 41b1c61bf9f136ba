package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowLimiterAdmitsUpToMax(t *testing.T) {
	l := NewWindowLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 3, l.Pending())
}

func TestWindowLimiterDefersOverBudgetCall(t *testing.T) {
	window := 150 * time.Millisecond
	l := NewWindowLimiter(2, window)
	ctx := context.Background()

	waits := 0
	l.SetWaitHook(func() { waits++ })

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, window)
	assert.Equal(t, 1, waits)
}

func TestWindowLimiterHonorsContextCancel(t *testing.T) {
	l := NewWindowLimiter(1, time.Minute)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWindowLimiterExpiresOldEntries(t *testing.T) {
	window := 50 * time.Millisecond
	l := NewWindowLimiter(2, window)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	time.Sleep(window + 20*time.Millisecond)

	assert.Equal(t, 0, l.Pending())
	require.NoError(t, l.Wait(ctx))
	assert.Equal(t, 1, l.Pending())
}
