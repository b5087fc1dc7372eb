package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffGrows(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, 1*time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
}

func TestExponentialBackoffCapped(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, 5*time.Second, eb.NextDelay(10))
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		delay := eb.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 1*time.Second)
		assert.LessOrEqual(t, delay, 3*time.Second)
	}
}

func TestLinearBackoffGrows(t *testing.T) {
	lb := &LinearBackoff{
		BaseDelay: time.Second,
		MaxDelay:  time.Minute,
		Increment: 2 * time.Second,
	}

	assert.Equal(t, time.Duration(0), lb.NextDelay(0))
	assert.Equal(t, 1*time.Second, lb.NextDelay(1))
	assert.Equal(t, 3*time.Second, lb.NextDelay(2))
	assert.Equal(t, 5*time.Second, lb.NextDelay(3))
}

func TestLinearBackoffCapped(t *testing.T) {
	lb := &LinearBackoff{
		BaseDelay: time.Second,
		MaxDelay:  4 * time.Second,
		Increment: time.Second,
	}

	assert.Equal(t, 4*time.Second, lb.NextDelay(10))
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 250 * time.Millisecond}

	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, 250*time.Millisecond, cb.NextDelay(1))
	assert.Equal(t, 250*time.Millisecond, cb.NextDelay(9))
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitZeroDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Zero delay returns immediately even with a cancelled context.
	assert.NoError(t, Wait(ctx, 0))
}
