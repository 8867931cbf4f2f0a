package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_NilIsSingleAttempt(t *testing.T) {
	var p *RetryPolicy
	require.Equal(t, 1, p.Attempts())
	require.Zero(t, p.Delay(1))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := &RetryPolicy{
		InitialInterval:    5 * time.Second,
		MaximumInterval:    30 * time.Second,
		BackoffCoefficient: 2,
		MaximumAttempts:    3,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 30 * time.Second},
		{50, 30 * time.Second},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
	require.Equal(t, 3, p.Attempts())
}

func TestRetryPolicy_DefaultCoefficient(t *testing.T) {
	p := &RetryPolicy{InitialInterval: time.Second}
	require.Equal(t, 4*time.Second, p.Delay(3))
	require.Equal(t, 1, p.Attempts())
}

func TestRetryPolicy_UncappedDoesNotOverflow(t *testing.T) {
	p := &RetryPolicy{InitialInterval: time.Hour, BackoffCoefficient: 10}
	require.Greater(t, p.Delay(40), time.Duration(0))
}

func TestRetryBuilder(t *testing.T) {
	p := Retry(3).WithExponentialBackoff(5*time.Second, 0, 30*time.Second).Policy()
	require.Equal(t, 3, p.MaximumAttempts)
	require.Equal(t, 5*time.Second, p.InitialInterval)
	require.Equal(t, 30*time.Second, p.MaximumInterval)
	require.Equal(t, 2.0, p.BackoffCoefficient)

	c := Retry(4).WithConstantBackoff(time.Second).Policy()
	require.Equal(t, time.Second, c.Delay(1))
	require.Equal(t, time.Second, c.Delay(3))

	i := Retry(0).Immediate().Policy()
	require.Equal(t, 1, i.Attempts())
	require.Zero(t, i.Delay(2))
}

func TestRetryBuilder_PolicyIsCopy(t *testing.T) {
	b := Retry(2).WithConstantBackoff(time.Second)
	p1 := b.Policy()
	p1.MaximumAttempts = 9
	require.Equal(t, 2, b.Policy().MaximumAttempts)
}
