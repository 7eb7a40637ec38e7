package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markoladipo/notara/internal/logger"
)

func shrinkBackoff(t *testing.T) {
	t.Helper()
	old := baseBackoff
	baseBackoff = time.Millisecond
	t.Cleanup(func() { baseBackoff = old })
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider 429", &ProviderError{Status: 429, Body: "slow down"}, true},
		{"provider 500", &ProviderError{Status: 500, Body: "boom"}, false},
		{"quota message", errors.New("googleapi: Error 429: Quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = resource exhausted"), true},
		{"plain failure", errors.New("connection refused"), false},
		{"malformed embedding", ErrMalformedEmbedding, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}

func TestWithBackoffRetriesOnceThenSucceeds(t *testing.T) {
	shrinkBackoff(t)

	calls := 0
	err := withBackoff(context.Background(), logger.NewNop(), func() error {
		calls++
		if calls == 1 {
			return &ProviderError{Status: 429, Body: "rate limited"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "one rate-limited failure then success means exactly one retry")
}

func TestWithBackoffDoesNotRetryFatalErrors(t *testing.T) {
	shrinkBackoff(t)

	calls := 0
	fatal := errors.New("invalid api key")
	err := withBackoff(context.Background(), logger.NewNop(), func() error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-rate-limit errors must not be retried")
}

func TestWithBackoffExhaustsRetryBudget(t *testing.T) {
	shrinkBackoff(t)

	calls := 0
	err := withBackoff(context.Background(), logger.NewNop(), func() error {
		calls++
		return &ProviderError{Status: 429, Body: "rate limited"}
	})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 429, perr.Status)
	// maxRetries retries on top of the initial attempt; once the budget is
	// spent the next 429 surfaces without a further retry.
	assert.Equal(t, maxRetries+1, calls)
}

func TestWithBackoffSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withBackoff(ctx, logger.NewNop(), func() error {
		calls++
		return &ProviderError{Status: 429, Body: "rate limited"}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffSchedule(t *testing.T) {
	want := []time.Duration{6, 12, 24, 48, 96}
	for attempt, secs := range want {
		assert.Equal(t, secs*time.Second, (6*time.Second)<<attempt)
	}
	assert.Equal(t, 5, maxRetries)
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Status: 429, Body: "quota exhausted"}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exhausted")
}
