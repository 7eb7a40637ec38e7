package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/markoladipo/notara/internal/logger"
)

// baseBackoff doubles per attempt: 6s, 12s, 24s, 48s, 96s. A var so tests
// can shrink the wait.
var baseBackoff = 6 * time.Second

const maxRetries = 5

// ProviderError carries the provider's status code and raw body for a failed
// embedding or generation call.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Body)
}

// ErrMalformedEmbedding signals a provider contract violation (wrong vector
// dimensionality). Never retried.
var ErrMalformedEmbedding = errors.New("provider returned malformed embedding")

// isRateLimited reports whether err is a rate-limit/quota failure. Only these
// are retried; everything else propagates immediately.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 429 {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Status == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "429")
}

// withBackoff runs call, retrying rate-limited failures with exponential
// backoff (baseBackoff << attempt) up to maxRetries. The sleep honors ctx
// cancellation. Non-rate-limit errors are returned as-is on first sight.
func withBackoff(ctx context.Context, log *logger.Logger, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if !isRateLimited(err) || attempt >= maxRetries {
			return err
		}

		delay := baseBackoff << attempt
		log.Warn("provider rate limited, backing off",
			"attempt", attempt+1, "delay", delay.String())
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
