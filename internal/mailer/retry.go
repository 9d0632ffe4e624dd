package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/clydetadiwa/folio/internal/config"
)

// RetryPolicy bounds how often a single send is retried and how long the
// first backoff pause lasts. The delay before attempt k (k >= 2) is
// InitialDelay * 2^(k-2); there is no delay before the first attempt.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy returns the policy used in practice for each transport
// variant: the SMTP relay gets few, slow retries; the API provider gets
// more, cheaper ones.
func DefaultRetryPolicy(kind config.TransportKind) RetryPolicy {
	if kind == config.TransportAPI {
		return RetryPolicy{MaxAttempts: 5, InitialDelay: 1 * time.Second}
	}
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 3 * time.Second}
}

// SendWithRetry sends msg through t, retrying transport failures with
// exponential backoff until the policy is exhausted. Only the last attempt's
// error is returned. Authentication failures are not retried: rejected
// credentials cannot succeed on a later attempt.
func SendWithRetry(ctx context.Context, t Transport, msg Message, policy RetryPolicy) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if !sleepContext(ctx, delay) {
				return lastErr
			}
			delay *= 2
		}

		err := t.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err

		var terr *TransportError
		if errors.As(err, &terr) && terr.Kind == KindAuthentication {
			return err
		}
		if attempt < attempts {
			mailRetries.WithLabelValues(string(t.Kind())).Inc()
		}
	}

	return lastErr
}

// sleepContext pauses for d or until ctx is done, reporting whether the full
// pause elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
