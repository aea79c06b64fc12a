package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryConfig is loaded from env per connector.
type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"200ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.MaxDelay(rc.MaxDelay),
		retry.Delay(rc.Delay),
		retry.LastErrorOnly(true),
	}
}

// Permanent marks err as not worth another attempt.
func Permanent(err error) error {
	return retry.Unrecoverable(err)
}

// Do runs fn under the configured policy and stops early when ctx is done
// or fn returns a Permanent error.
func Do[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	if rc.Attempts == 0 {
		rc.Attempts = 1
	}
	opts := append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		}),
	)
	return retry.DoWithData(fn, opts...)
}
