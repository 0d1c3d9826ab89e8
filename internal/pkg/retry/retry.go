package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// Policy bounds how often and how patiently a dependency is retried
type Policy struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Startup is used for the dependencies a process cannot serve without
var Startup = Policy{
	Attempts:     10,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// Do runs op with exponential backoff until it succeeds, the attempts are spent or ctx ends.
// Every failed attempt is logged against dependency.
func Do[T any](ctx context.Context, p Policy, log *logger.Logger, dependency string, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay

	attempt := 0
	res, err := backoff.Retry(ctx,
		func() (T, error) {
			attempt++
			return op(ctx)
		},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithFields(map[string]any{
				"dependency":    dependency,
				"attempt":       attempt,
				"next_retry_ms": next.Milliseconds(),
			}).Warnf("%s not ready: %v", dependency, err)
		}),
	)
	if err != nil {
		return res, fmt.Errorf("%s unavailable after %d attempts: %w", dependency, attempt, err)
	}
	return res, nil
}
