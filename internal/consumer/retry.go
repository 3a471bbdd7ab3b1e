package consumer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ConnectWithRetry calls p.Connect with exponential backoff, giving up after
// maxAttempts tries or when ctx is done. The last *ConnectionError is returned.
func ConnectWithRetry(ctx context.Context, p *Pipeline, maxAttempts uint) error {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	_, err := backoff.Retry(ctx,
		func() (struct{}, error) {
			return struct{}{}, p.Connect(ctx)
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("broker connection failed, retrying", "error", err, "retry_in", next)
		}),
	)
	return err
}
