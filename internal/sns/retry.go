package sns

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Retry calls op up to attempts times, sleeping delay between failed attempts.
// It returns nil on the first success. Otherwise it returns every attempt's error
// combined into one multierror. A cancelled ctx stops the loop early, and the
// context error is appended.
func Retry(ctx context.Context, attempts int, delay time.Duration, op func(ctx context.Context, attempt int) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var errs *multierror.Error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		errs = multierror.Append(errs, fmt.Errorf("attempt %d: %w", attempt, err))

		if attempt == attempts {
			break
		}
		if err := sleepContext(ctx, delay); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
	}
	return errs.ErrorOrNil()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
