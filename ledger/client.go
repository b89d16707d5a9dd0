// Package ledger looks up transactions on a remote blockchain node and
// parses them into the shared record model. The remote node is untrusted,
// eventually consistent and rate limited: every failure is classified as
// either permanent absence or a transient fault before it leaves this
// package.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solgate/solgate/types"
)

var (
	// ErrNotFoundAfterRetries means the reference did not resolve to a
	// ledger transaction within the full retry budget.
	ErrNotFoundAfterRetries = errors.New("ledger: transaction not found after retries")

	// ErrTransient wraps network, protocol and parse failures. Safe to
	// retry with the same reference.
	ErrTransient = errors.New("ledger: transient failure")
)

// Transient classifies err as a transient ledger failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Client is the read-only lookup contract. Any ledger backend, or a test
// double, satisfying it is substitutable.
type Client interface {
	// Lookup fetches the transaction for reference at the highest
	// available finality. It returns ErrNotFoundAfterRetries once the
	// retry budget is exhausted, or an ErrTransient-wrapped error for
	// anything retryable. Idempotent, no side effects on the ledger.
	Lookup(ctx context.Context, reference string) (*types.LedgerTransactionRecord, error)

	Close() error
}

// fetchFunc performs one lookup attempt. found=false with a nil error
// means the transaction is not yet visible; errors must already be
// classified.
type fetchFunc func(ctx context.Context) (*types.LedgerTransactionRecord, bool, error)

// retrier drives the lookup attempt loop. The sleep hook exists so tests
// can observe the configured delays without waiting them out.
type retrier struct {
	attempts int
	backoff  []time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func newRetrier(attempts int, backoff []time.Duration) retrier {
	if attempts < 1 {
		attempts = 1
	}
	return retrier{attempts: attempts, backoff: backoff, sleep: sleepCtx}
}

func (r retrier) backoffFor(i int) time.Duration {
	if len(r.backoff) == 0 {
		return 0
	}
	if i >= len(r.backoff) {
		i = len(r.backoff) - 1
	}
	return r.backoff[i]
}

func (r retrier) run(ctx context.Context, fetch fetchFunc) (*types.LedgerTransactionRecord, error) {
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoffFor(attempt-1)); err != nil {
				return nil, Transient(err)
			}
		}

		rec, found, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			return rec, nil
		}
	}

	return nil, ErrNotFoundAfterRetries
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
