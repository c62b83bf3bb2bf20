// Package retry wraps repeater's backoff strategy with attempt logging and permanent errors
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
)

// Func runs op until it succeeds, attempts run out, ctx is done or op returns a permanent error.
// name identifies the call in logs.
type Func func(ctx context.Context, name string, op func() error) error

var errPermanent = errors.New("permanent error")

// permanentError marks an error which should not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == errPermanent }

// Permanent wraps err to stop retries, nil stays nil
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

// Backoff returns exponential backoff retry function with given policy
func Backoff(attempts int, initial, maxDelay time.Duration, jitter float64) Func {
	if attempts < 1 {
		attempts = 1
	}
	return func(ctx context.Context, name string, op func() error) error {
		rp := repeater.NewBackoff(attempts, initial, repeater.WithMaxDelay(maxDelay), repeater.WithJitter(jitter))
		attempt := 0
		err := rp.Do(ctx, func() error {
			attempt++
			e := op()
			if e == nil {
				return nil
			}
			if IsPermanent(e) {
				lgr.Printf("[WARN] %s attempt %d/%d failed permanently: %v", name, attempt, attempts, e)
				return e
			}
			lgr.Printf("[WARN] %s attempt %d/%d failed: %v", name, attempt, attempts, e)
			return e
		}, errPermanent)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
	}
}
