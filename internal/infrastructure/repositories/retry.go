package repositories

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/you/crmauth/domain"
	"gorm.io/gorm"
)

const maxWriteAttempts = 3

// newBackOff is swapped in tests to avoid real sleeps
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// withRetry runs a datastore write, retrying transient failures with exponential backoff
func withRetry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !isRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(maxWriteAttempts))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrDuplicatedKey):
		return false
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return false
	case isUniqueViolation(err):
		return false
	}
	return true
}
