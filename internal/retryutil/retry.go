/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package retryutil provides the single retry helper every driver call
// goes through: exponential backoff with a bounded attempt count,
// honoring a server-suggested retry-after delay when one is present.
package retryutil

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// TransientError marks an error as a retryable, rate-limit-class
// failure. RetryAfter is the server-suggested delay before the next
// attempt; zero means "no hint, use exponential backoff".
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// AsTransient reports whether err is (or wraps) a *TransientError.
func AsTransient(err error) (*TransientError, bool) {
	var te *TransientError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Policy carries the attempt budget and base delay for Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs op, retrying on *TransientError up to policy.MaxAttempts
// times. A transient error carrying a server-suggested RetryAfter waits
// that long before the next attempt instead of the exponential curve.
// Any non-transient error returned by op stops retrying immediately. On
// the final failed attempt the underlying error is returned unwrapped
// from the retry machinery.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseDelay := policy.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = baseDelay
	hb := &hintedBackOff{fallback: eb}

	return backoff.Retry(ctx, func() (T, error) {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		te, ok := AsTransient(err)
		if !ok {
			return result, backoff.Permanent(err)
		}
		hb.lastHint = te.RetryAfter
		return result, te
	},
		backoff.WithBackOff(hb),
		backoff.WithMaxTries(uint(maxAttempts)),
	)
}

// hintedBackOff delegates to an exponential backoff.BackOff, except
// that a server-suggested delay takes precedence when present. The
// retried operation sets lastHint just before returning a transient
// error, immediately ahead of backoff.Retry's call to NextBackOff.
type hintedBackOff struct {
	fallback backoff.BackOff
	lastHint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	if b.lastHint > 0 {
		d := b.lastHint
		b.lastHint = 0
		return d
	}
	return b.fallback.NextBackOff()
}

func (b *hintedBackOff) Reset() {
	b.lastHint = 0
	b.fallback.Reset()
}
