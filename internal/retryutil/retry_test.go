/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesTransientErrorsUntilSuccess(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &TransientError{Err: errors.New("rate limited")}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsImmediatelyOnNonTransientError(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		attempts++
		return "", boom
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoSurfacesErrorAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) (string, error) {
		attempts++
		return "", &TransientError{Err: errors.New("still rate limited")}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoHonorsRetryAfterHint(t *testing.T) {
	attempts := 0
	start := time.Now()
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Hour}, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &TransientError{Err: errors.New("backoff"), RetryAfter: 5 * time.Millisecond}
		}
		return "ok", nil
	})

	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second, "retry-after hint should override the hour-long base delay")
}
