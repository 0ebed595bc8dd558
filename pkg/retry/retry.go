// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retry provides a bounded retry policy for calls whose output must
// pass a validation predicate before it is accepted.
//
// This formalizes the "call until the output looks valid" loops that
// otherwise accrete around language-model calls: a policy has an explicit
// attempt budget, an exponential backoff schedule, and an optional
// predicate, and exhaustion surfaces as a typed error instead of the last
// transient failure.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes a bounded retry schedule.
//
// # Fields
//
//   - Attempts: Total number of attempts (first call included). Values < 1
//     are treated as 1.
//   - InitialDelay: Delay before the second attempt. Doubles per attempt.
//   - Validate: Optional predicate applied to a successful result. A false
//     return is treated like a failed attempt.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	Validate     func(string) bool
}

// ExhaustedError reports that every attempt failed or produced an invalid
// result.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface for ExhaustedError.
func (e *ExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("all %d attempts produced invalid output", e.Attempts)
}

// Unwrap exposes the final attempt's error for errors.Is/As.
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// IsExhausted checks whether err is an *ExhaustedError.
func IsExhausted(err error) bool {
	_, ok := err.(*ExhaustedError)
	return ok
}

// Do runs fn under the policy and returns the first result that succeeds
// and satisfies the validation predicate.
//
// # Description
//
// Attempts are separated by exponentially growing delays starting at
// InitialDelay. Context cancellation is honored between attempts and
// returns ctx.Err() immediately; the in-flight attempt itself is expected
// to honor ctx on its own.
//
// # Inputs
//
//   - ctx: Context for cancellation and deadlines.
//   - p: The retry policy. Zero-value policies run fn exactly once.
//   - fn: The call to retry. Its string result is what Validate inspects.
//
// # Outputs
//
//   - string: The accepted result.
//   - error: ctx.Err() on cancellation, or *ExhaustedError after the budget
//     is spent.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) (string, error)) (string, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		result, err := fn(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if p.Validate != nil && !p.Validate(result) {
			lastErr = nil
			continue
		}
		return result, nil
	}

	return "", &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}
