// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import (
	"time"
)

// Login failure rate limiting configuration.
const (
	// LockoutDuration is the time a principal is locked out after too
	// many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	// Delay is the time to wait before allowing another attempt.
	Delay time.Duration

	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckFailures evaluates the rate limit state based on failure count.
// lockedUntil is the current lockout timestamp (nil if not locked).
func CheckFailures(failures int, lockedUntil *time.Time) RateLimitResult {
	result := RateLimitResult{}

	if IsLockedOut(lockedUntil) {
		result.IsLockedOut = true
		result.LockoutRemaining = time.Until(*lockedUntil)
		return result
	}

	if failures >= LockoutThreshold {
		result.IsLockedOut = true
		result.LockoutRemaining = LockoutDuration
		return result
	}

	// Progressive delay: 2^(failures-1) seconds, max 32s before lockout.
	if failures > 0 {
		result.Delay = time.Duration(1<<(failures-1)) * time.Second
		if result.Delay > 32*time.Second {
			result.Delay = 32 * time.Second
		}
	}

	return result
}

// IsLockedOut returns true if the lockout timestamp is in the future.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && time.Now().Before(*lockedUntil)
}

// ComputeLockoutTime returns the lockout expiry for the given failure
// count, or nil if the threshold has not been reached.
func ComputeLockoutTime(failures int) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	t := time.Now().Add(LockoutDuration)
	return &t
}
