package rate

import "errors"

// ErrRateLimited means a counter reached MaxAttempts in the current window.
var ErrRateLimited = errors.New("rate: sign-in attempts exhausted")

// ErrRedisUnavailable wraps every Redis transport or script failure.
var ErrRedisUnavailable = errors.New("rate: redis unavailable")
