// Package rate implements the Redis-backed sign-in throttle.
//
// # Window semantics
//
// Fixed-window counters. A Lua script runs INCR and sets PEXPIRE on the first
// hit of a window, for the e-mail and IP keys in one round trip. Only failed
// attempts are counted. Key prefixes:
//   - si:  per scope and e-mail address
//   - sii: per scope and client IP
//
// Policy (which scopes are throttled, how the rejection is reported) belongs
// to the engine.
package rate
