// Package session owns token record persistence: the TTL key-value [Store]
// contract, the JSON value encoding, and the Redis and Postgres backends.
//
// # Record semantics
//
// A record exists if and only if the token it holds is still considered valid.
// Deleting a record is the only revocation mechanism, so every backend must make
// Del and Take visible to the next Get immediately.
//
// # Architecture boundaries
//
// This package does not build keys, sign tokens or interpret them. Key naming and
// token verification belong to the Engine.
//
// # What this package must NOT do
//
//   - Import handleAuth, jwt, or identity (no upward imports).
//   - Retry transport failures. They surface wrapped in [ErrStoreUnavailable].
package session
