// Package middleware adapts handleAuth.Engine.Authenticate to net/http.
//
// # Guards
//
//   - [Guard] admits a request for one namespace, reading the tenant id with a [TenantFunc].
//   - [RequireAccess] and [RequireRefresh] pick the namespace from a role.
//
// A guard reads the Authorization header, calls Engine.Authenticate and, on
// success, stores the [handleAuth.AuthResult] in the request context. On
// failure it writes the error as JSON and does not call the next handler.
//
// # What this package must NOT do
//
//   - Parse or verify JWTs (delegates to Engine).
//   - Touch the session store (Engine handles I/O).
package middleware
