// Package handleAuth issues and revokes server-held JWT sessions behind opaque
// token handles.
//
// A client never sees a JWT. Sign-in signs an access and a refresh token, stores
// each under a key derived from the principal id and the token's SHA-256
// fingerprint, and returns handles of the form "<principalId>:<fingerprint>".
// Authenticate resolves a handle back to its stored JWT and verifies it;
// deleting the record revokes the token regardless of its exp claim.
//
// # Namespaces
//
// Four roles each own an access and a refresh [Namespace] with their own key
// and TTL. tenantAdmin and officeUser principals are tenant scoped: their
// records live under TENANT:<tenantId> and their tokens carry the tenant id.
//
// # Architecture boundaries
//
// handleAuth is the public surface: [Engine], [Builder], [Config] and value
// types. Flow orchestration, throttling and audit dispatch live under
// internal/ and never import this package.
//
// # Refresh handles
//
// Refresh handles are single use. Authenticate on a refresh namespace takes
// the record out of the store atomically before verifying the JWT, and the
// caller then runs [Engine.Refresh] to issue a new pair.
package handleAuth
