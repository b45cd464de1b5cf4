// Package server exposes the sign-in, refresh, sign-out and profile routes of
// every enabled role over net/http.
//
// Global roles are mounted under /api/v1/super-admin and /api/v1/user.
// Tenant-scoped roles are mounted under /api/v1/tenants/{tenantId}/... and
// take the tenant from the path. Successful responses use the envelope
// {statusCode, message, data}; failures use middleware.ErrorBody.
package server
