package middleware

import "net/http"

// TenantFunc extracts the tenant id a request is scoped to.
type TenantFunc func(*http.Request) string

// PathTenant reads the tenant id from the named path wildcard of a
// net/http ServeMux pattern such as "/tenants/{tenantId}/...".
func PathTenant(name string) TenantFunc {
	return func(r *http.Request) string {
		return r.PathValue(name)
	}
}

// HeaderTenant reads the tenant id from a request header.
func HeaderTenant(name string) TenantFunc {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}
