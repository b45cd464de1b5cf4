package handleAuth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies a principal kind. The set is closed; every role owns
// exactly one access and one refresh namespace.
type Role string

const (
	// RoleSuperAdmin is the global platform administrator.
	RoleSuperAdmin Role = "superAdmin"
	// RoleTenantAdmin administers a single tenant.
	RoleTenantAdmin Role = "tenantAdmin"
	// RoleOfficeUser is a back-office user of a single tenant.
	RoleOfficeUser Role = "officeUser"
	// RoleUser is a global end user.
	RoleUser Role = "user"
)

// Roles lists every role in a stable order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleTenantAdmin, RoleOfficeUser, RoleUser}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleOfficeUser, RoleUser:
		return true
	}
	return false
}

// TenantScoped reports whether principals of r belong to a tenant.
func (r Role) TenantScoped() bool {
	return r == RoleTenantAdmin || r == RoleOfficeUser
}

// Label is the upper-case role segment used in store keys.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "SUPER_ADMIN"
	case RoleTenantAdmin:
		return "TENANT_ADMIN"
	case RoleOfficeUser:
		return "OFFICE_USER"
	case RoleUser:
		return "USER"
	}
	return ""
}

// Access returns the access-token namespace of r.
func (r Role) Access() Namespace { return Namespace(string(r) + "Access") }

// Refresh returns the refresh-token namespace of r.
func (r Role) Refresh() Namespace { return Namespace(string(r) + "Refresh") }

// TokenKind distinguishes short-lived access tokens from single-use refresh tokens.
type TokenKind uint8

const (
	// KindAccess marks access tokens.
	KindAccess TokenKind = iota
	// KindRefresh marks refresh tokens.
	KindRefresh
)

// Label is the kind segment used in store keys.
func (k TokenKind) Label() string {
	if k == KindRefresh {
		return "REFRESH_TOKEN"
	}
	return "ACCESS_TOKEN"
}

func (k TokenKind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Namespace is a role x token-kind pair with its own signing key and TTL.
type Namespace string

const (
	NamespaceSuperAdminAccess   Namespace = "superAdminAccess"
	NamespaceSuperAdminRefresh  Namespace = "superAdminRefresh"
	NamespaceTenantAdminAccess  Namespace = "tenantAdminAccess"
	NamespaceTenantAdminRefresh Namespace = "tenantAdminRefresh"
	NamespaceOfficeUserAccess   Namespace = "officeUserAccess"
	NamespaceOfficeUserRefresh  Namespace = "officeUserRefresh"
	NamespaceUserAccess         Namespace = "userAccess"
	NamespaceUserRefresh        Namespace = "userRefresh"
)

// Namespaces lists all eight namespaces, access before refresh for each role.
func Namespaces() []Namespace {
	out := make([]Namespace, 0, 8)
	for _, r := range Roles() {
		out = append(out, r.Access(), r.Refresh())
	}
	return out
}

// Role returns the role owning n, or "" for an unknown namespace.
func (n Namespace) Role() Role {
	s := string(n)
	switch {
	case strings.HasSuffix(s, "Access"):
		s = strings.TrimSuffix(s, "Access")
	case strings.HasSuffix(s, "Refresh"):
		s = strings.TrimSuffix(s, "Refresh")
	default:
		return ""
	}
	if r := Role(s); r.Valid() {
		return r
	}
	return ""
}

// Kind returns whether n issues access or refresh tokens.
func (n Namespace) Kind() TokenKind {
	if strings.HasSuffix(string(n), "Refresh") {
		return KindRefresh
	}
	return KindAccess
}

// Valid reports whether n is one of the eight known namespaces.
func (n Namespace) Valid() bool {
	return n.Role() != ""
}

// Scope selects the principal population an operation runs against.
// TenantID must be a UUID for tenant-scoped roles and empty otherwise.
type Scope struct {
	Role     Role
	TenantID string
}

// GlobalScope returns the scope of a role that is not tenant-scoped.
func GlobalScope(r Role) Scope { return Scope{Role: r} }

// TenantScope returns the scope of a tenant-scoped role inside tenantID.
func TenantScope(r Role, tenantID string) Scope { return Scope{Role: r, TenantID: tenantID} }

func (s Scope) validate() error {
	if !s.Role.Valid() {
		return ErrRequestInvalid.withCause(fmt.Errorf("unknown role %q", s.Role))
	}
	if !s.Role.TenantScoped() {
		if s.TenantID != "" {
			return ErrTenantInvalid.withCause(fmt.Errorf("role %s is not tenant scoped", s.Role))
		}
		return nil
	}
	if _, err := uuid.Parse(s.TenantID); err != nil || len(s.TenantID) != 36 {
		return ErrTenantInvalid.withCause(fmt.Errorf("tenant id %q", s.TenantID))
	}
	return nil
}
