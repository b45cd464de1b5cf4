package handleAuth

import "strings"

// Store key layout:
//
//	<ROLE>:<principalId>:<KIND>:<fingerprint>
//	TENANT:<tenantId>:<ROLE>:<principalId>:<KIND>:<fingerprint>
//
// IDs are lower-cased so a handle presented in upper case resolves to the
// record written at issuance.

func keyPrefix(scope Scope, principalID string) string {
	var b strings.Builder
	if scope.Role.TenantScoped() {
		b.WriteString("TENANT:")
		b.WriteString(strings.ToLower(scope.TenantID))
		b.WriteByte(':')
	}
	b.WriteString(scope.Role.Label())
	b.WriteByte(':')
	b.WriteString(strings.ToLower(principalID))
	return b.String()
}

// RecordKey builds the store key of one token record.
func RecordKey(scope Scope, kind TokenKind, principalID, fingerprint string) string {
	return keyPrefix(scope, principalID) + ":" + kind.Label() + ":" + strings.ToLower(fingerprint)
}

// SignOutPattern builds the glob matching every record of a principal in scope.
func SignOutPattern(scope Scope, principalID string) string {
	return keyPrefix(scope, principalID) + "*"
}
