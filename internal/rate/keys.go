package rate

import "strings"

func signInEmailKey(scope, email string) string {
	return "si:" + scope + ":" + strings.ToLower(strings.TrimSpace(email))
}

func signInIPKey(scope, ip string) string {
	return "sii:" + scope + ":" + ip
}
