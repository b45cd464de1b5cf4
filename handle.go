package handleAuth

import (
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(
	`(?i)^([0-9A-F]{8}-[0-9A-F]{4}-[1-7][0-9A-F]{3}-[89AB][0-9A-F]{3}-[0-9A-F]{12}):([A-F0-9]{64})$`,
)

// Handle is the client-facing reference to a stored token: the principal id
// and the SHA-256 fingerprint of the signed JWT. The JWT itself never leaves
// the server.
type Handle struct {
	PrincipalID string
	Fingerprint string
}

func newHandle(principalID, fingerprint string) Handle {
	return Handle{PrincipalID: principalID, Fingerprint: fingerprint}
}

func (h Handle) String() string {
	return h.PrincipalID + ":" + h.Fingerprint
}

// ParseHandle validates s against the handle format. Matching is case
// insensitive; the returned fields are lower-cased.
func ParseHandle(s string) (Handle, error) {
	m := handlePattern.FindStringSubmatch(s)
	if m == nil {
		return Handle{}, ErrAuthorizationTokenInvalid
	}
	return Handle{
		PrincipalID: strings.ToLower(m[1]),
		Fingerprint: strings.ToLower(m[2]),
	}, nil
}

// ParseAuthorization extracts a handle from an Authorization header value.
// An empty header fails with ErrNoAuthorizationInHeader; anything that is not
// "Bearer <handle>" fails with ErrAuthorizationTokenInvalid.
func ParseAuthorization(header string) (Handle, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Handle{}, ErrNoAuthorizationInHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Handle{}, ErrAuthorizationTokenInvalid
	}
	return ParseHandle(strings.TrimSpace(token))
}
