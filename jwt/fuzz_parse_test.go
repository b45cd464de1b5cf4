package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary token strings to an Ed25519 and an HS256
// manager. Neither may panic, and anything accepted must name a principal.
func FuzzVerify(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	ed, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "handleauth-fuzz",
		RequireIAT:    true,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}
	hs, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("fuzz-user-access-secret-0123456789"),
	})
	if err != nil {
		f.Fatal(err)
	}

	for _, m := range []*Manager{ed, hs} {
		tok, err := m.Sign(testPrincipal, "5b0b4e3c-8a0e-4c3f-9d7a-1f2e3d4c5b6a")
		if err != nil {
			f.Fatal(err)
		}
		f.Add(tok)
		// Same header and payload with a truncated signature.
		f.Add(tok[:strings.LastIndex(tok, ".")+4])
	}
	f.Add("")
	f.Add("..")
	f.Add("a.b.c.d")
	f.Add("eyJhbGciOiJub25lIn0.eyJwcmluY2lwYWxJZCI6IngifQ.")
	f.Add("eyJhbGciOiJFZERTQSIsImtpZCI6ImsyIn0.eyJwcmluY2lwYWxJZCI6IngifQ.AAAA")

	f.Fuzz(func(t *testing.T, input string) {
		for _, m := range []*Manager{ed, hs} {
			claims, err := m.Verify(input)
			if err != nil {
				continue
			}
			if claims == nil || claims.PrincipalID == "" {
				t.Fatalf("accepted %q without a principal", input)
			}
		}
	})
}
