package jwt

import (
	"crypto"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the algorithm a Manager signs and verifies with.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	maxLeeway       = 2 * time.Minute
	defaultFutureAt = 10 * time.Minute
	maxFutureAt     = 24 * time.Hour
)

// Config describes one signing namespace.
//
// Key material and TTL are per namespace. Issuer, Audience and Leeway are
// normally shared across namespaces but are repeated here so a Manager stands
// alone.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret, or an Ed25519 private key as raw bytes
	// or PEM.
	PrivateKey []byte
	// PublicKey optionally pins the Ed25519 verification key. It defaults to
	// the public half of PrivateKey.
	PublicKey    []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	// KeyID is written to the kid header. When VerifyKeys is set, tokens are
	// verified by their kid against that map instead of PublicKey.
	KeyID      string
	VerifyKeys map[string][]byte

	// Now overrides the clock used for issuing and validating tokens.
	Now func() time.Time
}

// Claims is the payload carried by every access and refresh token.
type Claims struct {
	PrincipalID string `json:"principalId"`
	TenantID    string `json:"tenantId,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens for a single namespace. Keys are decoded
// once by NewManager; a Manager is immutable and safe for concurrent use.
type Manager struct {
	ttl       time.Duration
	issuer    string
	audience  string
	kid       string
	futureIAT time.Duration
	now       func() time.Time

	method  jwt.SigningMethod
	signKey crypto.PrivateKey
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewManager validates cfg, decodes its keys and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.TTL <= 0:
		return nil, errors.New("jwt: TTL must be positive")
	case cfg.Leeway < 0 || cfg.Leeway > maxLeeway:
		return nil, fmt.Errorf("jwt: leeway must be within [0, %s]", maxLeeway)
	case cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > maxFutureAt:
		return nil, fmt.Errorf("jwt: MaxFutureIAT must be within [0, %s]", maxFutureAt)
	case len(cfg.PrivateKey) == 0:
		return nil, fmt.Errorf("jwt: %s requires a private key", cfg.SigningMethod)
	}

	m := &Manager{
		ttl:       cfg.TTL,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		kid:       strings.TrimSpace(cfg.KeyID),
		futureIAT: cfg.MaxFutureIAT,
		now:       cfg.Now,
	}
	if m.futureIAT == 0 {
		m.futureIAT = defaultFutureAt
	}
	if m.now == nil {
		m.now = time.Now
	}

	var (
		verifyKey crypto.PublicKey
		decode    func([]byte) (crypto.PublicKey, error)
	)
	switch cfg.SigningMethod {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		verifyKey = cfg.PrivateKey
		decode = func(b []byte) (crypto.PublicKey, error) { return b, nil }
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.signKey = priv
		verifyKey = priv.Public()
		if len(cfg.PublicKey) > 0 {
			if verifyKey, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		decode = func(b []byte) (crypto.PublicKey, error) { return parseEdPublicKey(b) }
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	if len(cfg.VerifyKeys) > 0 {
		byKid := make(map[string]crypto.PublicKey, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("jwt: verify key with empty kid")
			}
			k, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			byKid[kid] = k
		}
		if m.kid != "" {
			if _, ok := byKid[m.kid]; !ok {
				return nil, fmt.Errorf("jwt: KeyID %q has no verify key", m.kid)
			}
		}
		m.keyfunc = func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if k, ok := byKid[kid]; ok {
				return k, nil
			}
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
	} else {
		m.keyfunc = func(t *jwt.Token) (any, error) {
			if m.kid != "" {
				if kid, _ := t.Header["kid"].(string); kid != m.kid {
					return nil, fmt.Errorf("unknown kid %q", kid)
				}
			}
			return verifyKey, nil
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// TTL returns the lifetime of tokens issued by this Manager.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Sign issues a token for principalID; tenantID is empty for global roles.
// A random jti keeps two tokens signed in the same second distinct.
func (m *Manager) Sign(principalID, tenantID string) (string, error) {
	now := m.now()
	claims := Claims{
		PrincipalID: principalID,
		TenantID:    tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.kid != "" {
		token.Header["kid"] = m.kid
	}
	return token.SignedString(m.signKey)
}

// Verify checks the signature, algorithm, expiry and the configured issuer and
// audience. Library errors are returned as is so IsExpired and errors.Is
// against the jwt sentinels keep working.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(tokenStr, claims, m.keyfunc); err != nil {
		return nil, err
	}
	if claims.PrincipalID == "" {
		return nil, fmt.Errorf("%w: missing principalId", jwt.ErrTokenInvalidClaims)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(m.futureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", jwt.ErrTokenUsedBeforeIssued)
	}
	return claims, nil
}

// IsExpired reports whether err from Verify means exp has passed. Any other
// Verify error means the token is invalid.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

// Fingerprint is the lowercase hex SHA-256 of a signed token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("jwt: ed25519 private key: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwt: PEM holds %T, not an ed25519 private key", parsed)
	}
	return priv, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("jwt: ed25519 public key: %w", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwt: PEM holds %T, not an ed25519 public key", parsed)
	}
	return pub, nil
}
