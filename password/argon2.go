package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Config holds argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MaxPasswordBytes bounds Hash and Verify input. Zero means
	// DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// DefaultArgon2Config returns 64 MiB, three passes over two lanes.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Floors applied both to configuration and to stored hashes, so a tampered
// row cannot downgrade verification cost.
var argon2Floor = argon2Params{memory: 8 * 1024, time: 1, threads: 1}

const (
	argon2MinSalt = 16
	argon2MinKey  = 16
)

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < argon2Floor.memory:
		return fmt.Errorf("argon2 memory %d KiB is below %d", c.Memory, argon2Floor.memory)
	case c.Time < argon2Floor.time:
		return fmt.Errorf("argon2 time must be at least %d", argon2Floor.time)
	case c.Parallelism < argon2Floor.threads:
		return fmt.Errorf("argon2 parallelism must be at least %d", argon2Floor.threads)
	case c.SaltLength < argon2MinSalt:
		return fmt.Errorf("argon2 salt length must be at least %d bytes", argon2MinSalt)
	case c.KeyLength < argon2MinKey:
		return fmt.Errorf("argon2 key length must be at least %d bytes", argon2MinKey)
	}
	return nil
}

// argon2Params is the m,t,p triple of a PHC string.
type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
}

func (p argon2Params) weakerThan(q argon2Params) bool {
	return p.memory < q.memory || p.time < q.time || p.threads < q.threads
}

// argon2Hash is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type argon2Hash struct {
	argon2Params
	salt []byte
	key  []byte
}

func (h argon2Hash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func decodeArgon2(encoded string) (argon2Hash, error) {
	var h argon2Hash

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, fmt.Errorf("%w: expected 5 PHC fields", ErrMalformedHash)
	}
	if fields[1] != "argon2id" {
		return h, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return h, fmt.Errorf("%w: version field %q", ErrMalformedHash, fields[2])
	}
	if version != argon2.Version {
		return h, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}

	var p argon2Params
	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil || n != 3 {
		return h, fmt.Errorf("%w: parameters %q", ErrMalformedHash, fields[3])
	}
	if p.weakerThan(argon2Floor) {
		return h, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}
	h.argon2Params = p

	var err error
	if h.salt, err = decodeB64(fields[4]); err != nil || len(h.salt) < argon2MinSalt {
		return h, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.key, err = decodeB64(fields[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

// decodeB64 accepts both unpadded PHC base64 and the padded form older rows
// were written with.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// Argon2 is an argon2id [Hasher] producing PHC strings.
type Argon2 struct {
	cfg Argon2Config
}

// NewArgon2 validates cfg and returns an argon2id hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{cfg: cfg}, nil
}

func (a *Argon2) params() argon2Params {
	return argon2Params{memory: a.cfg.Memory, time: a.cfg.Time, threads: a.cfg.Parallelism}
}

// Hash derives a key from the password bytes as given, without Unicode
// normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if err := checkLength(password, a.cfg.MaxPasswordBytes); err != nil {
		return "", err
	}
	h := argon2Hash{argon2Params: a.params(), salt: make([]byte, a.cfg.SaltLength)}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}
	h.key = argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, a.cfg.KeyLength)
	return h.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the configured
// parameters or uses a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	return h.weakerThan(a.params()) || uint32(len(h.key)) != a.cfg.KeyLength, nil
}
