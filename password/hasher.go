package password

import (
	"errors"
	"fmt"
)

// MinPasswordBytes is the shortest password Hash accepts. It matches the sign-in
// request validation.
const MinPasswordBytes = 8

// DefaultMaxPasswordBytes caps hashing input when no limit is configured.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrPasswordTooShort is returned by Hash for passwords under MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password: too short")
	// ErrPasswordTooLong is returned for passwords over the configured maximum.
	ErrPasswordTooLong = errors.New("password: too long")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")
)

// Hasher hashes and verifies passwords. Implementations must compare in
// constant time and be safe for concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Algorithm names a Hasher implementation.
type Algorithm string

const (
	AlgorithmArgon2 Algorithm = "argon2"
	AlgorithmBcrypt Algorithm = "bcrypt"
)

// New returns the Hasher for algo with its default parameters.
func New(algo Algorithm) (Hasher, error) {
	switch algo {
	case AlgorithmArgon2:
		return NewArgon2(DefaultArgon2Config())
	case AlgorithmBcrypt, "":
		return NewBcrypt(BcryptConfig{})
	default:
		return nil, fmt.Errorf("password: unsupported algorithm %q", algo)
	}
}

func checkLength(password string, maxBytes int) error {
	if len(password) < MinPasswordBytes {
		return ErrPasswordTooShort
	}
	if len(password) > maxBytes {
		return ErrPasswordTooLong
	}
	return nil
}
