package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	hasher, err := NewBcrypt(BcryptConfig{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := hasher.Verify("secret123", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("secret124", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail")
	}
}

func TestBcryptRejectsMalformedHash(t *testing.T) {
	hasher, err := NewBcrypt(BcryptConfig{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := hasher.Verify("secret123", "plain"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestBcryptLengthLimits(t *testing.T) {
	hasher, err := NewBcrypt(BcryptConfig{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := hasher.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, _ := NewBcrypt(BcryptConfig{Cost: bcrypt.MinCost})
	strong, _ := NewBcrypt(BcryptConfig{Cost: bcrypt.MinCost + 1})

	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	up, err := strong.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade: up=%v err=%v", up, err)
	}
	up, err = weak.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("expected no upgrade: up=%v err=%v", up, err)
	}
}

func TestNewSelectsAlgorithm(t *testing.T) {
	h, err := New(AlgorithmArgon2)
	if err != nil {
		t.Fatalf("New(argon2): %v", err)
	}
	if _, ok := h.(*Argon2); !ok {
		t.Fatalf("expected *Argon2, got %T", h)
	}
	h, err = New(AlgorithmBcrypt)
	if err != nil {
		t.Fatalf("New(bcrypt): %v", err)
	}
	if _, ok := h.(*Bcrypt); !ok {
		t.Fatalf("expected *Bcrypt, got %T", h)
	}
	if _, err := New("md5"); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
