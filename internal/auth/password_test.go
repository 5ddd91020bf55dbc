package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifyPassword(hash, "secret1") {
		t.Fatal("expected correct password to verify")
	}
	if VerifyPassword(hash, "secret2") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestHashPasswordSaltsFreshly(t *testing.T) {
	first, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for identical input")
	}
	if !VerifyPassword(first, "secret1") || !VerifyPassword(second, "secret1") {
		t.Fatal("both hashes must verify")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedInput(t *testing.T) {
	cases := map[string]struct {
		hash     string
		password string
	}{
		"empty hash":     {"", "secret1"},
		"empty password": {"$2a$10$abcdefghijklmnopqrstuv", ""},
		"garbage hash":   {"not-a-bcrypt-hash", "secret1"},
		"truncated hash": {strings.Repeat("x", 10), "secret1"},
	}
	for name, tc := range cases {
		if VerifyPassword(tc.hash, tc.password) {
			t.Fatalf("%s: expected false", name)
		}
	}
}
