package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", MinWorkFactor)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}
	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err == nil {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashPasswordWorkFactorBounds(t *testing.T) {
	if _, err := HashPassword("pw", MinWorkFactor-1); err == nil {
		t.Fatal("work factor below minimum must be rejected")
	}
	if _, err := HashPassword("pw", MaxWorkFactor+1); err == nil {
		t.Fatal("work factor above maximum must be rejected")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("same password", MinWorkFactor)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same password", MinWorkFactor)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Fatal("hashes of the same password must differ")
	}
}
