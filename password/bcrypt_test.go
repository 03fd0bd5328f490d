package password

import (
	"strings"
	"testing"
)

func TestBcryptHashAndVerify(t *testing.T) {
	hasher, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if hasher.Cost() != DefaultBcryptCost {
		t.Fatalf("expected default cost %d, got %d", DefaultBcryptCost, hasher.Cost())
	}

	hash, err := hasher.Hash("secret-pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if hash == "secret-pw" {
		t.Fatal("hash must never equal the plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := hasher.Verify("secret-pw", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("wrong-pw", hash)
	if err != nil {
		t.Fatalf("mismatch must not return an error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch to fail")
	}
}

func TestBcryptVerifyMalformedHash(t *testing.T) {
	hasher, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := hasher.Verify("password", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected malformed hash to return an error")
	}
}

func TestBcryptLongPasswordTruncatedConsistently(t *testing.T) {
	hasher, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	long := strings.Repeat("x", 128)
	hash, err := hasher.Hash(long)
	if err != nil {
		t.Fatalf("Hash error for 128-byte password: %v", err)
	}
	ok, err := hasher.Verify(long, hash)
	if err != nil || !ok {
		t.Fatalf("expected long password to verify: ok=%v err=%v", ok, err)
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	strong, err := NewBcrypt(6)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	needs, err := strong.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !needs {
		t.Fatal("expected weaker cost to need upgrade")
	}

	needs, err = weak.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if needs {
		t.Fatal("expected same cost not to need upgrade")
	}
}

func TestNewBcryptRejectsCostOutOfRange(t *testing.T) {
	if _, err := NewBcrypt(2); err == nil {
		t.Fatal("expected cost below minimum to be rejected")
	}
	if _, err := NewBcrypt(40); err == nil {
		t.Fatal("expected cost above maximum to be rejected")
	}
}
