package crypto

import "testing"

func TestRandBytesLenAndUniqueness(t *testing.T) {
	a, err := RandBytes(16)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	b, err := RandBytes(16)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != 16 || len(b) != 16 {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	if string(a) == string(b) {
		t.Fatalf("two random reads returned identical bytes")
	}
}

func TestNewOpaqueToken(t *testing.T) {
	tok, err := NewOpaqueToken(20)
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	if len(tok) != 40 {
		t.Fatalf("token length want 40, got %d", len(tok))
	}
	other, err := NewOpaqueToken(20)
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	if tok == other {
		t.Fatalf("tokens must not repeat")
	}
}

func TestHashVerifySecret(t *testing.T) {
	salt, _ := RandBytes(16)
	h := HashSecret([]byte("hunter2"), salt)
	if !VerifySecret([]byte("hunter2"), salt, h) {
		t.Fatalf("verify should succeed for correct secret")
	}
	if VerifySecret([]byte("hunter3"), salt, h) {
		t.Fatalf("verify should fail for wrong secret")
	}
}

func TestHashVerifyCredential(t *testing.T) {
	enc, err := HashCredential("secret-1")
	if err != nil {
		t.Fatalf("HashCredential: %v", err)
	}
	if !VerifyCredential(enc, "secret-1") {
		t.Fatalf("verify should succeed for correct secret")
	}
	if VerifyCredential(enc, "secret-2") {
		t.Fatalf("verify should fail for wrong secret")
	}
	if VerifyCredential("not-an-encoding", "secret-1") {
		t.Fatalf("malformed encoding must never verify")
	}

	again, err := HashCredential("secret-1")
	if err != nil {
		t.Fatalf("HashCredential: %v", err)
	}
	if enc == again {
		t.Fatalf("salts must differ between encodings")
	}
}

func TestTokensEqual(t *testing.T) {
	if !TokensEqual("abc", "abc") {
		t.Fatalf("equal tokens reported unequal")
	}
	if TokensEqual("abc", "abd") || TokensEqual("abc", "ab") {
		t.Fatalf("unequal tokens reported equal")
	}
}
