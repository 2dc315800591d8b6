package manifest

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)
	m, err := NewFreezer().WithClock(fixedClock).Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	if err := Sign(&m, priv); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if m.Publisher == nil {
		t.Fatal("Sign() left Publisher nil")
	}

	if err := VerifySignature(m); err != nil {
		t.Errorf("VerifySignature() error = %v, want nil", err)
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)
	m, err := NewFreezer().WithClock(fixedClock).Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := Sign(&m, priv); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	// Any payload change after signing must invalidate the signature.
	m.File.Hash = upperHex(m.File.Hash)

	if err := VerifySignature(m); !errors.Is(err, ErrBadSignature) {
		t.Errorf("VerifySignature() error = %v, want ErrBadSignature", err)
	}
}

func TestVerifySignature_Unsigned(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)
	m, err := NewFreezer().Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	if err := VerifySignature(m); !errors.Is(err, ErrUnsigned) {
		t.Errorf("VerifySignature() error = %v, want ErrUnsigned", err)
	}
}

func TestVerifySignature_BadPublicKey(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)
	m, err := NewFreezer().Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := Sign(&m, priv); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	m.Publisher.PublicKey = "not-base58-!!"
	if err := VerifySignature(m); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("VerifySignature() error = %v, want ErrInvalidPublicKey", err)
	}
}
