package manifest

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"driftlab/internal/domain"
)

// Signature errors
var (
	ErrUnsigned         = errors.New("manifest has no publisher block")
	ErrInvalidPublicKey = errors.New("publisher public key is not a canonical ed25519 point")
	ErrBadSignature     = errors.New("manifest signature verification failed")
)

// SignaturePayload returns the canonical bytes a publisher signs: the
// manifest JSON with the publisher block removed. encoding/json emits struct
// fields in declaration order, so the payload is deterministic.
func SignaturePayload(m domain.Manifest) ([]byte, error) {
	m.Publisher = nil
	return json.Marshal(m)
}

// Sign attaches a publisher block to the manifest: the base58-encoded
// ed25519 public key and a hex-encoded detached signature over the canonical
// payload.
func Sign(m *domain.Manifest, priv ed25519.PrivateKey) error {
	payload, err := SignaturePayload(*m)
	if err != nil {
		return fmt.Errorf("build signature payload: %w", err)
	}

	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return ErrInvalidPublicKey
	}

	m.Publisher = &domain.ManifestPublisher{
		PublicKey: base58.Encode(pub),
		Signature: hex.EncodeToString(ed25519.Sign(priv, payload)),
	}
	return nil
}

// VerifySignature checks the manifest's publisher block. The public key must
// be base58, 32 bytes, and decode as a canonical edwards25519 point before
// the signature itself is verified.
func VerifySignature(m domain.Manifest) error {
	if m.Publisher == nil {
		return ErrUnsigned
	}

	pub, err := base58.Decode(m.Publisher.PublicKey)
	if err != nil || !isCanonicalPoint(pub) {
		return ErrInvalidPublicKey
	}

	sig, err := hex.DecodeString(m.Publisher.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	payload, err := SignaturePayload(m)
	if err != nil {
		return fmt.Errorf("build signature payload: %w", err)
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), payload, sig) {
		return ErrBadSignature
	}
	return nil
}

func isCanonicalPoint(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
