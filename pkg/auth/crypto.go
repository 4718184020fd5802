package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
)

const publicKeyPrefix = "ed25519:"

// ParsePublicKey decodes a "ed25519:<base64>" string into raw key
// material, failing InvalidKeyFormat on a missing prefix, bad base64, or
// a decoded length other than ed25519.PublicKeySize.
func ParsePublicKey(keyStr string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(keyStr, publicKeyPrefix) {
		return nil, types.NewError(types.KindInvalidKeyFormat, "key must start with 'ed25519:' prefix")
	}

	raw, err := base64.StdEncoding.DecodeString(keyStr[len(publicKeyPrefix):])
	if err != nil {
		return nil, types.Wrap(types.KindInvalidKeyFormat, "invalid base64 for key", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, types.NewError(types.KindInvalidKeyFormat, "ed25519 public key must be 32 bytes")
	}
	return ed25519.PublicKey(raw), nil
}

// FormatPublicKey renders key as "ed25519:<base64>".
func FormatPublicKey(key ed25519.PublicKey) string {
	return publicKeyPrefix + base64.StdEncoding.EncodeToString(key)
}

// GenerateKeypair returns a fresh Ed25519 key pair using a
// cryptographically secure source of randomness.
func GenerateKeypair() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, types.Wrap(types.KindInvalidKeyFormat, "failed to generate ed25519 keypair", err)
	}
	return priv, pub, nil
}

// SignEntry signs entry's canonical signing bytes and returns the
// base64-encoded signature. It does not mutate entry.
func SignEntry(entry *dag.Entry, signingKey ed25519.PrivateKey) (string, error) {
	signingBytes, err := entry.SigningBytes()
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(signingKey, signingBytes)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyEntrySignature checks entry.Auth.Signature against
// verifyingKey, recomputing entry's signing bytes. It fails
// InvalidSignature if no signature is present, the signature is
// malformed, or it has the wrong length; otherwise it returns whether
// the cryptographic check passed.
func VerifyEntrySignature(entry *dag.Entry, verifyingKey ed25519.PublicKey) (bool, error) {
	if entry.Auth.Signature == nil {
		return false, types.NewError(types.KindInvalidSignature, "entry has no signature to verify")
	}

	sigBytes, err := base64.StdEncoding.DecodeString(*entry.Auth.Signature)
	if err != nil {
		return false, types.Wrap(types.KindInvalidSignature, "invalid base64 signature", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, types.NewError(types.KindInvalidSignature, "ed25519 signature must be 64 bytes")
	}

	signingBytes, err := entry.SigningBytes()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(verifyingKey, signingBytes, sigBytes), nil
}

// SignData signs arbitrary bytes and returns the base64-encoded signature.
func SignData(data []byte, signingKey ed25519.PrivateKey) string {
	sig := ed25519.Sign(signingKey, data)
	return base64.StdEncoding.EncodeToString(sig)
}

// VerifySignature checks a base64-encoded signature over data against
// verifyingKey, failing InvalidSignature on a malformed signature.
func VerifySignature(data []byte, signatureBase64 string, verifyingKey ed25519.PublicKey) (bool, error) {
	sigBytes, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return false, types.Wrap(types.KindInvalidSignature, "invalid base64 signature", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, types.NewError(types.KindInvalidSignature, "ed25519 signature must be 64 bytes")
	}
	return ed25519.Verify(verifyingKey, data, sigBytes), nil
}
