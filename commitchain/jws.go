package commitchain

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Signer produces a detached recoverable ECDSA signature over an
// arbitrary signing input. ECDSASigner is the production implementation;
// tests may supply a stub.
type Signer interface {
	Sign(signingInput []byte) (sig []byte, err error)
}

// ECDSASigner signs with a secp256k1 private key, the same curve used
// throughout the pack's wallet and transaction-signing code.
type ECDSASigner struct {
	Key *btcec.PrivateKey
}

func (s *ECDSASigner) Sign(signingInput []byte) ([]byte, error) {
	if s.Key == nil {
		return nil, fmt.Errorf("commitchain: signer has no private key")
	}
	hash := sha256.Sum256(signingInput)
	return ecdsa.SignCompact(s.Key, hash[:], true), nil
}

const jwsHeaderES256KR = `{"alg":"ES256K-R","b64":false,"crit":["b64"]}`

// SignCommit wraps a hashed commit's id in a compact JWS using the
// ES256K-R algorithm: a recoverable secp256k1 signature lets a verifier
// recover the signer's public key from the signature alone, so commits
// carry no embedded key material.
func SignCommit(signer Signer, c Commit) (string, error) {
	if c.ID == "" {
		return "", fmt.Errorf("commitchain: cannot sign a commit before it is hashed")
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(jwsHeaderES256KR))
	payload := base64.RawURLEncoding.EncodeToString([]byte(c.ID))
	signingInput := header + "." + payload
	sig, err := signer.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("commitchain: sign commit: %w", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// VerifyCommitJWS checks that jws is a well-formed ES256K-R envelope
// over c.ID and returns the hex-encoded compressed public key recovered
// from the signature. It does not check the recovered key against any
// allowlist, and Reify's verification discards the recovered key, so
// any well-formed signature over the commit id is accepted on load.
func VerifyCommitJWS(jws string, c Commit) (string, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("commitchain: malformed jws: expected 3 segments, got %d", len(parts))
	}
	header, payload, sigPart := parts[0], parts[1], parts[2]

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("commitchain: decode jws payload: %w", err)
	}
	if string(payloadBytes) != c.ID {
		return "", fmt.Errorf("commitchain: jws payload %q does not match commit id %q", payloadBytes, c.ID)
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return "", fmt.Errorf("commitchain: decode jws signature: %w", err)
	}

	hash := sha256.Sum256([]byte(header + "." + payload))
	pubKey, _, err := ecdsa.RecoverCompact(sig, hash[:])
	if err != nil {
		return "", fmt.Errorf("commitchain: recover signer public key: %w", err)
	}
	return fmt.Sprintf("%x", pubKey.SerializeCompressed()), nil
}
