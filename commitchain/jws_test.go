package commitchain

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func TestSignCommitProducesVerifiableJWS(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := &ECDSASigner{Key: key}

	c := Commit{Context: contextURI, Alias: "main", Branch: "main", Time: "2024-01-01T00:00:00Z"}
	id, err := CommitHash(c)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	c.ID = id

	jws, err := SignCommit(signer, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	recoveredKey, err := VerifyCommitJWS(jws, c)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	wantKey := fmt.Sprintf("%x", key.PubKey().SerializeCompressed())
	if recoveredKey != wantKey {
		t.Fatalf("recovered key %q does not match signer's public key %q", recoveredKey, wantKey)
	}
}

func TestVerifyCommitJWSRejectsPayloadMismatch(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := &ECDSASigner{Key: key}

	c := Commit{Context: contextURI, Alias: "main", Branch: "main", Time: "2024-01-01T00:00:00Z"}
	c.ID, _ = CommitHash(c)
	jws, err := SignCommit(signer, c)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := c
	other.ID = "fluree:commit:sha256:bDIFFERENT"
	if _, err := VerifyCommitJWS(jws, other); err == nil {
		t.Fatalf("expected verification to fail against a different commit id")
	}
}
