package issuance

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

// Signer is the capability to sign a transaction message for one key. How
// the key is held is up to the implementation.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(ctx context.Context, message []byte) (solana.Signature, error)
}

// KeypairSigner signs with an in-process private key.
type KeypairSigner struct {
	key ed25519.PrivateKey
}

func NewKeypairSigner(key ed25519.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

func (s *KeypairSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *KeypairSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	var sig solana.Signature
	if err := ctx.Err(); err != nil {
		return sig, err
	}
	copy(sig[:], ed25519.Sign(s.key, message))
	return sig, nil
}

// LoadKeypairFile reads a keypair in the Solana CLI format: a JSON array of
// the 64 private key bytes.
func LoadKeypairFile(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keypair file %s", path)
	}

	key, err := ParseKeypair(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid keypair file %s", path)
	}
	return key, nil
}

// ParseKeypair decodes the Solana CLI keypair format.
func ParseKeypair(raw []byte) (ed25519.PrivateKey, error) {
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "failed to decode keypair")
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair has %d bytes", len(values))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("invalid byte at %d", i)
		}
		key[i] = byte(v)
	}

	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !derived.Equal(key) {
		return nil, errors.New("public key does not match private key")
	}
	return key, nil
}
