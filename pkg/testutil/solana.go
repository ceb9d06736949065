package testutil

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a random ed25519 private key.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return key
}

// GenerateSolanaKeys returns n random public keys.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		keys[i] = PublicKey(GenerateSolanaKeypair(t))
	}
	return keys
}

// PublicKey returns the public half of a keypair.
func PublicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

// KeypairFileValues renders key the way the Solana CLI stores it.
func KeypairFileValues(key ed25519.PrivateKey) []int {
	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	return values
}

// WriteKeypairFile writes values as a Solana CLI keypair file in a temporary
// directory and returns its path.
func WriteKeypairFile(t *testing.T, values []int) string {
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keypair.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))
	return path
}
