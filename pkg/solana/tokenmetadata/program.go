// Package tokenmetadata models the parts of the Metaplex token metadata
// program that issuance depends on: its program derived addresses and the
// metadata and master edition account layouts.
package tokenmetadata

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

// ProgramKey is the address of the Metaplex token metadata program.
var ProgramKey = mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

var (
	MetadataPrefix = []byte("metadata")
	EditionPrefix  = []byte("edition")
)

// Key is the leading account type byte of every metadata program account.
type Key byte

const (
	KeyUninitialized Key = iota
	KeyEditionV1
	KeyMasterEditionV1
	KeyReservationListV1
	KeyMetadataV1
	KeyReservationListV2
	KeyMasterEditionV2
	KeyEditionMarker
)

// Field limits enforced by the metadata program. Shorter values are NUL
// padded to these widths when the account is written.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// GetMetadataAddress returns the metadata account for the mint.
func GetMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		MetadataPrefix,
		ProgramKey,
		mint,
	)
}

// GetMasterEditionAddress returns the master edition account for the mint.
func GetMasterEditionAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		ProgramKey,
		MetadataPrefix,
		ProgramKey,
		mint,
		EditionPrefix,
	)
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
