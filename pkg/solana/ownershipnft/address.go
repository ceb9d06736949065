package ownershipnft

import (
	"crypto/ed25519"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

var (
	MintPrefix     = []byte("lottery_nft_mint")
	MetadataPrefix = []byte("metadata")
)

type GetMintAddressArgs struct {
	Program  ed25519.PublicKey
	Prefix   []byte
	TicketID []byte
}

// GetMintAddress derives the ownership mint for a ticket. Program and Prefix
// default to PROGRAM_ID and MintPrefix.
func GetMintAddress(args *GetMintAddressArgs) (ed25519.PublicKey, uint8, error) {
	program, prefix := args.Program, args.Prefix
	if program == nil {
		program = PROGRAM_ID
	}
	if prefix == nil {
		prefix = MintPrefix
	}

	return solana.FindProgramAddressAndBump(
		program,
		prefix,
		args.TicketID,
	)
}

type GetMetadataAddressArgs struct {
	Program ed25519.PublicKey
	Prefix  []byte
	Mint    ed25519.PublicKey
}

// GetMetadataAddress derives the metadata record the program owns itself.
// Deployments backed by the Metaplex program use tokenmetadata instead.
func GetMetadataAddress(args *GetMetadataAddressArgs) (ed25519.PublicKey, uint8, error) {
	program, prefix := args.Program, args.Prefix
	if program == nil {
		program = PROGRAM_ID
	}
	if prefix == nil {
		prefix = MetadataPrefix
	}

	return solana.FindProgramAddressAndBump(
		program,
		prefix,
		args.Mint,
	)
}
