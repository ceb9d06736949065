// Package ownershipnft models the on-chain program that issues one
// Token-2022 ownership NFT per lottery ticket.
package ownershipnft

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("6HJN3E7nkbExcwfw8YkztMFC2vcfPBQwmDLrkEMJqnqM")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	// ADMIN_TICKET_VALIDATOR must sign every issuance, both as admin and as
	// the metadata update authority.
	ADMIN_TICKET_VALIDATOR = ed25519.PublicKey{196, 49, 119, 241, 84, 72, 174, 21, 39, 203, 148, 43, 111, 97, 189, 117, 219, 157, 187, 242, 107, 205, 96, 30, 175, 144, 175, 16, 189, 127, 73, 85}

	TRANSFER_HOOK_PROGRAM_ID = ed25519.PublicKey{1, 2, 3, 4, 5, 130, 19, 173, 21, 58, 108, 43, 179, 33, 211, 237, 222, 201, 145, 188, 175, 181, 142, 126, 0, 68, 162, 19, 143, 142, 77, 119}
)

var (
	SYSTEM_PROGRAM_ID           = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID        = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
	SPL_TOKEN_2022_PROGRAM_ID   = ed25519.PublicKey(mustBase58Decode("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"))
	ASSOCIATED_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"))
	METADATA_PROGRAM_ID         = ed25519.PublicKey(mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"))

	SYSVAR_RENT_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

const (
	TicketIDSize = 16

	// MintDecimals of the ownership mint. Each ticket has exactly one token.
	MintDecimals = 0
)

// ErrorCode is a custom program error returned by the program.
type ErrorCode uint32

const (
	ErrorCodeInvalidServerSigner ErrorCode = 6000 + iota
	ErrorCodeInvalidProgram
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeInvalidServerSigner:
		return "InvalidServerSigner"
	case ErrorCodeInvalidProgram:
		return "InvalidProgram"
	}
	return fmt.Sprintf("ErrorCode(%d)", uint32(c))
}

func anchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:8]
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
