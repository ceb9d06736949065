// Package token models the SPL Token and Token-2022 programs: program keys,
// associated account derivation, mint extension sizing and account state.
package token

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// ProgramKey is the address of the original SPL token program.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Token2022ProgramKey is the address of the Token-2022 (token extensions) program.
var Token2022ProgramKey = mustBase58Decode("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// AccountType is the byte that follows the base state in a Token-2022
// account that carries extensions.
type AccountType byte

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
