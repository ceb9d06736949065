// Package system builds and parses System Program instructions.
package system

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/binary"
)

// 11111111111111111111111111111111
var ProgramKey [32]byte

const (
	commandCreateAccount uint32 = iota
)

const createAccountDataSize = 4 + 2*8 + 32

// CreateAccount funds and allocates a new account owned by owner. Both the
// funder and the new account must sign.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	//
	// CreateAccount { lamports: u64, space: u64, owner: Pubkey }
	data := make([]byte, createAccountDataSize)

	var offset int
	binary.PutUint32(data[offset:], commandCreateAccount, &offset)
	binary.PutUint64(data[offset:], lamports, &offset)
	binary.PutUint64(data[offset:], size, &offset)
	binary.PutKey32(data[offset:], owner, &offset)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

// DecompileCreateAccount parses a CreateAccount instruction.
func DecompileCreateAccount(ix solana.Instruction) (*DecompiledCreateAccount, error) {
	if !bytes.Equal(ix.Program, ProgramKey[:]) {
		return nil, solana.ErrIncorrectProgram
	}

	var offset int
	var command uint32
	if len(ix.Data) >= 4 {
		binary.GetUint32(ix.Data, &command, &offset)
	}
	if len(ix.Data) < 4 || command != commandCreateAccount {
		return nil, solana.ErrIncorrectInstruction
	}

	if len(ix.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}
	if len(ix.Data) != createAccountDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(ix.Data))
	}

	v := &DecompiledCreateAccount{
		Funder:  ix.Accounts[0].PublicKey,
		Address: ix.Accounts[1].PublicKey,
	}
	binary.GetUint64(ix.Data[offset:], &v.Lamports, &offset)
	binary.GetUint64(ix.Data[offset:], &v.Size, &offset)
	binary.GetKey32(ix.Data[offset:], &v.Owner, &offset)

	return v, nil
}
