package memory

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/system"
)

const (
	systemErrorResultWithNegativeLamports = 1

	systemProgramUnits = 150
	computeBudgetUnits = 150
)

var errMissingRequiredSignature = errors.New(string(solana.InstructionErrorMissingRequiredSignature))

// SystemProgram supports CreateAccount.
func SystemProgram() Program {
	return ProgramFunc(func(state *State, ix solana.Instruction) error {
		state.Consume(systemProgramUnits)

		create, err := system.DecompileCreateAccount(ix)
		if err != nil {
			return errors.New(string(solana.InstructionErrorInvalidInstructionData))
		}

		if !state.IsSigner(create.Funder) || !state.IsSigner(create.Address) {
			return errMissingRequiredSignature
		}
		if create.Lamports < state.Rent(create.Size) {
			return errors.New(string(solana.InstructionErrorInsufficientFunds))
		}

		return state.CreateAccount(create.Funder, create.Address, create.Owner, create.Lamports, make([]byte, create.Size))
	})
}

// signedBy reports whether every account flagged as a signer in ix signed.
func signedBy(state *State, ix solana.Instruction) bool {
	for _, signer := range ix.Signers() {
		if !state.IsSigner(signer) {
			return false
		}
	}
	return true
}

func isKey(a, b []byte) bool {
	return bytes.Equal(a, b)
}
