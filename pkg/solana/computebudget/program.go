// Package compute_budget builds and parses Compute Budget program instructions.
package compute_budget

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/binary"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

// Instruction tags. Only the last two are built here.
const (
	commandRequestUnits uint8 = iota
	commandRequestHeapFrame
	commandSetComputeUnitLimit
	commandSetComputeUnitPrice
)

// MaxComputeUnitLimit is the per-transaction ceiling enforced by the runtime.
const MaxComputeUnitLimit = 1_400_000

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 1+4)

	var offset int
	binary.PutUint8(data[offset:], commandSetComputeUnitLimit, &offset)
	binary.PutUint32(data[offset:], units, &offset)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)

	var offset int
	binary.PutUint8(data[offset:], commandSetComputeUnitPrice, &offset)
	binary.PutUint64(data[offset:], microLamports, &offset)

	return solana.NewInstruction(ProgramKey, data)
}

// IsComputeBudgetInstruction reports whether ix targets the compute budget program.
func IsComputeBudgetInstruction(ix solana.Instruction) bool {
	return bytes.Equal(ix.Program, ProgramKey)
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	offset, err := checkCommand(data, commandSetComputeUnitLimit, 4)
	if err != nil {
		return 0, err
	}

	var units uint32
	binary.GetUint32(data[offset:], &units, &offset)
	return units, nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	offset, err := checkCommand(data, commandSetComputeUnitPrice, 8)
	if err != nil {
		return 0, err
	}

	var microLamports uint64
	binary.GetUint64(data[offset:], &microLamports, &offset)
	return microLamports, nil
}

// checkCommand validates the tag and argument length, returning the offset of
// the argument.
func checkCommand(data []byte, command uint8, argSize int) (int, error) {
	if len(data) != 1+argSize {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}
	if data[0] != command {
		return 0, solana.ErrIncorrectInstruction
	}
	return 1, nil
}
