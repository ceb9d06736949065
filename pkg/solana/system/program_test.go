package system

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

func TestCreateAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := CreateAccount(keys[0], keys[1], keys[2], 12345, 67890)

	command := make([]byte, 4)
	lamports := make([]byte, 8)
	size := make([]byte, 8)
	binary.LittleEndian.PutUint32(command, commandCreateAccount)
	binary.LittleEndian.PutUint64(lamports, 12345)
	binary.LittleEndian.PutUint64(size, 67890)

	assert.Equal(t, command, instruction.Data[0:4])
	assert.Equal(t, lamports, instruction.Data[4:12])
	assert.Equal(t, size, instruction.Data[12:20])
	assert.EqualValues(t, keys[2], instruction.Data[20:52])
	assert.Equal(t, []ed25519.PublicKey{keys[0], keys[1]}, instruction.Signers())

	decompiled, err := DecompileCreateAccount(instruction)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], decompiled.Funder)
	assert.EqualValues(t, keys[1], decompiled.Address)
	assert.EqualValues(t, keys[2], decompiled.Owner)
	assert.EqualValues(t, 12345, decompiled.Lamports)
	assert.EqualValues(t, 67890, decompiled.Size)
}

func TestCreateAccount_FromMessage(t *testing.T) {
	keys := generateKeys(t, 3)

	tx := solana.NewTransaction(keys[0], CreateAccount(keys[0], keys[1], keys[2], 1, 2))

	ix, err := tx.Message.Decompile(0)
	require.NoError(t, err)

	decompiled, err := DecompileCreateAccount(ix)
	require.NoError(t, err)
	assert.EqualValues(t, keys[1], decompiled.Address)
	assert.EqualValues(t, 2, decompiled.Size)
}

func TestDecompileNonCreate(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := CreateAccount(keys[0], keys[1], keys[2], 1, 2)
	instruction.Data[0] = byte(1)
	_, err := DecompileCreateAccount(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction = CreateAccount(keys[0], keys[1], keys[2], 1, 2)
	instruction.Program = keys[2]
	_, err = DecompileCreateAccount(instruction)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	instruction = CreateAccount(keys[0], keys[1], keys[2], 1, 2)
	instruction.Data = instruction.Data[:40]
	_, err = DecompileCreateAccount(instruction)
	assert.Error(t, err)
}

func TestProgramKeys(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", base58.Encode(ProgramKey[:]))
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
