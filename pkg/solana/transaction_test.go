package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Taken from: https://github.com/solana-labs/solana/blob/14339dec0a960e8161d1165b6a8e5cfb73e78f23/sdk/src/transaction.rs#L523
const rustGenerated = "AUc7Cbu+gZalFSGeSFdukHhP7oSGaSdmdNEd5ZokaSysdoMWfIOzjrAbdaBZZuDMAfyNAogAJdrhgVya+jthsgoBAAEDnON0wdcmjhYIDuXvd10F2qEjAyEAJGSe/CGhYbk+WWMBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="

// The above example does not have the correct public key encoded in the keypair.
// This is the above example with the correctly generated keypair.
const rustGeneratedAdjusted = "ATMfBMZ8phHEheLph8K9TJhRKhnE4qNZvWiXdUdJRmlTCRsQjWmW2CkQJeRHBCcsqFm2gynjL40M9mTe0Dxp4QIBAAEDfEya6wnC7f3Cv53qnOEywwIJ928rIdqAlfXYI1adXroBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="

func TestTransaction_CrossImpl(t *testing.T) {
	keypair := ed25519.PrivateKey{48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32, 255, 101, 36, 24, 124, 23,
		167, 21, 132, 204, 155, 5, 185, 58, 121, 75, 156, 227, 116, 193, 215, 38, 142, 22, 8,
		14, 229, 239, 119, 93, 5, 218, 161, 35, 3, 33, 0, 36, 100, 158, 252, 33, 161, 97, 185,
		62, 89, 99}
	programID := ed25519.PublicKey{2, 2, 2, 4, 5, 6, 7, 8, 9, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4,
		2, 2, 2}
	to := ed25519.PublicKey{1, 1, 1, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 8, 7, 6, 5, 4, 1, 1, 1}

	tx := NewTransaction(
		keypair.Public().(ed25519.PublicKey),
		NewInstruction(
			programID,
			[]byte{1, 2, 3},
			NewAccountMeta(keypair.Public().(ed25519.PublicKey), true),
			NewAccountMeta(to, false),
		),
	)
	require.NoError(t, tx.Sign(keypair))

	generated, err := base64.StdEncoding.DecodeString(rustGenerated)
	require.NoError(t, err)
	assert.Equal(t, generated, tx.Marshal())
}

func TestTransaction_GenerateValidCrossImpl(t *testing.T) {
	keypair := ed25519.NewKeyFromSeed([]byte{48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32, 255, 101, 36, 24, 124, 23,
		167, 21, 132, 204, 155, 5, 185, 58, 121, 75})
	programID := ed25519.PublicKey{2, 2, 2, 4, 5, 6, 7, 8, 9, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4,
		2, 2, 2}
	to := ed25519.PublicKey{1, 1, 1, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 8, 7, 6, 5, 4, 1, 1, 1}

	tx := NewTransaction(
		keypair.Public().(ed25519.PublicKey),
		NewInstruction(
			programID,
			[]byte{1, 2, 3},
			NewAccountMeta(keypair.Public().(ed25519.PublicKey), true),
			NewAccountMeta(to, false),
		),
	)
	require.NoError(t, tx.Sign(keypair))
	assert.Equal(t, rustGeneratedAdjusted, base64.StdEncoding.EncodeToString(tx.Marshal()))
}

func TestTransaction_EmptyAccount(t *testing.T) {
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := NewTransaction(
		pub,
		NewInstruction(
			program,
			[]byte{1, 2, 3},
			NewAccountMeta(nil, false),
		),
	)
	assert.NoError(t, tx.Sign(priv))

	var rtt Transaction
	assert.NoError(t, rtt.Unmarshal(tx.Marshal()))
}

func TestTransaction_MarshalRoundTrip(t *testing.T) {
	keys := sortedKeys(t, 6)
	payer, admin, aux, owner := keys[0], keys[1], keys[2], keys[3]
	budgetProgram, issuingProgram := keys[4], keys[5]

	// Shaped like an issuance: budget, auxiliary account creation, program call.
	tx := NewTransaction(
		public(payer),
		NewInstruction(public(budgetProgram), []byte{2, 0x80, 0x1a, 0x06, 0x00}, NewReadonlyAccountMeta(public(payer), false)),
		NewInstruction(public(budgetProgram), []byte{3, 1, 0, 0, 0, 0, 0, 0, 0}, NewReadonlyAccountMeta(public(payer), false)),
		NewInstruction(public(issuingProgram), []byte{0, 1, 2, 3},
			NewAccountMeta(public(payer), true),
			NewAccountMeta(public(aux), true),
		),
		NewInstruction(public(issuingProgram), []byte{4, 5, 6, 7},
			NewAccountMeta(public(payer), true),
			NewReadonlyAccountMeta(public(admin), true),
			NewReadonlyAccountMeta(public(owner), false),
		),
	)
	tx.SetBlockhash(Blockhash{7, 7, 7})
	require.NoError(t, tx.Sign(admin, aux, payer))

	encoded := tx.Marshal()
	assert.LessOrEqual(t, len(encoded), MaxTransactionSize)

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(encoded))
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Equal(t, tx.Message.Header, decoded.Message.Header)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	assert.Equal(t, tx.Message.Instructions, decoded.Message.Instructions)
	require.Len(t, decoded.Message.Accounts, len(tx.Message.Accounts))
	for i := range tx.Message.Accounts {
		assert.EqualValues(t, tx.Message.Accounts[i], decoded.Message.Accounts[i])
	}
	assert.True(t, decoded.VerifySignatures())
	assert.Equal(t, encoded, decoded.Marshal())
}

func TestTransaction_InvalidIndexes(t *testing.T) {
	keys := generateKeys(t, 2)
	build := func() Transaction {
		return NewTransaction(
			public(keys[0]),
			NewInstruction(public(keys[1]), []byte{1}, NewAccountMeta(public(keys[0]), true)),
		)
	}

	tx := build()
	tx.Message.Instructions[0].ProgramIndex = 2
	assert.Error(t, tx.Unmarshal(tx.Marshal()))

	tx = build()
	tx.Message.Instructions[0].Accounts = []byte{2}
	assert.Error(t, tx.Unmarshal(tx.Marshal()))
}

func TestNewTransaction_AccountOrdering(t *testing.T) {
	keys := sortedKeys(t, 4)
	programs := sortedKeys(t, 2)
	payer := generateKeys(t, 1)[0]

	for _, tc := range []struct {
		name         string
		instructions []Instruction
		order        []ed25519.PrivateKey
		header       Header
	}{
		{
			name: "permission classes",
			instructions: []Instruction{
				NewInstruction(public(programs[0]), []byte{1},
					NewReadonlyAccountMeta(public(keys[0]), true),
					NewReadonlyAccountMeta(public(keys[1]), false),
					NewAccountMeta(public(keys[2]), false),
					NewAccountMeta(public(keys[3]), true),
				),
			},
			order:  []ed25519.PrivateKey{payer, keys[3], keys[0], keys[2], keys[1], programs[0]},
			header: Header{NumSignatures: 3, NumReadonlySigned: 1, NumReadOnly: 2},
		},
		{
			name: "promoted across instructions",
			instructions: []Instruction{
				NewInstruction(public(programs[1]), []byte{1},
					NewReadonlyAccountMeta(public(keys[0]), false),
					NewAccountMeta(public(keys[1]), false),
				),
				NewInstruction(public(programs[0]), []byte{2},
					NewAccountMeta(public(keys[0]), true),
					NewReadonlyAccountMeta(public(keys[1]), false),
				),
			},
			order:  []ed25519.PrivateKey{payer, keys[0], keys[1], programs[0], programs[1]},
			header: Header{NumSignatures: 2, NumReadonlySigned: 0, NumReadOnly: 2},
		},
		{
			name: "payer referenced read only",
			instructions: []Instruction{
				NewInstruction(public(programs[0]), []byte{1},
					NewReadonlyAccountMeta(public(payer), false),
					NewReadonlyAccountMeta(public(keys[0]), false),
				),
			},
			order:  []ed25519.PrivateKey{payer, keys[0], programs[0]},
			header: Header{NumSignatures: 1, NumReadonlySigned: 0, NumReadOnly: 2},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tx := NewTransaction(public(payer), tc.instructions...)

			assert.Equal(t, tc.header, tx.Message.Header)
			require.Len(t, tx.Message.Accounts, len(tc.order))
			for i, key := range tc.order {
				assert.EqualValues(t, public(key), tx.Message.Accounts[i], "account %d", i)
			}

			// Compiled indexes resolve back to the original accounts.
			require.Len(t, tx.Message.Instructions, len(tc.instructions))
			for i, ix := range tc.instructions {
				compiled := tx.Message.Instructions[i]
				assert.EqualValues(t, ix.Program, tx.Message.Accounts[compiled.ProgramIndex])
				assert.Equal(t, ix.Data, compiled.Data)
				require.Len(t, compiled.Accounts, len(ix.Accounts))
				for j, index := range compiled.Accounts {
					assert.EqualValues(t, ix.Accounts[j].PublicKey, tx.Message.Accounts[index])
				}
			}

			// Signing order doesn't matter; each slot belongs to its account.
			signers := make([]ed25519.PrivateKey, tx.Message.Header.NumSignatures)
			copy(signers, tc.order)
			for i, j := 0, len(signers)-1; i < j; i, j = i+1, j-1 {
				signers[i], signers[j] = signers[j], signers[i]
			}
			require.NoError(t, tx.Sign(signers...))

			message := tx.Message.Marshal()
			for i := range tx.Signatures {
				assert.True(t, ed25519.Verify(tx.Message.Accounts[i], message, tx.Signatures[i][:]))
			}
		})
	}
}

func TestTransaction_SignerTracking(t *testing.T) {
	keys := generateKeys(t, 4)
	payer, admin, aux, program := keys[0], keys[1], keys[2], keys[3]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			[]byte{1},
			NewAccountMeta(public(aux), true),
		),
		NewInstruction(
			public(program),
			[]byte{2},
			NewAccountMeta(public(aux), false),
			NewReadonlyAccountMeta(public(admin), true),
		),
	)

	required := tx.RequiredSigners()
	require.Len(t, required, 3)
	assert.EqualValues(t, public(payer), required[0])
	assert.EqualValues(t, public(payer), tx.FeePayer())
	assert.Len(t, tx.MissingSigners(), 3)
	assert.False(t, tx.VerifySignatures())

	require.NoError(t, tx.Sign(aux, admin))
	assert.True(t, tx.IsSignedBy(public(aux)))
	assert.True(t, tx.IsSignedBy(public(admin)))
	assert.False(t, tx.IsSignedBy(public(payer)))
	assert.Equal(t, []ed25519.PublicKey{public(payer)}, tx.MissingSigners())

	require.NoError(t, tx.Sign(payer))
	assert.Empty(t, tx.MissingSigners())
	assert.True(t, tx.VerifySignatures())
	assert.Equal(t, tx.Signatures[0], tx.ID())

	// Program keys never sign.
	err := tx.Sign(program)
	assert.True(t, errors.Is(err, ErrSignerNotRequired))

	outsider := generateKeys(t, 1)[0]
	err = tx.AddSignature(public(outsider), Signature{1})
	assert.True(t, errors.Is(err, ErrSignerNotRequired))
}

func TestTransaction_BlockhashInvalidatesSignatures(t *testing.T) {
	keys := generateKeys(t, 2)
	tx := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte{1}))
	require.NoError(t, tx.Sign(keys[0]))
	require.True(t, tx.VerifySignatures())

	tx.SetBlockhash(Blockhash{1})
	assert.False(t, tx.VerifySignatures())
}

func TestMessage_Decompile(t *testing.T) {
	keys := generateKeys(t, 5)
	payer, program, signer, writable, readonly := keys[0], keys[1], keys[2], keys[3], keys[4]

	original := NewInstruction(
		public(program),
		[]byte{9, 8, 7},
		NewAccountMeta(public(writable), false),
		NewReadonlyAccountMeta(public(signer), true),
		NewReadonlyAccountMeta(public(readonly), false),
	)
	tx := NewTransaction(public(payer), original)

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(tx.Marshal()))

	ix, err := decoded.Message.Decompile(0)
	require.NoError(t, err)
	assert.EqualValues(t, public(program), ix.Program)
	assert.Equal(t, original.Data, ix.Data)
	require.Len(t, ix.Accounts, 3)
	for i, a := range ix.Accounts {
		assert.EqualValues(t, original.Accounts[i].PublicKey, a.PublicKey)
		assert.Equal(t, original.Accounts[i].IsSigner, a.IsSigner)
		assert.Equal(t, original.Accounts[i].IsWritable, a.IsWritable)
	}

	assert.Equal(t, []ed25519.PublicKey{public(signer)}, ix.Signers())
	assert.True(t, ix.References(public(readonly)))
	assert.False(t, ix.References(public(payer)))

	_, err = decoded.Message.Decompile(1)
	assert.Error(t, err)
}

func TestMessage_UnmarshalInvalid(t *testing.T) {
	var m Message
	assert.Error(t, m.Unmarshal(nil))
	assert.Error(t, m.Unmarshal([]byte{0x80, 1, 0}))
	assert.Error(t, m.Unmarshal([]byte{1, 0, 0}))
}

func sortedKeys(t *testing.T, amount int) []ed25519.PrivateKey {
	keys := generateKeys(t, amount)
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(public(keys[i]), public(keys[j])) < 0
	})
	return keys
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func generateKeys(t *testing.T, amount int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, amount)

	for i := 0; i < amount; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}

	return keys
}
