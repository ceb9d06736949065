package ownershipnft

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

var testTicket = [TicketIDSize]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

func TestGetMintAddress(t *testing.T) {
	mint, bump, err := GetMintAddress(&GetMintAddressArgs{TicketID: testTicket[:]})
	require.NoError(t, err)

	recreated, err := solana.CreateProgramAddress(PROGRAM_ID, []byte("lottery_nft_mint"), testTicket[:], []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, mint, recreated)

	other := testTicket
	other[15] ^= 0xff
	otherMint, _, err := GetMintAddress(&GetMintAddressArgs{TicketID: other[:]})
	require.NoError(t, err)
	assert.NotEqual(t, mint, otherMint)

	customPrefix, _, err := GetMintAddress(&GetMintAddressArgs{Prefix: []byte("other"), TicketID: testTicket[:]})
	require.NoError(t, err)
	assert.NotEqual(t, mint, customPrefix)
}

func TestGetMetadataAddress(t *testing.T) {
	mint, _, err := GetMintAddress(&GetMintAddressArgs{TicketID: testTicket[:]})
	require.NoError(t, err)

	metadata, bump, err := GetMetadataAddress(&GetMetadataAddressArgs{Mint: mint})
	require.NoError(t, err)

	recreated, err := solana.CreateProgramAddress(PROGRAM_ID, []byte("metadata"), mint, []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, metadata, recreated)
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "Test #00112233-4455-6677-8899-aabbccddeeff", TokenName(DefaultNamePrefix, testTicket))
	assert.Equal(t, "http://localhost:3000/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff", TokenURI(DefaultBaseMetadataURL, testTicket))
	assert.Equal(t, "https://x.io/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff", TokenURI("https://x.io/", testTicket))
}

func TestErrorCode(t *testing.T) {
	assert.EqualValues(t, 6000, ErrorCodeInvalidServerSigner)
	assert.EqualValues(t, 6001, ErrorCodeInvalidProgram)
	assert.Equal(t, "InvalidServerSigner", ErrorCodeInvalidServerSigner.String())
	assert.Equal(t, "ErrorCode(7)", ErrorCode(7).String())
}

func TestInitOwnershipNftInstruction(t *testing.T) {
	keys := make([]ed25519.PublicKey, 6)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	expected := InitOwnershipNftInstructionAccounts{
		Program:         PROGRAM_ID,
		Mint:            keys[0],
		Metadata:        keys[1],
		MasterEdition:   keys[2],
		TokenAccount:    keys[3],
		Payer:           keys[4],
		Admin:           keys[5],
		UpdateAuthority: keys[5],
		MetadataProgram: METADATA_PROGRAM_ID,
		Owner:           keys[4],
	}

	ix := NewInitOwnershipNftInstruction(&expected, &InitOwnershipNftInstructionArgs{TicketID: testTicket})

	digest := sha256.Sum256([]byte("global:init_ownership_nft"))
	assert.Equal(t, digest[:8], ix.Data[:8])
	assert.Equal(t, testTicket[:], ix.Data[8:])
	require.Len(t, ix.Accounts, 13)
	assert.Equal(t, []ed25519.PublicKey{keys[4], keys[5]}, ix.Signers())
	assert.True(t, ix.Accounts[2].IsWritable)

	decompiled, err := DecompileInitOwnershipNft(PROGRAM_ID, ix)
	require.NoError(t, err)
	assert.Equal(t, expected, decompiled.Accounts)
	assert.Equal(t, testTicket, decompiled.Args.TicketID)
	assert.False(t, decompiled.SelfMetadata)

	_, err = DecompileInitOwnershipNft(keys[0], ix)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestInitOwnershipNftInstruction_SelfMetadata(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ix := NewInitOwnershipNftInstruction(&InitOwnershipNftInstructionAccounts{
		Mint:            payer,
		Metadata:        payer,
		TokenAccount:    payer,
		Payer:           payer,
		Admin:           ADMIN_TICKET_VALIDATOR,
		UpdateAuthority: ADMIN_TICKET_VALIDATOR,
		MetadataProgram: PROGRAM_ID,
		Owner:           owner,
	}, &InitOwnershipNftInstructionArgs{TicketID: testTicket})

	require.Len(t, ix.Accounts, 14)
	assert.EqualValues(t, PROGRAM_ID, ix.Accounts[2].PublicKey)
	assert.False(t, ix.Accounts[2].IsWritable)

	decompiled, err := DecompileInitOwnershipNft(PROGRAM_ID, ix)
	require.NoError(t, err)
	assert.True(t, decompiled.SelfMetadata)
	assert.Nil(t, decompiled.Accounts.MasterEdition)
	assert.EqualValues(t, owner, decompiled.Accounts.Owner)

	ix.Data = ix.Data[:10]
	_, err = DecompileInitOwnershipNft(PROGRAM_ID, ix)
	assert.Error(t, err)
}

func TestMetadataAccount_RoundTrip(t *testing.T) {
	expected := MetadataAccount{
		UpdateAuthority: ADMIN_TICKET_VALIDATOR,
		Mint:            TRANSFER_HOOK_PROGRAM_ID,
		Name:            TokenName(DefaultNamePrefix, testTicket),
		Symbol:          DefaultSymbol,
		URI:             TokenURI(DefaultBaseMetadataURL, testTicket),
		Bump:            254,
	}

	var actual MetadataAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.EqualValues(t, expected.UpdateAuthority, actual.UpdateAuthority)
	assert.EqualValues(t, expected.Mint, actual.Mint)
	assert.Equal(t, expected.Name, actual.Name)
	assert.Equal(t, expected.Symbol, actual.Symbol)
	assert.Equal(t, expected.URI, actual.URI)
	assert.Equal(t, expected.Bump, actual.Bump)

	b := expected.Marshal()
	b[0] ^= 0xff
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(b))
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(nil))
}
