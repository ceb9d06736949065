package tokenmetadata

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

func TestAddresses(t *testing.T) {
	mint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	metadata, bump, err := GetMetadataAddress(mint)
	require.NoError(t, err)

	recreated, err := solana.CreateProgramAddress(ProgramKey, []byte("metadata"), ProgramKey, mint, []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, metadata, recreated)

	edition, _, err := GetMasterEditionAddress(mint)
	require.NoError(t, err)
	assert.NotEqual(t, metadata, edition)

	again, _, err := GetMasterEditionAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, edition, again)
}

func TestMetadata_RoundTrip(t *testing.T) {
	authority, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	mint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	expected := Metadata{
		UpdateAuthority: authority,
		Mint:            mint,
		Name:            "Test #00112233-4455-6677-8899-aabbccddeeff",
		Symbol:          "NFT",
		URI:             "http://localhost:3000/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff",
		Creators: []Creator{
			{Address: authority, Verified: true, Share: 100},
		},
		IsMutable: true,
	}

	b := expected.Marshal()
	assert.Len(t, b, MetadataAccountSize)

	var actual Metadata
	require.NoError(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)
}

func TestMetadata_Padding(t *testing.T) {
	m := Metadata{
		UpdateAuthority: make(ed25519.PublicKey, ed25519.PublicKeySize),
		Mint:            make(ed25519.PublicKey, ed25519.PublicKeySize),
		Name:            "short",
		Symbol:          "S",
		URI:             "u",
	}

	b := m.Marshal()

	// name length prefix carries the padded width
	assert.EqualValues(t, MaxNameLength, b[65])

	var actual Metadata
	require.NoError(t, actual.Unmarshal(b))
	assert.Equal(t, "short", actual.Name)
	assert.Equal(t, "S", actual.Symbol)
	assert.Equal(t, "u", actual.URI)
	assert.Empty(t, actual.Creators)
}

func TestMetadata_Invalid(t *testing.T) {
	var m Metadata
	assert.Error(t, m.Unmarshal(nil))

	valid := (&Metadata{
		UpdateAuthority: make(ed25519.PublicKey, ed25519.PublicKeySize),
		Mint:            make(ed25519.PublicKey, ed25519.PublicKeySize),
		Name:            "name",
	}).Marshal()

	wrongKey := append([]byte{}, valid...)
	wrongKey[0] = byte(KeyMasterEditionV2)
	assert.Error(t, m.Unmarshal(wrongKey))

	assert.Error(t, m.Unmarshal(valid[:70]))
}

func TestMasterEdition_RoundTrip(t *testing.T) {
	maxSupply := uint64(0)
	expected := MasterEdition{MaxSupply: &maxSupply}

	var actual MasterEdition
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, actual)

	var unbounded MasterEdition
	require.NoError(t, unbounded.Unmarshal((&MasterEdition{Supply: 3}).Marshal()))
	assert.Nil(t, unbounded.MaxSupply)
	assert.EqualValues(t, 3, unbounded.Supply)

	assert.Error(t, actual.Unmarshal([]byte{byte(KeyMetadataV1)}))
}
