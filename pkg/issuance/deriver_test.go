package issuance

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/testutil"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

func TestDeriver_RecordedAddresses(t *testing.T) {
	id := ticket.MustFromString("00112233-4455-6677-8899-aabbccddeeff")

	for _, tc := range []struct {
		mode             MetadataMode
		expectedMetadata string
		metadataBump     uint8
		expectedEdition  string
	}{
		{
			mode:             MetadataModeExternal,
			expectedMetadata: "HUiFxa7hgrjjCNEu2fKhu8AhiPvnyGts79UJBX17kQwg",
			metadataBump:     255,
			expectedEdition:  "3y9YffNoQ4q7P1WEryAwpSaLxZ9jbCWYdZTD7w5FU2w9",
		},
		{
			mode:             MetadataModeSelf,
			expectedMetadata: "8HL8W4FgXYVpKeSyoLZZqx6H8v8NhSDGAqnFAiZYYNDE",
			metadataBump:     254,
		},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			settings := DefaultSettings()
			settings.MetadataMode = tc.mode
			deriver := NewDeriver(settings)

			mint, err := deriver.DeriveMintAddress(id)
			require.NoError(t, err)
			assert.Equal(t, "EPJHgi9g7ojpVNHPFyhTmSkAkGe8pAgxdkwtkKpVu7VQ", mint.String())
			assert.EqualValues(t, 255, mint.Bump)

			metadata, err := deriver.DeriveMetadataAddress(mint.Address)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedMetadata, metadata.String())
			assert.Equal(t, tc.metadataBump, metadata.Bump)

			edition, err := deriver.DeriveMasterEditionAddress(mint.Address)
			require.NoError(t, err)
			if tc.expectedEdition == "" {
				assert.Nil(t, edition)
			} else {
				require.NotNil(t, edition)
				assert.Equal(t, tc.expectedEdition, edition.String())
			}

			// The bump is a proof: re-creating with it yields the same address.
			recreated, err := solana.CreateProgramAddress(settings.ProgramID, settings.MintSeed, id.Bytes(), []byte{mint.Bump})
			require.NoError(t, err)
			assert.EqualValues(t, mint.Address, recreated)
		})
	}
}

func TestDeriver_Deterministic(t *testing.T) {
	deriver := NewDeriver(DefaultSettings())
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := ticket.New()

		a, err := deriver.DeriveAll(id, owner)
		require.NoError(t, err)
		b, err := deriver.DeriveAll(id, owner)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		_, collided := seen[a.Mint.String()]
		assert.False(t, collided)
		seen[a.Mint.String()] = struct{}{}
	}
}

func TestDeriver_HoldingAccount(t *testing.T) {
	deriver := NewDeriver(DefaultSettings())
	keys := testutil.GenerateSolanaKeys(t, 2)

	mint, err := deriver.DeriveMintAddress(ticket.New())
	require.NoError(t, err)

	holding, err := deriver.DeriveHoldingAccount(mint.Address, keys[0])
	require.NoError(t, err)

	expected, _, err := token.GetAssociatedAccountForProgram(keys[0], mint.Address, token.Token2022ProgramKey)
	require.NoError(t, err)
	assert.EqualValues(t, expected, holding)

	legacy, err := token.GetAssociatedAccount(keys[0], mint.Address)
	require.NoError(t, err)
	assert.NotEqual(t, base58.Encode(legacy), base58.Encode(holding))

	other, err := deriver.DeriveHoldingAccount(mint.Address, keys[1])
	require.NoError(t, err)
	assert.NotEqual(t, base58.Encode(other), base58.Encode(holding))
}

func TestDeriver_SeedsFromSettings(t *testing.T) {
	id := ticket.New()

	defaults := NewDeriver(DefaultSettings())
	settings := DefaultSettings()
	settings.MintSeed = []byte("other_mint")
	custom := NewDeriver(settings)

	a, err := defaults.DeriveMintAddress(id)
	require.NoError(t, err)
	b, err := custom.DeriveMintAddress(id)
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), b.String())

	// Mutating settings after construction has no effect.
	settings.MintSeed[0] = 'x'
	c, err := custom.DeriveMintAddress(id)
	require.NoError(t, err)
	assert.Equal(t, b, c)
}

func TestDeriver_CachedTicketAddresses(t *testing.T) {
	deriver := NewDeriver(DefaultSettings())
	keys := testutil.GenerateSolanaKeys(t, 2)
	id := ticket.New()

	first, err := deriver.DeriveAll(id, keys[0])
	require.NoError(t, err)
	assert.Equal(t, 1, deriver.tickets.Len())

	// The ticket addresses are reused, the holding account is not.
	second, err := deriver.DeriveAll(id, keys[1])
	require.NoError(t, err)
	assert.Equal(t, 1, deriver.tickets.Len())
	assert.Equal(t, first.Mint, second.Mint)
	assert.Equal(t, first.Metadata, second.Metadata)
	assert.Equal(t, first.MasterEdition, second.MasterEdition)
	assert.NotEqual(t, base58.Encode(first.Holding), base58.Encode(second.Holding))

	expected, err := deriver.DeriveHoldingAccount(second.Mint.Address, keys[1])
	require.NoError(t, err)
	assert.EqualValues(t, expected, second.Holding)
}
