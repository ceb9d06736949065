package issuance

import (
	"context"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configmemory "github.com/code-payments/ownership-nft/pkg/config/memory"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/tokenmetadata"
	"github.com/code-payments/ownership-nft/pkg/testutil"
)

func TestLoadSettings_Defaults(t *testing.T) {
	settings := DefaultSettings()

	assert.EqualValues(t, ownershipnft.PROGRAM_ID, settings.ProgramID)
	assert.EqualValues(t, ownershipnft.ADMIN_TICKET_VALIDATOR, settings.Admin)
	assert.EqualValues(t, tokenmetadata.ProgramKey, settings.MetadataProgramID)
	assert.Equal(t, "lottery_nft_mint", string(settings.MintSeed))
	assert.Equal(t, "metadata", string(settings.MetadataSeed))
	assert.Equal(t, MetadataModeExternal, settings.MetadataMode)
	assert.Equal(t, "OWNER-TEST-NFT", settings.TokenSymbol)
	assert.Equal(t, "Test #", settings.TokenNamePrefix)
	assert.Equal(t, "http://localhost:3000", settings.BaseMetadataURL)
	assert.EqualValues(t, 400_000, settings.ComputeUnitLimit)
	assert.Zero(t, settings.ComputeUnitPrice)
	assert.Equal(t, solana.CommitmentConfirmed, settings.Commitment)
	assert.Equal(t, time.Minute, settings.ConfirmationTimeout)
	assert.Equal(t, time.Second, settings.PollInterval)
	assert.True(t, settings.SimulateBeforeSubmit)
	assert.False(t, settings.SkipPreflight)
	assert.Equal(t, time.Minute, settings.CheckpointMaxAge)
	assert.Equal(t, 2, settings.MaxCheckpointRefreshes)
	assert.True(t, settings.VerifyAfterConfirm)
	assert.Zero(t, settings.SubmissionRate)
}

func TestLoadSettings_Overrides(t *testing.T) {
	ctx := context.Background()
	program := testutil.GenerateSolanaKeys(t, 1)[0]

	source := configmemory.NewSource()
	source.Set(ProgramIDConfigEnvName, base58.Encode(program))
	source.Set(MetadataModeConfigEnvName, "SELF")
	source.Set(ComputeUnitLimitConfigEnvName, 250_000)
	source.Set(ComputeUnitPriceConfigEnvName, []byte("1000"))
	source.Set(CommitmentConfigEnvName, "finalized")
	source.Set(ConfirmationTimeoutConfigEnvName, []byte("30"))
	source.Set(SubmissionRateConfigEnvName, 2.5)
	source.Set(SimulateBeforeSubmitConfigEnvName, false)

	settings, err := LoadSettings(ctx, WithMemorySource(source))
	require.NoError(t, err)

	assert.EqualValues(t, program, settings.ProgramID)
	assert.Equal(t, MetadataModeSelf, settings.MetadataMode)
	assert.EqualValues(t, 250_000, settings.ComputeUnitLimit)
	assert.EqualValues(t, 1000, settings.ComputeUnitPrice)
	assert.Equal(t, solana.CommitmentFinalized, settings.Commitment)
	assert.Equal(t, 30*time.Second, settings.ConfirmationTimeout)
	assert.Equal(t, 2.5, settings.SubmissionRate)
	assert.False(t, settings.SimulateBeforeSubmit)
}

func TestLoadSettings_Env(t *testing.T) {
	admin := testutil.GenerateSolanaKeys(t, 1)[0]
	t.Setenv(AdminPublicKeyConfigEnvName, base58.Encode(admin))
	t.Setenv(TokenSymbolConfigEnvName, "LOTTO")
	t.Setenv(VerifyAfterConfirmConfigEnvName, "false")

	settings, err := LoadSettings(context.Background(), WithEnvConfigs())
	require.NoError(t, err)

	assert.EqualValues(t, admin, settings.Admin)
	assert.Equal(t, "LOTTO", settings.TokenSymbol)
	assert.False(t, settings.VerifyAfterConfirm)
}

func TestLoadSettings_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name  string
		key   string
		value interface{}
	}{
		{"mode", MetadataModeConfigEnvName, "shared"},
		{"program id", ProgramIDConfigEnvName, "not-base58-0OIl"},
		{"short admin", AdminPublicKeyConfigEnvName, base58.Encode([]byte{1, 2, 3})},
		{"commitment", CommitmentConfigEnvName, "eventually"},
		{"compute unit limit", ComputeUnitLimitConfigEnvName, 2_000_000},
		{"empty mint seed", MintSeedConfigEnvName, ""},
		{"long metadata seed", MetadataSeedConfigEnvName, "0123456789012345678901234567890123"},
		{"poll interval", PollIntervalConfigEnvName, time.Duration(0)},
		{"refreshes", MaxCheckpointRefreshesConfigEnvName, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			source := configmemory.NewSource()
			source.Set(tc.key, tc.value)

			_, err := LoadSettings(context.Background(), WithMemorySource(source))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
