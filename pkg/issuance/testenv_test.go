package issuance

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	configmemory "github.com/code-payments/ownership-nft/pkg/config/memory"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/memory"
	"github.com/code-payments/ownership-nft/pkg/testutil"
)

const testAirdrop = 10_000_000_000

type testEnv struct {
	ctx      context.Context
	ledger   *memory.Ledger
	source   *configmemory.Source
	settings *Settings
	payer    *KeypairSigner
	admin    *KeypairSigner
}

type testOption func(source *configmemory.Source)

func withConfig(key string, value interface{}) testOption {
	return func(source *configmemory.Source) {
		source.Set(key, value)
	}
}

// setupTestEnv returns a ledger running the issuing program for a freshly
// generated admin, and a funded payer.
func setupTestEnv(t *testing.T, mode MetadataMode, opts ...testOption) *testEnv {
	ctx := context.Background()

	admin := testutil.GenerateSolanaKeypair(t)
	payer := testutil.GenerateSolanaKeypair(t)

	source := configmemory.NewSource()
	source.Set(AdminPublicKeyConfigEnvName, base58.Encode(testutil.PublicKey(admin)))
	source.Set(MetadataModeConfigEnvName, string(mode))
	source.Set(PollIntervalConfigEnvName, 5*time.Millisecond)
	source.Set(ConfirmationTimeoutConfigEnvName, 2*time.Second)
	for _, opt := range opts {
		opt(source)
	}

	settings, err := LoadSettings(ctx, WithMemorySource(source))
	require.NoError(t, err)

	ledger := memory.New()
	program := memory.DefaultOwnershipNftConfig()
	program.Program = settings.ProgramID
	program.Admin = settings.Admin
	ledger.RegisterProgram(settings.ProgramID, memory.OwnershipNftProgram(program))
	ledger.Airdrop(testutil.PublicKey(payer), testAirdrop)

	return &testEnv{
		ctx:      ctx,
		ledger:   ledger,
		source:   source,
		settings: settings,
		payer:    NewKeypairSigner(payer),
		admin:    NewKeypairSigner(admin),
	}
}

func (e *testEnv) newIssuer(t *testing.T) *Issuer {
	issuer, err := NewIssuerWithSettings(e.ledger, e.settings)
	require.NoError(t, err)
	return issuer
}

func newKeypairSigner(t *testing.T) *KeypairSigner {
	return NewKeypairSigner(testutil.GenerateSolanaKeypair(t))
}

// recordingSigner records the order keys are asked to sign in.
type recordingSigner struct {
	Signer
	order *[]ed25519.PublicKey
}

func (s *recordingSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	*s.order = append(*s.order, s.PublicKey())
	return s.Signer.Sign(ctx, message)
}

// advancingSigner expires every outstanding blockhash the first time it
// signs.
type advancingSigner struct {
	Signer
	ledger   *memory.Ledger
	advanced bool
}

func (s *advancingSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	if !s.advanced {
		s.advanced = true
		s.ledger.Advance(memory.BlockhashValidity + 1)
	}
	return s.Signer.Sign(ctx, message)
}
