package issuance

import (
	"context"
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/config"
	"github.com/code-payments/ownership-nft/pkg/config/env"
	"github.com/code-payments/ownership-nft/pkg/config/memory"
	"github.com/code-payments/ownership-nft/pkg/config/wrapper"
	"github.com/code-payments/ownership-nft/pkg/solana"
	compute_budget "github.com/code-payments/ownership-nft/pkg/solana/computebudget"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/tokenmetadata"
)

const (
	EnvConfigPrefix = "OWNERSHIP_NFT_"

	ProgramIDConfigEnvName = EnvConfigPrefix + "PROGRAM_ID"

	AdminPublicKeyConfigEnvName = EnvConfigPrefix + "ADMIN_PUBLIC_KEY"

	MintSeedConfigEnvName = EnvConfigPrefix + "MINT_SEED"

	MetadataSeedConfigEnvName = EnvConfigPrefix + "METADATA_SEED"

	MetadataModeConfigEnvName = EnvConfigPrefix + "METADATA_MODE"
	defaultMetadataMode       = MetadataModeExternal

	MetadataProgramIDConfigEnvName = EnvConfigPrefix + "METADATA_PROGRAM_ID"

	BaseMetadataURLConfigEnvName = EnvConfigPrefix + "BASE_METADATA_URL"

	TokenSymbolConfigEnvName = EnvConfigPrefix + "TOKEN_SYMBOL"

	TokenNamePrefixConfigEnvName = EnvConfigPrefix + "TOKEN_NAME_PREFIX"

	ComputeUnitLimitConfigEnvName = EnvConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 400_000

	ComputeUnitPriceConfigEnvName = EnvConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0

	CommitmentConfigEnvName = EnvConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	ConfirmationTimeoutConfigEnvName = EnvConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = 60 * time.Second

	PollIntervalConfigEnvName = EnvConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = time.Second

	SimulateBeforeSubmitConfigEnvName = EnvConfigPrefix + "SIMULATE_BEFORE_SUBMIT"
	defaultSimulateBeforeSubmit       = true

	SkipPreflightConfigEnvName = EnvConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	CheckpointMaxAgeConfigEnvName = EnvConfigPrefix + "CHECKPOINT_MAX_AGE"
	defaultCheckpointMaxAge       = 60 * time.Second

	MaxCheckpointRefreshesConfigEnvName = EnvConfigPrefix + "MAX_CHECKPOINT_REFRESHES"
	defaultMaxCheckpointRefreshes       = 2

	VerifyAfterConfirmConfigEnvName = EnvConfigPrefix + "VERIFY_AFTER_CONFIRM"
	defaultVerifyAfterConfirm       = true

	SubmissionRateConfigEnvName = EnvConfigPrefix + "SUBMISSION_RATE"
	defaultSubmissionRate       = 0
)

var (
	defaultProgramID         = base58.Encode(ownershipnft.PROGRAM_ID)
	defaultAdminPublicKey    = base58.Encode(ownershipnft.ADMIN_TICKET_VALIDATOR)
	defaultMintSeed          = string(ownershipnft.MintPrefix)
	defaultMetadataSeed      = string(ownershipnft.MetadataPrefix)
	defaultMetadataProgramID = base58.Encode(tokenmetadata.ProgramKey)
	defaultBaseMetadataURL   = ownershipnft.DefaultBaseMetadataURL
	defaultTokenSymbol       = ownershipnft.DefaultSymbol
	defaultTokenNamePrefix   = ownershipnft.DefaultNamePrefix
)

// MetadataMode selects who owns the metadata record for a mint.
type MetadataMode string

const (
	// MetadataModeSelf stores a record owned by the issuing program.
	MetadataModeSelf MetadataMode = "self"
	// MetadataModeExternal delegates to an external metadata program.
	MetadataModeExternal MetadataMode = "external"
)

type conf struct {
	programID              config.String
	adminPublicKey         config.String
	mintSeed               config.String
	metadataSeed           config.String
	metadataMode           config.String
	metadataProgramID      config.String
	baseMetadataURL        config.String
	tokenSymbol            config.String
	tokenNamePrefix        config.String
	computeUnitLimit       config.Uint64
	computeUnitPrice       config.Uint64
	commitment             config.String
	confirmationTimeout    config.Duration
	pollInterval           config.Duration
	simulateBeforeSubmit   config.Bool
	skipPreflight          config.Bool
	checkpointMaxAge       config.Duration
	maxCheckpointRefreshes config.Uint64
	verifyAfterConfirm     config.Bool
	submissionRate         config.Float64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return WithConfigSource(env.NewConfig)
}

// WithConfigSource returns configuration pulled from source, which is keyed
// by the environment variable names.
func WithConfigSource(source func(key string) config.Config) ConfigProvider {
	return func() *conf {
		return &conf{
			programID:              wrapper.NewStringConfig(source(ProgramIDConfigEnvName), defaultProgramID),
			adminPublicKey:         wrapper.NewStringConfig(source(AdminPublicKeyConfigEnvName), defaultAdminPublicKey),
			mintSeed:               wrapper.NewStringConfig(source(MintSeedConfigEnvName), defaultMintSeed),
			metadataSeed:           wrapper.NewStringConfig(source(MetadataSeedConfigEnvName), defaultMetadataSeed),
			metadataMode:           wrapper.NewStringConfig(source(MetadataModeConfigEnvName), string(defaultMetadataMode)),
			metadataProgramID:      wrapper.NewStringConfig(source(MetadataProgramIDConfigEnvName), defaultMetadataProgramID),
			baseMetadataURL:        wrapper.NewStringConfig(source(BaseMetadataURLConfigEnvName), defaultBaseMetadataURL),
			tokenSymbol:            wrapper.NewStringConfig(source(TokenSymbolConfigEnvName), defaultTokenSymbol),
			tokenNamePrefix:        wrapper.NewStringConfig(source(TokenNamePrefixConfigEnvName), defaultTokenNamePrefix),
			computeUnitLimit:       wrapper.NewUint64Config(source(ComputeUnitLimitConfigEnvName), defaultComputeUnitLimit),
			computeUnitPrice:       wrapper.NewUint64Config(source(ComputeUnitPriceConfigEnvName), defaultComputeUnitPrice),
			commitment:             wrapper.NewStringConfig(source(CommitmentConfigEnvName), defaultCommitment),
			confirmationTimeout:    wrapper.NewDurationConfig(source(ConfirmationTimeoutConfigEnvName), defaultConfirmationTimeout),
			pollInterval:           wrapper.NewDurationConfig(source(PollIntervalConfigEnvName), defaultPollInterval),
			simulateBeforeSubmit:   wrapper.NewBoolConfig(source(SimulateBeforeSubmitConfigEnvName), defaultSimulateBeforeSubmit),
			skipPreflight:          wrapper.NewBoolConfig(source(SkipPreflightConfigEnvName), defaultSkipPreflight),
			checkpointMaxAge:       wrapper.NewDurationConfig(source(CheckpointMaxAgeConfigEnvName), defaultCheckpointMaxAge),
			maxCheckpointRefreshes: wrapper.NewUint64Config(source(MaxCheckpointRefreshesConfigEnvName), defaultMaxCheckpointRefreshes),
			verifyAfterConfirm:     wrapper.NewBoolConfig(source(VerifyAfterConfirmConfigEnvName), defaultVerifyAfterConfirm),
			submissionRate:         wrapper.NewFloat64Config(source(SubmissionRateConfigEnvName), defaultSubmissionRate),
		}
	}
}

// WithMemorySource returns configuration pulled from an in memory source.
func WithMemorySource(source *memory.Source) ConfigProvider {
	return WithConfigSource(source.Config)
}

// Settings is the immutable snapshot every component reads. It is taken
// once, when the issuer is constructed.
type Settings struct {
	ProgramID         ed25519.PublicKey
	Admin             ed25519.PublicKey
	MintSeed          []byte
	MetadataSeed      []byte
	MetadataMode      MetadataMode
	MetadataProgramID ed25519.PublicKey

	BaseMetadataURL string
	TokenSymbol     string
	TokenNamePrefix string

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	Commitment          solana.Commitment
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration

	SimulateBeforeSubmit bool
	SkipPreflight        bool

	CheckpointMaxAge       time.Duration
	MaxCheckpointRefreshes int
	VerifyAfterConfirm     bool

	// SubmissionRate is submissions per second per fee payer. Zero is unlimited.
	SubmissionRate float64
}

// LoadSettings reads and validates every config value.
func LoadSettings(ctx context.Context, provider ConfigProvider) (*Settings, error) {
	c := provider()

	var err error
	s := &Settings{
		MintSeed:             []byte(c.mintSeed.Get(ctx)),
		MetadataSeed:         []byte(c.metadataSeed.Get(ctx)),
		MetadataMode:         MetadataMode(strings.ToLower(c.metadataMode.Get(ctx))),
		BaseMetadataURL:      c.baseMetadataURL.Get(ctx),
		TokenSymbol:          c.tokenSymbol.Get(ctx),
		TokenNamePrefix:      c.tokenNamePrefix.Get(ctx),
		ComputeUnitPrice:     c.computeUnitPrice.Get(ctx),
		ConfirmationTimeout:  c.confirmationTimeout.Get(ctx),
		PollInterval:         c.pollInterval.Get(ctx),
		SimulateBeforeSubmit: c.simulateBeforeSubmit.Get(ctx),
		SkipPreflight:        c.skipPreflight.Get(ctx),
		CheckpointMaxAge:     c.checkpointMaxAge.Get(ctx),
		VerifyAfterConfirm:   c.verifyAfterConfirm.Get(ctx),
		SubmissionRate:       c.submissionRate.Get(ctx),
	}

	if s.ProgramID, err = parsePublicKey(c.programID.Get(ctx)); err != nil {
		return nil, errors.Wrap(err, "invalid program id")
	}
	if s.Admin, err = parsePublicKey(c.adminPublicKey.Get(ctx)); err != nil {
		return nil, errors.Wrap(err, "invalid admin public key")
	}
	if s.MetadataProgramID, err = parsePublicKey(c.metadataProgramID.Get(ctx)); err != nil {
		return nil, errors.Wrap(err, "invalid metadata program id")
	}
	if s.Commitment, err = solana.CommitmentFromString(c.commitment.Get(ctx)); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	computeUnitLimit := c.computeUnitLimit.Get(ctx)
	if computeUnitLimit > compute_budget.MaxComputeUnitLimit {
		return nil, errors.Wrapf(ErrInvalidConfig, "compute unit limit %d exceeds %d", computeUnitLimit, compute_budget.MaxComputeUnitLimit)
	}
	s.ComputeUnitLimit = uint32(computeUnitLimit)

	refreshes := c.maxCheckpointRefreshes.Get(ctx)
	if refreshes > 16 {
		return nil, errors.Wrapf(ErrInvalidConfig, "max checkpoint refreshes %d", refreshes)
	}
	s.MaxCheckpointRefreshes = int(refreshes)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	s, err := LoadSettings(context.Background(), WithMemorySource(memory.NewSource()))
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks settings that were assembled by hand.
func (s *Settings) Validate() error {
	switch s.MetadataMode {
	case MetadataModeSelf, MetadataModeExternal:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown metadata mode %q", s.MetadataMode)
	}

	for _, key := range []ed25519.PublicKey{s.ProgramID, s.Admin, s.MetadataProgramID} {
		if len(key) != ed25519.PublicKeySize {
			return errors.Wrap(ErrInvalidConfig, "invalid public key length")
		}
	}

	if len(s.MintSeed) == 0 || len(s.MetadataSeed) == 0 {
		return errors.Wrap(ErrInvalidConfig, "seeds must be non-empty")
	}
	if len(s.MintSeed) > 32 || len(s.MetadataSeed) > 32 {
		return errors.Wrap(ErrInvalidConfig, "seeds must be at most 32 bytes")
	}

	if s.PollInterval <= 0 || s.ConfirmationTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "poll interval and confirmation timeout must be positive")
	}
	if s.SubmissionRate < 0 {
		return errors.Wrap(ErrInvalidConfig, "submission rate must not be negative")
	}

	return nil
}

func parsePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(strings.TrimSpace(value))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidConfig, "public key has %d bytes", len(decoded))
	}
	return decoded, nil
}
