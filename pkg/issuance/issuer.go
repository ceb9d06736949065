// Package issuance composes, submits, confirms and verifies ownership NFT
// issuances, one transaction per lottery ticket.
package issuance

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/ownership-nft/pkg/metrics"
	"github.com/code-payments/ownership-nft/pkg/rate"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/sync"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

const (
	metricsStructName = "issuance.issuer"

	issuanceEventName   = "OwnershipNftIssuance"
	attemptsMetricName  = "OwnershipNftIssuance.checkpoint_refreshes"
	confirmedMetricName = "OwnershipNftIssuance.time_to_confirm"

	ticketLockStripes = 64
)

type IssueArgs struct {
	Ticket ticket.ID
	Payer  Signer
	Admin  Signer
	// Owner receives the token. Defaults to the payer.
	Owner          ed25519.PublicKey
	AuxiliaryMints []AuxiliaryMint
	// Signers for the auxiliary mints, and any other required key.
	AdditionalSigners []Signer
}

// Issuance is everything observed while issuing one ticket.
type Issuance struct {
	Ticket      ticket.ID
	Transaction *IssuanceTransaction
	Simulation  *SimulationResult
	Handle      *Handle
	Result      *IssuanceResult
	Report      *VerificationReport
	// Attempts is the number of transactions composed, one more than the
	// number of checkpoint refreshes.
	Attempts int
}

// Issuer runs the full issuance flow: build, sign, simulate, submit, confirm
// and verify.
type Issuer struct {
	log       *logrus.Entry
	settings  *Settings
	composer  *Composer
	submitter *Submitter
	verifier  *Verifier
	tokens    *token.Client
	limiter   rate.Limiter
	// Issuances of the same ticket in this process run one at a time.
	tickets   *sync.StripedLock
}

// NewIssuer loads settings from provider. They are not re-read afterwards.
func NewIssuer(ctx context.Context, sc solana.Client, provider ConfigProvider) (*Issuer, error) {
	settings, err := LoadSettings(ctx, provider)
	if err != nil {
		return nil, err
	}
	return NewIssuerWithSettings(sc, settings)
}

func NewIssuerWithSettings(sc solana.Client, settings *Settings) (*Issuer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var limiter rate.Limiter = &rate.NoLimiter{}
	if settings.SubmissionRate > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(settings.SubmissionRate))
	}

	return &Issuer{
		log:       logrus.StandardLogger().WithField("type", "issuance/issuer"),
		settings:  settings,
		composer:  NewComposer(sc, settings),
		submitter: NewSubmitter(sc, settings),
		verifier:  NewVerifier(sc, settings),
		tokens:    token.NewClient(sc, token.Token2022ProgramKey),
		limiter:   limiter,
		tickets:   sync.NewStripedLock(ticketLockStripes),
	}, nil
}

func (i *Issuer) Settings() *Settings {
	return i.settings
}

func (i *Issuer) Composer() *Composer {
	return i.composer
}

func (i *Issuer) Submitter() *Submitter {
	return i.submitter
}

func (i *Issuer) Verifier() *Verifier {
	return i.verifier
}

// Issue issues the ownership NFT for args.Ticket. A stale checkpoint found
// before anything is sent is recovered by rebuilding, up to the configured
// number of refreshes. Every other failure is returned as is. The returned
// Issuance is populated as far as the flow got, even on error.
func (i *Issuer) Issue(ctx context.Context, args *IssueArgs) (issuance *Issuance, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Issue")
	defer tracer.End()
	ctx = tracer.Context(ctx)

	if args.Payer == nil || args.Admin == nil {
		return nil, errors.New("payer and admin signers are required")
	}

	payer := args.Payer.PublicKey()
	log := i.log.WithFields(logrus.Fields{
		"method": "Issue",
		"ticket": args.Ticket.String(),
		"payer":  base58.Encode(payer),
	})
	tracer.AddAttributes(map[string]interface{}{
		"ticket": args.Ticket.String(),
		"payer":  base58.Encode(payer),
	})

	issuance = &Issuance{Ticket: args.Ticket}
	defer func() {
		tracer.OnError(err)
		i.recordOutcome(ctx, issuance, err)
	}()

	if !i.limiter.Allow(base58.Encode(payer)) {
		return issuance, errors.Wrapf(ErrRateLimited, "payer %s", base58.Encode(payer))
	}

	unlock, err := i.tickets.Lock(ctx, args.Ticket.Bytes())
	if err != nil {
		return issuance, errors.Wrap(err, "failed to acquire ticket lock")
	}
	defer unlock()

	signers := append([]Signer{args.Payer, args.Admin}, args.AdditionalSigners...)

	for {
		issuance.Attempts++

		tx, err := i.composer.Build(ctx, &BuildArgs{
			Ticket:         args.Ticket,
			Payer:          payer,
			Admin:          args.Admin.PublicKey(),
			Owner:          args.Owner,
			AuxiliaryMints: args.AuxiliaryMints,
		})
		if err != nil {
			return issuance, err
		}
		issuance.Transaction = tx

		i.logExistingMint(ctx, log, tx)

		handle, err := i.signAndSubmit(ctx, issuance, tx, signers)
		if errors.Is(err, ErrSendOutcomeUnknown) && handle != nil {
			// Never resend. Confirmation decides whether it landed.
			log.WithError(err).Warn("send outcome unknown, confirming by signature")
			err = nil
		}
		if errors.Is(err, ErrStaleCheckpoint) && issuance.Attempts <= i.settings.MaxCheckpointRefreshes {
			log.WithError(err).Info("checkpoint went stale before submission, rebuilding")
			continue
		}
		if err != nil {
			return issuance, err
		}

		issuance.Handle = handle
		break
	}

	log = log.WithField("signature", issuance.Handle.Signature.String())

	deadline := time.Now().Add(i.settings.ConfirmationTimeout)
	result, err := i.submitter.Confirm(ctx, issuance.Handle, i.settings.Commitment, deadline)
	issuance.Result = result
	if err != nil {
		return issuance, err
	}
	metrics.RecordDuration(ctx, confirmedMetricName, time.Since(issuance.Handle.SubmittedAt))

	if !i.settings.VerifyAfterConfirm {
		log.Debug("issued")
		return issuance, nil
	}

	report, err := i.verifier.Verify(ctx, ExpectedFor(issuance.Transaction))
	if err != nil {
		return issuance, err
	}
	issuance.Report = report
	if err := report.Err(); err != nil {
		return issuance, err
	}

	log.Debug("issued and verified")
	return issuance, nil
}

func (i *Issuer) signAndSubmit(ctx context.Context, issuance *Issuance, tx *IssuanceTransaction, signers []Signer) (*Handle, error) {
	if err := tx.Sign(ctx, signers...); err != nil {
		return nil, err
	}

	if i.settings.SimulateBeforeSubmit {
		simulation, err := i.submitter.Simulate(ctx, tx)
		if err != nil {
			return nil, err
		}
		issuance.Simulation = simulation

		if !simulation.Success {
			return nil, simulation.Err
		}
	}

	return i.submitter.Submit(ctx, tx)
}

// logExistingMint only informs logs. The ledger decides whether an issuance
// is a duplicate.
func (i *Issuer) logExistingMint(ctx context.Context, log *logrus.Entry, tx *IssuanceTransaction) {
	if !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	_, size, err := i.tokens.GetMint(ctx, tx.Addresses.Mint.Address, i.settings.Commitment)
	switch err {
	case nil:
		log.WithField("size", size).Debug("mint already exists, expecting a duplicate issuance")
	case token.ErrAccountNotFound:
		log.Trace("mint does not exist yet")
	default:
		log.WithError(err).Debug("failed to read mint")
	}
}

func (i *Issuer) recordOutcome(ctx context.Context, issuance *Issuance, err error) {
	outcome := "issued"
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateIssuance):
		outcome = "duplicate"
	case errors.Is(err, ErrTimedOut):
		outcome = "timed_out"
	case errors.Is(err, ErrStaleCheckpoint):
		outcome = "stale_checkpoint"
	case errors.Is(err, ErrVerificationMismatch):
		outcome = "verification_mismatch"
	case errors.Is(err, ErrOnChainExecutionFailed):
		outcome = "failed"
	case errors.Is(err, ErrSubmissionRejected):
		outcome = "rejected"
	default:
		outcome = "error"
	}

	kv := map[string]interface{}{
		"ticket":   issuance.Ticket.String(),
		"outcome":  outcome,
		"attempts": issuance.Attempts,
	}
	if issuance.Handle != nil {
		kv["signature"] = issuance.Handle.Signature.String()
	}
	metrics.RecordEvent(ctx, issuanceEventName, kv)
	if issuance.Attempts > 1 {
		metrics.RecordCount(ctx, attemptsMetricName, uint64(issuance.Attempts-1))
	}
}
