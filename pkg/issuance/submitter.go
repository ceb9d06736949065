package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/ownership-nft/pkg/metrics"
	"github.com/code-payments/ownership-nft/pkg/retry"
	"github.com/code-payments/ownership-nft/pkg/retry/backoff"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

var errNotTerminal = errors.New("no terminal status yet")

// SimulationResult is the outcome of a dry run. A failed simulation does not
// guarantee that a real submission fails.
type SimulationResult struct {
	Success       bool
	UnitsConsumed uint64
	Logs          []string
	// Err is the classified failure when Success is false.
	Err error
}

// Handle identifies a submitted transaction for confirmation.
type Handle struct {
	Signature            solana.Signature
	Ticket               ticket.ID
	Mint                 []byte
	Kinds                []InstructionKind
	IssuanceIndex        int
	LastValidBlockHeight uint64
	SubmittedAt          time.Time
}

// Outcome is the terminal state Confirm observed.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	}
	return "unknown"
}

type IssuanceResult struct {
	Signature          solana.Signature
	Outcome            Outcome
	Slot               uint64
	ConfirmationStatus string
	// Err is set for OutcomeFailed and OutcomeTimedOut.
	Err error
}

// Submitter sends signed issuance transactions and waits for them. It never
// resubmits.
type Submitter struct {
	log      *logrus.Entry
	sc       solana.Client
	settings *Settings

	now func() time.Time
}

func NewSubmitter(sc solana.Client, settings *Settings) *Submitter {
	return &Submitter{
		log:      logrus.StandardLogger().WithField("type", "issuance/submitter"),
		sc:       sc,
		settings: settings,
		now:      time.Now,
	}
}

// Simulate dry runs the transaction against current ledger state.
func (s *Submitter) Simulate(ctx context.Context, tx *IssuanceTransaction) (*SimulationResult, error) {
	result, err := s.sc.SimulateTransaction(ctx, tx.Transaction, s.settings.Commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to simulate transaction")
	}

	simulation := &SimulationResult{
		Success:       result.Err == nil,
		UnitsConsumed: result.UnitsConsumed,
		Logs:          result.Logs,
	}
	if result.Err != nil && result.Err.ErrorKey() == solana.TransactionErrorBlockhashNotFound {
		simulation.Err = errors.Wrap(ErrStaleCheckpoint, "ledger does not recognize the blockhash")
	} else if result.Err != nil {
		simulation.Err = classifyExecutionError(tx.Ticket, tx.Addresses.Mint.Address, tx.Kinds, tx.IssuanceIndex, solana.Signature{}, result.Err, result.Logs)
	}

	s.log.WithFields(logrus.Fields{
		"method":         "Simulate",
		"ticket":         tx.Ticket.String(),
		"success":        simulation.Success,
		"units_consumed": simulation.UnitsConsumed,
	}).Debug("simulated issuance transaction")

	return simulation, nil
}

// Submit sends a fully signed transaction once. The checkpoint is checked
// locally and against the current block height first, and an expired
// checkpoint fails with ErrStaleCheckpoint without sending anything.
//
// When the send fails without a response from the ledger, the error wraps
// ErrSendOutcomeUnknown and the Handle is still returned so the transaction
// can be confirmed by signature.
func (s *Submitter) Submit(ctx context.Context, tx *IssuanceTransaction) (handle *Handle, err error) {
	tracer := metrics.TraceMethodCall(ctx, "issuance.submitter", "Submit")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	log := s.log.WithFields(logrus.Fields{
		"method": "Submit",
		"ticket": tx.Ticket.String(),
	})

	if missing := tx.Transaction.MissingSigners(); len(missing) > 0 {
		return nil, &MissingSignerError{InstructionIndex: -1, Role: RoleSigner, Account: missing[0]}
	}

	if tx.Checkpoint.Expired(s.now()) {
		return nil, errors.Wrapf(ErrStaleCheckpoint, "checkpoint fetched at %s", tx.Checkpoint.FetchedAt.Format(time.RFC3339))
	}

	height, err := s.sc.GetBlockHeight(ctx, s.settings.Commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block height")
	}
	if height > tx.Checkpoint.LastValidBlockHeight {
		return nil, errors.Wrapf(ErrStaleCheckpoint, "block height %d past last valid height %d", height, tx.Checkpoint.LastValidBlockHeight)
	}

	sig, err := s.sc.SubmitTransaction(ctx, tx.Transaction, solana.SubmitOptions{
		SkipPreflight:       s.settings.SkipPreflight,
		PreflightCommitment: s.settings.Commitment,
	})
	if errors.Is(err, ErrSendOutcomeUnknown) {
		handle := s.newHandle(tx, tx.Transaction.ID())
		log.WithError(err).Warn("send outcome unknown, confirm by signature before resubmitting")
		return handle, errors.Wrap(err, "failed to submit transaction")
	}
	if err != nil {
		var txErr *solana.TransactionError
		if !errors.As(err, &txErr) {
			return nil, errors.Wrap(err, "failed to submit transaction")
		}

		mapped := classifyAdmissionError(tx, txErr)
		log.WithError(mapped).Info("transaction rejected")
		return nil, mapped
	}

	log.WithField("signature", sig.String()).Debug("transaction submitted")

	return s.newHandle(tx, sig), nil
}

func (s *Submitter) newHandle(tx *IssuanceTransaction, sig solana.Signature) *Handle {
	return &Handle{
		Signature:            sig,
		Ticket:               tx.Ticket,
		Mint:                 tx.Addresses.Mint.Address,
		Kinds:                tx.Kinds,
		IssuanceIndex:        tx.IssuanceIndex,
		LastValidBlockHeight: tx.Checkpoint.LastValidBlockHeight,
		SubmittedAt:          s.now(),
	}
}

// Confirm polls until the transaction reaches commitment, fails, or deadline
// passes. The result is always returned when a terminal state is observed; err
// is non-nil for OutcomeFailed and OutcomeTimedOut. A timeout says nothing
// about whether the transaction will land.
func (s *Submitter) Confirm(ctx context.Context, handle *Handle, commitment solana.Commitment, deadline time.Time) (*IssuanceResult, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":    "Confirm",
		"ticket":    handle.Ticket.String(),
		"signature": handle.Signature.String(),
	})

	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var status *solana.SignatureStatus
	_, err := retry.Retry(
		pollCtx,
		func() error {
			statuses, err := s.sc.GetSignatureStatuses(pollCtx, []solana.Signature{handle.Signature})
			if err != nil {
				log.WithError(err).Debug("failed to get signature status")
				return errNotTerminal
			}
			if len(statuses) == 0 || statuses[0] == nil {
				return errNotTerminal
			}

			current := statuses[0]
			if current.ErrorResult == nil && !current.Satisfies(commitment) {
				return errNotTerminal
			}

			status = current
			return nil
		},
		retry.RetriableErrors(errNotTerminal),
		retry.Backoff(backoff.Constant(s.settings.PollInterval), s.settings.PollInterval),
	)

	if status == nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, errors.Wrap(ctx.Err(), "confirmation cancelled")
		}

		result := &IssuanceResult{
			Signature: handle.Signature,
			Outcome:   OutcomeTimedOut,
			Err:       errors.Wrapf(ErrTimedOut, "no %s status for %s by %s", commitment.Commitment, handle.Signature, deadline.Format(time.RFC3339)),
		}
		log.WithError(err).Info("confirmation timed out")
		return result, result.Err
	}

	result := &IssuanceResult{
		Signature:          handle.Signature,
		Slot:               status.Slot,
		ConfirmationStatus: status.ConfirmationStatus,
	}

	if status.ErrorResult != nil {
		result.Outcome = OutcomeFailed
		result.Err = classifyExecutionError(handle.Ticket, handle.Mint, handle.Kinds, handle.IssuanceIndex, handle.Signature, status.ErrorResult, nil)
		log.WithError(result.Err).Info("transaction failed on chain")
		return result, result.Err
	}

	result.Outcome = OutcomeConfirmed
	log.WithField("slot", status.Slot).Debug("transaction confirmed")
	return result, nil
}

func classifyAdmissionError(tx *IssuanceTransaction, txErr *solana.TransactionError) error {
	if txErr.ErrorKey() == solana.TransactionErrorBlockhashNotFound {
		return errors.Wrap(ErrStaleCheckpoint, "ledger does not recognize the blockhash")
	}

	if txErr.InstructionError() != nil {
		// Preflight simulation failed. Duplicates surface here first.
		execErr := classifyExecutionError(tx.Ticket, tx.Addresses.Mint.Address, tx.Kinds, tx.IssuanceIndex, solana.Signature{}, txErr, nil)
		if errors.Is(execErr, ErrDuplicateIssuance) {
			return execErr
		}

		index := txErr.InstructionError().Index
		return &SubmissionRejectedError{
			Reason: fmt.Sprintf("preflight failed at instruction %d (%s): %v", index, kindAt(tx.Kinds, index), txErr.InstructionError().Err),
			Err:    txErr,
		}
	}

	return &SubmissionRejectedError{
		Reason: string(txErr.ErrorKey()),
		Err:    txErr,
	}
}

func classifyExecutionError(id ticket.ID, mint []byte, kinds []InstructionKind, issuanceIndex int, sig solana.Signature, txErr *solana.TransactionError, logs []string) error {
	if txErr.IsAccountAlreadyInUse(issuanceIndex) {
		return &DuplicateIssuanceError{Ticket: id, Mint: mint, Signature: sig}
	}

	execErr := &OnChainExecutionError{
		Signature:        sig,
		InstructionIndex: -1,
		Err:              txErr,
		Logs:             logs,
	}
	if ixErr := txErr.InstructionError(); ixErr != nil {
		execErr.InstructionIndex = ixErr.Index
		execErr.Kind = kindAt(kinds, ixErr.Index)
	}
	return execErr
}

func kindAt(kinds []InstructionKind, index int) InstructionKind {
	if index < 0 || index >= len(kinds) {
		return ""
	}
	return kinds[index]
}
