package issuance

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

var (
	ErrMalformedIdentifier   = ticket.ErrMalformedIdentifier
	ErrInvalidLength         = ticket.ErrInvalidLength
	ErrAddressSpaceExhausted = solana.ErrAddressSpaceExhausted
	ErrUnsupportedExtension  = token.ErrUnsupportedExtension
	ErrSendOutcomeUnknown    = solana.ErrUnknownSendOutcome

	ErrStaleCheckpoint        = errors.New("recency checkpoint expired")
	ErrMissingSigner          = errors.New("required signer not supplied")
	ErrSubmissionRejected     = errors.New("submission rejected")
	ErrOnChainExecutionFailed = errors.New("on-chain execution failed")
	ErrTimedOut               = errors.New("timed out waiting for confirmation")
	ErrDuplicateIssuance      = errors.New("ticket already issued")
	ErrVerificationMismatch   = errors.New("verification mismatch")

	ErrRateLimited         = errors.New("submission rate limited")
	ErrInstructionOrdering = errors.New("instruction reads an account created later")
	ErrInvalidConfig       = errors.New("invalid issuance config")
)

// Signer roles, as reported in MissingSignerError.
const (
	RoleFeePayer      = "fee_payer"
	RoleAdmin         = "admin"
	RoleAuxiliaryMint = "auxiliary_mint"
	RoleSigner        = "signer"
)

// MissingSignerError names the first required key that had no signer.
type MissingSignerError struct {
	InstructionIndex int
	Role             string
	Account          []byte
}

func (e *MissingSignerError) Error() string {
	return fmt.Sprintf("%s: instruction %d requires %s %s", ErrMissingSigner, e.InstructionIndex, e.Role, base58.Encode(e.Account))
}

func (e *MissingSignerError) Is(target error) bool {
	return target == ErrMissingSigner
}

// SubmissionRejectedError is returned when the ledger refuses a transaction
// before executing it.
type SubmissionRejectedError struct {
	Reason string
	Err    *solana.TransactionError
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSubmissionRejected, e.Reason)
}

func (e *SubmissionRejectedError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

// OnChainExecutionError is returned when the ledger executed the transaction
// and rolled it back.
type OnChainExecutionError struct {
	Signature        solana.Signature
	InstructionIndex int
	// Kind is the instruction kind at InstructionIndex, when known.
	Kind InstructionKind
	Err  *solana.TransactionError
	Logs []string
}

func (e *OnChainExecutionError) Error() string {
	if e.InstructionIndex < 0 {
		return fmt.Sprintf("%s: %s: %v", ErrOnChainExecutionFailed, e.Signature, e.Err)
	}
	return fmt.Sprintf("%s: %s: instruction %d (%s): %v", ErrOnChainExecutionFailed, e.Signature, e.InstructionIndex, e.Kind, e.Err)
}

func (e *OnChainExecutionError) Is(target error) bool {
	return target == ErrOnChainExecutionFailed
}

// CustomError returns the program error code, if the failure carried one.
func (e *OnChainExecutionError) CustomError() *solana.CustomError {
	if e.Err == nil || e.Err.InstructionError() == nil {
		return nil
	}
	return e.Err.InstructionError().CustomError()
}

// DuplicateIssuanceError is returned when the ticket's mint already exists.
type DuplicateIssuanceError struct {
	Ticket ticket.ID
	Mint   []byte
	// Signature is empty when the duplicate was caught at admission.
	Signature solana.Signature
}

func (e *DuplicateIssuanceError) Error() string {
	return fmt.Sprintf("%s: ticket %s, mint %s", ErrDuplicateIssuance, e.Ticket, base58.Encode(e.Mint))
}

func (e *DuplicateIssuanceError) Is(target error) bool {
	return target == ErrDuplicateIssuance
}

// VerificationMismatchError describes one field that did not match.
type VerificationMismatchError struct {
	Field    string
	Expected string
	Observed string
}

func (e *VerificationMismatchError) Error() string {
	return fmt.Sprintf("%s(%s): expected %q, observed %q", ErrVerificationMismatch, e.Field, e.Expected, e.Observed)
}

func (e *VerificationMismatchError) Is(target error) bool {
	return target == ErrVerificationMismatch
}

// VerificationErrors is every mismatch in a report.
type VerificationErrors []*VerificationMismatchError

func (e VerificationErrors) Error() string {
	parts := make([]string, len(e))
	for i, m := range e {
		parts[i] = m.Error()
	}
	return strings.Join(parts, "; ")
}

func (e VerificationErrors) Is(target error) bool {
	return target == ErrVerificationMismatch
}

// Fields returns the mismatched field names in report order.
func (e VerificationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, m := range e {
		fields[i] = m.Field
	}
	return fields
}
