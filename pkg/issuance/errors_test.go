package issuance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

func TestErrors_Is(t *testing.T) {
	for _, tc := range []struct {
		err      error
		expected error
	}{
		{&MissingSignerError{Role: RoleAdmin}, ErrMissingSigner},
		{&SubmissionRejectedError{Reason: "AlreadyProcessed"}, ErrSubmissionRejected},
		{&OnChainExecutionError{InstructionIndex: -1}, ErrOnChainExecutionFailed},
		{&DuplicateIssuanceError{Ticket: ticket.New()}, ErrDuplicateIssuance},
		{&VerificationMismatchError{Field: FieldName}, ErrVerificationMismatch},
		{VerificationErrors{{Field: FieldName}, {Field: FieldURI}}, ErrVerificationMismatch},
	} {
		assert.ErrorIs(t, tc.err, tc.expected)
		assert.ErrorIs(t, errors.Wrap(tc.err, "context"), tc.expected)

		for _, other := range []error{ErrMissingSigner, ErrSubmissionRejected, ErrOnChainExecutionFailed, ErrDuplicateIssuance, ErrVerificationMismatch, ErrTimedOut, ErrStaleCheckpoint} {
			if other != tc.expected {
				assert.False(t, errors.Is(tc.err, other), "%v is %v", tc.err, other)
			}
		}
	}
}

func TestOnChainExecutionError_CustomError(t *testing.T) {
	err := &OnChainExecutionError{
		InstructionIndex: 2,
		Kind:             InstructionKindIssue,
		Err:              solana.NewInstructionError(2, solana.CustomError(6000)),
	}
	assert.Contains(t, err.Error(), string(InstructionKindIssue))
	if assert.NotNil(t, err.CustomError()) {
		assert.EqualValues(t, 6000, *err.CustomError())
	}

	assert.Nil(t, (&OnChainExecutionError{}).CustomError())
}

func TestVerificationErrors(t *testing.T) {
	errs := VerificationErrors{
		{Field: FieldName, Expected: "a", Observed: "b"},
		{Field: FieldHoldingBalance, Expected: "1", Observed: "0"},
	}
	assert.Equal(t, []string{FieldName, FieldHoldingBalance}, errs.Fields())
	assert.Contains(t, errs.Error(), "; ")
	assert.Contains(t, errs.Error(), FieldHoldingBalance)
}
