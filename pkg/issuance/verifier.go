package issuance

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/ownership-nft/pkg/metrics"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/solana/tokenmetadata"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

// Report fields, in the order they are checked.
const (
	FieldMint                = "mint"
	FieldMintOwner           = "mint_owner"
	FieldMintSize            = "mint_size"
	FieldMetadataPointer     = "metadata_pointer"
	FieldMetadata            = "metadata"
	FieldMetadataOwner       = "metadata_owner"
	FieldUpdateAuthority     = "update_authority"
	FieldName                = "name"
	FieldSymbol              = "symbol"
	FieldURI                 = "uri"
	FieldHolding             = "holding"
	FieldHoldingOwnerProgram = "holding_owner_program"
	FieldHoldingMint         = "holding_mint"
	FieldHoldingOwner        = "holding_owner"
	FieldHoldingBalance      = "holding_balance"
)

const (
	observedMissing = "missing"
	observedAbsent  = "absent"
)

// Expected is what an issuance should have left on the ledger.
type Expected struct {
	Ticket   ticket.ID
	Mint     ed25519.PublicKey
	Metadata ed25519.PublicKey
	Holding  ed25519.PublicKey
	Owner    ed25519.PublicKey
}

// ExpectedFor returns the expectations for a composed transaction.
func ExpectedFor(tx *IssuanceTransaction) Expected {
	return Expected{
		Ticket:   tx.Ticket,
		Mint:     tx.Addresses.Mint.Address,
		Metadata: tx.Addresses.Metadata.Address,
		Holding:  tx.Addresses.Holding,
		Owner:    tx.Owner,
	}
}

// FieldCheck is the result of one check. Skipped checks depend on an account
// that was missing or undecodable.
type FieldCheck struct {
	Field    string
	OK       bool
	Skipped  bool
	Expected string
	Observed string
}

type VerificationReport struct {
	Checks []FieldCheck
}

// OK reports whether no check failed.
func (r *VerificationReport) OK() bool {
	return len(r.Mismatches()) == 0
}

// Check returns the result for field.
func (r *VerificationReport) Check(field string) (FieldCheck, bool) {
	for _, c := range r.Checks {
		if c.Field == field {
			return c, true
		}
	}
	return FieldCheck{}, false
}

// Mismatches returns one error per failed check.
func (r *VerificationReport) Mismatches() VerificationErrors {
	var mismatches VerificationErrors
	for _, c := range r.Checks {
		if c.OK || c.Skipped {
			continue
		}
		mismatches = append(mismatches, &VerificationMismatchError{
			Field:    c.Field,
			Expected: c.Expected,
			Observed: c.Observed,
		})
	}
	return mismatches
}

// Err is nil when every check passed.
func (r *VerificationReport) Err() error {
	if mismatches := r.Mismatches(); len(mismatches) > 0 {
		return mismatches
	}
	return nil
}

func (r *VerificationReport) record(field, expected, observed string) bool {
	ok := expected == observed
	r.Checks = append(r.Checks, FieldCheck{Field: field, OK: ok, Expected: expected, Observed: observed})
	return ok
}

func (r *VerificationReport) skip(fields ...string) {
	for _, field := range fields {
		r.Checks = append(r.Checks, FieldCheck{Field: field, Skipped: true})
	}
}

// Verifier reads back the accounts an issuance created and compares them to
// values computed independently from the ticket.
type Verifier struct {
	log      *logrus.Entry
	sc       solana.Client
	settings *Settings
}

func NewVerifier(sc solana.Client, settings *Settings) *Verifier {
	return &Verifier{
		log:      logrus.StandardLogger().WithField("type", "issuance/verifier"),
		sc:       sc,
		settings: settings,
	}
}

// Verify checks every field. The error is only set when the ledger could not
// be read; mismatches are reported in the report.
func (v *Verifier) Verify(ctx context.Context, expected Expected) (*VerificationReport, error) {
	tracer := metrics.TraceMethodCall(ctx, "issuance.verifier", "Verify")
	defer tracer.End()

	report := &VerificationReport{}

	if err := v.verifyMint(ctx, report, expected); err != nil {
		return nil, err
	}
	if err := v.verifyMetadata(ctx, report, expected); err != nil {
		return nil, err
	}
	if err := v.verifyHolding(ctx, report, expected); err != nil {
		return nil, err
	}

	log := v.log.WithFields(logrus.Fields{
		"method": "Verify",
		"ticket": expected.Ticket.String(),
		"mint":   base58.Encode(expected.Mint),
	})
	if mismatches := report.Mismatches(); len(mismatches) > 0 {
		tracer.AddAttribute("mismatches", len(mismatches))
		log.WithField("fields", mismatches.Fields()).Warn("issuance verification failed")
	} else {
		log.Debug("issuance verified")
	}

	return report, nil
}

func (v *Verifier) verifyMint(ctx context.Context, report *VerificationReport, expected Expected) error {
	info, found, err := v.getAccount(ctx, expected.Mint)
	if err != nil {
		return err
	}
	if !found {
		report.record(FieldMint, base58.Encode(expected.Mint), observedMissing)
		report.skip(FieldMintOwner, FieldMintSize, FieldMetadataPointer)
		return nil
	}
	report.record(FieldMint, base58.Encode(expected.Mint), base58.Encode(expected.Mint))
	report.record(FieldMintOwner, base58.Encode(token.Token2022ProgramKey), base58.Encode(info.Owner))

	expectedSize, err := token.GetMintLen(OwnershipMintExtensions, nil)
	if err != nil {
		return err
	}
	report.record(FieldMintSize, strconv.FormatUint(expectedSize, 10), strconv.Itoa(len(info.Data)))

	var mint token.Mint
	if err := mint.Unmarshal(info.Data); err != nil {
		report.record(FieldMetadataPointer, base58.Encode(expected.Metadata), fmt.Sprintf("undecodable: %v", err))
		return nil
	}

	pointer, ok := mint.MetadataPointer()
	if !ok {
		// Only checked when the mint carries a pointer.
		report.Checks = append(report.Checks, FieldCheck{
			Field:    FieldMetadataPointer,
			OK:       true,
			Expected: base58.Encode(expected.Metadata),
			Observed: observedAbsent,
		})
		return nil
	}
	report.record(FieldMetadataPointer, base58.Encode(expected.Metadata), base58.Encode(pointer.MetadataAddress))
	return nil
}

func (v *Verifier) verifyMetadata(ctx context.Context, report *VerificationReport, expected Expected) error {
	dependent := []string{FieldMetadataOwner, FieldUpdateAuthority, FieldName, FieldSymbol, FieldURI}

	info, found, err := v.getAccount(ctx, expected.Metadata)
	if err != nil {
		return err
	}
	if !found {
		report.record(FieldMetadata, base58.Encode(expected.Metadata), observedMissing)
		report.skip(dependent...)
		return nil
	}

	expectedOwner := v.settings.MetadataProgramID
	if v.settings.MetadataMode == MetadataModeSelf {
		expectedOwner = v.settings.ProgramID
	}

	var updateAuthority ed25519.PublicKey
	var name, symbol, uri string

	switch v.settings.MetadataMode {
	case MetadataModeSelf:
		var record ownershipnft.MetadataAccount
		err = record.Unmarshal(info.Data)
		updateAuthority, name, symbol, uri = record.UpdateAuthority, record.Name, record.Symbol, record.URI
	default:
		var record tokenmetadata.Metadata
		err = record.Unmarshal(info.Data)
		updateAuthority, name, symbol, uri = record.UpdateAuthority, record.Name, record.Symbol, record.URI
	}
	if err != nil {
		report.record(FieldMetadata, base58.Encode(expected.Metadata), fmt.Sprintf("undecodable: %v", err))
		report.record(FieldMetadataOwner, base58.Encode(expectedOwner), base58.Encode(info.Owner))
		report.skip(FieldUpdateAuthority, FieldName, FieldSymbol, FieldURI)
		return nil
	}

	ticketID := [ownershipnft.TicketIDSize]byte(expected.Ticket)

	report.record(FieldMetadata, base58.Encode(expected.Metadata), base58.Encode(expected.Metadata))
	report.record(FieldMetadataOwner, base58.Encode(expectedOwner), base58.Encode(info.Owner))
	report.record(FieldUpdateAuthority, base58.Encode(v.settings.Admin), base58.Encode(updateAuthority))
	report.record(FieldName, ownershipnft.TokenName(v.settings.TokenNamePrefix, ticketID), name)
	report.record(FieldSymbol, v.settings.TokenSymbol, symbol)
	report.record(FieldURI, ownershipnft.TokenURI(v.settings.BaseMetadataURL, ticketID), uri)
	return nil
}

func (v *Verifier) verifyHolding(ctx context.Context, report *VerificationReport, expected Expected) error {
	info, found, err := v.getAccount(ctx, expected.Holding)
	if err != nil {
		return err
	}
	if !found {
		report.record(FieldHolding, base58.Encode(expected.Holding), observedMissing)
		report.skip(FieldHoldingOwnerProgram, FieldHoldingMint, FieldHoldingOwner, FieldHoldingBalance)
		return nil
	}

	var account token.Account
	if !account.Unmarshal(info.Data) {
		report.record(FieldHolding, base58.Encode(expected.Holding), "undecodable")
		report.record(FieldHoldingOwnerProgram, base58.Encode(token.Token2022ProgramKey), base58.Encode(info.Owner))
		report.skip(FieldHoldingMint, FieldHoldingOwner, FieldHoldingBalance)
		return nil
	}

	report.record(FieldHolding, base58.Encode(expected.Holding), base58.Encode(expected.Holding))
	report.record(FieldHoldingOwnerProgram, base58.Encode(token.Token2022ProgramKey), base58.Encode(info.Owner))
	report.record(FieldHoldingMint, base58.Encode(expected.Mint), base58.Encode(account.Mint))
	report.record(FieldHoldingOwner, base58.Encode(expected.Owner), base58.Encode(account.Owner))
	report.record(FieldHoldingBalance, "1", strconv.FormatUint(account.Amount, 10))
	return nil
}

func (v *Verifier) getAccount(ctx context.Context, account ed25519.PublicKey) (solana.AccountInfo, bool, error) {
	info, err := v.sc.GetAccountInfo(ctx, account, v.settings.Commitment)
	if err == solana.ErrNoAccountInfo {
		return solana.AccountInfo{}, false, nil
	} else if err != nil {
		return solana.AccountInfo{}, false, errors.Wrapf(err, "failed to get account %s", base58.Encode(account))
	}
	return info, true, nil
}
