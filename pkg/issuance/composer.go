package issuance

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/ownership-nft/pkg/solana"
	compute_budget "github.com/code-payments/ownership-nft/pkg/solana/computebudget"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/system"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

// InstructionKind labels each instruction of an issuance transaction.
type InstructionKind string

const (
	InstructionKindComputeUnitLimit    InstructionKind = "compute_unit_limit"
	InstructionKindComputeUnitPrice    InstructionKind = "compute_unit_price"
	InstructionKindCreateAuxiliaryMint InstructionKind = "create_auxiliary_mint"
	InstructionKindIssue               InstructionKind = "init_ownership_nft"
)

// AuxiliaryMint is a keypair backed Token-2022 mint allocated in the same
// transaction. Its key must sign at signing time.
type AuxiliaryMint struct {
	Address         ed25519.PublicKey
	Extensions      []token.ExtensionType
	VariableLengths map[token.ExtensionType]int
}

type BuildArgs struct {
	Ticket ticket.ID
	Payer  ed25519.PublicKey
	// Admin defaults to the configured admin.
	Admin ed25519.PublicKey
	// Owner defaults to Payer.
	Owner          ed25519.PublicKey
	AuxiliaryMints []AuxiliaryMint
}

// Checkpoint is the recency proof a transaction is built against.
type Checkpoint struct {
	Blockhash            solana.Blockhash
	LastValidBlockHeight uint64
	FetchedAt            time.Time
	// MaxAge bounds how long the checkpoint is trusted locally. Zero disables
	// the local check.
	MaxAge time.Duration
}

// Expired reports whether the checkpoint is older than its local limit.
func (c Checkpoint) Expired(now time.Time) bool {
	return c.MaxAge > 0 && now.Sub(c.FetchedAt) > c.MaxAge
}

// RequiredSigner is one key an instruction needs a signature from.
type RequiredSigner struct {
	Role    string
	Account ed25519.PublicKey
}

type InstructionRequirement struct {
	Index   int
	Kind    InstructionKind
	Signers []RequiredSigner
}

// IssuanceTransaction is a composed, possibly signed, issuance for a single
// ticket.
type IssuanceTransaction struct {
	Ticket        ticket.ID
	Owner         ed25519.PublicKey
	Addresses     Addresses
	Instructions  []solana.Instruction
	Kinds         []InstructionKind
	IssuanceIndex int
	FeePayer      ed25519.PublicKey
	Checkpoint    Checkpoint
	Requirements  []InstructionRequirement
	Transaction   solana.Transaction

	now func() time.Time
}

// Signature identifies the transaction once the fee payer has signed.
func (t *IssuanceTransaction) Signature() solana.Signature {
	return t.Transaction.ID()
}

// IsSigned reports whether every required signature is present.
func (t *IssuanceTransaction) IsSigned() bool {
	return len(t.Transaction.MissingSigners()) == 0
}

// Sign collects every required signature. Non fee payer signers sign first,
// the fee payer last. Extra signers are ignored.
func (t *IssuanceTransaction) Sign(ctx context.Context, signers ...Signer) error {
	if t.Checkpoint.Expired(t.clock()) {
		return errors.Wrapf(ErrStaleCheckpoint, "checkpoint fetched at %s", t.Checkpoint.FetchedAt.Format(time.RFC3339))
	}

	byKey := make(map[string]Signer, len(signers))
	for _, s := range signers {
		byKey[string(s.PublicKey())] = s
	}

	for _, requirement := range t.Requirements {
		for _, required := range requirement.Signers {
			if _, ok := byKey[string(required.Account)]; !ok {
				return &MissingSignerError{
					InstructionIndex: requirement.Index,
					Role:             required.Role,
					Account:          required.Account,
				}
			}
		}
	}

	message := t.Transaction.Message.Marshal()
	signed := t.Transaction
	signed.Signatures = make([]solana.Signature, len(t.Transaction.Signatures))

	order := make([]ed25519.PublicKey, 0, len(signed.Signatures))
	for _, key := range t.Transaction.RequiredSigners() {
		if !bytes.Equal(key, t.FeePayer) {
			order = append(order, key)
		}
	}
	order = append(order, t.FeePayer)

	for _, key := range order {
		s, ok := byKey[string(key)]
		if !ok {
			return &MissingSignerError{InstructionIndex: -1, Role: RoleSigner, Account: key}
		}

		sig, err := s.Sign(ctx, message)
		if err != nil {
			return errors.Wrapf(err, "failed to sign with %s", base58.Encode(key))
		}
		if err := signed.AddSignature(key, sig); err != nil {
			return err
		}
	}

	// Remote signers can be slow enough for the checkpoint to lapse.
	if t.Checkpoint.Expired(t.clock()) {
		return errors.Wrap(ErrStaleCheckpoint, "checkpoint expired while signing")
	}

	t.Transaction = signed
	return nil
}

func (t *IssuanceTransaction) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// Composer builds issuance transactions. It is safe for concurrent use.
type Composer struct {
	log      *logrus.Entry
	sc       solana.Client
	settings *Settings
	deriver  *Deriver
	sizer    *Sizer

	now func() time.Time
}

func NewComposer(sc solana.Client, settings *Settings) *Composer {
	return &Composer{
		log:      logrus.StandardLogger().WithField("type", "issuance/composer"),
		sc:       sc,
		settings: settings,
		deriver:  NewDeriver(settings),
		sizer:    NewSizer(sc),
		now:      time.Now,
	}
}

func (c *Composer) Deriver() *Deriver {
	return c.deriver
}

// Build composes an unsigned issuance transaction against a fresh checkpoint.
func (c *Composer) Build(ctx context.Context, args *BuildArgs) (*IssuanceTransaction, error) {
	if len(args.Payer) != ed25519.PublicKeySize {
		return nil, errors.New("payer is required")
	}

	admin := args.Admin
	if admin == nil {
		admin = c.settings.Admin
	}
	owner := args.Owner
	if owner == nil {
		owner = args.Payer
	}

	log := c.log.WithFields(logrus.Fields{
		"method": "Build",
		"ticket": args.Ticket.String(),
		"payer":  base58.Encode(args.Payer),
	})

	addresses, err := c.deriver.DeriveAll(args.Ticket, owner)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	var kinds []InstructionKind

	if c.settings.ComputeUnitLimit > 0 {
		instructions = append(instructions, compute_budget.SetComputeUnitLimit(c.settings.ComputeUnitLimit))
		kinds = append(kinds, InstructionKindComputeUnitLimit)
	}
	if c.settings.ComputeUnitPrice > 0 {
		instructions = append(instructions, compute_budget.SetComputeUnitPrice(c.settings.ComputeUnitPrice))
		kinds = append(kinds, InstructionKindComputeUnitPrice)
	}

	for _, aux := range args.AuxiliaryMints {
		if len(aux.Address) != ed25519.PublicKeySize {
			return nil, errors.New("auxiliary mint address is required")
		}

		size, err := c.sizer.ComputeMintSize(aux.Extensions, aux.VariableLengths)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to size auxiliary mint %s", base58.Encode(aux.Address))
		}
		lamports, err := c.sizer.ComputeRentExemption(ctx, size)
		if err != nil {
			return nil, err
		}

		instructions = append(instructions, system.CreateAccount(args.Payer, aux.Address, token.Token2022ProgramKey, lamports, size))
		kinds = append(kinds, InstructionKindCreateAuxiliaryMint)

		log.WithFields(logrus.Fields{
			"auxiliary_mint": base58.Encode(aux.Address),
			"size":           size,
			"lamports":       lamports,
		}).Trace("sized auxiliary mint")
	}

	accounts := &ownershipnft.InitOwnershipNftInstructionAccounts{
		Program:         c.settings.ProgramID,
		Mint:            addresses.Mint.Address,
		Metadata:        addresses.Metadata.Address,
		TokenAccount:    addresses.Holding,
		Payer:           args.Payer,
		Admin:           admin,
		UpdateAuthority: admin,
		MetadataProgram: c.settings.MetadataProgramID,
		Owner:           owner,
	}
	if addresses.MasterEdition != nil {
		accounts.MasterEdition = addresses.MasterEdition.Address
	} else {
		accounts.MetadataProgram = c.settings.ProgramID
	}

	instructions = append(instructions, ownershipnft.NewInitOwnershipNftInstruction(
		accounts,
		&ownershipnft.InitOwnershipNftInstructionArgs{TicketID: args.Ticket},
	))
	kinds = append(kinds, InstructionKindIssue)

	if err := ValidateOrdering(instructions); err != nil {
		return nil, err
	}

	latest, err := c.sc.GetLatestBlockhash(ctx, c.settings.Commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest blockhash")
	}

	txn := solana.NewTransaction(args.Payer, instructions...)
	txn.SetBlockhash(latest.Blockhash)

	result := &IssuanceTransaction{
		Ticket:        args.Ticket,
		Owner:         owner,
		Addresses:     *addresses,
		Instructions:  instructions,
		Kinds:         kinds,
		IssuanceIndex: len(instructions) - 1,
		FeePayer:      args.Payer,
		Checkpoint: Checkpoint{
			Blockhash:            latest.Blockhash,
			LastValidBlockHeight: latest.LastValidBlockHeight,
			FetchedAt:            c.now(),
			MaxAge:               c.settings.CheckpointMaxAge,
		},
		Requirements: requirementsFor(instructions, kinds, args.Payer, admin),
		Transaction:  txn,
		now:          c.now,
	}

	log.WithFields(logrus.Fields{
		"mint":         addresses.Mint.String(),
		"metadata":     addresses.Metadata.String(),
		"holding":      base58.Encode(addresses.Holding),
		"instructions": len(instructions),
		"blockhash":    latest.Blockhash.String(),
	}).Debug("composed issuance transaction")

	return result, nil
}

func requirementsFor(instructions []solana.Instruction, kinds []InstructionKind, payer, admin ed25519.PublicKey) []InstructionRequirement {
	requirements := make([]InstructionRequirement, len(instructions))
	for i, ix := range instructions {
		requirements[i] = InstructionRequirement{Index: i, Kind: kinds[i]}

		for _, key := range ix.Signers() {
			role := RoleSigner
			switch {
			case bytes.Equal(key, payer):
				role = RoleFeePayer
			case bytes.Equal(key, admin):
				role = RoleAdmin
			case kinds[i] == InstructionKindCreateAuxiliaryMint:
				role = RoleAuxiliaryMint
			}

			requirements[i].Signers = append(requirements[i].Signers, RequiredSigner{Role: role, Account: key})
		}
	}
	return requirements
}

// ValidateOrdering fails if any instruction references an account that a
// later instruction creates.
func ValidateOrdering(instructions []solana.Instruction) error {
	for i, ix := range instructions {
		created, err := system.DecompileCreateAccount(ix)
		if err != nil {
			continue
		}

		for j := 0; j < i; j++ {
			if instructions[j].References(created.Address) {
				return errors.Wrapf(
					ErrInstructionOrdering,
					"instruction %d references %s created by instruction %d",
					j,
					base58.Encode(created.Address),
					i,
				)
			}
		}
	}
	return nil
}
