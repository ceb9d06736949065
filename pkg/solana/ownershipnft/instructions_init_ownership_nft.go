package ownershipnft

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

const (
	InitOwnershipNftInstructionArgsSize = TicketIDSize

	// initOwnershipNftAccountCount is the number of fixed accounts. Any
	// further accounts are remaining accounts.
	initOwnershipNftAccountCount = 13
)

var InitOwnershipNftDiscriminator = anchorDiscriminator("global", "init_ownership_nft")

type InitOwnershipNftInstructionArgs struct {
	TicketID [TicketIDSize]byte
}

type InitOwnershipNftInstructionAccounts struct {
	// Program defaults to PROGRAM_ID.
	Program ed25519.PublicKey

	Mint     ed25519.PublicKey
	Metadata ed25519.PublicKey
	// MasterEdition is nil when the program owns its metadata. The program id
	// then fills the slot.
	MasterEdition   ed25519.PublicKey
	TokenAccount    ed25519.PublicKey
	Payer           ed25519.PublicKey
	Admin           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	// MetadataProgram defaults to METADATA_PROGRAM_ID.
	MetadataProgram ed25519.PublicKey
	// Owner of the token account. Passed as a remaining account when it
	// differs from the payer.
	Owner ed25519.PublicKey
}

func NewInitOwnershipNftInstruction(
	accounts *InitOwnershipNftInstructionAccounts,
	args *InitOwnershipNftInstructionArgs,
) solana.Instruction {
	// Serialize instruction arguments
	data := make([]byte, len(InitOwnershipNftDiscriminator)+InitOwnershipNftInstructionArgsSize)
	offset := copy(data, InitOwnershipNftDiscriminator)
	copy(data[offset:], args.TicketID[:])

	program := accounts.Program
	if program == nil {
		program = PROGRAM_ID
	}

	masterEdition := solana.AccountMeta{PublicKey: program}
	if accounts.MasterEdition != nil {
		masterEdition = solana.AccountMeta{PublicKey: accounts.MasterEdition, IsWritable: true}
	}

	metadataProgram := accounts.MetadataProgram
	if metadataProgram == nil {
		metadataProgram = METADATA_PROGRAM_ID
	}

	ix := solana.Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Mint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			masterEdition,
			{
				PublicKey:  accounts.TokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Admin,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_2022_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  metadataProgram,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  ASSOCIATED_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}

	if accounts.Owner != nil && !bytes.Equal(accounts.Owner, accounts.Payer) {
		ix.Accounts = append(ix.Accounts, solana.AccountMeta{PublicKey: accounts.Owner})
	}

	return ix
}

type DecompiledInitOwnershipNft struct {
	Accounts InitOwnershipNftInstructionAccounts
	Args     InitOwnershipNftInstructionArgs

	// SelfMetadata is set when the master edition slot holds the program id.
	SelfMetadata bool
}

// DecompileInitOwnershipNft parses an init_ownership_nft instruction sent to
// program.
func DecompileInitOwnershipNft(program ed25519.PublicKey, ix solana.Instruction) (*DecompiledInitOwnershipNft, error) {
	if !bytes.Equal(ix.Program, program) {
		return nil, solana.ErrIncorrectProgram
	}
	if !bytes.HasPrefix(ix.Data, InitOwnershipNftDiscriminator) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(ix.Data) != len(InitOwnershipNftDiscriminator)+InitOwnershipNftInstructionArgsSize {
		return nil, errors.Wrapf(ErrInvalidInstructionData, "size %d", len(ix.Data))
	}
	if len(ix.Accounts) < initOwnershipNftAccountCount {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}

	v := &DecompiledInitOwnershipNft{
		Accounts: InitOwnershipNftInstructionAccounts{
			Program:         program,
			Mint:            ix.Accounts[0].PublicKey,
			Metadata:        ix.Accounts[1].PublicKey,
			MasterEdition:   ix.Accounts[2].PublicKey,
			TokenAccount:    ix.Accounts[3].PublicKey,
			Payer:           ix.Accounts[4].PublicKey,
			Admin:           ix.Accounts[5].PublicKey,
			UpdateAuthority: ix.Accounts[6].PublicKey,
			MetadataProgram: ix.Accounts[9].PublicKey,
			Owner:           ix.Accounts[4].PublicKey,
		},
	}
	copy(v.Args.TicketID[:], ix.Data[len(InitOwnershipNftDiscriminator):])

	if bytes.Equal(v.Accounts.MasterEdition, program) {
		v.Accounts.MasterEdition = nil
		v.SelfMetadata = true
	}
	if len(ix.Accounts) > initOwnershipNftAccountCount {
		v.Accounts.Owner = ix.Accounts[initOwnershipNftAccountCount].PublicKey
	}

	return v, nil
}

func (a *InitOwnershipNftInstructionAccounts) String() string {
	return fmt.Sprintf(
		"InitOwnershipNftInstructionAccounts{mint=%s,metadata=%s,token_account=%s,payer=%s,admin=%s}",
		base58.Encode(a.Mint),
		base58.Encode(a.Metadata),
		base58.Encode(a.TokenAccount),
		base58.Encode(a.Payer),
		base58.Encode(a.Admin),
	)
}
