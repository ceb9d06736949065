package memory

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/solana/tokenmetadata"
)

const ownershipNftUnits = 85_000

// OwnershipNftConfig is the deployment the simulated issuing program enforces.
type OwnershipNftConfig struct {
	Program             ed25519.PublicKey
	Admin               ed25519.PublicKey
	MintPrefix          []byte
	MetadataPrefix      []byte
	TransferHookProgram ed25519.PublicKey
	Symbol              string
	NamePrefix          string
	BaseMetadataURL     string
}

func DefaultOwnershipNftConfig() OwnershipNftConfig {
	return OwnershipNftConfig{
		Program:             ownershipnft.PROGRAM_ID,
		Admin:               ownershipnft.ADMIN_TICKET_VALIDATOR,
		MintPrefix:          ownershipnft.MintPrefix,
		MetadataPrefix:      ownershipnft.MetadataPrefix,
		TransferHookProgram: ownershipnft.TRANSFER_HOOK_PROGRAM_ID,
		Symbol:              ownershipnft.DefaultSymbol,
		NamePrefix:          ownershipnft.DefaultNamePrefix,
		BaseMetadataURL:     ownershipnft.DefaultBaseMetadataURL,
	}
}

// OwnershipNftProgram simulates init_ownership_nft: it creates the ticket's
// Token-2022 mint, the owner's token account holding one token, and the
// metadata records. The metadata mode is taken from the master edition slot.
func OwnershipNftProgram(config OwnershipNftConfig) Program {
	return ProgramFunc(func(state *State, ix solana.Instruction) error {
		state.Consume(ownershipNftUnits)
		state.Logf("Program %s invoke [1]", base58.Encode(config.Program))

		decompiled, err := ownershipnft.DecompileInitOwnershipNft(config.Program, ix)
		if err != nil {
			return errors.New(string(solana.InstructionErrorInvalidInstructionData))
		}
		accounts := decompiled.Accounts

		if !signedBy(state, ix) {
			return errMissingRequiredSignature
		}

		if !isKey(accounts.Admin, config.Admin) || !isKey(accounts.UpdateAuthority, accounts.Admin) {
			state.Logf("AnchorError caused by account: admin. Error Code: %s. Error Number: %d.", ownershipnft.ErrorCodeInvalidServerSigner, ownershipnft.ErrorCodeInvalidServerSigner)
			return solana.CustomError(ownershipnft.ErrorCodeInvalidServerSigner)
		}

		expectedMetadataProgram := tokenmetadata.ProgramKey
		if decompiled.SelfMetadata {
			expectedMetadataProgram = config.Program
		}
		if !isKey(accounts.MetadataProgram, expectedMetadataProgram) {
			return invalidProgram(state, "token_metadata_program")
		}

		mint, _, err := ownershipnft.GetMintAddress(&ownershipnft.GetMintAddressArgs{
			Program:  config.Program,
			Prefix:   config.MintPrefix,
			TicketID: decompiled.Args.TicketID[:],
		})
		if err != nil || !isKey(mint, accounts.Mint) {
			return invalidProgram(state, "ownership_nft_mint")
		}

		holding, _, err := token.GetAssociatedAccountForProgram(accounts.Owner, mint, token.Token2022ProgramKey)
		if err != nil || !isKey(holding, accounts.TokenAccount) {
			return invalidProgram(state, "ownership_nft_token_account")
		}

		if err := createOwnershipMint(state, config, accounts); err != nil {
			return err
		}

		state.Logf("Program log: Creating Ownership NFT token account")
		tokenAccount := token.Account{
			Mint:   mint,
			Owner:  accounts.Owner,
			Amount: 1,
			State:  token.AccountStateInitialized,
		}
		err = state.CreateAccount(accounts.Payer, holding, token.Token2022ProgramKey, state.Rent(token.AccountSize), tokenAccount.Marshal())
		if err != nil {
			return err
		}

		name := ownershipnft.TokenName(config.NamePrefix, decompiled.Args.TicketID)
		uri := ownershipnft.TokenURI(config.BaseMetadataURL, decompiled.Args.TicketID)

		if decompiled.SelfMetadata {
			err = createSelfMetadata(state, config, accounts, name, uri)
		} else {
			err = createMetaplexMetadata(state, config, accounts, name, uri)
		}
		if err != nil {
			return err
		}

		state.Logf("Program %s success", base58.Encode(config.Program))
		return nil
	})
}

func createOwnershipMint(state *State, config OwnershipNftConfig, accounts ownershipnft.InitOwnershipNftInstructionAccounts) error {
	state.Logf("Program log: Creating Ownership NFT Mint Account (PDA)...")

	size, err := token.GetMintLen([]token.ExtensionType{token.ExtensionTypeMetadataPointer, token.ExtensionTypeTransferHook}, nil)
	if err != nil {
		return err
	}

	pointer := token.MetadataPointer{Authority: accounts.Admin, MetadataAddress: accounts.Metadata}
	hook := token.TransferHook{Authority: accounts.Admin, ProgramID: config.TransferHookProgram}
	mint := token.Mint{
		MintAuthority:   accounts.Admin,
		Supply:          1,
		Decimals:        ownershipnft.MintDecimals,
		IsInitialized:   true,
		FreezeAuthority: accounts.Admin,
		Extensions: []token.Extension{
			{Type: token.ExtensionTypeMetadataPointer, Data: pointer.Marshal()},
			{Type: token.ExtensionTypeTransferHook, Data: hook.Marshal()},
		},
	}

	data := mint.Marshal()
	if uint64(len(data)) != size {
		return errors.New(string(solana.InstructionErrorInvalidAccountData))
	}

	return state.CreateAccount(accounts.Payer, accounts.Mint, token.Token2022ProgramKey, state.Rent(size), data)
}

func createSelfMetadata(state *State, config OwnershipNftConfig, accounts ownershipnft.InitOwnershipNftInstructionAccounts, name, uri string) error {
	expected, bump, err := ownershipnft.GetMetadataAddress(&ownershipnft.GetMetadataAddressArgs{
		Program: config.Program,
		Prefix:  config.MetadataPrefix,
		Mint:    accounts.Mint,
	})
	if err != nil || !isKey(expected, accounts.Metadata) {
		return invalidProgram(state, "ownership_nft_metadata")
	}

	record := ownershipnft.MetadataAccount{
		UpdateAuthority: accounts.UpdateAuthority,
		Mint:            accounts.Mint,
		Name:            name,
		Symbol:          config.Symbol,
		URI:             uri,
		Bump:            bump,
	}
	data := record.Marshal()
	return state.CreateAccount(accounts.Payer, accounts.Metadata, config.Program, state.Rent(uint64(len(data))), data)
}

func createMetaplexMetadata(state *State, config OwnershipNftConfig, accounts ownershipnft.InitOwnershipNftInstructionAccounts, name, uri string) error {
	state.Logf("Program log: Creating Metaplex Metadata for Ownership NFT...")

	expected, _, err := tokenmetadata.GetMetadataAddress(accounts.Mint)
	if err != nil || !isKey(expected, accounts.Metadata) {
		return invalidProgram(state, "ownership_nft_metadata")
	}
	expectedEdition, _, err := tokenmetadata.GetMasterEditionAddress(accounts.Mint)
	if err != nil || !isKey(expectedEdition, accounts.MasterEdition) {
		return invalidProgram(state, "ownership_nft_master_edition")
	}

	metadata := tokenmetadata.Metadata{
		UpdateAuthority: accounts.UpdateAuthority,
		Mint:            accounts.Mint,
		Name:            name,
		Symbol:          config.Symbol,
		URI:             uri,
		Creators: []tokenmetadata.Creator{
			{Address: accounts.Admin, Verified: true, Share: 100},
		},
		IsMutable: true,
	}
	data := metadata.Marshal()
	err = state.CreateAccount(accounts.Payer, accounts.Metadata, tokenmetadata.ProgramKey, state.Rent(uint64(len(data))), data)
	if err != nil {
		return err
	}

	state.Logf("Program log: Creating Master Edition for Ownership NFT...")
	maxSupply := uint64(0)
	edition := tokenmetadata.MasterEdition{MaxSupply: &maxSupply}
	return state.CreateAccount(accounts.Payer, accounts.MasterEdition, tokenmetadata.ProgramKey, state.Rent(tokenmetadata.MasterEditionAccountSize), edition.Marshal())
}

func invalidProgram(state *State, account string) error {
	state.Logf("AnchorError caused by account: %s. Error Code: %s. Error Number: %d.", account, ownershipnft.ErrorCodeInvalidProgram, ownershipnft.ErrorCodeInvalidProgram)
	return solana.CustomError(ownershipnft.ErrorCodeInvalidProgram)
}
