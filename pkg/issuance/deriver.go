package issuance

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/cache"
	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/ownershipnft"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
	"github.com/code-payments/ownership-nft/pkg/solana/tokenmetadata"
	"github.com/code-payments/ownership-nft/pkg/ticket"
)

// DerivedAddress is a program derived address and the bump seed that proves
// it. It says nothing about whether an account exists there.
type DerivedAddress struct {
	Address ed25519.PublicKey
	Bump    uint8
}

func (a DerivedAddress) String() string {
	return base58.Encode(a.Address)
}

// Addresses is every address an issuance touches for one ticket.
type Addresses struct {
	Mint     DerivedAddress
	Metadata DerivedAddress
	// MasterEdition is nil in self metadata mode.
	MasterEdition *DerivedAddress
	Holding       ed25519.PublicKey
}

const derivedTicketCacheSize = 10_000

// ticketAddresses are the owner independent addresses of a ticket.
type ticketAddresses struct {
	mint          DerivedAddress
	metadata      DerivedAddress
	masterEdition *DerivedAddress
}

// Deriver computes addresses for a fixed deployment and is safe for
// concurrent use. DeriveAll remembers the ticket addresses of recent tickets.
type Deriver struct {
	program         ed25519.PublicKey
	mintSeed        []byte
	metadataSeed    []byte
	mode            MetadataMode
	metadataProgram ed25519.PublicKey

	tickets cache.Cache[ticketAddresses]
}

func NewDeriver(settings *Settings) *Deriver {
	return &Deriver{
		program:         copyKey(settings.ProgramID),
		mintSeed:        append([]byte{}, settings.MintSeed...),
		metadataSeed:    append([]byte{}, settings.MetadataSeed...),
		mode:            settings.MetadataMode,
		metadataProgram: copyKey(settings.MetadataProgramID),
		tickets:         cache.New[ticketAddresses]("issuance/deriver", derivedTicketCacheSize),
	}
}

func (d *Deriver) Mode() MetadataMode {
	return d.mode
}

func (d *Deriver) DeriveMintAddress(id ticket.ID) (DerivedAddress, error) {
	address, bump, err := ownershipnft.GetMintAddress(&ownershipnft.GetMintAddressArgs{
		Program:  d.program,
		Prefix:   d.mintSeed,
		TicketID: id.Bytes(),
	})
	if err != nil {
		return DerivedAddress{}, errors.Wrapf(err, "failed to derive mint for ticket %s", id)
	}
	return DerivedAddress{Address: address, Bump: bump}, nil
}

// DeriveMetadataAddress derives the metadata record for mint under the
// configured metadata mode.
func (d *Deriver) DeriveMetadataAddress(mint ed25519.PublicKey) (DerivedAddress, error) {
	var address ed25519.PublicKey
	var bump uint8
	var err error

	switch d.mode {
	case MetadataModeSelf:
		address, bump, err = ownershipnft.GetMetadataAddress(&ownershipnft.GetMetadataAddressArgs{
			Program: d.program,
			Prefix:  d.metadataSeed,
			Mint:    mint,
		})
	case MetadataModeExternal:
		address, bump, err = solana.FindProgramAddressAndBump(
			d.metadataProgram,
			tokenmetadata.MetadataPrefix,
			d.metadataProgram,
			mint,
		)
	default:
		return DerivedAddress{}, errors.Wrapf(ErrInvalidConfig, "unknown metadata mode %q", d.mode)
	}
	if err != nil {
		return DerivedAddress{}, errors.Wrapf(err, "failed to derive metadata for mint %s", base58.Encode(mint))
	}
	return DerivedAddress{Address: address, Bump: bump}, nil
}

// DeriveMasterEditionAddress returns nil in self metadata mode.
func (d *Deriver) DeriveMasterEditionAddress(mint ed25519.PublicKey) (*DerivedAddress, error) {
	if d.mode != MetadataModeExternal {
		return nil, nil
	}

	address, bump, err := solana.FindProgramAddressAndBump(
		d.metadataProgram,
		tokenmetadata.MetadataPrefix,
		d.metadataProgram,
		mint,
		tokenmetadata.EditionPrefix,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive master edition for mint %s", base58.Encode(mint))
	}
	return &DerivedAddress{Address: address, Bump: bump}, nil
}

// DeriveHoldingAccount returns the owner's associated Token-2022 account for
// mint.
func (d *Deriver) DeriveHoldingAccount(mint, owner ed25519.PublicKey) (ed25519.PublicKey, error) {
	address, _, err := token.GetAssociatedAccountForProgram(owner, mint, token.Token2022ProgramKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive holding account for owner %s", base58.Encode(owner))
	}
	return address, nil
}

// DeriveAll derives every address for an issuance of id to owner.
func (d *Deriver) DeriveAll(id ticket.ID, owner ed25519.PublicKey) (*Addresses, error) {
	derived, err := d.deriveTicket(id)
	if err != nil {
		return nil, err
	}

	holding, err := d.DeriveHoldingAccount(derived.mint.Address, owner)
	if err != nil {
		return nil, err
	}

	return &Addresses{
		Mint:          derived.mint,
		Metadata:      derived.metadata,
		MasterEdition: derived.masterEdition,
		Holding:       holding,
	}, nil
}

func (d *Deriver) deriveTicket(id ticket.ID) (ticketAddresses, error) {
	if cached, ok := d.tickets.Retrieve(id.String()); ok {
		return cached, nil
	}

	mint, err := d.DeriveMintAddress(id)
	if err != nil {
		return ticketAddresses{}, err
	}

	metadata, err := d.DeriveMetadataAddress(mint.Address)
	if err != nil {
		return ticketAddresses{}, err
	}

	edition, err := d.DeriveMasterEditionAddress(mint.Address)
	if err != nil {
		return ticketAddresses{}, err
	}

	derived := ticketAddresses{mint: mint, metadata: metadata, masterEdition: edition}
	d.tickets.Insert(id.String(), derived, 1)
	return derived, nil
}

func copyKey(key ed25519.PublicKey) ed25519.PublicKey {
	return append(ed25519.PublicKey{}, key...)
}
