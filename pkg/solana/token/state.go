package token

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	solbin "github.com/code-payments/ownership-nft/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L36
const MintSize = 82

// Reference: https://github.com/solana-labs/solana-program-library/blob/8944f428fe693c3a4226bf766a79be9c75e8e520/token/program/src/state.rs#L214
const MultisigAccountSize = 355

const optionSize = 4

var (
	ErrInvalidAccountData = errors.New("invalid token account data")
	ErrInvalidMintData    = errors.New("invalid mint data")
)

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	/// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	solbin.PutKey32(b, a.Mint, &offset)
	solbin.PutKey32(b[offset:], a.Owner, &offset)
	solbin.PutUint64(b[offset:], a.Amount, &offset)
	solbin.PutOptionalKey32(b[offset:], a.Delegate, &offset, optionSize)
	solbin.PutUint8(b[offset:], byte(a.State), &offset)
	solbin.PutOptionalUint64(b[offset:], a.IsNative, &offset, optionSize)
	solbin.PutUint64(b[offset:], a.DelegatedAmount, &offset)
	solbin.PutOptionalKey32(b[offset:], a.CloseAuthority, &offset, optionSize)

	return b
}

// Unmarshal decodes a token account. Token-2022 accounts may be longer than
// the base layout, in which case the account type byte must mark an account.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) < AccountSize {
		return false
	}
	if len(b) > AccountSize && AccountType(b[AccountSize]) != AccountTypeAccount {
		return false
	}

	var offset int
	solbin.GetKey32(b, &a.Mint, &offset)
	solbin.GetKey32(b[offset:], &a.Owner, &offset)
	solbin.GetUint64(b[offset:], &a.Amount, &offset)
	solbin.GetOptionalKey32(b[offset:], &a.Delegate, &offset, optionSize)
	a.State = AccountState(b[offset])
	offset++
	solbin.GetOptionalUint64(b[offset:], &a.IsNative, &offset, optionSize)
	solbin.GetUint64(b[offset:], &a.DelegatedAmount, &offset)
	solbin.GetOptionalKey32(b[offset:], &a.CloseAuthority, &offset, optionSize)

	return true
}

// Extension is one TLV entry of a Token-2022 account.
type Extension struct {
	Type ExtensionType
	Data []byte
}

// Mint is a token mint. Extensions are only present on Token-2022 mints.
type Mint struct {
	MintAuthority   ed25519.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority ed25519.PublicKey

	Extensions []Extension
}

// Marshal encodes the mint. A mint without extensions uses the base layout.
func (m *Mint) Marshal() []byte {
	size := MintSize
	if len(m.Extensions) > 0 {
		size = BaseAccountLength + accountTypeSize
		for _, ext := range m.Extensions {
			size += tlvHeaderSize + len(ext.Data)
		}
		if size == MultisigAccountSize {
			size += multisigPaddingB
		}
	}

	b := make([]byte, size)

	var offset int
	solbin.PutOptionalKey32(b, m.MintAuthority, &offset, optionSize)
	solbin.PutUint64(b[offset:], m.Supply, &offset)
	solbin.PutUint8(b[offset:], m.Decimals, &offset)
	if m.IsInitialized {
		b[offset] = 1
	}
	offset++
	solbin.PutOptionalKey32(b[offset:], m.FreezeAuthority, &offset, optionSize)

	if len(m.Extensions) == 0 {
		return b
	}

	offset = BaseAccountLength
	solbin.PutUint8(b[offset:], byte(AccountTypeMint), &offset)
	for _, ext := range m.Extensions {
		solbin.PutUint16(b[offset:], uint16(ext.Type), &offset)
		solbin.PutUint16(b[offset:], uint16(len(ext.Data)), &offset)
		offset += copy(b[offset:], ext.Data)
	}

	return b
}

func (m *Mint) Unmarshal(b []byte) error {
	if len(b) < MintSize {
		return errors.Wrapf(ErrInvalidMintData, "size %d", len(b))
	}

	var offset int
	solbin.GetOptionalKey32(b, &m.MintAuthority, &offset, optionSize)
	solbin.GetUint64(b[offset:], &m.Supply, &offset)
	solbin.GetUint8(b[offset:], &m.Decimals, &offset)
	m.IsInitialized = b[offset] == 1
	offset++
	solbin.GetOptionalKey32(b[offset:], &m.FreezeAuthority, &offset, optionSize)

	m.Extensions = nil
	if len(b) == MintSize {
		return nil
	}

	if len(b) <= BaseAccountLength {
		return errors.Wrapf(ErrInvalidMintData, "size %d", len(b))
	}
	if AccountType(b[BaseAccountLength]) != AccountTypeMint {
		return errors.Wrapf(ErrInvalidMintData, "account type %d", b[BaseAccountLength])
	}

	offset = BaseAccountLength + accountTypeSize
	for offset+tlvHeaderSize <= len(b) {
		extType := ExtensionType(binary.LittleEndian.Uint16(b[offset:]))
		length := int(binary.LittleEndian.Uint16(b[offset+2:]))
		offset += tlvHeaderSize

		// Trailing zeroes are unused space.
		if extType == ExtensionTypeUninitialized {
			break
		}
		if offset+length > len(b) {
			return errors.Wrapf(ErrInvalidMintData, "extension %s overruns account", extType)
		}

		m.Extensions = append(m.Extensions, Extension{
			Type: extType,
			Data: append([]byte{}, b[offset:offset+length]...),
		})
		offset += length
	}

	return nil
}

// Extension returns the TLV entry of the given type, if present.
func (m *Mint) Extension(extType ExtensionType) (*Extension, bool) {
	for i := range m.Extensions {
		if m.Extensions[i].Type == extType {
			return &m.Extensions[i], true
		}
	}
	return nil, false
}

// MetadataPointer is the value of the MetadataPointer extension. A zero
// authority means none.
type MetadataPointer struct {
	Authority       ed25519.PublicKey
	MetadataAddress ed25519.PublicKey
}

func (p *MetadataPointer) Marshal() []byte {
	b := make([]byte, 64)
	copy(b, p.Authority)
	copy(b[32:], p.MetadataAddress)
	return b
}

func (p *MetadataPointer) Unmarshal(b []byte) error {
	if len(b) != 64 {
		return errors.Wrapf(ErrInvalidMintData, "metadata pointer size %d", len(b))
	}

	var offset int
	solbin.GetKey32(b, &p.Authority, &offset)
	solbin.GetKey32(b[offset:], &p.MetadataAddress, &offset)
	return nil
}

// TransferHook is the value of the TransferHook extension.
type TransferHook struct {
	Authority ed25519.PublicKey
	ProgramID ed25519.PublicKey
}

func (h *TransferHook) Marshal() []byte {
	b := make([]byte, 64)
	copy(b, h.Authority)
	copy(b[32:], h.ProgramID)
	return b
}

func (h *TransferHook) Unmarshal(b []byte) error {
	if len(b) != 64 {
		return errors.Wrapf(ErrInvalidMintData, "transfer hook size %d", len(b))
	}

	var offset int
	solbin.GetKey32(b, &h.Authority, &offset)
	solbin.GetKey32(b[offset:], &h.ProgramID, &offset)
	return nil
}

// MetadataPointer decodes the mint's MetadataPointer extension.
func (m *Mint) MetadataPointer() (*MetadataPointer, bool) {
	ext, ok := m.Extension(ExtensionTypeMetadataPointer)
	if !ok {
		return nil, false
	}

	var pointer MetadataPointer
	if err := pointer.Unmarshal(ext.Data); err != nil {
		return nil, false
	}
	return &pointer, true
}
