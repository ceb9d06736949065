package token

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExtensionType identifies a Token-2022 extension in an account's TLV area.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/extension/mod.rs
type ExtensionType uint16

const (
	ExtensionTypeUninitialized ExtensionType = iota
	ExtensionTypeTransferFeeConfig
	ExtensionTypeTransferFeeAmount
	ExtensionTypeMintCloseAuthority
	ExtensionTypeConfidentialTransferMint
	ExtensionTypeConfidentialTransferAccount
	ExtensionTypeDefaultAccountState
	ExtensionTypeImmutableOwner
	ExtensionTypeMemoTransfer
	ExtensionTypeNonTransferable
	ExtensionTypeInterestBearingConfig
	ExtensionTypeCpiGuard
	ExtensionTypePermanentDelegate
	ExtensionTypeNonTransferableAccount
	ExtensionTypeTransferHook
	ExtensionTypeTransferHookAccount
	ExtensionTypeConfidentialTransferFeeConfig
	ExtensionTypeConfidentialTransferFeeAmount
	ExtensionTypeMetadataPointer
	ExtensionTypeTokenMetadata
	ExtensionTypeGroupPointer
	ExtensionTypeTokenGroup
	ExtensionTypeGroupMemberPointer
	ExtensionTypeTokenGroupMember
)

// ErrUnsupportedExtension is returned for extension types that cannot be
// attached to a mint, or that are unknown.
var ErrUnsupportedExtension = errors.New("unsupported extension")

const (
	// BaseAccountLength is the size every extended account is padded to
	// before the account type byte.
	BaseAccountLength = AccountSize

	accountTypeSize  = 1
	tlvHeaderSize    = 2 + 2
	multisigPaddingB = 2
)

// mintExtensionSizes holds the fixed value length of each mint extension.
var mintExtensionSizes = map[ExtensionType]int{
	ExtensionTypeTransferFeeConfig:             108,
	ExtensionTypeMintCloseAuthority:            32,
	ExtensionTypeConfidentialTransferMint:      65,
	ExtensionTypeDefaultAccountState:           1,
	ExtensionTypeNonTransferable:               0,
	ExtensionTypeInterestBearingConfig:         52,
	ExtensionTypePermanentDelegate:             32,
	ExtensionTypeTransferHook:                  64,
	ExtensionTypeConfidentialTransferFeeConfig: 129,
	ExtensionTypeMetadataPointer:               64,
	ExtensionTypeGroupPointer:                  64,
	ExtensionTypeTokenGroup:                    80,
	ExtensionTypeGroupMemberPointer:            64,
	ExtensionTypeTokenGroupMember:              72,
}

func (e ExtensionType) String() string {
	switch e {
	case ExtensionTypeTransferFeeConfig:
		return "TransferFeeConfig"
	case ExtensionTypeMintCloseAuthority:
		return "MintCloseAuthority"
	case ExtensionTypeConfidentialTransferMint:
		return "ConfidentialTransferMint"
	case ExtensionTypeDefaultAccountState:
		return "DefaultAccountState"
	case ExtensionTypeNonTransferable:
		return "NonTransferable"
	case ExtensionTypeInterestBearingConfig:
		return "InterestBearingConfig"
	case ExtensionTypePermanentDelegate:
		return "PermanentDelegate"
	case ExtensionTypeTransferHook:
		return "TransferHook"
	case ExtensionTypeConfidentialTransferFeeConfig:
		return "ConfidentialTransferFeeConfig"
	case ExtensionTypeMetadataPointer:
		return "MetadataPointer"
	case ExtensionTypeTokenMetadata:
		return "TokenMetadata"
	case ExtensionTypeGroupPointer:
		return "GroupPointer"
	case ExtensionTypeTokenGroup:
		return "TokenGroup"
	case ExtensionTypeGroupMemberPointer:
		return "GroupMemberPointer"
	case ExtensionTypeTokenGroupMember:
		return "TokenGroupMember"
	default:
		return fmt.Sprintf("ExtensionType(%d)", uint16(e))
	}
}

// ExtensionValueLen returns the value length of a mint extension. Variable
// length extensions take their length from variableLengths.
func ExtensionValueLen(ext ExtensionType, variableLengths map[ExtensionType]int) (int, error) {
	if size, ok := mintExtensionSizes[ext]; ok {
		return size, nil
	}

	if ext == ExtensionTypeTokenMetadata {
		size, ok := variableLengths[ext]
		if !ok || size < 0 {
			return 0, errors.Wrapf(ErrUnsupportedExtension, "%s requires an explicit length", ext)
		}
		return size, nil
	}

	return 0, errors.Wrapf(ErrUnsupportedExtension, "%s cannot be used on a mint", ext)
}

// GetMintLen returns the size of a mint account carrying the extensions.
// Duplicates are counted once and ordering does not matter.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/extension/mod.rs (try_calculate_account_len)
func GetMintLen(extensions []ExtensionType, variableLengths map[ExtensionType]int) (uint64, error) {
	if len(extensions) == 0 {
		return MintSize, nil
	}

	seen := make(map[ExtensionType]struct{}, len(extensions))
	size := BaseAccountLength + accountTypeSize
	for _, ext := range extensions {
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}

		valueLen, err := ExtensionValueLen(ext, variableLengths)
		if err != nil {
			return 0, err
		}
		size += tlvHeaderSize + valueLen
	}

	// An extended mint may never be mistaken for a multisig by size alone.
	if size == MultisigAccountSize {
		size += multisigPaddingB
	}

	return uint64(size), nil
}
