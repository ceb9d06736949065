package issuance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
	"github.com/code-payments/ownership-nft/pkg/solana/token"
)

// OwnershipMintExtensions are the extensions the issuing program attaches to
// every ownership mint.
var OwnershipMintExtensions = []token.ExtensionType{
	token.ExtensionTypeMetadataPointer,
	token.ExtensionTypeTransferHook,
}

// Sizer computes account sizes and the rent they must carry.
type Sizer struct {
	sc solana.Client
}

func NewSizer(sc solana.Client) *Sizer {
	return &Sizer{sc: sc}
}

// ComputeMintSize is the byte length of a mint carrying extensions.
func (s *Sizer) ComputeMintSize(extensions []token.ExtensionType, variableLengths map[token.ExtensionType]int) (uint64, error) {
	return token.GetMintLen(extensions, variableLengths)
}

// ComputeRentExemption asks the ledger for the rent exempt balance of size
// bytes. The value is read on every call.
func (s *Sizer) ComputeRentExemption(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := s.sc.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get rent exemption for %d bytes", size)
	}
	return lamports, nil
}
