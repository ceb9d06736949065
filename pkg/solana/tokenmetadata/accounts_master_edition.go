package tokenmetadata

import (
	"github.com/pkg/errors"

	solbin "github.com/code-payments/ownership-nft/pkg/solana/binary"
)

// MasterEditionAccountSize is the allocation the metadata program uses for
// master edition accounts.
const MasterEditionAccountSize = 282

// MasterEdition is a V2 master edition. A MaxSupply of zero marks a one of
// one token.
type MasterEdition struct {
	Supply    uint64
	MaxSupply *uint64
}

func (e *MasterEdition) Marshal() []byte {
	b := make([]byte, MasterEditionAccountSize)

	var offset int
	solbin.PutUint8(b, byte(KeyMasterEditionV2), &offset)
	solbin.PutUint64(b[offset:], e.Supply, &offset)
	solbin.PutOptionalUint64(b[offset:], e.MaxSupply, &offset, 1)

	return b
}

func (e *MasterEdition) Unmarshal(b []byte) error {
	if len(b) < 1+8+1+8 {
		return errors.Wrapf(ErrInvalidAccountData, "size %d", len(b))
	}
	if Key(b[0]) != KeyMasterEditionV2 {
		return errors.Wrapf(ErrInvalidAccountData, "key %d", b[0])
	}

	offset := 1
	solbin.GetUint64(b[offset:], &e.Supply, &offset)
	e.MaxSupply = nil
	solbin.GetOptionalUint64(b[offset:], &e.MaxSupply, &offset, 1)

	return nil
}
