package ownershipnft

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	solbin "github.com/code-payments/ownership-nft/pkg/solana/binary"
)

var MetadataAccountDiscriminator = anchorDiscriminator("account", "OwnershipNftMetadata")

// MetadataAccount is the record the program writes when it owns the
// metadata for a mint itself.
type MetadataAccount struct {
	UpdateAuthority ed25519.PublicKey
	Mint            ed25519.PublicKey
	Name            string
	Symbol          string
	URI             string
	Bump            uint8
}

func (obj *MetadataAccount) Size() int {
	return 8 + // discriminator
		32 + // update_authority
		32 + // mint
		solbin.StringSize(obj.Name) +
		solbin.StringSize(obj.Symbol) +
		solbin.StringSize(obj.URI) +
		1 // bump
}

func (obj *MetadataAccount) Marshal() []byte {
	data := make([]byte, obj.Size())

	offset := copy(data, MetadataAccountDiscriminator)
	solbin.PutKey32(data[offset:], obj.UpdateAuthority, &offset)
	solbin.PutKey32(data[offset:], obj.Mint, &offset)
	solbin.PutString(data[offset:], obj.Name, &offset)
	solbin.PutString(data[offset:], obj.Symbol, &offset)
	solbin.PutString(data[offset:], obj.URI, &offset)
	solbin.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *MetadataAccount) Unmarshal(data []byte) error {
	if len(data) < 8+32+32 {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], MetadataAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	offset := 8
	solbin.GetKey32(data[offset:], &obj.UpdateAuthority, &offset)
	solbin.GetKey32(data[offset:], &obj.Mint, &offset)
	if err := solbin.GetString(data[offset:], &obj.Name, &offset); err != nil {
		return errors.Wrap(err, "failed to read name")
	}
	if err := solbin.GetString(data[offset:], &obj.Symbol, &offset); err != nil {
		return errors.Wrap(err, "failed to read symbol")
	}
	if err := solbin.GetString(data[offset:], &obj.URI, &offset); err != nil {
		return errors.Wrap(err, "failed to read uri")
	}
	if len(data) <= offset {
		return ErrInvalidAccountData
	}
	solbin.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

func (obj *MetadataAccount) String() string {
	return fmt.Sprintf(
		"MetadataAccount{update_authority=%s,mint=%s,name=%s,symbol=%s,uri=%s,bump=%d}",
		base58.Encode(obj.UpdateAuthority),
		base58.Encode(obj.Mint),
		obj.Name,
		obj.Symbol,
		obj.URI,
		obj.Bump,
	)
}
