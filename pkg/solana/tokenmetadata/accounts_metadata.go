package tokenmetadata

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	solbin "github.com/code-payments/ownership-nft/pkg/solana/binary"
)

// MetadataAccountSize is the allocation the metadata program uses for
// metadata accounts.
const MetadataAccountSize = 679

var ErrInvalidAccountData = errors.New("unexpected account data")

type Creator struct {
	Address  ed25519.PublicKey
	Verified bool
	Share    uint8
}

// Metadata is the decoded prefix of a Metaplex metadata account. Fields after
// IsMutable are not modelled.
type Metadata struct {
	UpdateAuthority      ed25519.PublicKey
	Mint                 ed25519.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
}

// Marshal writes the account the way the metadata program does: strings are
// padded to their maximum widths, and the result is at least
// MetadataAccountSize bytes.
func (m *Metadata) Marshal() []byte {
	name := puffOut(m.Name, MaxNameLength)
	symbol := puffOut(m.Symbol, MaxSymbolLength)
	uri := puffOut(m.URI, MaxURILength)

	size := 1 + 32 + 32 +
		solbin.StringSize(name) +
		solbin.StringSize(symbol) +
		solbin.StringSize(uri) +
		2 + 1 + 4 + len(m.Creators)*(32+1+1) +
		1 + 1
	if size < MetadataAccountSize {
		size = MetadataAccountSize
	}

	b := make([]byte, size)

	var offset int
	solbin.PutUint8(b, byte(KeyMetadataV1), &offset)
	solbin.PutKey32(b[offset:], m.UpdateAuthority, &offset)
	solbin.PutKey32(b[offset:], m.Mint, &offset)
	solbin.PutString(b[offset:], name, &offset)
	solbin.PutString(b[offset:], symbol, &offset)
	solbin.PutString(b[offset:], uri, &offset)
	solbin.PutUint16(b[offset:], m.SellerFeeBasisPoints, &offset)

	if len(m.Creators) > 0 {
		solbin.PutUint8(b[offset:], 1, &offset)
		solbin.PutUint32(b[offset:], uint32(len(m.Creators)), &offset)
		for _, c := range m.Creators {
			solbin.PutKey32(b[offset:], c.Address, &offset)
			solbin.PutUint8(b[offset:], boolToByte(c.Verified), &offset)
			solbin.PutUint8(b[offset:], c.Share, &offset)
		}
	} else {
		solbin.PutUint8(b[offset:], 0, &offset)
	}

	solbin.PutUint8(b[offset:], boolToByte(m.PrimarySaleHappened), &offset)
	solbin.PutUint8(b[offset:], boolToByte(m.IsMutable), &offset)

	return b
}

func (m *Metadata) Unmarshal(b []byte) error {
	if len(b) < 1+32+32 {
		return errors.Wrapf(ErrInvalidAccountData, "size %d", len(b))
	}
	if Key(b[0]) != KeyMetadataV1 {
		return errors.Wrapf(ErrInvalidAccountData, "key %d", b[0])
	}

	offset := 1
	solbin.GetKey32(b[offset:], &m.UpdateAuthority, &offset)
	solbin.GetKey32(b[offset:], &m.Mint, &offset)

	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"name", &m.Name},
		{"symbol", &m.Symbol},
		{"uri", &m.URI},
	} {
		if err := solbin.GetString(b[offset:], field.dst, &offset); err != nil {
			return errors.Wrapf(err, "failed to read %s", field.name)
		}
	}

	if len(b) < offset+2+1 {
		return errors.Wrap(solbin.ErrShortBuffer, "seller fee")
	}
	solbin.GetUint16(b[offset:], &m.SellerFeeBasisPoints, &offset)

	var hasCreators uint8
	solbin.GetUint8(b[offset:], &hasCreators, &offset)

	m.Creators = nil
	if hasCreators == 1 {
		if len(b) < offset+4 {
			return errors.Wrap(solbin.ErrShortBuffer, "creators")
		}

		var count uint32
		solbin.GetUint32(b[offset:], &count, &offset)
		if len(b) < offset+int(count)*(32+1+1) {
			return errors.Wrap(solbin.ErrShortBuffer, "creators")
		}

		for i := uint32(0); i < count; i++ {
			var c Creator
			solbin.GetKey32(b[offset:], &c.Address, &offset)
			c.Verified = b[offset] == 1
			c.Share = b[offset+1]
			offset += 2
			m.Creators = append(m.Creators, c)
		}
	}

	if len(b) < offset+2 {
		return errors.Wrap(solbin.ErrShortBuffer, "flags")
	}
	m.PrimarySaleHappened = b[offset] == 1
	m.IsMutable = b[offset+1] == 1

	return nil
}

func (m *Metadata) String() string {
	return fmt.Sprintf(
		"Metadata{update_authority=%x,mint=%x,name=%q,symbol=%q,uri=%q}",
		[]byte(m.UpdateAuthority),
		[]byte(m.Mint),
		m.Name,
		m.Symbol,
		m.URI,
	)
}

func puffOut(v string, width int) string {
	if len(v) >= width {
		return v
	}
	return v + strings.Repeat("\x00", width-len(v))
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
