// Package ticket encodes and decodes the 128-bit lottery ticket identifier
// that names each ownership NFT.
package ticket

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const Size = 16

var (
	ErrMalformedIdentifier = errors.New("malformed ticket identifier")
	ErrInvalidLength       = errors.New("invalid ticket identifier length")
)

// ID is a ticket identifier in its canonical big-endian byte order.
type ID [Size]byte

// New returns a random identifier.
func New() ID {
	return ID(uuid.New())
}

// FromString parses the canonical lower-case hyphenated 8-4-4-4-12 form. Any
// other spelling, including upper case and bare hex, is malformed, so
// FromString(s).String() == s for every accepted s.
func FromString(s string) (ID, error) {
	var id ID

	// uuid.Parse also accepts non-hyphenated and prefixed spellings.
	if len(s) != 36 {
		return id, errors.Wrapf(ErrMalformedIdentifier, "%q", s)
	}
	parsed, err := uuid.Parse(s)
	if err != nil || parsed.String() != s {
		return id, errors.Wrapf(ErrMalformedIdentifier, "%q", s)
	}
	return ID(parsed), nil
}

// FromBytes copies exactly Size bytes into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, errors.Wrapf(ErrInvalidLength, "%d bytes", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MustFromString is FromString for identifiers known to be valid.
func MustFromString(s string) ID {
	id, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the lower-case hyphenated form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns a copy of the identifier bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}
