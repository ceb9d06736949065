// Package binary holds little-endian field helpers for on-chain account and
// instruction layouts. Every Put*/Get* advances offset by the field width.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned when a length-prefixed field runs past the end
// of the buffer.
var ErrShortBuffer = errors.New("buffer too short")

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst, src)
	*offset += ed25519.PublicKeySize
}

// PutOptionalKey32 writes a COption<Pubkey>, whose tag occupies optionSize bytes.
func PutOptionalKey32(dst []byte, src []byte, offset *int, optionSize int) {
	if len(src) > 0 {
		dst[0] = 1
		copy(dst[optionSize:], src)
	}

	*offset += optionSize + ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst, v)
	*offset += 4
}

func PutUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst, v)
	*offset += 2
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset += 1
}

// PutString writes a borsh string: a u32 length followed by the bytes.
func PutString(dst []byte, v string, offset *int) {
	binary.LittleEndian.PutUint32(dst, uint32(len(v)))
	copy(dst[4:], v)
	*offset += 4 + len(v)
}

// StringSize is the encoded size of a borsh string.
func StringSize(v string) int {
	return 4 + len(v)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) {
	if src[0] == 1 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[optionSize:])
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src)
	*offset += 4
}

func GetUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src)
	*offset += 2
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset += 1
}

// GetString reads a borsh string. Trailing NUL padding, which Metaplex adds
// to fixed-width fields, is stripped.
func GetString(src []byte, dst *string, offset *int) error {
	if len(src) < 4 {
		return errors.Wrap(ErrShortBuffer, "string length")
	}

	size := int(binary.LittleEndian.Uint32(src))
	if len(src) < 4+size {
		return errors.Wrapf(ErrShortBuffer, "string of %d bytes", size)
	}

	*dst = strings.TrimRight(string(src[4:4+size]), "\x00")
	*offset += 4 + size
	return nil
}

// PutOptionalUint64 writes a COption<u64>, whose tag occupies optionSize bytes.
func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if v != nil {
		dst[0] = 1
		binary.LittleEndian.PutUint64(dst[optionSize:], *v)
	}
	*offset += optionSize + 8
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) {
	if src[0] == 1 {
		val := binary.LittleEndian.Uint64(src[optionSize:])
		*dst = &val
	}
	*offset += optionSize + 8
}
