// Package shortvec implements the compact-u16 length prefix used throughout
// the Solana wire format.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

var (
	ErrLenTooLarge = errors.Errorf("len exceeds %d", math.MaxUint16)
	ErrInvalidLen  = errors.Errorf("encoded len exceeds %d bytes", maxEncodedLen)
)

// EncodeLen encodes the specified len into the writer, returning the number
// of bytes written.
func EncodeLen(w io.Writer, len int) (int, error) {
	if len < 0 || len > math.MaxUint16 {
		return 0, ErrLenTooLarge
	}

	var encoded [maxEncodedLen]byte
	n := 0
	for {
		encoded[n] = byte(len & 0x7f)
		len >>= 7
		if len == 0 {
			n++
			break
		}
		encoded[n] |= 0x80
		n++
	}

	return w.Write(encoded[:n])
}

// DecodeLen decodes a compact-u16 len from the reader.
func DecodeLen(r io.ByteReader) (int, error) {
	var val int
	for i := 0; i < maxEncodedLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		val |= int(b&0x7f) << (i * 7)
		if b&0x80 == 0 {
			return val, nil
		}
	}

	return 0, ErrInvalidLen
}
