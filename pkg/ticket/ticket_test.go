package ticket

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	expected := ID{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	id, err := FromString("00112233-4455-6677-8899-aabbccddeeff")
	require.NoError(t, err)
	assert.Equal(t, expected, id)
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", id.String())
}

func TestFromString_Malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"not-a-ticket",
		"00112233-4455-6677-8899-aabbccddeef",
		"00112233-4455-6677-8899-aabbccddeefg",
		"0011223344556677-8899-aabbccddeeff-",
		"00112233-4455-6677-8899-AABBCCDDEEFF",
		"00112233-4455-6677-8899-aAbbccddeeff",
		"00112233445566778899aabbccddeeff",
		"00112233445566778899AABBCCDDEEFF",
		"{00112233-4455-6677-8899-aabbccddeeff}",
		"urn:uuid:00112233-4455-6677-8899-aabbccddeeff",
		" 00112233-4455-6677-8899-aabbccddeeff",
	} {
		_, err := FromString(s)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier), s)
	}
}

// Every accepted display form renders back unchanged.
func TestFromString_Canonical(t *testing.T) {
	inputs := []string{
		"00112233-4455-6677-8899-aabbccddeeff",
		"00000000-0000-0000-0000-000000000000",
		"ffffffff-ffff-ffff-ffff-ffffffffffff",
	}
	for i := 0; i < 100; i++ {
		inputs = append(inputs, New().String())
	}

	for _, s := range inputs {
		id, err := FromString(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, id.String())
	}
}

func TestFromBytes(t *testing.T) {
	id := New()

	actual, err := FromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, actual)

	for _, size := range []int{0, 15, 17, 32} {
		_, err := FromBytes(make([]byte, size))
		assert.True(t, errors.Is(err, ErrInvalidLength))
	}
}

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()

		parsed, err := FromString(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)

		decoded, err := FromBytes(id[:])
		require.NoError(t, err)
		assert.Equal(t, id.String(), decoded.String())
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[ID]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		_, ok := seen[id]
		require.False(t, ok)
		seen[id] = struct{}{}
	}
}
