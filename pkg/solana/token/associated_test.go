package token

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Values generated from taken from spl code.
	wallet, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	addr, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	assert.EqualValues(t, addr, actual)
}

func TestGetAssociatedAccountForProgram(t *testing.T) {
	wallet, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	mint, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	legacy, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)

	extended, bump, err := GetAssociatedAccountForProgram(wallet, mint, Token2022ProgramKey)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(legacy, extended))

	again, againBump, err := GetAssociatedAccountForProgram(wallet, mint, Token2022ProgramKey)
	require.NoError(t, err)
	assert.EqualValues(t, extended, again)
	assert.Equal(t, bump, againBump)
}

func TestProgramKeys(t *testing.T) {
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", base58.Encode(ProgramKey))
	assert.Equal(t, "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb", base58.Encode(Token2022ProgramKey))
	assert.Equal(t, "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", base58.Encode(AssociatedTokenAccountProgramKey))
}
