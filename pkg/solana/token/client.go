package token

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

var (
	// ErrAccountNotFound indicates there is no account for the given address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTokenAccount indicates that a Solana account exists at the
	// given address, but it is either not initialized, or not configured correctly.
	ErrInvalidTokenAccount = errors.New("invalid token account")
	// ErrInvalidMint indicates that the account exists but is not a mint owned
	// by the expected token program.
	ErrInvalidMint = errors.New("invalid mint")
)

// Client reads token state for a single token program.
type Client struct {
	sc      solana.Client
	program ed25519.PublicKey
}

// NewClient creates a new Client for the given token program. Use ProgramKey
// or Token2022ProgramKey.
func NewClient(sc solana.Client, program ed25519.PublicKey) *Client {
	return &Client{
		sc:      sc,
		program: program,
	}
}

func (c *Client) Program() ed25519.PublicKey {
	return c.program
}

// GetAccount returns the token account info for the specified account.
//
// If the account is not initialized, or belongs to a different
// mint, then ErrInvalidTokenAccount is returned.
func (c *Client) GetAccount(ctx context.Context, accountID, mint ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	accountInfo, err := c.sc.GetAccountInfo(ctx, accountID, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(accountInfo.Owner, c.program) {
		return nil, ErrInvalidTokenAccount
	}

	var account Account
	if !account.Unmarshal(accountInfo.Data) {
		return nil, ErrInvalidTokenAccount
	}
	if account.State == AccountStateUninitialized {
		return nil, ErrInvalidTokenAccount
	}

	if !bytes.Equal(mint, account.Mint) {
		return nil, ErrInvalidTokenAccount
	}

	return &account, nil
}

// GetMint returns the mint state, including any extensions, along with the
// account's allocated size.
func (c *Client) GetMint(ctx context.Context, mint ed25519.PublicKey, commitment solana.Commitment) (*Mint, int, error) {
	accountInfo, err := c.sc.GetAccountInfo(ctx, mint, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, 0, ErrAccountNotFound
	} else if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(accountInfo.Owner, c.program) {
		return nil, 0, ErrInvalidMint
	}

	var m Mint
	if err := m.Unmarshal(accountInfo.Data); err != nil {
		return nil, 0, errors.Wrap(ErrInvalidMint, err.Error())
	}
	if !m.IsInitialized {
		return nil, 0, ErrInvalidMint
	}

	return &m, len(accountInfo.Data), nil
}
