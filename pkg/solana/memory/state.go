package memory

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/ownership-nft/pkg/solana"
)

// Program executes instructions addressed to a single program id. Returning
// a solana.CustomError, or any other error, fails the whole transaction at
// the instruction's index.
type Program interface {
	Execute(state *State, ix solana.Instruction) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(state *State, ix solana.Instruction) error

func (f ProgramFunc) Execute(state *State, ix solana.Instruction) error {
	return f(state, ix)
}

// State is the view of the ledger a transaction executes against. Writes are
// buffered and only applied when every instruction succeeds.
type State struct {
	base    map[string]solana.AccountInfo
	writes  map[string]solana.AccountInfo
	signers []ed25519.PublicKey
	logs    []string
	units   uint64
}

func newState(base map[string]solana.AccountInfo, signers []ed25519.PublicKey) *State {
	return &State{
		base:    base,
		writes:  make(map[string]solana.AccountInfo),
		signers: signers,
	}
}

// Get returns the account, including writes made earlier in the transaction.
func (s *State) Get(account ed25519.PublicKey) (solana.AccountInfo, bool) {
	key := string(account)
	if info, ok := s.writes[key]; ok {
		return info, true
	}
	info, ok := s.base[key]
	return info, ok
}

func (s *State) Exists(account ed25519.PublicKey) bool {
	_, ok := s.Get(account)
	return ok
}

func (s *State) Put(account ed25519.PublicKey, info solana.AccountInfo) {
	s.writes[string(account)] = info
}

// IsSigner reports whether the transaction carries a signature for account.
func (s *State) IsSigner(account ed25519.PublicKey) bool {
	for _, signer := range s.signers {
		if bytes.Equal(signer, account) {
			return true
		}
	}
	return false
}

func (s *State) Logf(format string, args ...interface{}) {
	s.logs = append(s.logs, fmt.Sprintf(format, args...))
}

// Consume charges compute units to the transaction.
func (s *State) Consume(units uint64) {
	s.units += units
}

// Rent returns the rent exempt balance for an account of size bytes.
func (s *State) Rent(size uint64) uint64 {
	return rentExemption(size)
}

// CreateAccount moves lamports from funder into a new account. It fails with
// the system program's AccountAlreadyInUse error if the address is taken.
func (s *State) CreateAccount(funder, address, owner ed25519.PublicKey, lamports uint64, data []byte) error {
	if s.Exists(address) {
		s.Logf("Create Account: account Address { address: %s, base: None } already in use", base58.Encode(address))
		return solana.SystemErrorAccountAlreadyInUse
	}

	funding, ok := s.Get(funder)
	if !ok || funding.Lamports < lamports {
		return solana.CustomError(systemErrorResultWithNegativeLamports)
	}
	funding.Lamports -= lamports
	s.Put(funder, funding)

	s.Put(address, solana.AccountInfo{
		Data:     data,
		Owner:    owner,
		Lamports: lamports,
	})
	return nil
}

func (s *State) commit(accounts map[string]solana.AccountInfo) {
	for key, info := range s.writes {
		accounts[key] = info
	}
}

// Solana's default rent parameters.
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

func rentExemption(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThreshold
}
