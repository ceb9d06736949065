package solana

import (
	"bytes"
	"crypto/ed25519"
	"sort"
)

// account is a merged entry of the message account table.
type account struct {
	key      ed25519.PublicKey
	signer   bool
	writable bool
	payer    bool
	program  bool
}

// rank orders accounts as the runtime expects: fee payer, writable signers,
// read-only signers, writable accounts, read-only accounts, then programs.
// A program that is also requested as a signer or writable keeps that class.
func (a account) rank() int {
	switch {
	case a.payer:
		return 0
	case a.signer && a.writable:
		return 1
	case a.signer:
		return 2
	case a.writable:
		return 3
	case a.program:
		return 5
	default:
		return 4
	}
}

// compileAccounts merges every account referenced by the instructions,
// granting each the union of its requested access, and orders the result.
// Ties within a class are broken by key.
//
// Reference: https://docs.solana.com/developing/programming-model/transactions#account-addresses-format
func compileAccounts(payer ed25519.PublicKey, instructions []Instruction) []account {
	var accounts []account
	seen := make(map[string]int)

	add := func(next account) {
		if next.key == nil {
			next.key = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}

		i, ok := seen[string(next.key)]
		if !ok {
			seen[string(next.key)] = len(accounts)
			accounts = append(accounts, next)
			return
		}

		existing := &accounts[i]
		existing.signer = existing.signer || next.signer
		existing.writable = existing.writable || next.writable
		existing.payer = existing.payer || next.payer
	}

	add(account{key: payer, signer: true, writable: true, payer: true})
	for _, ix := range instructions {
		add(account{key: ix.Program, program: true})
		for _, meta := range ix.Accounts {
			add(account{key: meta.PublicKey, signer: meta.IsSigner, writable: meta.IsWritable})
		}
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if ri, rj := accounts[i].rank(), accounts[j].rank(); ri != rj {
			return ri < rj
		}
		return bytes.Compare(accounts[i].key, accounts[j].key) < 0
	})
	return accounts
}

// compileMessage builds the account table, header and compiled instructions.
func compileMessage(payer ed25519.PublicKey, instructions []Instruction) Message {
	var m Message

	for _, a := range compileAccounts(payer, instructions) {
		m.Accounts = append(m.Accounts, a.key)

		switch {
		case a.signer:
			m.Header.NumSignatures++
			if !a.writable {
				m.Header.NumReadonlySigned++
			}
		case !a.writable:
			m.Header.NumReadOnly++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOfKey(m.Accounts, ix.Program)),
			Data:         ix.Data,
		}
		for _, meta := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, byte(indexOfKey(m.Accounts, meta.PublicKey)))
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	return m
}

// indexOfKey is indexOf with nil keys resolved to the zero key that
// compileAccounts substitutes for them.
func indexOfKey(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	if key == nil {
		key = make(ed25519.PublicKey, ed25519.PublicKeySize)
	}
	return indexOf(keys, key)
}
