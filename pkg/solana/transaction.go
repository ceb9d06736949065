package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrSignerNotRequired = errors.New("signer is not required by the transaction")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy Solana message. Address lookup tables are not used by
// anything in this module, so only the legacy format is supported.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into an unsigned legacy
// transaction paid for by payer. Instruction order is preserved.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	m := compileMessage(payer, instructions)
	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// Signature returns the first signature, which is the fee payer's and
// identifies the transaction on chain.
func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

// ID returns the fee payer signature as a Signature value.
func (t *Transaction) ID() Signature {
	return t.Signatures[0]
}

// FeePayer returns the first account in the message.
func (t *Transaction) FeePayer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// RequiredSigners returns the accounts that must provide a signature, in
// signature slot order.
func (t *Transaction) RequiredSigners() []ed25519.PublicKey {
	n := int(t.Message.Header.NumSignatures)
	if n > len(t.Message.Accounts) {
		n = len(t.Message.Accounts)
	}
	return t.Message.Accounts[:n]
}

// IsSignedBy reports whether a non-zero signature is present for the account.
func (t *Transaction) IsSignedBy(pub ed25519.PublicKey) bool {
	index := indexOf(t.Message.Accounts, pub)
	if index < 0 || index >= len(t.Signatures) {
		return false
	}
	return t.Signatures[index] != (Signature{})
}

// MissingSigners returns the required signers that have not yet signed.
func (t *Transaction) MissingSigners() []ed25519.PublicKey {
	var missing []ed25519.PublicKey
	for i, pub := range t.RequiredSigners() {
		if t.Signatures[i] == (Signature{}) {
			missing = append(missing, pub)
		}
	}
	return missing
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, base58.Encode(s[:])))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("    NumReadOnlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString(fmt.Sprintf("  RecentBlockhash: %s\n", t.Message.RecentBlockhash))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", t.Message.Instructions[i].ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", t.Message.Instructions[i].Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", t.Message.Instructions[i].Data))
	}
	return sb.String()
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the message with each of the provided keys. Every key must be
// one of the transaction's required signers.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)

		var sig Signature
		copy(sig[:], ed25519.Sign(s, messageBytes))
		if err := t.AddSignature(pub, sig); err != nil {
			return err
		}
	}

	return nil
}

// AddSignature places an externally produced signature into the slot owned
// by pub. The signature is not verified.
func (t *Transaction) AddSignature(pub ed25519.PublicKey, sig Signature) error {
	index := indexOf(t.Message.Accounts, pub)
	if index < 0 {
		return errors.Wrapf(ErrSignerNotRequired, "signing account %s is not in the account list", base58.Encode(pub))
	}
	if index >= len(t.Signatures) {
		return errors.Wrapf(ErrSignerNotRequired, "signing account %s is not in the list of signers", base58.Encode(pub))
	}

	t.Signatures[index] = sig
	return nil
}

// VerifySignatures checks every present signature against the message bytes.
func (t *Transaction) VerifySignatures() bool {
	messageBytes := t.Message.Marshal()
	for i, pub := range t.RequiredSigners() {
		if !ed25519.Verify(pub, messageBytes, t.Signatures[i][:]) {
			return false
		}
	}
	return true
}

// Decompile reconstructs the instruction at index using the message's
// account table. Signer and writable flags are recovered from the header.
func (m Message) Decompile(index int) (Instruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return Instruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	c := m.Instructions[index]
	ix := Instruction{
		Program: m.Accounts[c.ProgramIndex],
		Data:    c.Data,
	}
	for _, accountIndex := range c.Accounts {
		ix.Accounts = append(ix.Accounts, AccountMeta{
			PublicKey:  m.Accounts[accountIndex],
			IsSigner:   m.isSigner(int(accountIndex)),
			IsWritable: m.isWritable(int(accountIndex)),
		})
	}
	return ix, nil
}

func (m Message) isSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

func (m Message) isWritable(index int) bool {
	numSigned := int(m.Header.NumSignatures)
	if index < numSigned {
		return index < numSigned-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
