package solana

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/ownership-nft/pkg/solana/shortvec"
)

// Marshal encodes the transaction in the Solana wire format: a compact array
// of signatures followed by the message.
func (t Transaction) Marshal() []byte {
	var w wireWriter
	w.len(len(t.Signatures))
	for _, s := range t.Signatures {
		w.raw(s[:])
	}
	w.raw(t.Message.Marshal())
	return w.Bytes()
}

// Unmarshal decodes a legacy transaction produced by Marshal.
func (t *Transaction) Unmarshal(b []byte) error {
	r := newWireReader(b)

	count, err := r.len("signature count")
	if err != nil {
		return err
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := r.fill(t.Signatures[i][:], "signature %d", i); err != nil {
			return err
		}
	}

	return t.Message.Unmarshal(r.rest())
}

// Marshal encodes the message bytes that every signer signs over.
func (m Message) Marshal() []byte {
	var w wireWriter

	w.raw([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	w.len(len(m.Accounts))
	for _, a := range m.Accounts {
		w.raw(a)
	}

	w.raw(m.RecentBlockhash[:])

	w.len(len(m.Instructions))
	for _, ix := range m.Instructions {
		w.raw([]byte{ix.ProgramIndex})
		w.bytes(ix.Accounts)
		w.bytes(ix.Data)
	}

	return w.Bytes()
}

// Unmarshal decodes a legacy message. Versioned messages are rejected, as are
// instructions that index past the account table.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := newWireReader(b)

	var header [3]byte
	if err := r.fill(header[:], "message header"); err != nil {
		return err
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	count, err := r.len("account count")
	if err != nil {
		return err
	}
	m.Accounts = make([]ed25519.PublicKey, count)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if err := r.fill(m.Accounts[i], "account %d", i); err != nil {
			return err
		}
	}

	if err := r.fill(m.RecentBlockhash[:], "recent blockhash"); err != nil {
		return err
	}

	count, err = r.len("instruction count")
	if err != nil {
		return err
	}
	m.Instructions = make([]CompiledInstruction, count)
	for i := range m.Instructions {
		ix, err := r.instruction(i, len(m.Accounts))
		if err != nil {
			return err
		}
		m.Instructions[i] = ix
	}

	return nil
}

type wireWriter struct {
	bytes.Buffer
}

func (w *wireWriter) len(n int) {
	_, _ = shortvec.EncodeLen(&w.Buffer, n)
}

func (w *wireWriter) raw(b []byte) {
	_, _ = w.Write(b)
}

// bytes writes a compact array of b.
func (w *wireWriter) bytes(b []byte) {
	w.len(len(b))
	w.raw(b)
}

type wireReader struct {
	buf *bytes.Buffer
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{buf: bytes.NewBuffer(b)}
}

func (r *wireReader) len(what string) (int, error) {
	n, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", what)
	}
	return n, nil
}

func (r *wireReader) fill(dst []byte, format string, args ...interface{}) error {
	if _, err := io.ReadFull(r.buf, dst); err != nil {
		return errors.Wrapf(err, "failed to read "+format, args...)
	}
	return nil
}

// bytes reads a compact array of bytes.
func (r *wireReader) bytes(format string, args ...interface{}) ([]byte, error) {
	n, err := r.len(fmt.Sprintf(format, args...) + " length")
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := r.fill(b, format, args...); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *wireReader) instruction(index, numAccounts int) (CompiledInstruction, error) {
	var ix CompiledInstruction

	program, err := r.buf.ReadByte()
	if err != nil {
		return ix, errors.Wrapf(err, "failed to read instruction[%d] program index", index)
	}
	if int(program) >= numAccounts {
		return ix, errors.Errorf("program index out of range: %d:%d", index, program)
	}
	ix.ProgramIndex = program

	if ix.Accounts, err = r.bytes("instruction[%d] accounts", index); err != nil {
		return ix, err
	}
	for _, account := range ix.Accounts {
		if int(account) >= numAccounts {
			return ix, errors.Errorf("account index out of range: %d:%d", index, account)
		}
	}

	if ix.Data, err = r.bytes("instruction[%d] data", index); err != nil {
		return ix, err
	}

	return ix, nil
}

func (r *wireReader) rest() []byte {
	return r.buf.Bytes()
}
