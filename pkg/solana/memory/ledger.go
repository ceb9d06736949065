// Package memory is an in-process ledger implementing solana.Client. It runs
// transactions atomically against registered program simulations so that
// issuance can be exercised end to end without a validator.
package memory

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/ownership-nft/pkg/solana"
	compute_budget "github.com/code-payments/ownership-nft/pkg/solana/computebudget"
	"github.com/code-payments/ownership-nft/pkg/solana/system"
)

const (
	// BlockhashValidity is the number of blocks a blockhash is accepted for.
	BlockhashValidity = 150

	LamportsPerSignature = 5000

	defaultUnitsPerInstruction = 200_000
)

// Ledger is safe for concurrent use.
type Ledger struct {
	log *logrus.Entry

	mu          sync.Mutex
	accounts    map[string]solana.AccountInfo
	programs    map[string]Program
	blockHeight uint64
	latest      solana.Blockhash
	blockhashes map[solana.Blockhash]uint64
	statuses    map[solana.Signature]*status

	confirmationPolls int
	dropSubmissions   bool
	loseResponses     bool
	submissions       int
}

type status struct {
	slot  uint64
	err   *solana.TransactionError
	polls int
}

// New returns a ledger with the system and compute budget programs
// registered, at block height 1.
func New() *Ledger {
	l := &Ledger{
		log:         logrus.StandardLogger().WithField("type", "solana/memory"),
		accounts:    make(map[string]solana.AccountInfo),
		programs:    make(map[string]Program),
		blockhashes: make(map[solana.Blockhash]uint64),
		statuses:    make(map[solana.Signature]*status),
	}

	l.RegisterProgram(system.ProgramKey[:], SystemProgram())
	l.RegisterProgram(compute_budget.ProgramKey, ProgramFunc(func(state *State, _ solana.Instruction) error {
		state.Consume(computeBudgetUnits)
		return nil
	}))

	l.Advance(1)
	return l
}

// RegisterProgram routes instructions for program to p.
func (l *Ledger) RegisterProgram(program ed25519.PublicKey, p Program) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.programs[string(program)] = p
	l.accounts[string(program)] = solana.AccountInfo{
		Owner:      make(ed25519.PublicKey, ed25519.PublicKeySize),
		Executable: true,
		Lamports:   1,
	}
}

// Airdrop credits lamports to an account, creating a system account if needed.
func (l *Ledger) Airdrop(account ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.accounts[string(account)]
	if !ok {
		info.Owner = system.ProgramKey[:]
	}
	info.Lamports += lamports
	l.accounts[string(account)] = info
}

// SetAccount overwrites an account, for tests that tamper with state.
func (l *Ledger) SetAccount(account ed25519.PublicKey, info solana.AccountInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[string(account)] = info
}

// Advance produces n blocks, each with a new blockhash.
func (l *Ledger) Advance(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := uint64(0); i < n; i++ {
		l.blockHeight++

		var seed [8]byte
		binary.LittleEndian.PutUint64(seed[:], l.blockHeight)
		l.latest = sha256.Sum256(append(seed[:], l.latest[:]...))
		l.blockhashes[l.latest] = l.blockHeight + BlockhashValidity
	}
}

// SetConfirmationPolls sets how many status polls a landed transaction
// reports as processed before it is finalized.
func (l *Ledger) SetConfirmationPolls(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.confirmationPolls = n
}

// DropSubmissions makes SubmitTransaction accept transactions without ever
// executing them.
func (l *Ledger) DropSubmissions(drop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dropSubmissions = drop
}

// LoseResponses makes SubmitTransaction handle transactions as usual but fail
// as if the response never arrived.
func (l *Ledger) LoseResponses(lose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loseResponses = lose
}

// Submissions returns the number of SubmitTransaction calls.
func (l *Ledger) Submissions() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.submissions
}

func (l *Ledger) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return solana.AccountInfo{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.accounts[string(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	info.Data = append([]byte{}, info.Data...)
	return info, nil
}

func (l *Ledger) GetBlockHeight(ctx context.Context, _ solana.Commitment) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.blockHeight, nil
}

func (l *Ledger) GetLatestBlockhash(ctx context.Context, _ solana.Commitment) (solana.LatestBlockhash, error) {
	if err := ctx.Err(); err != nil {
		return solana.LatestBlockhash{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return solana.LatestBlockhash{
		Blockhash:            l.latest,
		LastValidBlockHeight: l.blockhashes[l.latest],
	}, nil
}

func (l *Ledger) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return rentExemption(size), nil
}

func (l *Ledger) GetSignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		s, ok := l.statuses[sig]
		if !ok {
			continue
		}

		result := &solana.SignatureStatus{
			Slot:        s.slot,
			ErrorResult: s.err,
		}
		if s.polls < l.confirmationPolls {
			confirmations := 0
			result.Confirmations = &confirmations
			result.ConfirmationStatus = "processed"
		} else {
			result.ConfirmationStatus = "finalized"
		}
		s.polls++

		statuses[i] = result
	}
	return statuses, nil
}

func (l *Ledger) SimulateTransaction(ctx context.Context, txn solana.Transaction, _ solana.Commitment) (*solana.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, txErr := l.execute(txn)
	result := &solana.SimulationResult{Err: txErr}
	if state != nil {
		result.Logs = state.logs
		result.UnitsConsumed = state.units
	}
	return result, nil
}

// SubmitTransaction mirrors sendTransaction: preflight failures are returned
// as *solana.TransactionError and nothing is recorded; otherwise the
// transaction executes and its outcome is reported by GetSignatureStatuses.
func (l *Ledger) SubmitTransaction(ctx context.Context, txn solana.Transaction, opts solana.SubmitOptions) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.submissions++

	if len(txn.Signatures) == 0 {
		return solana.Signature{}, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	sig := txn.ID()

	if l.dropSubmissions {
		l.log.WithField("signature", sig.String()).Debug("dropping submission")
		return l.sendResult(sig)
	}

	if !opts.SkipPreflight {
		if _, txErr := l.execute(txn); txErr != nil {
			return solana.Signature{}, txErr
		}
	}

	state, txErr := l.execute(txn)
	if state == nil {
		// Rejected before execution. Nothing lands.
		return solana.Signature{}, txErr
	}

	// The fee is charged even when execution fails.
	if txErr == nil {
		state.commit(l.accounts)
	} else {
		l.chargeFee(txn)
	}
	l.statuses[sig] = &status{slot: l.blockHeight, err: txErr}

	l.log.WithFields(logrus.Fields{
		"signature": sig.String(),
		"success":   txErr == nil,
	}).Debug("transaction executed")

	return l.sendResult(sig)
}

func (l *Ledger) sendResult(sig solana.Signature) (solana.Signature, error) {
	if l.loseResponses {
		return sig, errors.Wrap(solana.ErrUnknownSendOutcome, "response lost")
	}
	return sig, nil
}

// execute runs txn against a buffered view of the ledger. A nil state means
// the transaction was rejected before any instruction ran.
func (l *Ledger) execute(txn solana.Transaction) (*State, *solana.TransactionError) {
	if len(txn.Signatures) != int(txn.Message.Header.NumSignatures) || !txn.VerifySignatures() {
		return nil, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	lastValid, ok := l.blockhashes[txn.Message.RecentBlockhash]
	if !ok || l.blockHeight > lastValid {
		return nil, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	if _, ok := l.statuses[txn.ID()]; ok {
		return nil, solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed)
	}

	payer, ok := l.accounts[string(txn.FeePayer())]
	if !ok {
		return nil, solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	}
	if payer.Lamports < l.fee(txn) {
		return nil, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	limit, err := l.computeUnitLimit(txn)
	if err != nil {
		return nil, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	state := newState(l.accounts, txn.RequiredSigners())
	state.Put(txn.FeePayer(), solana.AccountInfo{
		Data:     payer.Data,
		Owner:    payer.Owner,
		Lamports: payer.Lamports - l.fee(txn),
	})

	for i := range txn.Message.Instructions {
		ix, err := txn.Message.Decompile(i)
		if err != nil {
			return state, solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
		}

		program, ok := l.programs[string(ix.Program)]
		if !ok {
			return state, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}

		if err := program.Execute(state, ix); err != nil {
			state.Logf("Program %s failed: %v", base58.Encode(ix.Program), err)
			return state, solana.NewInstructionError(i, err)
		}

		if state.units > limit {
			state.Logf("Program %s failed: exceeded CUs meter at BPF instruction", base58.Encode(ix.Program))
			return state, solana.NewInstructionError(i, errors.New(string(solana.InstructionErrorComputationalBudget)))
		}
	}

	return state, nil
}

func (l *Ledger) computeUnitLimit(txn solana.Transaction) (uint64, error) {
	var nonBudget uint64
	var explicit *uint32

	for i := range txn.Message.Instructions {
		ix, err := txn.Message.Decompile(i)
		if err != nil {
			return 0, err
		}

		if !compute_budget.IsComputeBudgetInstruction(ix) {
			nonBudget++
			continue
		}

		if limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(ix.Data); err == nil {
			explicit = &limit
		}
	}

	if explicit != nil {
		return uint64(*explicit), nil
	}

	limit := nonBudget * defaultUnitsPerInstruction
	if limit > compute_budget.MaxComputeUnitLimit {
		limit = compute_budget.MaxComputeUnitLimit
	}
	return limit, nil
}

func (l *Ledger) fee(txn solana.Transaction) uint64 {
	return uint64(txn.Message.Header.NumSignatures) * LamportsPerSignature
}

func (l *Ledger) chargeFee(txn solana.Transaction) {
	payer := l.accounts[string(txn.FeePayer())]
	payer.Lamports -= l.fee(txn)
	l.accounts[string(txn.FeePayer())] = payer
}
