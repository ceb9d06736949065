package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/ownership-nft/pkg/retry"
	"github.com/code-payments/ownership-nft/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L9
	rpcSendTransactionPreflightFailureCode = -32002
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString parses a commitment level name.
func CommitmentFromString(s string) (Commitment, error) {
	switch s {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	default:
		return Commitment{}, errors.Errorf("unknown commitment level: %q", s)
	}
}

var (
	ErrNoAccountInfo = errors.New("no account info")

	// ErrUnknownSendOutcome is returned by SubmitTransaction when the request
	// failed without a response from the node. The transaction may still land
	// and must be looked up by signature, not resent.
	ErrUnknownSendOutcome = errors.New("transaction send outcome unknown")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return s.Confirmations != nil && *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Satisfies reports whether the status has reached the commitment level.
func (s SignatureStatus) Satisfies(commitment Commitment) bool {
	switch commitment.Commitment {
	case confirmationStatusFinalized:
		return s.Finalized()
	case confirmationStatusConfirmed:
		return s.Confirmed()
	default:
		return true
	}
}

// LatestBlockhash is a recent blockhash along with the last block height at
// which transactions referencing it are still accepted.
type LatestBlockhash struct {
	Blockhash            Blockhash
	LastValidBlockHeight uint64
}

// SimulationResult is the outcome of a simulateTransaction call.
type SimulationResult struct {
	Err           *TransactionError
	Logs          []string
	UnitsConsumed uint64
}

// SubmitOptions controls sendTransaction.
type SubmitOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (LatestBlockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (lamports uint64, err error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error)
	SimulateTransaction(ctx context.Context, txn Transaction, commitment Commitment) (*SimulationResult, error)
	SubmitTransaction(ctx context.Context, txn Transaction, opts SubmitOptions) (Signature, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(500*time.Millisecond), 5*time.Second, 0.1),
		),
	}
}

// call sends a read request, retrying throttling and node-side failures.
func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.retrier.Retry(ctx, func() error {
		return c.callOnce(out, method, params...)
	})

	return err
}

// callOnce sends exactly one request.
func (c *client) callOnce(out interface{}, method string, params ...interface{}) error {
	err := c.client.CallFor(out, method, params...)
	if err == nil {
		return nil
	}

	return c.handleRpcError(method, err)
}

// handleRpcError maps throttling and node-side failures to the errors the
// retrier treats as transient. Everything else is returned as is.
func (c *client) handleRpcError(method string, err error) error {
	var code int
	switch typed := err.(type) {
	case *jsonrpc.HTTPError:
		code = typed.Code
	case *jsonrpc.RPCError:
		code = typed.Code
		if code == rpcNodeUnhealthyCode {
			return errServiceError
		}
	default:
		return err
	}

	switch {
	case code == 429:
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	case code >= 500:
		return errServiceError
	default:
		return err
	}
}

// requestConfig is the trailing config object accepted by the methods used
// here. Unset fields are omitted.
type requestConfig struct {
	Commitment          string `json:"commitment,omitempty"`
	Encoding            string `json:"encoding,omitempty"`
	SigVerify           bool   `json:"sigVerify,omitempty"`
	SkipPreflight       bool   `json:"skipPreflight,omitempty"`
	PreflightCommitment string `json:"preflightCommitment,omitempty"`
}

const base64Encoding = "base64"

func encodeTransaction(txn Transaction) string {
	return base64.StdEncoding.EncodeToString(txn.Marshal())
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (lamports uint64, err error) {
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrapf(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetBlockHeight(ctx context.Context, commitment Commitment) (height uint64, err error) {
	// note: the commitment has to be wrapped in an []interface{}, otherwise
	//       the RPC node rejects the params object.
	if err := c.call(ctx, &height, "getBlockHeight", []interface{}{commitment}); err != nil {
		return 0, errors.Wrapf(err, "getBlockHeight() failed to send request")
	}

	return height, nil
}

func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (LatestBlockhash, error) {
	type response struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}

	var resp response
	if err := c.call(ctx, &resp, "getLatestBlockhash", []interface{}{commitment}); err != nil {
		return LatestBlockhash{}, errors.Wrapf(err, "getLatestBlockhash() failed to send request")
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return LatestBlockhash{}, errors.Wrap(err, "invalid base58 encoded hash in response")
	}
	if len(hashBytes) != len(Blockhash{}) {
		return LatestBlockhash{}, errors.Errorf("invalid blockhash length: %d", len(hashBytes))
	}

	var latest LatestBlockhash
	copy(latest.Blockhash[:], hashBytes)
	latest.LastValidBlockHeight = resp.Value.LastValidBlockHeight
	return latest, nil
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := requestConfig{
		Commitment: commitment.Commitment,
		Encoding:   base64Encoding,
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) != 2 || resp.Value.Data[1] != base64Encoding {
		return accountInfo, errors.New("unexpected account data encoding")
	}
	accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base64 encoded account data")
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable
	return accountInfo, nil
}

func (c *client) SimulateTransaction(ctx context.Context, txn Transaction, commitment Commitment) (*SimulationResult, error) {
	type rpcResponse struct {
		Value struct {
			Err           json.RawMessage `json:"err"`
			Logs          []string        `json:"logs"`
			UnitsConsumed uint64          `json:"unitsConsumed"`
		} `json:"value"`
	}

	rpcConfig := requestConfig{
		Commitment: commitment.Commitment,
		Encoding:   base64Encoding,
		SigVerify:  true,
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "simulateTransaction", encodeTransaction(txn), rpcConfig); err != nil {
		return nil, errors.Wrap(err, "simulateTransaction() failed to send request")
	}

	txErr, err := parseRawTransactionError(resp.Value.Err)
	if err != nil {
		return nil, err
	}

	return &SimulationResult{
		Err:           txErr,
		Logs:          resp.Value.Logs,
		UnitsConsumed: resp.Value.UnitsConsumed,
	}, nil
}

// SubmitTransaction sends the transaction exactly once. When the node rejects
// it with a structured transaction error, that *TransactionError is returned.
// Transport failures and node-side errors wrap ErrUnknownSendOutcome. The
// signature is returned in every case.
func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, opts SubmitOptions) (Signature, error) {
	sig := txn.ID()

	preflight := opts.PreflightCommitment
	if preflight.Commitment == "" {
		preflight = CommitmentProcessed
	}

	config := requestConfig{
		Encoding:            base64Encoding,
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: preflight.Commitment,
	}

	if err := ctx.Err(); err != nil {
		return sig, err
	}

	var ignored string
	err := c.callOnce(&ignored, "sendTransaction", encodeTransaction(txn), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrapf(ErrUnknownSendOutcome, "sendTransaction() failed to send request: %v", err)
	}

	// Preflight failures carry the simulated transaction error.
	if rpcErr.Code == rpcSendTransactionPreflightFailureCode {
		if txErr, parseErr := ParseRPCError(rpcErr); parseErr == nil && txErr != nil {
			return sig, txErr
		}
	}

	return sig, rpcErr
}

func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = sigs[i].String()
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}

	type rpcResp struct {
		Value []*signatureStatus `json:"value"`
	}

	var resp rpcResp
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed to send request")
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		txErr, err := parseRawTransactionError(v.Err)
		if err != nil {
			return nil, err
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			ErrorResult:        txErr,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}
	}

	return statuses, nil
}

func parseRawTransactionError(raw json.RawMessage) (*TransactionError, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var decoded interface{}
	if err := decoder.Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "failed to parse transaction result")
	}

	parsed, err := ParseTransactionError(decoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse transaction result")
	}
	return parsed, nil
}
