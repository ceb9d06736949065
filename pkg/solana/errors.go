package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey names a transaction level failure, as rendered by the
// RPC "err" field.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorProgramAccountNotFound  TransactionErrorKey = "ProgramAccountNotFound"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorAlreadyProcessed        TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorInvalidAccountIndex     TransactionErrorKey = "InvalidAccountIndex"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
	TransactionErrorSanitizeFailure         TransactionErrorKey = "SanitizeFailure"
)

// InstructionErrorKey names an instruction level failure.
//
// Source: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
type InstructionErrorKey string

const (
	InstructionErrorInvalidArgument          InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData   InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData       InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInsufficientFunds        InstructionErrorKey = "InsufficientFunds"
	InstructionErrorMissingRequiredSignature InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorCustom                   InstructionErrorKey = "Custom"
	InstructionErrorComputationalBudget      InstructionErrorKey = "ComputationalBudgetExceeded"
)

// SystemErrorAccountAlreadyInUse is the custom code the system program
// returns when asked to create an account that already exists.
//
// Source: https://github.com/solana-labs/solana/blob/master/sdk/program/src/system_instruction.rs
const SystemErrorAccountAlreadyInUse CustomError = 0

// CustomError is a program defined error code.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// InstructionError is the failure of the instruction at Index.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch i.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(i.Err.Error())
	}
}

// CustomError returns the program error code, or nil if the failure was not
// program defined.
func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

// rawValue renders the error the way the RPC does, as the [index, error]
// tuple of an InstructionError entry.
func (i InstructionError) rawValue() interface{} {
	var detail interface{} = i.Err.Error()
	if ce, ok := i.Err.(CustomError); ok {
		detail = map[string]interface{}{string(InstructionErrorCustom): float64(ce)}
	}
	return []interface{}{float64(i.Index), detail}
}

func parseInstructionError(v interface{}) (InstructionError, error) {
	var e InstructionError

	tuple, ok := v.([]interface{})
	if !ok {
		return e, errors.New("unexpected instruction error format")
	}
	if len(tuple) != 2 {
		return e, errors.Errorf("expected 2 entries in InstructionError tuple, got %d", len(tuple))
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return e, err
	}
	e.Index = index

	switch detail := tuple[1].(type) {
	case string:
		e.Err = errors.New(detail)
	case map[string]interface{}:
		key, value, err := singleEntry(detail)
		if err != nil {
			e.Err = errors.New("unhandled InstructionError")
			return e, err
		}
		if key != string(InstructionErrorCustom) {
			e.Err = errors.New(key)
			break
		}

		code, err := parseJSONNumber(value)
		if err != nil {
			e.Err = errors.New("unhandled CustomError")
			break
		}
		e.Err = CustomError(code)
	}

	return e, nil
}

// TransactionError is a failed transaction, either at the transaction level
// or within one of its instructions.
type TransactionError struct {
	key              TransactionErrorKey
	instructionError *InstructionError
	raw              interface{}
}

// ParseRPCError extracts the transaction error carried by a failed
// sendTransaction or simulateTransaction call. Both return values are nil if
// the RPC error does not describe a transaction failure.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected map type")
	}

	if raw := data["err"]; raw != nil {
		return ParseTransactionError(raw)
	}
	return nil, nil
}

// ParseTransactionError parses the "err" field returned by several RPC
// methods. A non-nil TransactionError may accompany a parse error, in which
// case it describes the failure as unhandled.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		unhandled := &TransactionError{key: "unhandled transaction error", raw: raw}

		key, value, err := singleEntry(t)
		if err != nil {
			return unhandled, err
		}
		if key != string(TransactionErrorInstructionError) {
			return &TransactionError{key: TransactionErrorKey(key), raw: raw}, nil
		}

		instructionErr, err := parseInstructionError(value)
		if err != nil {
			return unhandled, errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{
			key:              TransactionErrorInstructionError,
			instructionError: &instructionErr,
			raw:              raw,
		}, nil
	default:
		return nil, errors.New("unhandled error type")
	}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: string(key)}
}

// NewInstructionError builds the transaction error reported when the
// instruction at index fails with err.
func NewInstructionError(index int, err error) *TransactionError {
	instructionErr := &InstructionError{Index: index, Err: err}
	return &TransactionError{
		key:              TransactionErrorInstructionError,
		instructionError: instructionErr,
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): instructionErr.rawValue(),
		},
	}
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

// JSONString encodes the error in its RPC form.
func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// IsAccountAlreadyInUse reports whether the instruction at index failed
// because an account it tried to create already exists.
func (t TransactionError) IsAccountAlreadyInUse(index int) bool {
	if t.instructionError == nil || t.instructionError.Index != index {
		return false
	}

	custom := t.instructionError.CustomError()
	return custom != nil && *custom == SystemErrorAccountAlreadyInUse
}

func singleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("expected a single entry, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value in InstructionError tuple: %v", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
	}
}
