package bundle

import (
	"math/big"
)

type OperationKind uint8

const (
	OperationKind_Call OperationKind = 0
	// Delegate-call exists in the batched-execution contract but is never
	// used for batched reward sends.
	OperationKind_DelegateCall OperationKind = 1
)

// BundleOperation is one call within an atomically-executed bundle.
type BundleOperation struct {
	To        string
	Value     *big.Int
	Data      []byte
	Operation OperationKind
}

// SafeTransaction is the unsigned transaction description submitted for
// multisig coordination. GasToken and RefundReceiver default to the zero
// address; Nonce is always fetched fresh from the coordination service
// immediately before hashing.
type SafeTransaction struct {
	To             string
	Value          *big.Int
	Data           []byte
	Operation      OperationKind
	SafeTxGas      uint64
	BaseGas        uint64
	GasPrice       *big.Int
	GasToken       string
	RefundReceiver string
	Nonce          uint64
}

// ProposalResult is the terminal value returned to the caller of a proposal
// or direct send.
type ProposalResult struct {
	Success        bool
	SafeTxHash     string
	TransactionUrl string
	Error          string
}

// BundleFormat is the tagged union of bundle shapes accepted at the boundary:
// either a plain list of operations for direct EOA execution, or a Safe
// submission with its target multisig. Resolved once, never shape-sniffed
// downstream.
type BundleFormat struct {
	eoa  []*BundleOperation
	safe *SafeBundleData
}

type SafeBundleData struct {
	SafeAddress string
	Operations  []*BundleOperation
}

func EoaList(ops []*BundleOperation) BundleFormat {
	return BundleFormat{eoa: ops}
}

func SafeFormat(data *SafeBundleData) BundleFormat {
	return BundleFormat{safe: data}
}

func (f BundleFormat) AsEoaList() ([]*BundleOperation, bool) {
	if f.eoa == nil {
		return nil, false
	}
	return f.eoa, true
}

func (f BundleFormat) AsSafeFormat() (*SafeBundleData, bool) {
	if f.safe == nil {
		return nil, false
	}
	return f.safe, true
}
