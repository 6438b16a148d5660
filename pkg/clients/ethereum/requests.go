package ethereum

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type TransactionReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
	GasUsed         string `json:"gasUsed"`
}

func (r *TransactionReceipt) Succeeded() bool {
	return r.Status == "0x1"
}

func (r *TransactionReceipt) BlockNumberUint64() uint64 {
	n, err := hexutil.DecodeUint64(r.BlockNumber)
	if err != nil {
		return 0
	}
	return n
}

// EstimateGasCall is the call object for eth_estimateGas. Fields are hex
// encoded the way the node expects them on the wire.
type EstimateGasCall struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
}

func GetBlockNumberRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_blockNumber",
		Params:  []any{},
		ID:      id,
	}
}

func GetTransactionCountRequest(address string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_getTransactionCount",
		Params:  []any{address, "pending"},
		ID:      id,
	}
}

func GasPriceRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_gasPrice",
		Params:  []any{},
		ID:      id,
	}
}

func EstimateGasRequest(call *EstimateGasCall, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_estimateGas",
		Params:  []any{call},
		ID:      id,
	}
}

func SendRawTransactionRequest(signedTxHex string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_sendRawTransaction",
		Params:  []any{signedTxHex},
		ID:      id,
	}
}

func GetTransactionReceiptRequest(txHash string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  "eth_getTransactionReceipt",
		Params:  []any{txHash},
		ID:      id,
	}
}
