package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var jsonRPCVersion = "2.0"

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type EthereumClientConfig struct {
	BaseUrl        string
	RequestTimeout time.Duration
}

func DefaultEthereumClientConfig(baseUrl string) *EthereumClientConfig {
	return &EthereumClientConfig{
		BaseUrl:        baseUrl,
		RequestTimeout: time.Second * 10,
	}
}

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = time.Second * 10
	}
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// GetEthereumContractCaller returns an ethclient suitable for bound contract
// reads against the same endpoint.
func (c *Client) GetEthereumContractCaller() (*ethclient.Client, error) {
	d, err := ethclient.Dial(c.clientConfig.BaseUrl)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to create new eth client", zap.Error(err))
		return nil, err
	}
	return d, nil
}

// Call performs a single JSON-RPC request. Retrying is the caller's concern;
// the scanner wraps individual calls with the retry executor.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.clientConfig.RequestTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("Failed to make request %s", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("Request failed %s", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read body %s", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s", err)
	}

	if destination.Error != nil {
		return nil, fmt.Errorf("received error response: %+v", destination.Error)
	}

	return destination, nil
}

func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetBlockNumberRequest(1))
	if err != nil {
		return 0, err
	}

	var blockNumber string
	if err := json.Unmarshal(res.Result, &blockNumber); err != nil {
		return 0, fmt.Errorf("failed to unmarshal block number: %s", err)
	}
	return hexutil.DecodeUint64(blockNumber)
}

// GetPendingNonce returns the account's next nonce, counting transactions
// still in the mempool.
func (c *Client) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	res, err := c.Call(ctx, GetTransactionCountRequest(address, 1))
	if err != nil {
		return 0, err
	}

	var nonce string
	if err := json.Unmarshal(res.Result, &nonce); err != nil {
		return 0, fmt.Errorf("failed to unmarshal transaction count: %s", err)
	}
	return hexutil.DecodeUint64(nonce)
}

func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	res, err := c.Call(ctx, GasPriceRequest(1))
	if err != nil {
		return nil, err
	}

	var price string
	if err := json.Unmarshal(res.Result, &price); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gas price: %s", err)
	}
	return hexutil.DecodeBig(price)
}

func (c *Client) EstimateGas(ctx context.Context, call *EstimateGasCall) (uint64, error) {
	res, err := c.Call(ctx, EstimateGasRequest(call, 1))
	if err != nil {
		return 0, err
	}

	var gas string
	if err := json.Unmarshal(res.Result, &gas); err != nil {
		return 0, fmt.Errorf("failed to unmarshal gas estimate: %s", err)
	}
	return hexutil.DecodeUint64(gas)
}

// SendRawTransaction broadcasts an already-signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, signedTxHex string) (string, error) {
	res, err := c.Call(ctx, SendRawTransactionRequest(signedTxHex, 1))
	if err != nil {
		return "", err
	}

	var txHash string
	if err := json.Unmarshal(res.Result, &txHash); err != nil {
		return "", fmt.Errorf("failed to unmarshal transaction hash: %s", err)
	}
	return txHash, nil
}

func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error) {
	res, err := c.Call(ctx, GetTransactionReceiptRequest(txHash, 1))
	if err != nil {
		return nil, err
	}

	if bytes.Equal(res.Result, []byte("null")) {
		return nil, nil
	}

	receipt := &TransactionReceipt{}
	if err := json.Unmarshal(res.Result, receipt); err != nil {
		c.Logger.Sugar().Errorw("failed to parse transaction receipt",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	return receipt, nil
}

// WaitForReceipt polls for the receipt of txHash until it lands or ctx expires.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, pollInterval time.Duration) (*TransactionReceipt, error) {
	if pollInterval == 0 {
		pollInterval = time.Second * 2
	}
	for {
		receipt, err := c.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			c.Logger.Sugar().Debugw("receipt not yet available",
				zap.String("txHash", txHash),
				zap.Error(err),
			)
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
