package ethereum

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/odcpw/berabundle-sub001/internal/logger"
	"github.com/stretchr/testify/assert"
)

const rpcBaseUrl = "http://rpc.test:8545"

var testTxHash = "0x" + strings.Repeat("ef", 32)

func newTestClient() *Client {
	c := NewClient(DefaultEthereumClientConfig(rpcBaseUrl), logger.NewNoopLogger())
	c.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
	return c
}

func Test_EthereumClient(t *testing.T) {
	t.Run("Test that GetBlockNumber decodes the hex quantity", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": "0x10d4f"}`))

		blockNumber, err := newTestClient().GetBlockNumber(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(68943), blockNumber)
	})
	t.Run("Test that an rpc error response surfaces as an error", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32000, "message": "execution reverted"}}`))

		_, err := newTestClient().GetBlockNumber(context.Background())
		assert.NotNil(t, err)
	})
	t.Run("Test that an http error surfaces as an error", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(503, "unavailable"))

		_, err := newTestClient().GetBlockNumber(context.Background())
		assert.NotNil(t, err)
	})
	t.Run("Test that GetPendingNonce decodes the transaction count", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": "0x7"}`))

		nonce, err := newTestClient().GetPendingNonce(context.Background(), "0x0000000000000000000000000000000000000a01")
		assert.Nil(t, err)
		assert.Equal(t, uint64(7), nonce)
	})
	t.Run("Test that GetGasPrice decodes the hex quantity", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": "0x3b9aca00"}`))

		price, err := newTestClient().GetGasPrice(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(1000000000), price.Uint64())
	})
	t.Run("Test that EstimateGas sends the call object and decodes the estimate", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": "0x186a0"}`))

		gas, err := newTestClient().EstimateGas(context.Background(), &EstimateGasCall{
			From: "0x0000000000000000000000000000000000000a01",
			To:   "0x0000000000000000000000000000000000000a02",
			Data: "0x3d18b912",
		})
		assert.Nil(t, err)
		assert.Equal(t, uint64(100000), gas)
	})
	t.Run("Test that SendRawTransaction returns the transaction hash", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": "`+testTxHash+`"}`))

		txHash, err := newTestClient().SendRawTransaction(context.Background(), "0xdeadbeef")
		assert.Nil(t, err)
		assert.Equal(t, testTxHash, txHash)
	})
	t.Run("Test that a pending transaction yields a nil receipt, not an error", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": null}`))

		receipt, err := newTestClient().GetTransactionReceipt(context.Background(), testTxHash)
		assert.Nil(t, err)
		assert.Nil(t, receipt)
	})
	t.Run("Test that a mined receipt parses status and block number", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": {
				"transactionHash": "`+testTxHash+`",
				"blockNumber": "0x10d4f",
				"status": "0x1",
				"gasUsed": "0x5208"
			}}`))

		receipt, err := newTestClient().GetTransactionReceipt(context.Background(), testTxHash)
		assert.Nil(t, err)
		assert.True(t, receipt.Succeeded())
		assert.Equal(t, uint64(68943), receipt.BlockNumberUint64())
	})
	t.Run("Test that a reverted receipt reports failure", func(t *testing.T) {
		receipt := &TransactionReceipt{Status: "0x0"}
		assert.False(t, receipt.Succeeded())
	})
	t.Run("Test that WaitForReceipt stops when the context expires", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("POST", rpcBaseUrl,
			httpmock.NewStringResponder(200, `{"jsonrpc": "2.0", "id": 1, "result": null}`))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestClient().WaitForReceipt(ctx, testTxHash, 1)
		assert.NotNil(t, err)
	})
}
