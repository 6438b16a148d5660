package safetx

import (
	"math/big"
	"strings"
	"testing"

	"github.com/odcpw/berabundle-sub001/pkg/bundle"
	"github.com/stretchr/testify/assert"
)

const (
	testSafe   = "0x5afe5afe5afe5afe5afe5afe5afe5afe5afe5afe"
	testTarget = "0x40a2accbd92bca938b02010e17a5b8929b49130d"
)

func baseTransaction() *bundle.SafeTransaction {
	return &bundle.SafeTransaction{
		To:        testTarget,
		Value:     big.NewInt(0),
		Data:      []byte{0x8d, 0x80, 0xff, 0x0a},
		Operation: bundle.OperationKind_Call,
		Nonce:     14,
	}
}

func Test_ComputeTransactionHash(t *testing.T) {
	t.Run("Test that hashing is deterministic", func(t *testing.T) {
		first, err := ComputeTransactionHash(testSafe, 80094, baseTransaction())
		assert.Nil(t, err)

		second, err := ComputeTransactionHash(testSafe, 80094, baseTransaction())
		assert.Nil(t, err)

		assert.Equal(t, first, second)
		assert.True(t, strings.HasPrefix(first.Hex(), "0x"))
		assert.Equal(t, 66, len(first.Hex()))
	})
	t.Run("Test that every signed field contributes to the hash", func(t *testing.T) {
		base, err := ComputeTransactionHash(testSafe, 80094, baseTransaction())
		assert.Nil(t, err)

		bumpedNonce := baseTransaction()
		bumpedNonce.Nonce = 15
		withNonce, err := ComputeTransactionHash(testSafe, 80094, bumpedNonce)
		assert.Nil(t, err)
		assert.NotEqual(t, base, withNonce)

		bumpedValue := baseTransaction()
		bumpedValue.Value = big.NewInt(1)
		withValue, err := ComputeTransactionHash(testSafe, 80094, bumpedValue)
		assert.Nil(t, err)
		assert.NotEqual(t, base, withValue)

		differentData := baseTransaction()
		differentData.Data = []byte{0x01}
		withData, err := ComputeTransactionHash(testSafe, 80094, differentData)
		assert.Nil(t, err)
		assert.NotEqual(t, base, withData)

		delegated := baseTransaction()
		delegated.Operation = bundle.OperationKind_DelegateCall
		withOperation, err := ComputeTransactionHash(testSafe, 80094, delegated)
		assert.Nil(t, err)
		assert.NotEqual(t, base, withOperation)
	})
	t.Run("Test that the domain binds chain id and verifying contract", func(t *testing.T) {
		mainnet, err := ComputeTransactionHash(testSafe, 80094, baseTransaction())
		assert.Nil(t, err)

		bepolia, err := ComputeTransactionHash(testSafe, 80069, baseTransaction())
		assert.Nil(t, err)
		assert.NotEqual(t, mainnet, bepolia)

		otherSafe, err := ComputeTransactionHash(testTarget, 80094, baseTransaction())
		assert.Nil(t, err)
		assert.NotEqual(t, mainnet, otherSafe)
	})
	t.Run("Test that nil value and empty gas fields default to zero", func(t *testing.T) {
		sparse := baseTransaction()
		sparse.Value = nil
		sparse.GasPrice = nil
		sparse.GasToken = ""
		sparse.RefundReceiver = ""

		explicit := baseTransaction()
		explicit.Value = big.NewInt(0)
		explicit.GasPrice = big.NewInt(0)
		explicit.GasToken = "0x0000000000000000000000000000000000000000"
		explicit.RefundReceiver = "0x0000000000000000000000000000000000000000"

		sparseHash, err := ComputeTransactionHash(testSafe, 80094, sparse)
		assert.Nil(t, err)

		explicitHash, err := ComputeTransactionHash(testSafe, 80094, explicit)
		assert.Nil(t, err)

		assert.Equal(t, explicitHash, sparseHash)
	})
	t.Run("Test that invalid addresses are rejected", func(t *testing.T) {
		_, err := ComputeTransactionHash("not-an-address", 80094, baseTransaction())
		assert.NotNil(t, err)

		badTarget := baseTransaction()
		badTarget.To = "0x123"
		_, err = ComputeTransactionHash(testSafe, 80094, badTarget)
		assert.NotNil(t, err)
	})
}
