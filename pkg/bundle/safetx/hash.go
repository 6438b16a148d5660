package safetx

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/odcpw/berabundle-sub001/pkg/bundle"
)

// Typehashes per the structured-data signing scheme the Safe contracts verify.
var (
	domainSeparatorTypehash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"),
	)
	safeTxTypehash = crypto.Keccak256Hash(
		[]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"),
	)
)

var (
	uint256Type = mustNewType("uint256")
	uint8Type   = mustNewType("uint8")
	addressType = mustNewType("address")
	bytes32Type = mustNewType("bytes32")
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type '%s': %v", t, err))
	}
	return typ
}

// ComputeTransactionHash derives the domain-separated hash the multisig
// owners sign. It is reproducible offline and doubles as the cross-check for
// hashes the coordination service reports back.
func ComputeTransactionHash(verifyingContract string, chainId uint64, tx *bundle.SafeTransaction) (common.Hash, error) {
	if !common.IsHexAddress(verifyingContract) {
		return common.Hash{}, fmt.Errorf("invalid verifying contract address '%s'", verifyingContract)
	}
	if !common.IsHexAddress(tx.To) {
		return common.Hash{}, fmt.Errorf("invalid transaction target address '%s'", tx.To)
	}

	domainHash, err := computeDomainHash(verifyingContract, chainId)
	if err != nil {
		return common.Hash{}, err
	}

	structHash, err := computeStructHash(tx)
	if err != nil {
		return common.Hash{}, err
	}

	encoded := make([]byte, 0, 2+32+32)
	encoded = append(encoded, 0x19, 0x01)
	encoded = append(encoded, domainHash.Bytes()...)
	encoded = append(encoded, structHash.Bytes()...)

	return crypto.Keccak256Hash(encoded), nil
}

func computeDomainHash(verifyingContract string, chainId uint64) (common.Hash, error) {
	args := abi.Arguments{
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: addressType},
	}
	encoded, err := args.Pack(
		domainSeparatorTypehash,
		new(big.Int).SetUint64(chainId),
		common.HexToAddress(verifyingContract),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode domain: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

func computeStructHash(tx *bundle.SafeTransaction) (common.Hash, error) {
	value := tx.Value
	if value == nil {
		value = big.NewInt(0)
	}
	gasPrice := tx.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	gasToken := tx.GasToken
	if gasToken == "" {
		gasToken = common.Address{}.Hex()
	}
	refundReceiver := tx.RefundReceiver
	if refundReceiver == "" {
		refundReceiver = common.Address{}.Hex()
	}

	args := abi.Arguments{
		{Type: bytes32Type},
		{Type: addressType},
		{Type: uint256Type},
		{Type: bytes32Type},
		{Type: uint8Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: addressType},
		{Type: addressType},
		{Type: uint256Type},
	}
	encoded, err := args.Pack(
		safeTxTypehash,
		common.HexToAddress(tx.To),
		value,
		crypto.Keccak256Hash(tx.Data),
		uint8(tx.Operation),
		new(big.Int).SetUint64(tx.SafeTxGas),
		new(big.Int).SetUint64(tx.BaseGas),
		gasPrice,
		common.HexToAddress(gasToken),
		common.HexToAddress(refundReceiver),
		new(big.Int).SetUint64(tx.Nonce),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode transaction struct: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
