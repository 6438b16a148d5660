package bundle

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/odcpw/berabundle-sub001/pkg/utils"
)

// claimCallEncoder produces the calldata for a source kind's claim invocation.
type claimCallEncoder func(record *rewards.RewardRecord) []byte

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// Claim calls are zero-argument on every supported source kind; the dispatch
// table keeps kind-specific encoding in one place.
var claimEncoders = map[rewards.SourceKind]claimCallEncoder{
	rewards.SourceKind_Vault: func(r *rewards.RewardRecord) []byte {
		return selector("getReward()")
	},
	rewards.SourceKind_FeeStaker: func(r *rewards.RewardRecord) []byte {
		return selector("getReward()")
	},
	rewards.SourceKind_ValidatorBoost: func(r *rewards.RewardRecord) []byte {
		return selector("claimBoostRewards()")
	},
}

// BuildClaimOperations converts selected records into one operation per
// record, preserving order. Callers needing a specific settlement order must
// pre-sort records.
func BuildClaimOperations(records []*rewards.RewardRecord) ([]*BundleOperation, error) {
	operations := make([]*BundleOperation, 0, len(records))
	for _, record := range records {
		if !utils.IsValidAddress(record.SourceAddress) {
			return nil, fmt.Errorf("record '%s' has invalid source address '%s'", record.Id, record.SourceAddress)
		}
		encoder, ok := claimEncoders[record.Kind]
		if !ok {
			return nil, fmt.Errorf("no claim encoder for source kind '%s'", record.Kind)
		}
		operations = append(operations, &BundleOperation{
			To:        record.SourceAddress,
			Value:     big.NewInt(0),
			Data:      encoder(record),
			Operation: OperationKind_Call,
		})
	}
	return operations, nil
}

// BuildApproveOperation encodes an ERC-20 approve, used when a bundle also
// contains swaps that spend a claimed token.
func BuildApproveOperation(token string, spender string, amount *big.Int) (*BundleOperation, error) {
	if !utils.IsValidAddress(token) {
		return nil, fmt.Errorf("invalid token address '%s'", token)
	}
	if !utils.IsValidAddress(spender) {
		return nil, fmt.Errorf("invalid spender address '%s'", spender)
	}

	data := selector("approve(address,uint256)")
	data = append(data, common.LeftPadBytes(common.HexToAddress(spender).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	return &BundleOperation{
		To:        token,
		Value:     big.NewInt(0),
		Data:      data,
		Operation: OperationKind_Call,
	}, nil
}

// BuildRevokeOperation zeroes out a previously granted allowance.
func BuildRevokeOperation(token string, spender string) (*BundleOperation, error) {
	return BuildApproveOperation(token, spender, big.NewInt(0))
}
