package sequentialContractCaller

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/odcpw/berabundle-sub001/pkg/clients/ethereum"
	"github.com/odcpw/berabundle-sub001/pkg/contractCaller"
	"go.uber.org/zap"
)

// SequentialContractCaller resolves each read with its own eth_call through a
// bound contract. Concurrency and retries live in the scanner, not here.
type SequentialContractCaller struct {
	EthereumClient *ethereum.Client
	Logger         *zap.Logger

	vaultAbi    abi.ABI
	erc20Abi    abi.ABI
	registryAbi abi.ABI
	bgtAbi      abi.ABI
}

func NewSequentialContractCaller(ec *ethereum.Client, l *zap.Logger) (*SequentialContractCaller, error) {
	vaultAbi, err := abi.JSON(strings.NewReader(contractCaller.RewardVaultAbi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reward vault abi: %w", err)
	}
	erc20Abi, err := abi.JSON(strings.NewReader(contractCaller.Erc20Abi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	registryAbi, err := abi.JSON(strings.NewReader(contractCaller.VaultRegistryAbi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault registry abi: %w", err)
	}
	bgtAbi, err := abi.JSON(strings.NewReader(contractCaller.BgtAbi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bgt abi: %w", err)
	}

	return &SequentialContractCaller{
		EthereumClient: ec,
		Logger:         l,
		vaultAbi:       vaultAbi,
		erc20Abi:       erc20Abi,
		registryAbi:    registryAbi,
		bgtAbi:         bgtAbi,
	}, nil
}

func (cc *SequentialContractCaller) callContract(ctx context.Context, contractAbi abi.ABI, address string, method string, args ...interface{}) ([]interface{}, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address '%s'", address)
	}

	callerClient, err := cc.EthereumClient.GetEthereumContractCaller()
	if err != nil {
		cc.Logger.Sugar().Errorw("callContract - failed to get contract caller", zap.Error(err))
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(address), contractAbi, callerClient, nil, nil)

	results := make([]interface{}, 0)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &results, method, args...); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results returned from '%s' on '%s'", method, address)
	}
	return results, nil
}

func (cc *SequentialContractCaller) callForBigInt(ctx context.Context, contractAbi abi.ABI, address string, method string, args ...interface{}) (*big.Int, error) {
	results, err := cc.callContract(ctx, contractAbi, address, method, args...)
	if err != nil {
		return nil, err
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from '%s' on '%s'", method, address)
	}
	return value, nil
}

func (cc *SequentialContractCaller) callForAddress(ctx context.Context, contractAbi abi.ABI, address string, method string, args ...interface{}) (string, error) {
	results, err := cc.callContract(ctx, contractAbi, address, method, args...)
	if err != nil {
		return "", err
	}
	value, ok := results[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected result type from '%s' on '%s'", method, address)
	}
	return strings.ToLower(value.Hex()), nil
}

func (cc *SequentialContractCaller) GetBalanceOf(ctx context.Context, contract string, wallet string) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.vaultAbi, contract, "balanceOf", common.HexToAddress(wallet))
}

func (cc *SequentialContractCaller) GetEarned(ctx context.Context, contract string, wallet string) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.vaultAbi, contract, "earned", common.HexToAddress(wallet))
}

func (cc *SequentialContractCaller) GetStakeToken(ctx context.Context, vault string) (string, error) {
	return cc.callForAddress(ctx, cc.vaultAbi, vault, "stakeToken")
}

func (cc *SequentialContractCaller) GetRewardToken(ctx context.Context, vault string) (string, error) {
	return cc.callForAddress(ctx, cc.vaultAbi, vault, "rewardToken")
}

func (cc *SequentialContractCaller) GetTotalSupply(ctx context.Context, vault string) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.vaultAbi, vault, "totalSupply")
}

func (cc *SequentialContractCaller) GetRewardRate(ctx context.Context, vault string) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.vaultAbi, vault, "rewardRate")
}

func (cc *SequentialContractCaller) GetTokenMetadata(ctx context.Context, token string) (*contractCaller.TokenMetadata, error) {
	symbolResults, err := cc.callContract(ctx, cc.erc20Abi, token, "symbol")
	if err != nil {
		return nil, err
	}
	symbol, ok := symbolResults[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected symbol type for token '%s'", token)
	}

	decimalsResults, err := cc.callContract(ctx, cc.erc20Abi, token, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := decimalsResults[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected decimals type for token '%s'", token)
	}

	return &contractCaller.TokenMetadata{
		Address:  strings.ToLower(token),
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

func (cc *SequentialContractCaller) GetRegistryCount(ctx context.Context, registry string) (uint64, error) {
	count, err := cc.callForBigInt(ctx, cc.registryAbi, registry, "allVaultsLength")
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

func (cc *SequentialContractCaller) GetRegistryItem(ctx context.Context, registry string, index uint64) (string, error) {
	return cc.callForAddress(ctx, cc.registryAbi, registry, "allVaults", new(big.Int).SetUint64(index))
}

func (cc *SequentialContractCaller) GetBoostedAmount(ctx context.Context, bgt string, wallet string, validatorPubkey []byte) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.bgtAbi, bgt, "boosted", common.HexToAddress(wallet), validatorPubkey)
}

func (cc *SequentialContractCaller) GetValidatorBoost(ctx context.Context, bgt string, validatorPubkey []byte) (*big.Int, error) {
	return cc.callForBigInt(ctx, cc.bgtAbi, bgt, "boostees", validatorPubkey)
}
