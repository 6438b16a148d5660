package contractCaller

import (
	"context"
	"math/big"
)

type TokenMetadata struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// IContractCaller is the read surface the discovery and scanner layers need.
// Implementations decide how calls hit the chain; tests substitute fakes.
type IContractCaller interface {
	// Reward vault / fee staker reads.
	GetBalanceOf(ctx context.Context, contract string, wallet string) (*big.Int, error)
	GetEarned(ctx context.Context, contract string, wallet string) (*big.Int, error)
	GetStakeToken(ctx context.Context, vault string) (string, error)
	GetRewardToken(ctx context.Context, vault string) (string, error)
	GetTotalSupply(ctx context.Context, vault string) (*big.Int, error)
	GetRewardRate(ctx context.Context, vault string) (*big.Int, error)

	// ERC-20 identity reads.
	GetTokenMetadata(ctx context.Context, token string) (*TokenMetadata, error)

	// Vault registry enumeration.
	GetRegistryCount(ctx context.Context, registry string) (uint64, error)
	GetRegistryItem(ctx context.Context, registry string, index uint64) (string, error)

	// Validator boost reads against the governance token.
	GetBoostedAmount(ctx context.Context, bgt string, wallet string, validatorPubkey []byte) (*big.Int, error)
	GetValidatorBoost(ctx context.Context, bgt string, validatorPubkey []byte) (*big.Int, error)
}

const RewardVaultAbi = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"earned","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"stakeToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"rewardToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"rewardRate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const Erc20Abi = `[
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

const VaultRegistryAbi = `[
	{"type":"function","name":"allVaultsLength","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allVaults","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const BgtAbi = `[
	{"type":"function","name":"boosted","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"pubkey","type":"bytes"}],"outputs":[{"name":"","type":"uint128"}]},
	{"type":"function","name":"boostees","stateMutability":"view","inputs":[{"name":"pubkey","type":"bytes"}],"outputs":[{"name":"","type":"uint128"}]}
]`
