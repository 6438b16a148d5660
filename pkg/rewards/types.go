package rewards

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind is the closed set of reward source types. Claim-call encoding and
// scan behavior dispatch on this, never on raw strings.
type SourceKind int

const (
	SourceKind_Vault SourceKind = iota
	SourceKind_FeeStaker
	SourceKind_ValidatorBoost
)

func (k SourceKind) String() string {
	switch k {
	case SourceKind_Vault:
		return "vault"
	case SourceKind_FeeStaker:
		return "feeStaker"
	case SourceKind_ValidatorBoost:
		return "validatorBoost"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

type Token struct {
	Symbol   string
	Address  string
	Decimals uint8
}

// RewardSource identifies a contract to query for claimable rewards.
type RewardSource struct {
	Address string
	Kind    SourceKind
	Name    string

	// Optional token identities cached from the metadata feed. When present
	// the scanner can skip the on-chain identity reads.
	StakeTokenAddress  string
	RewardTokenAddress string

	// Validator pubkey when Kind is SourceKind_ValidatorBoost.
	Validator string

	LastCheckedAt time.Time
}

// Id returns a stable identity for recombining concurrent scan results.
func (s *RewardSource) Id() string {
	if s.Kind == SourceKind_ValidatorBoost {
		return strings.ToLower(s.Address) + ":" + strings.ToLower(s.Validator)
	}
	return strings.ToLower(s.Address)
}

// RewardRecord is a normalized claimable position. Only sources with a strictly
// positive underlying amount are ever materialized into records.
type RewardRecord struct {
	Id          string
	Kind        SourceKind
	SourceName  string
	SourceAddress string

	RewardToken Token

	// EarnedAmount is the human-denominated amount at the token's precision;
	// RawEarned keeps the exact on-chain integer for claim construction.
	EarnedAmount decimal.Decimal
	RawEarned    *big.Int

	// ValueUsd is zero when the price lookup yielded nothing.
	ValueUsd decimal.Decimal
	Priced   bool

	// Vault-specific fields. RewardRate is the vault's emission in reward
	// token units per second.
	StakeToken       *Token
	UserStake        decimal.Decimal
	PoolSharePercent decimal.Decimal
	RewardRate       decimal.Decimal

	// Validator-boost-specific fields.
	Validator    string
	TotalBoost   decimal.Decimal
	SharePercent decimal.Decimal
}

// FormatAmount renders the earned amount rounded to two decimal places for
// display. Raw precision is preserved on the record itself.
func (r *RewardRecord) FormatAmount() string {
	return r.EarnedAmount.Round(2).StringFixed(2)
}

// AmountFromRaw converts an on-chain integer amount to a decimal using the
// token's decimal count, preserving full precision.
func AmountFromRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, 0).Shift(-int32(decimals))
}
