package aggregator

import (
	"context"
	"fmt"
	"testing"

	"github.com/odcpw/berabundle-sub001/internal/logger"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	bgtToken   = "0x0000000000000000000000000000000000000e02"
	honeyToken = "0x0000000000000000000000000000000000000e01"
	junkToken  = "0x0000000000000000000000000000000000000e04"
)

type fakePriceOracle struct {
	prices map[string]string
	errs   map[string]bool
}

func (f *fakePriceOracle) GetPrice(ctx context.Context, tokenAddress string) (*decimal.Decimal, error) {
	if f.errs[tokenAddress] {
		return nil, fmt.Errorf("oracle unavailable")
	}
	raw, ok := f.prices[tokenAddress]
	if !ok {
		return nil, nil
	}
	price := decimal.RequireFromString(raw)
	return &price, nil
}

func record(symbol string, token string, earned string) *rewards.RewardRecord {
	return &rewards.RewardRecord{
		Id:           token + ":" + symbol,
		Kind:         rewards.SourceKind_Vault,
		RewardToken:  rewards.Token{Symbol: symbol, Address: token, Decimals: 18},
		EarnedAmount: decimal.RequireFromString(earned),
	}
}

func Test_Aggregator(t *testing.T) {
	t.Run("Test that records are valued at full precision and rounded only for display", func(t *testing.T) {
		oracle := &fakePriceOracle{prices: map[string]string{bgtToken: "2.00"}}
		a := NewAggregator(oracle, nil, logger.NewNoopLogger())

		records := []*rewards.RewardRecord{record("BGT", bgtToken, "12.3456")}
		aggregated := a.Aggregate(context.Background(), records)

		assert.True(t, records[0].Priced)
		assert.Equal(t, "24.6912", records[0].ValueUsd.String())
		assert.Equal(t, "24.6912", aggregated.TotalValueUsd.String())
		assert.Equal(t, "24.69", aggregated.FormatTotalUsd())
	})
	t.Run("Test that unpriced tokens contribute zero to the totals", func(t *testing.T) {
		oracle := &fakePriceOracle{prices: map[string]string{bgtToken: "2.00"}}
		a := NewAggregator(oracle, nil, logger.NewNoopLogger())

		records := []*rewards.RewardRecord{
			record("BGT", bgtToken, "3"),
			record("JUNK", junkToken, "1000000"),
		}
		aggregated := a.Aggregate(context.Background(), records)

		assert.True(t, records[0].Priced)
		assert.False(t, records[1].Priced)
		assert.Equal(t, "0", records[1].ValueUsd.String())
		assert.Equal(t, "6", aggregated.TotalValueUsd.String())
	})
	t.Run("Test that oracle failures degrade to unpriced rather than aborting", func(t *testing.T) {
		oracle := &fakePriceOracle{
			prices: map[string]string{bgtToken: "2.00"},
			errs:   map[string]bool{honeyToken: true},
		}
		a := NewAggregator(oracle, nil, logger.NewNoopLogger())

		records := []*rewards.RewardRecord{
			record("BGT", bgtToken, "5"),
			record("HONEY", honeyToken, "7"),
		}
		aggregated := a.Aggregate(context.Background(), records)

		assert.True(t, records[0].Priced)
		assert.False(t, records[1].Priced)
		assert.Equal(t, "10", aggregated.TotalValueUsd.String())
	})
	t.Run("Test that per-token totals preserve first-seen order", func(t *testing.T) {
		oracle := &fakePriceOracle{prices: map[string]string{
			bgtToken:   "2.00",
			honeyToken: "1.00",
		}}
		a := NewAggregator(oracle, nil, logger.NewNoopLogger())

		aggregated := a.Aggregate(context.Background(), []*rewards.RewardRecord{
			record("BGT", bgtToken, "1"),
			record("HONEY", honeyToken, "4"),
			record("BGT", bgtToken, "2"),
		})

		symbols := make([]string, 0)
		for pair := aggregated.TotalsByToken.Oldest(); pair != nil; pair = pair.Next() {
			symbols = append(symbols, pair.Key)
		}
		assert.Equal(t, []string{"BGT", "HONEY"}, symbols)

		bgtTotal, ok := aggregated.TotalsByToken.Get("BGT")
		assert.True(t, ok)
		assert.Equal(t, "3", bgtTotal.Amount.String())
		assert.Equal(t, "6", bgtTotal.ValueUsd.String())
	})
	t.Run("Test that an empty record list aggregates to zero", func(t *testing.T) {
		a := NewAggregator(&fakePriceOracle{}, nil, logger.NewNoopLogger())
		aggregated := a.Aggregate(context.Background(), []*rewards.RewardRecord{})
		assert.Equal(t, "0.00", aggregated.FormatTotalUsd())
		assert.Equal(t, 0, aggregated.TotalsByToken.Len())
	})
}
