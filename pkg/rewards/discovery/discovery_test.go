package discovery

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/odcpw/berabundle-sub001/internal/logger"
	"github.com/odcpw/berabundle-sub001/pkg/clients/metadata"
	"github.com/odcpw/berabundle-sub001/pkg/contractCaller"
	"github.com/odcpw/berabundle-sub001/pkg/rewards"
	"github.com/stretchr/testify/assert"
)

const (
	metadataBaseUrl = "http://metadata.test"

	registryAddress  = "0x0000000000000000000000000000000000000f01"
	bgtStakerAddress = "0x0000000000000000000000000000000000000b01"
	bgtTokenAddress  = "0x0000000000000000000000000000000000000e02"

	vaultOne = "0x0000000000000000000000000000000000000a01"
	vaultTwo = "0x0000000000000000000000000000000000000a02"
)

var validatorPubkey = "0x" + strings.Repeat("cd", 48)

// registryCaller only serves the registry enumeration reads discovery needs.
type registryCaller struct {
	count       uint64
	items       map[uint64]string
	failIndexes map[uint64]bool
}

func (r *registryCaller) GetBalanceOf(ctx context.Context, contract string, wallet string) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetEarned(ctx context.Context, contract string, wallet string) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetStakeToken(ctx context.Context, vault string) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (r *registryCaller) GetRewardToken(ctx context.Context, vault string) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (r *registryCaller) GetTotalSupply(ctx context.Context, vault string) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetRewardRate(ctx context.Context, vault string) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetTokenMetadata(ctx context.Context, token string) (*contractCaller.TokenMetadata, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetRegistryCount(ctx context.Context, registry string) (uint64, error) {
	return r.count, nil
}
func (r *registryCaller) GetRegistryItem(ctx context.Context, registry string, index uint64) (string, error) {
	if r.failIndexes[index] {
		return "", fmt.Errorf("rpc failure")
	}
	return r.items[index], nil
}
func (r *registryCaller) GetBoostedAmount(ctx context.Context, bgt string, wallet string, validatorPubkey []byte) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}
func (r *registryCaller) GetValidatorBoost(ctx context.Context, bgt string, validatorPubkey []byte) (*big.Int, error) {
	return nil, fmt.Errorf("not implemented")
}

func newTestDiscovery(caller contractCaller.IContractCaller) *Discovery {
	l := logger.NewNoopLogger()
	mc := metadata.NewMetadataClient(metadataBaseUrl, l)
	mc.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})

	return NewDiscovery(mc, caller, &DiscoveryConfig{
		VaultRegistryAddress: registryAddress,
		BgtStakerAddress:     bgtStakerAddress,
		BgtTokenAddress:      bgtTokenAddress,
	}, l)
}

func registerVaultsResponder(calls *int) {
	httpmock.RegisterResponder("GET", metadataBaseUrl+"/vaults",
		func(req *http.Request) (*http.Response, error) {
			*calls++
			body := fmt.Sprintf(`{"vaults":[
				{"vaultAddress":"%s","name":"Vault One","stakeTokenAddress":"0x0000000000000000000000000000000000000e03","rewardTokenAddress":"%s"},
				{"vaultAddress":"%s","name":"Vault Two","stakeTokenAddress":"0x0000000000000000000000000000000000000e03","rewardTokenAddress":"%s"}
			]}`, vaultOne, bgtTokenAddress, vaultTwo, bgtTokenAddress)
			return httpmock.NewStringResponse(200, body), nil
		})
}

func registerValidatorsResponder(calls *int) {
	httpmock.RegisterResponder("GET", metadataBaseUrl+"/validators",
		func(req *http.Request) (*http.Response, error) {
			*calls++
			body := fmt.Sprintf(`{"validators":[{"id":"%s","name":"Validator One"}]}`, validatorPubkey)
			return httpmock.NewStringResponse(200, body), nil
		})
}

func Test_Discovery(t *testing.T) {
	t.Run("Test that discovery assembles vaults, the fee staker and validator boosts", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		vaultCalls, validatorCalls := 0, 0
		registerVaultsResponder(&vaultCalls)
		registerValidatorsResponder(&validatorCalls)

		d := newTestDiscovery(&registryCaller{})
		sources, err := d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)
		assert.Equal(t, 4, len(sources))

		assert.Equal(t, rewards.SourceKind_Vault, sources[0].Kind)
		assert.Equal(t, vaultOne, sources[0].Address)
		assert.Equal(t, rewards.SourceKind_Vault, sources[1].Kind)
		assert.Equal(t, vaultTwo, sources[1].Address)

		assert.Equal(t, rewards.SourceKind_FeeStaker, sources[2].Kind)
		assert.Equal(t, bgtStakerAddress, sources[2].Address)

		assert.Equal(t, rewards.SourceKind_ValidatorBoost, sources[3].Kind)
		assert.Equal(t, bgtTokenAddress, sources[3].Address)
		assert.Equal(t, validatorPubkey, sources[3].Validator)
	})
	t.Run("Test that cached sources are served until the TTL lapses", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		vaultCalls, validatorCalls := 0, 0
		registerVaultsResponder(&vaultCalls)
		registerValidatorsResponder(&validatorCalls)

		d := newTestDiscovery(&registryCaller{})

		now := time.Now()
		d.SetNowFunc(func() time.Time { return now })

		_, err := d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)
		assert.Equal(t, 1, vaultCalls)

		// Four minutes later the five-minute vault cache is still fresh.
		now = now.Add(4 * time.Minute)
		_, err = d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)
		assert.Equal(t, 1, vaultCalls)

		// Six minutes after the first fetch the vault cache has lapsed but the
		// fifteen-minute validator cache has not.
		now = now.Add(2 * time.Minute)
		_, err = d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)
		assert.Equal(t, 2, vaultCalls)
		assert.Equal(t, 1, validatorCalls)
	})
	t.Run("Test that forceRefresh bypasses fresh caches", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		vaultCalls, validatorCalls := 0, 0
		registerVaultsResponder(&vaultCalls)
		registerValidatorsResponder(&validatorCalls)

		d := newTestDiscovery(&registryCaller{})

		_, err := d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)
		_, err = d.DiscoverSources(context.Background(), true)
		assert.Nil(t, err)

		assert.Equal(t, 2, vaultCalls)
		assert.Equal(t, 2, validatorCalls)
	})
	t.Run("Test that registry enumeration takes over when the metadata feed is down", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		httpmock.RegisterResponder("GET", metadataBaseUrl+"/vaults",
			httpmock.NewStringResponder(500, "upstream unavailable"))
		validatorCalls := 0
		registerValidatorsResponder(&validatorCalls)

		caller := &registryCaller{
			count: 3,
			items: map[uint64]string{
				0: vaultOne,
				2: vaultTwo,
			},
			failIndexes: map[uint64]bool{1: true},
		}

		d := newTestDiscovery(caller)
		sources, err := d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)

		vaults := make([]*rewards.RewardSource, 0)
		for _, source := range sources {
			if source.Kind == rewards.SourceKind_Vault {
				vaults = append(vaults, source)
			}
		}
		// Index 1 failed every retry and is skipped rather than failing discovery.
		assert.Equal(t, 2, len(vaults))
		assert.Equal(t, vaultOne, vaults[0].Address)
		assert.Equal(t, vaultTwo, vaults[1].Address)
	})
	t.Run("Test that validators with malformed pubkeys are skipped", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		vaultCalls := 0
		registerVaultsResponder(&vaultCalls)
		httpmock.RegisterResponder("GET", metadataBaseUrl+"/validators",
			httpmock.NewStringResponder(200, `{"validators":[{"id":"0xnothex","name":"Broken"}]}`))

		d := newTestDiscovery(&registryCaller{})
		sources, err := d.DiscoverSources(context.Background(), false)
		assert.Nil(t, err)

		for _, source := range sources {
			assert.NotEqual(t, rewards.SourceKind_ValidatorBoost, source.Kind)
		}
	})
}
