package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client fetches the static metadata feed: the curated vault list and the
// validator set. It is the cheap, no-RPC path for source discovery; callers
// fall back to on-chain enumeration when the feed is unavailable.
type Client struct {
	httpClient *http.Client
	Logger     *zap.Logger
	baseUrl    string
}

type Vault struct {
	VaultAddress       string `json:"vaultAddress"`
	Name               string `json:"name"`
	StakeTokenAddress  string `json:"stakeTokenAddress"`
	RewardTokenAddress string `json:"rewardTokenAddress"`
}

type Validator struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type vaultsResponse struct {
	Vaults []*Vault `json:"vaults"`
}

type validatorsResponse struct {
	Validators []*Validator `json:"validators"`
}

func NewMetadataClient(baseUrl string, l *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Second * 15},
		Logger:     l,
		baseUrl:    baseUrl,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) get(ctx context.Context, path string, destination any) error {
	url := fmt.Sprintf("%s%s", c.baseUrl, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to perform the metadata HTTP request",
			zap.String("url", url),
			zap.Error(err),
		)
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata feed returned status %d", res.StatusCode)
	}

	if err := json.Unmarshal(body, destination); err != nil {
		c.Logger.Sugar().Errorw("Failed to parse metadata feed response",
			zap.String("url", url),
			zap.Error(err),
		)
		return errors.Wrap(err, "failed to parse metadata feed response")
	}
	return nil
}

func (c *Client) GetVaults(ctx context.Context) ([]*Vault, error) {
	res := &vaultsResponse{}
	if err := c.get(ctx, "/vaults", res); err != nil {
		return nil, err
	}
	return res.Vaults, nil
}

func (c *Client) GetValidators(ctx context.Context) ([]*Validator, error) {
	res := &validatorsResponse{}
	if err := c.get(ctx, "/validators", res); err != nil {
		return nil, err
	}
	return res.Validators, nil
}
