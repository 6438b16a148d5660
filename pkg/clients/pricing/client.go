package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultCacheTtl = time.Minute * 5

// Client looks up USD prices by token address. An unknown token yields a nil
// price, never an error; callers treat nil as "unpriced". Responses are cached
// with a short TTL since scan and aggregate run close together.
type Client struct {
	httpClient *http.Client
	Logger     *zap.Logger
	baseUrl    string

	mu       sync.Mutex
	cache    map[string]*cachedPrice
	cacheTtl time.Duration
	now      func() time.Time
}

type cachedPrice struct {
	price     *decimal.Decimal
	fetchedAt time.Time
}

type priceResponse struct {
	Prices map[string]string `json:"prices"`
}

func NewPricingClient(baseUrl string, cacheTtl time.Duration, l *zap.Logger) *Client {
	if cacheTtl == 0 {
		cacheTtl = DefaultCacheTtl
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Second * 15},
		Logger:     l,
		baseUrl:    baseUrl,
		cache:      make(map[string]*cachedPrice),
		cacheTtl:   cacheTtl,
		now:        time.Now,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// GetPrice returns the USD price for tokenAddress, or nil when the oracle has
// no quote for it.
func (c *Client) GetPrice(ctx context.Context, tokenAddress string) (*decimal.Decimal, error) {
	key := strings.ToLower(tokenAddress)

	c.mu.Lock()
	cached, ok := c.cache[key]
	if ok && c.now().Sub(cached.fetchedAt) < c.cacheTtl {
		c.mu.Unlock()
		return cached.price, nil
	}
	c.mu.Unlock()

	price, err := c.fetchPrice(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = &cachedPrice{price: price, fetchedAt: c.now()}
	c.mu.Unlock()

	return price, nil
}

func (c *Client) fetchPrice(ctx context.Context, tokenAddress string) (*decimal.Decimal, error) {
	url := fmt.Sprintf("%s/prices?addresses=%s", c.baseUrl, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to perform the price HTTP request",
			zap.String("token", tokenAddress),
			zap.Error(err),
		)
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price oracle returned status %d", res.StatusCode)
	}

	parsed := &priceResponse{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return nil, err
	}

	raw, ok := parsed.Prices[tokenAddress]
	if !ok || raw == "" {
		c.Logger.Sugar().Debugw("No price for token", zap.String("token", tokenAddress))
		return nil, nil
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		c.Logger.Sugar().Warnw("Unparseable price for token",
			zap.String("token", tokenAddress),
			zap.String("raw", raw),
		)
		return nil, nil
	}
	return &price, nil
}
