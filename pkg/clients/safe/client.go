package safe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the multisig coordination service that collects signatures
// toward the approval threshold before on-chain execution.
type Client struct {
	httpClient *http.Client
	Logger     *zap.Logger
	baseUrl    string
}

func NewSafeClient(baseUrl string, l *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Second * 30},
		Logger:     l,
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

type SafeInfo struct {
	Address   string   `json:"address"`
	Nonce     uint64   `json:"nonce"`
	Threshold uint64   `json:"threshold"`
	Owners    []string `json:"owners"`
}

// ProposeTransactionRequest mirrors the service's multisig-transactions body
// field for field.
type ProposeTransactionRequest struct {
	Safe                    string `json:"safe"`
	To                      string `json:"to"`
	Value                   string `json:"value"`
	Data                    string `json:"data"`
	Operation               uint8  `json:"operation"`
	SafeTxGas               uint64 `json:"safeTxGas"`
	BaseGas                 uint64 `json:"baseGas"`
	GasPrice                string `json:"gasPrice"`
	GasToken                string `json:"gasToken"`
	RefundReceiver          string `json:"refundReceiver"`
	Nonce                   uint64 `json:"nonce"`
	ContractTransactionHash string `json:"contractTransactionHash"`
	Sender                  string `json:"sender"`
	Signature               string `json:"signature"`
	Origin                  string `json:"origin"`
}

type confirmTransactionRequest struct {
	Signature string `json:"signature"`
}

// HashMismatchError is the one recoverable error class from the service: the
// rejection body embeds the hash the server derived for the same payload.
type HashMismatchError struct {
	Expected string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("coordination service expects transaction hash %s", e.Expected)
}

var hashMismatchRegex = regexp.MustCompile(`[Cc]ontract-transaction-hash=(0x[0-9a-fA-F]{64})`)

// parseHashMismatch extracts the server-expected hash from a 4xx body, if the
// rejection is the hash-mismatch class.
func parseHashMismatch(body []byte) *HashMismatchError {
	matches := hashMismatchRegex.FindSubmatch(body)
	if matches == nil {
		return nil
	}
	return &HashMismatchError{Expected: strings.ToLower(string(matches[1]))}
}

// GetSafeInfo fetches the multisig's current state; the nonce it carries is
// used to build transactions immediately before hashing.
func (c *Client) GetSafeInfo(ctx context.Context, safeAddress string) (*SafeInfo, error) {
	url := fmt.Sprintf("%s/api/v1/safes/%s/", c.baseUrl, safeAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to fetch safe info",
			zap.String("safe", safeAddress),
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
		return nil, fmt.Errorf("safe service returned status %d: %s", res.StatusCode, string(body))
	}

	info := &SafeInfo{}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, fmt.Errorf("failed to parse safe info: %w", err)
	}
	return info, nil
}

// ProposeTransaction submits a proposal. A hash-mismatch rejection surfaces
// as *HashMismatchError so the caller can re-sign the server's hash; every
// other rejection is terminal.
func (c *Client) ProposeTransaction(ctx context.Context, safeAddress string, proposal *ProposeTransactionRequest) error {
	url := fmt.Sprintf("%s/api/v1/safes/%s/multisig-transactions/", c.baseUrl, safeAddress)

	body, status, err := c.post(ctx, url, proposal)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}

	if status >= 400 && status < 500 {
		if mismatch := parseHashMismatch(body); mismatch != nil {
			c.Logger.Sugar().Warnw("Proposal rejected with hash mismatch",
				zap.String("safe", safeAddress),
				zap.String("expected", mismatch.Expected),
			)
			return mismatch
		}
	}
	return fmt.Errorf("proposal rejected with status %d: %s", status, string(body))
}

// ConfirmTransaction records the proposer's own confirmation. The service may
// already have recorded it during the proposal, so callers treat failures
// here as non-fatal.
func (c *Client) ConfirmTransaction(ctx context.Context, safeTxHash string, signature string) error {
	url := fmt.Sprintf("%s/api/v1/multisig-transactions/%s/confirmations/", c.baseUrl, safeTxHash)

	body, status, err := c.post(ctx, url, &confirmTransactionRequest{Signature: signature})
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return fmt.Errorf("confirmation rejected with status %d: %s", status, string(body))
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, int, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Safe service request failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, 0, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, res.StatusCode, nil
}
