package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Client talks to a Paystack-style transaction-verify endpoint.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     *zap.Logger
}

type Config struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.Secret,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("payment.gateway"),
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		Amount    int64           `json:"amount"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"data"`
}

type verifyMetadata struct {
	OrderID string `json:"order_id"`
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("gateway verify request failed", zap.String("reference", reference), zap.Error(err))
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTransactionNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		c.log.Warn("gateway verify returned server error",
			zap.String("reference", reference),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gateway verify returned status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if !body.Status {
		return nil, ErrTransactionNotFound
	}

	txn := Transaction{
		Reference: body.Data.Reference,
		Status:    strings.ToLower(strings.TrimSpace(body.Data.Status)),
		Amount:    body.Data.Amount,
	}
	if len(body.Data.Metadata) > 0 {
		var meta verifyMetadata
		if err := json.Unmarshal(body.Data.Metadata, &meta); err == nil && meta.OrderID != "" {
			if id, parseErr := snowflake.ParseString(meta.OrderID); parseErr == nil {
				txn.OrderID = id
			}
		}
	}
	return &txn, nil
}
