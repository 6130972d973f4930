// Package client holds HTTP clients for collaborator systems.
package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shop-payment-service/config"
	"shop-payment-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderClient speaks to the order subsystem's internal API. Requests are
// signed with the shared secret so the order side can reject anything that
// did not come from the payment core.
type OrderClient struct {
	cfg        config.OrdersConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ domain.OrderService = (*OrderClient)(nil)

func NewOrderClient(cfg config.OrdersConfig, logger *zap.Logger) *OrderClient {
	return &OrderClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *OrderClient) GetOutstandingBalance(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var out struct {
		Data struct {
			Outstanding decimal.Decimal `json:"outstanding"`
		} `json:"data"`
	}

	path := fmt.Sprintf("/internal/orders/%d/balance", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Data.Outstanding, nil
}

func (c *OrderClient) SetPaymentStatus(ctx context.Context, orderID int64, status domain.OrderPaymentStatus) error {
	path := fmt.Sprintf("/internal/orders/%d/payment-status", orderID)
	body := map[string]string{"payment_status": string(status)}
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *OrderClient) SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	path := fmt.Sprintf("/internal/orders/%d/status", orderID)
	body := map[string]string{"status": string(status)}
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *OrderClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	timestamp := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("X-Signature", signRequest(body, timestamp, c.cfg.APISecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order service unreachable: %w", err)
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("order service returned non-OK status",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(responseBody)))
		return fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("failed to parse order service response: %w", err)
		}
	}
	return nil
}

func signRequest(payload []byte, timestamp int64, secret string) string {
	message := fmt.Sprintf("%s.%d", string(payload), timestamp)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
