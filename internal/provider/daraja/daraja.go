// Package daraja is a thin client for the Safaricom Daraja API: OAuth token
// acquisition with in-client caching, Lipa Na M-Pesa STK push initiation and
// STK callback parsing. It knows nothing about orders or the ledger.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"shop-payment-service/config"
)

type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg config.MpesaConfig) *Client {
	baseURL := "https://sandbox.safaricom.co.ke"
	if cfg.Environment == "production" {
		baseURL = "https://api.safaricom.co.ke"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithBaseURL overrides the API host, used by tests pointing the
// client at a local server.
func NewClientWithBaseURL(cfg config.MpesaConfig, baseURL string) *Client {
	c := NewClient(cfg)
	c.baseURL = baseURL
	return c
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush sends a Lipa Na M-Pesa Online push to the customer's
// phone. The returned CheckoutRequestID is the correlation id the eventual
// callback carries.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber, accountRef string, amount int, callbackURL string) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(
		c.cfg.ShortCode + c.cfg.Passkey + timestamp,
	))

	request := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   fmt.Sprintf("Payment for order %s", accountRef),
	}

	var response STKPushResponse
	url := fmt.Sprintf("%s/mpesa/stkpush/v1/processrequest", c.baseURL)
	if err := c.postJSON(ctx, url, token, request, &response); err != nil {
		return nil, err
	}

	if response.ResponseCode != "0" {
		return nil, fmt.Errorf("push rejected by provider: %s", response.ResponseDescription)
	}
	return &response, nil
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the flattened outcome of an STK callback payload.
type CallbackResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDescription string
	Success           bool
	Amount            float64
	ReceiptNumber     string
	PhoneNumber       string
	TransactionDate   time.Time
}

// ParseSTKCallback flattens a Daraja STK callback payload. ResultCode 0 is
// the only success signal; the receipt number and amount only exist on
// success.
func ParseSTKCallback(payload []byte) (*CallbackResult, error) {
	var envelope stkCallbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse callback: %w", err)
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback payload has no CheckoutRequestID")
	}

	result := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
		Success:           cb.ResultCode == 0,
		TransactionDate:   time.Now().UTC(),
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if val, ok := item.Value.(float64); ok {
				result.Amount = val
			}
		case "MpesaReceiptNumber":
			if val, ok := item.Value.(string); ok {
				result.ReceiptNumber = val
			}
		case "PhoneNumber":
			switch val := item.Value.(type) {
			case string:
				result.PhoneNumber = val
			case float64:
				result.PhoneNumber = fmt.Sprintf("%.0f", val)
			}
		case "TransactionDate":
			// Daraja sends yyyymmddHHMMSS as a number.
			if val, ok := item.Value.(float64); ok {
				if t, err := time.Parse("20060102150405", fmt.Sprintf("%.0f", val)); err == nil {
					result.TransactionDate = t
				}
			}
		}
	}

	return result, nil
}

// accessToken returns a cached OAuth bearer token, fetching a fresh one when
// the cached token is missing or expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	return c.refreshTokenLocked(ctx)
}

// invalidateToken drops the cached token after the API answered 401; the
// next call fetches a fresh one.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) refreshTokenLocked(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/oauth/v1/generate?grant_type=client_credentials", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get token: %s", string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	c.token = result.AccessToken
	// Daraja tokens live an hour; refresh comfortably before that.
	c.tokenExpiry = time.Now().Add(50 * time.Minute)
	return c.token, nil
}

func (c *Client) postJSON(ctx context.Context, url, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	do := func(bearer string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+bearer)
		return c.httpClient.Do(req)
	}

	resp, err := do(token)
	if err != nil {
		return err
	}

	// A stale cached token comes back as 401: refresh once and retry.
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.invalidateToken()
		fresh, err := c.accessToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh access token: %w", err)
		}
		resp, err = do(fresh)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider API error (%d): %s", resp.StatusCode, string(responseBody))
	}
	return json.Unmarshal(responseBody, out)
}
