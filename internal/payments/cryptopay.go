package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

const (
	// tokenHeader carries the CryptoBot API credentials.
	tokenHeader = "Crypto-Pay-API-Token"
)

// CryptoPay is the payment oracle client for the CryptoBot API. Network
// faults and non-ok API responses come back as errors, never as a
// paid/unpaid determination.
type CryptoPay struct {
	logger *logger.Logger

	baseURL string
	token   string
	asset   string
	client  *http.Client
}

func NewCryptoPay(baseURL, token, asset string, logger *logger.Logger) *CryptoPay {
	return &CryptoPay{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		token:   token,
		asset:   asset,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiResponse is the CryptoBot envelope: {ok, result} or {ok:false, error}.
type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

func (c *CryptoPay) request(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error in %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if !envelope.OK {
		name := envelope.Error.Name
		if name == "" {
			name = "unknown error"
		}
		return fmt.Errorf("API error in %s: %s", endpoint, name)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", endpoint, err)
	}
	return nil
}

// CreateInvoice creates a new payment invoice for the user.
func (c *CryptoPay) CreateInvoice(ctx context.Context, userID int64, amount float64, description string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := c.request(ctx, http.MethodPost, "createInvoice", nil, map[string]any{
		"asset":           c.asset,
		"amount":          strconv.FormatFloat(amount, 'f', -1, 64),
		"description":     description,
		"payload":         strconv.FormatInt(userID, 10),
		"allow_anonymous": false,
	}, &invoice)
	if err != nil {
		c.logger.Error("Failed to create invoice ", "user ", userID, " error ", err)
		return nil, err
	}

	c.logger.Info("Created invoice ", "user ", userID, " invoice ", invoice.InvoiceID)
	return &invoice, nil
}

// GetInvoiceStatus queries the oracle for the invoice's current status.
func (c *CryptoPay) GetInvoiceStatus(ctx context.Context, invoiceID int64) (string, error) {
	var result struct {
		Items []models.Invoice `json:"items"`
	}
	query := url.Values{"invoice_ids": {strconv.FormatInt(invoiceID, 10)}}
	if err := c.request(ctx, http.MethodGet, "getInvoices", query, nil, &result); err != nil {
		return "", err
	}
	if len(result.Items) == 0 {
		return "", fmt.Errorf("invoice %d not found", invoiceID)
	}
	return result.Items[0].Status, nil
}

// CheckToken verifies the API credentials by fetching the app balance.
func (c *CryptoPay) CheckToken(ctx context.Context) error {
	var balance []struct {
		CurrencyCode string `json:"currency_code"`
		Available    string `json:"available"`
	}
	if err := c.request(ctx, http.MethodGet, "getBalance", nil, nil, &balance); err != nil {
		return fmt.Errorf("failed to verify CryptoPay token: %w", err)
	}
	return nil
}
