package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

// GatewayDialer turns credential bundles into live accounts through an
// MTProto session gateway: the bundle is uploaded once, all later actions
// run against the gateway-held session.
type GatewayDialer struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client
}

func NewGatewayDialer(baseURL string, logger *logger.Logger) *GatewayDialer {
	return &GatewayDialer{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Authorized bool   `json:"authorized"`
}

func (d *GatewayDialer) Dial(ctx context.Context, sessionPath string) (Client, error) {
	bundle, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session bundle: %w", err)
	}

	var resp sessionResponse
	if err := d.do(ctx, http.MethodPost, "/sessions", map[string]any{
		"name":   strings.TrimSuffix(filepath.Base(sessionPath), ".session"),
		"bundle": bundle,
	}, &resp); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", filepath.Base(sessionPath), err)
	}

	return &gatewayClient{dialer: d, sessionID: resp.SessionID, name: resp.Name}, nil
}

func (d *GatewayDialer) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

// gatewayClient is one gateway-held session.
type gatewayClient struct {
	dialer    *GatewayDialer
	sessionID string
	name      string
}

func (c *gatewayClient) Name() string {
	return c.name
}

func (c *gatewayClient) Authorized(ctx context.Context) (bool, error) {
	var resp sessionResponse
	if err := c.dialer.do(ctx, http.MethodGet, "/sessions/"+c.sessionID, nil, &resp); err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

func (c *gatewayClient) Resolve(ctx context.Context, target models.ReportTarget) (string, error) {
	var resp struct {
		Peer string `json:"peer"`
	}
	if err := c.dialer.do(ctx, http.MethodPost, "/sessions/"+c.sessionID+"/resolve", map[string]any{
		"chat_id": target.ChatID,
		"handle":  target.Handle,
	}, &resp); err != nil {
		return "", err
	}
	if resp.Peer == "" {
		return "", fmt.Errorf("entity not found")
	}
	return resp.Peer, nil
}

func (c *gatewayClient) Report(ctx context.Context, peer string, messageID int, reason models.ReportReason) error {
	return c.dialer.do(ctx, http.MethodPost, "/sessions/"+c.sessionID+"/report", map[string]any{
		"peer":       peer,
		"message_id": messageID,
		"reason":     string(reason),
	}, nil)
}

func (c *gatewayClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.dialer.do(ctx, http.MethodDelete, "/sessions/"+c.sessionID, nil, nil)
}
