package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
)

// GatewayClient posts outbound messages as JSON to the chat gateway.
type GatewayClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(log *logger.Logger, baseURL string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		log:        log.With("client", "GatewayClient"),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID   int64           `json:"chatId"`
	Text     string          `json:"text"`
	Keyboard models.Keyboard `json:"keyboard,omitempty"`
}

type sendDocumentRequest struct {
	ChatID  int64  `json:"chatId"`
	Handle  string `json:"handle"`
	Caption string `json:"caption,omitempty"`
}

type sendPhotoRequest struct {
	ChatID  int64  `json:"chatId"`
	Photo   string `json:"photo"` // base64 PNG
	Caption string `json:"caption,omitempty"`
}

type gatewayResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (c *GatewayClient) SendText(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	return c.post(ctx, "/sendMessage", sendMessageRequest{ChatID: chatID, Text: text, Keyboard: keyboard})
}

func (c *GatewayClient) SendDocument(ctx context.Context, chatID int64, handle, caption string) error {
	return c.post(ctx, "/sendDocument", sendDocumentRequest{ChatID: chatID, Handle: handle, Caption: caption})
}

func (c *GatewayClient) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	return c.post(ctx, "/sendPhoto", sendPhotoRequest{
		ChatID:  chatID,
		Photo:   base64.StdEncoding.EncodeToString(png),
		Caption: caption,
	})
}

func (c *GatewayClient) post(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrDeliveryFailed, method, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("gateway rejected request", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("%w: %s returned %d: %s", models.ErrDeliveryFailed, method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out gatewayResponse
	if len(raw) > 0 && json.Unmarshal(raw, &out) == nil && !out.OK && out.Description != "" {
		return fmt.Errorf("%w: %s: %s", models.ErrDeliveryFailed, method, out.Description)
	}
	return nil
}
