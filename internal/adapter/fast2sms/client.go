// Package fast2sms delivers alert messages as SMS through the Fast2SMS bulk API.
package fast2sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
)

// DefaultURL is the Fast2SMS bulk send endpoint.
const DefaultURL = "https://www.fast2sms.com/dev/bulkV2"

const maxResponseBytes = 4096

// Client implements alert.Transport.
type Client struct {
	apiKey     string
	url        string
	senderID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Fast2SMS client. An empty url uses DefaultURL.
func NewClient(apiKey, url string, timeout time.Duration, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		apiKey:   apiKey,
		url:      url,
		senderID: "FLOODS",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type sendRequest struct {
	Route    string `json:"route"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Flash    int    `json:"flash"`
	Numbers  string `json:"numbers"`
}

// Send implements alert.Transport. recipient is a comma-separated list of
// phone numbers. Non-2xx responses are returned in the receipt without an
// error; the coordinator classifies them.
func (c *Client) Send(ctx context.Context, message, recipient string) (alert.Receipt, error) {
	body, err := json.Marshal(sendRequest{
		Route:    "v3",
		SenderID: c.senderID,
		Message:  message,
		Language: "english",
		Flash:    0,
		Numbers:  recipient,
	})
	if err != nil {
		return alert.Receipt{}, fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return alert.Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return alert.Receipt{}, fmt.Errorf("fast2sms request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return alert.Receipt{StatusCode: resp.StatusCode}, fmt.Errorf("read fast2sms response: %w", err)
	}

	c.logger.Debug("fast2sms response", "status", resp.StatusCode, "body", string(respBody))
	return alert.Receipt{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}
