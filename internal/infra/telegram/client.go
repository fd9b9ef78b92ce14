// Package telegram sends reminder messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskreminder/internal/config"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
)

var _ ports.Channel = (*Client)(nil)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4 << 10

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(cfg config.Telegram, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: status %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram: status %d: %s", e.StatusCode, e.Description)
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one sendMessage request. Network failures, 429 and 5xx are
// transient. Any other 4xx will fail the same way on every attempt and is
// returned as permanent.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	if chatID <= 0 {
		return domain.Permanent(fmt.Errorf("%w: %d", domain.ErrInvalidOwner, chatID))
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return domain.Permanent(fmt.Errorf("encode message: %w", err))
	}

	endpoint := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Permanent(fmt.Errorf("build request: %w", redact(err)))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var decoded apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&decoded); err == nil {
		apiErr.Description = decoded.Description
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apiErr
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.Permanent(apiErr)
	default:
		return apiErr
	}
}

// redact strips the request URL, which carries the bot token, from
// transport errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
