package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultRetryAfter = 5 * time.Second

// TelegramChannel sends messages through the Telegram Bot API.
type TelegramChannel struct {
	botToken string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramChannel constructs a Bot API channel.
func NewTelegramChannel(botToken, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramChannel{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram").Logger(),
	}
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send calls sendMessage. Flood-control answers become *RateLimitError,
// everything else that fails becomes *DeliveryError.
func (c *TelegramChannel) Send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: c.redact(err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: c.redact(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var result botResponse
	decodeErr := json.Unmarshal(payload, &result)

	if retryAfter, limited := retryAfterOf(resp, result, decodeErr == nil); limited {
		return &RateLimitError{RetryAfter: retryAfter, Message: result.Description}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode, Description: result.Description}
	}
	if decodeErr != nil {
		return &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode telegram response: %w", decodeErr)}
	}
	if !result.OK {
		return &DeliveryError{StatusCode: resp.StatusCode, Description: result.Description}
	}

	c.logger.Debug().Str("chat_id", chatID).Msg("message sent")
	return nil
}

// Close drops pooled connections so the next Send starts a fresh session.
func (c *TelegramChannel) Close(ctx context.Context) error {
	c.client.CloseIdleConnections()
	return nil
}

func retryAfterOf(resp *http.Response, result botResponse, decoded bool) (time.Duration, bool) {
	if decoded && result.Parameters != nil && result.Parameters.RetryAfter > 0 {
		return time.Duration(result.Parameters.RetryAfter) * time.Second, true
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second, true
		}
	}
	return defaultRetryAfter, true
}

// redact strips the bot token from URL errors before they reach logs.
func (c *TelegramChannel) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && c.botToken != "" {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, c.botToken, "<redacted>")
	}
	return err
}

var _ Channel = (*TelegramChannel)(nil)
