// Package telegram delivers alert messages to a Telegram chat through a bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
)

// Client implements alert.Transport with the Telegram Bot API.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewClient authenticates the bot token against the Bot API. An empty
// endpoint uses the public Telegram API.
func NewClient(token, endpoint string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &Client{bot: bot, logger: logger}, nil
}

// Send implements alert.Transport. recipient is a numeric chat id or a
// channel username such as "@flood_alerts". The Bot API call does not take
// a context; the coordinator bounds it with its dispatch timeout.
func (c *Client) Send(ctx context.Context, message, recipient string) (alert.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return alert.Receipt{}, err
	}

	msg, err := newMessage(recipient, message)
	if err != nil {
		return alert.Receipt{}, err
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return alert.Receipt{StatusCode: apiErr.Code, Body: apiErr.Message}, nil
		}
		return alert.Receipt{}, fmt.Errorf("telegram send: %w", err)
	}

	c.logger.Debug("telegram message sent", "recipient", recipient, "message_id", sent.MessageID)
	return alert.Receipt{StatusCode: http.StatusOK, Body: strconv.Itoa(sent.MessageID)}, nil
}

func newMessage(recipient, text string) (tgbotapi.MessageConfig, error) {
	recipient = strings.TrimSpace(recipient)
	if strings.HasPrefix(recipient, "@") {
		return tgbotapi.NewMessageToChannel(recipient, text), nil
	}
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("telegram: invalid chat id %q", recipient)
	}
	return tgbotapi.NewMessage(chatID, text), nil
}
