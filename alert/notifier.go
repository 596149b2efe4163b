// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-telegram/bot"
)

// Notifier delivers alert messages to the operator.
type Notifier interface {
	Notify(ctx context.Context, at time.Time, msg string) error
}

// LogNotifier writes alerts to the default logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, at time.Time, msg string) error {
	slog.WarnContext(ctx, "fleet alert", "at", at, "message", msg)
	return nil
}

// TelegramNotifier sends alerts to a telegram chat through a bot.
type TelegramNotifier struct {
	mu sync.Mutex

	bot    *bot.Bot
	chatID int64

	username string
}

// NewTelegramNotifier creates a bot client with the given token and verifies
// the token by fetching the bot's own user.
func NewTelegramNotifier(ctx context.Context, token string, chatID int64) (*TelegramNotifier, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("bot token cannot be empty: %w", os.ErrInvalid)
	}
	if chatID == 0 {
		return nil, fmt.Errorf("chat id cannot be zero: %w", os.ErrInvalid)
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get telegram bot user: %w", err)
	}

	n := &TelegramNotifier{
		bot:      b,
		chatID:   chatID,
		username: self.Username,
	}
	return n, nil
}

func (n *TelegramNotifier) BotUserName() string {
	return n.username
}

func (n *TelegramNotifier) Notify(ctx context.Context, at time.Time, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	text := at.Format("2006-01-02 15:04:05 MST") + " " + msg
	slog.InfoContext(ctx, "sending notification", "at", at, "message", msg)

	p := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	}
	if _, err := n.bot.SendMessage(ctx, p); err != nil {
		return fmt.Errorf("could not send telegram message: %w", err)
	}
	return nil
}
