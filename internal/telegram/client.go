// Package telegram delivers goal alerts and accumulator posts via the
// Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jbot-sports/goalsentry/internal/logger"
	"github.com/jbot-sports/goalsentry/internal/models"
)

// Client handles Telegram notifications. It implements the engine's message
// sink: sends return the message ID so lifecycle updates can edit in place.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	dmChatID       int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. dmChatID may be empty; when set,
// accumulator posts are mirrored to that private chat.
func NewClient(botToken, chatID, dmChatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	var dmChatIDInt int64
	if dmChatID != "" {
		dmChatIDInt, err = strconv.ParseInt(dmChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DM chat ID: %w", err)
		}
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		dmChatID:       dmChatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. onAcca runs when a chat member issues /acca; it is
// invoked on the listener goroutine, so it should not block for long.
func (c *Client) ListenForCommands(ctx context.Context, onAcca func()) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, onAcca)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, onAcca func()) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	case "acca":
		logger.Info("Received /acca command from chat %d", msg.Chat.ID)
		if onAcca != nil {
			onAcca()
		}
	}
}

// retry runs fn up to attempts times with a linearly growing delay before
// each re-attempt. The final failure returns without sleeping.
func retry(attempts int, delayBase time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(delayBase * time.Duration(i))
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// sendHTML sends an HTML message with linear-backoff retry and returns the
// Telegram message ID.
func (c *Client) sendHTML(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	var messageID int
	err := retry(c.maxRetries, c.retryDelayBase, func() error {
		sent, err := c.bot.Send(msg)
		if err != nil {
			return err
		}
		messageID = sent.MessageID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed after %d retries: %w", c.maxRetries, err)
	}
	return messageID, nil
}

// SendGoalAlert posts a new goal alert card to the group chat.
func (c *Client) SendGoalAlert(card models.GoalCard) (int, error) {
	return c.sendHTML(c.chatID, formatGoalCard(card))
}

// EditGoalAlert rewrites a previously posted alert card in place.
func (c *Client) EditGoalAlert(messageID int, card models.GoalCard) error {
	edit := tgbotapi.NewEditMessageText(c.chatID, messageID, formatGoalCard(card))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	err := retry(c.maxRetries, c.retryDelayBase, func() error {
		_, err := c.bot.Send(edit)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed after %d retries: %w", c.maxRetries, err)
	}
	return nil
}

// SendCelebration posts the follow-up message after a successful alert.
func (c *Client) SendCelebration(card models.GoalCard) error {
	text := fmt.Sprintf("⚽️ <b>GOAL!</b> %s now %s, alert hit inside the window 🎉",
		escapeHTML(card.Match), card.Score)
	_, err := c.sendHTML(c.chatID, text)
	return err
}

// SendAccaSlips posts the daily accumulator message to the group chat and
// mirrors it to the DM chat when configured.
func (c *Client) SendAccaSlips(slips []models.Slip) error {
	text := formatAccaMessage(slips)
	if _, err := c.sendHTML(c.chatID, text); err != nil {
		return err
	}
	if c.dmChatID != 0 {
		if _, err := c.sendHTML(c.dmChatID, text); err != nil {
			logger.Warn("Failed to mirror accumulators to DM chat: %v", err)
		}
	}
	return nil
}

// SendWarning posts a plain warning to the group chat.
func (c *Client) SendWarning(text string) error {
	_, err := c.sendHTML(c.chatID, "⚠️ "+escapeHTML(text))
	return err
}

// SendError sends a poll-cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ <b>Polling error</b>\n<code>%s</code>", escapeHTML(cycleErr.Error()))
	_, err := c.sendHTML(c.chatID, text)
	return err
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ <b>Polling recovered</b> after %d consecutive failure(s)", failureCount)
	_, err := c.sendHTML(c.chatID, text)
	return err
}
