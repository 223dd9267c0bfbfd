package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/bqvault/internal/config"
)

const telegramFileLimit = 50 * 1024 * 1024

// TelegramStorage is a write-only target: reports are announced or attached
// to a chat. Listing and deleting are no-ops.
type TelegramStorage struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	sendFile   bool
	notifyOnly bool
}

func NewTelegram(cfg *config.ReportTarget) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:        bot,
		chatID:     chatID,
		sendFile:   cfg.SendFile,
		notifyOnly: cfg.NotifyOnly,
	}, nil
}

func (t *TelegramStorage) Put(ctx context.Context, name string, body []byte) error {
	sizeKB := float64(len(body)) / 1024

	if t.notifyOnly || !t.sendFile || len(body) > telegramFileLimit {
		msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf(
			"📋 BigQuery run report\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %.1f KB\n"+
				"🕐 Time: %s",
			name,
			sizeKB,
			time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		))
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram notification: %w", err)
		}
		return nil
	}

	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{Name: name, Bytes: body})
	doc.Caption = fmt.Sprintf("📦 Report: %s (%.1f KB)", name, sizeKB)
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}

	return nil
}

func (t *TelegramStorage) List(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (t *TelegramStorage) Delete(ctx context.Context, name string) error {
	return nil
}

func (t *TelegramStorage) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return []string{}, nil
}
