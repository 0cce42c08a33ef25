package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// BotAPI is the subset of *tgbotapi.BotAPI used for sending.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender sends plain-text chat messages, paced by a shared limiter.
type TelegramSender struct {
	bot     BotAPI
	limiter *rate.Limiter
}

// NewTelegramSender creates a sender. perSecond <= 0 disables pacing.
func NewTelegramSender(bot BotAPI, perSecond float64) *TelegramSender {
	s := &TelegramSender{bot: bot}
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return s
}

// ChatMessage addresses text to a numeric chat id or a channel username.
func ChatMessage(chatID, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chatID, text)
}

// SendText sends text to chatID.
func (s *TelegramSender) SendText(ctx context.Context, chatID, text string) error {
	if s.bot == nil {
		return fmt.Errorf("notify: telegram bot not configured")
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("notify: telegram rate wait: %w", err)
		}
	}
	if _, err := s.bot.Send(ChatMessage(chatID, text)); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}

// Deliver implements Deliverer.
func (s *TelegramSender) Deliver(ctx context.Context, target Target, n Notification) error {
	chat, ok := target.(Telegram)
	if !ok {
		return fmt.Errorf("%w: telegram sender got %s target", ErrInvalidTarget, target.Channel())
	}
	return s.SendText(ctx, chat.ChatID, n.Title+"\n"+n.Message)
}
