// Package telegram forwards staff-relevant events to a Telegram chat.
package telegram

import (
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/metrics"
	"complaintdesk/backend/internal/models"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements eventhub.Client. It is registered once at startup and
// posts a localized line to the staff chat for selected events.
type Notifier struct {
	ChatID    int64
	Lang      string
	Bot       Sender
	Localizer *localization.Localizer
	Send      chan models.Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewNotifier(bot Sender, chatID int64, lang string, loc *localization.Localizer) *Notifier {
	return &Notifier{
		ChatID:    chatID,
		Lang:      lang,
		Bot:       bot,
		Localizer: loc,
		Send:      make(chan models.Event, 128),
		done:      make(chan struct{}),
	}
}

// NewBot authorizes against the Bot API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = false
	logging.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return bot, nil
}

func (n *Notifier) GetID() string                       { return fmt.Sprintf("telegram:%d", n.ChatID) }
func (n *Notifier) GetSendChannel() chan<- models.Event { return n.Send }

// Run starts the write pump.
func (n *Notifier) Run() {
	go n.writePump()
}

// Close stops the pump once queued events are flushed.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.Send) })
}

// Done is closed when the pump has exited.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

func (n *Notifier) writePump() {
	defer close(n.done)

	for e := range n.Send {
		text, ok := n.Format(e)
		if !ok {
			continue
		}
		msg := tgbotapi.NewMessage(n.ChatID, text)
		if _, err := n.Bot.Send(msg); err != nil {
			metrics.NotificationsSent.WithLabelValues("error").Inc()
			logging.Error().Err(err).Str("type", string(e.Type)).Msg("failed to send telegram notification")
			continue
		}
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
	}
}

// Format renders e for the staff chat. Events staff do not need to see
// return false.
func (n *Notifier) Format(e models.Event) (string, bool) {
	data := map[string]any{
		"Reference": e.ReferenceID,
		"Record":    e.RecordID,
		"Category":  e.Category,
	}
	if e.ReferenceID == "" {
		data["Reference"] = e.RecordID
	}

	switch e.Type {
	case models.EventComplaintCreated, models.EventComplaintDeleted, models.EventReplyAdded:
	case models.EventComplaintUpdated:
		if e.Status == "" {
			return "", false
		}
		data["Status"] = n.Localizer.GetString(n.Lang, "status."+string(e.Status))
	case models.EventFeedbackCreated:
		if e.Rating != nil {
			data["Rating"] = *e.Rating
		}
	default:
		return "", false
	}

	return n.Localizer.GetStringWith(n.Lang, string(e.Type), data), true
}
