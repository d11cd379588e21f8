package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/middleware"
	"github.com/set-night/dermabot/internal/service"
	tg "github.com/set-night/dermabot/internal/telegram"
)

// HandleText drives one diagnostic turn from a plain text message.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || strings.HasPrefix(msg.Text, "/") {
		return
	}
	if msg.Text == "" {
		// Photo and document messages arrive with empty text.
		if len(msg.Photo) > 0 || msg.Document != nil {
			h.HandlePhoto(ctx, b, update)
		}
		return
	}

	h.runAsk(ctx, b, msg.Chat.ID, middleware.GetSession(ctx), msg.Text, msg.ID)
}

// HandleEdited treats an edited user message as "edit and resend": the
// edited turn and everything after it are discarded, and the new text is
// resubmitted as a fresh question.
func (h *Handler) HandleEdited(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.EditedMessage
	if msg == nil || msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}

	session := middleware.GetSession(ctx)
	if session == nil {
		return
	}

	turn, ok := session.Store.FindByMessageID(msg.ID)
	if !ok {
		return
	}
	newText, ok := session.Store.EditTurn(ctx, turn.ID, msg.Text)
	if !ok {
		return
	}

	h.runAsk(ctx, b, msg.Chat.ID, session, newText, msg.ID)
}

// runAsk performs one Ask call and renders the resulting assistant turn.
// Overlapping asks in the same chat are refused to keep turn ordering.
func (h *Handler) runAsk(ctx context.Context, b *bot.Bot, chatID int64, session *service.ChatSession, question string, messageID int) {
	if session == nil {
		return
	}

	if err := session.Acquire(); errors.Is(err, domain.ErrRequestInFlight) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⏳ Please wait for the answer to your previous question.",
		})
		return
	}
	defer session.Release()

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	turn, err := session.Client.Ask(ctx, question, messageID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoImageBound):
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "📷 Image required. Please upload a photo of your skin concern first.",
			})
		case errors.Is(err, domain.ErrEmptyQuestion):
			// Nothing to do with a blank question.
		default:
			slog.Error("ask failed", "error", err, "chat_id", chatID)
		}
		return
	}

	if err := tg.SendLongMessage(ctx, b, chatID, turn.Text, nil); err != nil {
		slog.Error("send answer", "error", err, "chat_id", chatID)
	}
}
