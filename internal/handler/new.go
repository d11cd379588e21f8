package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/middleware"
)

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	session := middleware.GetSession(ctx)
	if session == nil {
		return
	}

	session.Store.Clear(ctx)
	session.Images.Clear()

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🔄 New conversation started. Previous chat history has been cleared.",
	})
}
