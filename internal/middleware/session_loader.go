package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/service"
)

type ctxKey string

const SessionKey ctxKey = "session"

// GetSession extracts the chat session from context.
func GetSession(ctx context.Context) *service.ChatSession {
	s, ok := ctx.Value(SessionKey).(*service.ChatSession)
	if !ok {
		return nil
	}
	return s
}

// SessionLoader returns middleware that resolves the per-chat session
// (reconstructing it from durable storage on first sight) and stores it
// in the context for handlers.
func SessionLoader(registry *service.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var chatID int64
			if update.Message != nil {
				chatID = update.Message.Chat.ID
			} else if update.EditedMessage != nil {
				chatID = update.EditedMessage.Chat.ID
			}

			if chatID != 0 {
				ctx = context.WithValue(ctx, SessionKey, registry.Session(ctx, chatID))
			}
			next(ctx, b, update)
		}
	}
}
