package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/config"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("🩺 *Welcome to DermaBot*\n\n")
	sb.WriteString("Send a clear photo of your skin concern, then ask questions about it. ")
	sb.WriteString("Each conversation is about one image — uploading a new photo starts a fresh one.\n\n")
	sb.WriteString("*Try asking:*\n")
	for _, s := range config.PromptSuggestions {
		fmt.Fprintf(&sb, "• %s\n", s)
	}
	sb.WriteString("\n*Commands:*\n")
	sb.WriteString("/new — start a new conversation\n")
	sb.WriteString("/export — save the conversation as a text file\n\n")
	sb.WriteString("⚠️ DermaBot is not a substitute for professional medical advice.")

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      sb.String(),
		ParseMode: models.ParseModeMarkdownV1,
	})
}
