package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/middleware"
)

var boldMarkup = regexp.MustCompile(`\*\*(.*?)\*\*`)

func (h *Handler) handleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	session := middleware.GetSession(ctx)
	if session == nil {
		return
	}

	turns := session.Store.Turns()
	if len(turns) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Nothing to export yet. Upload an image and ask a question first.",
		})
		return
	}

	transcript := buildTranscript(turns, time.Now())
	filename := fmt.Sprintf("DermaBot-Conversation-%s.txt", time.Now().Format("2006-01-02"))

	_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader([]byte(transcript)),
		},
		Caption: "📄 Your conversation export",
	})
	if err != nil {
		slog.Error("send export", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Export failed. Please try again.",
		})
	}
}

// buildTranscript renders the conversation as plain text with a
// disclaimer preamble and per-turn separators.
func buildTranscript(turns []domain.Turn, now time.Time) string {
	const stamp = "January 2, 2006 15:04:05"
	var sb strings.Builder

	fmt.Fprintf(&sb, "DERMABOT CONVERSATION EXPORT\nGenerated on: %s\nTotal Messages: %d\n\n", now.Format(stamp), len(turns))
	wide := strings.Repeat("=", 80)
	sb.WriteString(wide + "\nMEDICAL DISCLAIMER\n" + wide + "\n\n")
	sb.WriteString("This conversation is for informational purposes only and should not replace\n")
	sb.WriteString("professional medical advice. Please consult with a qualified dermatologist\n")
	sb.WriteString("or healthcare provider for proper diagnosis and treatment.\n\n")
	sb.WriteString(wide + "\nCONVERSATION HISTORY\n" + wide + "\n\n")

	sep := strings.Repeat("=", 60)
	for _, t := range turns {
		sender := "USER"
		if t.Role == domain.RoleAssistant {
			sender = "DERMABOT AI"
		}
		fmt.Fprintf(&sb, "%s\n%s - %s\n%s\n\n", sep, sender, t.CreatedAt.Format(stamp), sep)
		if t.Image != "" && t.Role == domain.RoleUser {
			sb.WriteString("[IMAGE ATTACHED: Skin concern photo]\n\n")
		}
		text := boldMarkup.ReplaceAllString(t.Text, "$1")
		sb.WriteString(strings.TrimSpace(text) + "\n\n")
	}

	return sb.String()
}
