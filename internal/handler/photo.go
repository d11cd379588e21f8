package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/dermabot/internal/config"
	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/middleware"
	tg "github.com/set-night/dermabot/internal/telegram"
)

// HandlePhoto binds an uploaded image to the chat session. Binding
// replaces any previous image and clears the conversation, since a new
// image is a new diagnostic context. A caption is treated as the first
// question.
func (h *Handler) HandlePhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	session := middleware.GetSession(ctx)
	if session == nil {
		return
	}

	fileID, err := pickUpload(msg)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedImage):
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "⚠️ Please upload a clear image of your skin concern (JPG, PNG, HEIC, HEIF or WebP).",
			})
		case errors.Is(err, domain.ErrImageTooLarge):
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "⚠️ File too large. Please upload an image smaller than 5MB.",
			})
		}
		return
	}

	data, err := tg.DownloadFile(ctx, b, fileID)
	if err != nil {
		slog.Error("download image", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Upload failed. Please try again.",
		})
		return
	}
	if int64(len(data)) > config.MaxImageBytes {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ File too large. Please upload an image smaller than 5MB.",
		})
		return
	}

	session.Images.Bind(base64.StdEncoding.EncodeToString(data))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "📷 Image uploaded successfully. You can now ask questions about your skin concern.",
	})

	if msg.Caption != "" {
		h.runAsk(ctx, b, chatID, session, msg.Caption, msg.ID)
	}
}

// pickUpload selects the file to download from a message and validates it
// against the type allow-list and the declared size. The size is checked
// again after download; Telegram's declared sizes are advisory.
func pickUpload(msg *models.Message) (string, error) {
	var fileID string
	var declaredSize int64

	switch {
	case len(msg.Photo) > 0:
		// Highest resolution variant; Telegram photos are re-encoded JPEG.
		photo := msg.Photo[len(msg.Photo)-1]
		fileID = photo.FileID
		declaredSize = int64(photo.FileSize)
	case msg.Document != nil:
		if !config.IsAllowedImageType(msg.Document.MimeType) {
			return "", domain.ErrUnsupportedImage
		}
		fileID = msg.Document.FileID
		declaredSize = int64(msg.Document.FileSize)
	default:
		return "", domain.ErrUnsupportedImage
	}

	if declaredSize > config.MaxImageBytes {
		return "", domain.ErrImageTooLarge
	}
	return fileID, nil
}
