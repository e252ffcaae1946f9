package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsdesk/app/moderation"
	"newsdesk/app/retry"
)

const (
	captionLimit = 1024
	messageLimit = 4096
)

var _ moderation.Notifier = (*Sender)(nil)

// Sender delivers moderation broadcasts and notifications to every moderator.
// A moderator who never initiated contact with the bot simply doesn't receive
// the message; the broadcast succeeds as long as at least one copy lands.
type Sender struct {
	api        *tgbotapi.BotAPI
	moderators []int64
	policy     retry.Policy
}

func NewSender(api *tgbotapi.BotAPI, moderators []int64, policy retry.Policy) *Sender {
	return &Sender{
		api:        api,
		moderators: moderators,
		policy:     policy,
	}
}

// BroadcastRaw presents a raw item for first-stage review.
func (s *Sender) BroadcastRaw(ctx context.Context, id string, item moderation.RawItem) ([]moderation.MessageRef, error) {
	text := fmt.Sprintf("<b>%s</b>\n\n%s\n\n🔗 Source: %s",
		html.EscapeString(item.Title),
		html.EscapeString(item.Body),
		html.EscapeString(item.Link))

	shortText := fmt.Sprintf("<b>%s</b>\n\n🔗 Source: %s",
		html.EscapeString(item.Title),
		html.EscapeString(item.Link))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve for rewrite", callbackData(actionApproveRaw, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Publish as is", callbackData(actionPublishAsIs, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackData(actionRejectRaw, id)),
		),
	)

	return s.broadcast(ctx, text, shortText, item.ImagePath, &keyboard)
}

// BroadcastProcessed presents a processed item for the final publish decision.
func (s *Sender) BroadcastProcessed(ctx context.Context, id string, item moderation.ProcessedItem) ([]moderation.MessageRef, error) {
	text := fmt.Sprintf("✍️ <b>Processed item</b>\n(original: %s)\n\n%s",
		html.EscapeString(item.OriginalTitle),
		html.EscapeString(item.Text))

	shortText := fmt.Sprintf("✍️ <b>Processed item</b>\n(original: %s)",
		html.EscapeString(item.OriginalTitle))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Site", callbackData(actionPublishSite, id)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Channel", callbackData(actionPublishChannel, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Both", callbackData(actionPublishBoth, id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackData(actionRejectProcessed, id)),
		),
	)

	return s.broadcast(ctx, text, shortText, item.ImagePath, &keyboard)
}

// broadcast sends one copy per moderator, retrying each delivery with the
// shared policy. Failures for individual moderators are logged and skipped;
// an error is returned only when nobody received the item.
func (s *Sender) broadcast(ctx context.Context, text, shortText, imagePath string, keyboard *tgbotapi.InlineKeyboardMarkup) ([]moderation.MessageRef, error) {
	var refs []moderation.MessageRef
	delivered := 0

	for _, moderatorID := range s.moderators {
		var sent []moderation.MessageRef
		err := s.policy.Do(ctx, "moderator delivery", func() error {
			var sendErr error
			sent, sendErr = s.sendRich(moderatorID, text, shortText, imagePath, keyboard)
			return sendErr
		})
		if err != nil {
			slog.Warn("Failed to deliver broadcast to moderator", "moderator", moderatorID, "error", err)
			continue
		}
		refs = append(refs, sent...)
		delivered++
	}

	if delivered == 0 {
		return nil, fmt.Errorf("broadcast reached no moderators")
	}

	slog.Debug("Broadcast delivered", "moderators", delivered, "messages", len(refs))
	return refs, nil
}

// sendRich delivers text with an optional photo to one chat. Short texts ride
// in the photo caption; long texts are sent as a short caption plus split
// follow-up messages. A missing image file degrades to text-only delivery.
func (s *Sender) sendRich(chatID int64, text, shortText, imagePath string, keyboard *tgbotapi.InlineKeyboardMarkup) ([]moderation.MessageRef, error) {
	var refs []moderation.MessageRef

	photoUsable := imagePath != ""
	if photoUsable {
		if _, err := os.Stat(imagePath); err != nil {
			slog.Warn("Image file missing, sending text only", "path", imagePath)
			photoUsable = false
		}
	}

	if photoUsable {
		if len([]rune(text)) <= captionLimit {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(imagePath))
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			if keyboard != nil {
				photo.ReplyMarkup = keyboard
			}
			msg, err := s.api.Send(photo)
			if err != nil {
				return nil, fmt.Errorf("failed to send photo: %w", err)
			}
			return append(refs, moderation.MessageRef{ChatID: chatID, MessageID: msg.MessageID}), nil
		}

		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(imagePath))
		photo.Caption = shortText
		photo.ParseMode = tgbotapi.ModeHTML
		if keyboard != nil {
			photo.ReplyMarkup = keyboard
		}
		msg, err := s.api.Send(photo)
		if err != nil {
			return nil, fmt.Errorf("failed to send photo: %w", err)
		}
		refs = append(refs, moderation.MessageRef{ChatID: chatID, MessageID: msg.MessageID})

		return s.sendSplitText(chatID, text, refs)
	}

	if keyboard != nil && len([]rune(text)) > messageLimit {
		// Keep the keyboard on a short lead message so the actions are
		// always visible, then follow with the body.
		lead := tgbotapi.NewMessage(chatID, shortText)
		lead.ParseMode = tgbotapi.ModeHTML
		lead.ReplyMarkup = keyboard
		msg, err := s.api.Send(lead)
		if err != nil {
			return nil, fmt.Errorf("failed to send message: %w", err)
		}
		refs = append(refs, moderation.MessageRef{ChatID: chatID, MessageID: msg.MessageID})
		return s.sendSplitText(chatID, text, refs)
	}

	for i, part := range SplitText(text, messageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if keyboard != nil && i == 0 {
			msg.ReplyMarkup = keyboard
		}
		sent, err := s.api.Send(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to send message: %w", err)
		}
		refs = append(refs, moderation.MessageRef{ChatID: chatID, MessageID: sent.MessageID})
	}

	return refs, nil
}

func (s *Sender) sendSplitText(chatID int64, text string, refs []moderation.MessageRef) ([]moderation.MessageRef, error) {
	for _, part := range SplitText(text, messageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		sent, err := s.api.Send(msg)
		if err != nil {
			return refs, fmt.Errorf("failed to send message part: %w", err)
		}
		refs = append(refs, moderation.MessageRef{ChatID: chatID, MessageID: sent.MessageID})
	}
	return refs, nil
}

// Retract deletes every delivered copy of a resolved broadcast. Deletion
// failures are ignored: the message may already be gone.
func (s *Sender) Retract(refs []moderation.MessageRef) {
	for _, ref := range refs {
		if _, err := s.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
			slog.Debug("Failed to delete message", "chat", ref.ChatID, "message", ref.MessageID, "error", err)
		}
	}
}

// NotifyAll sends a plain notification to every moderator, best effort.
func (s *Sender) NotifyAll(ctx context.Context, text string) {
	for _, moderatorID := range s.moderators {
		msg := tgbotapi.NewMessage(moderatorID, text)
		if _, err := s.api.Send(msg); err != nil {
			slog.Debug("Failed to notify moderator", "moderator", moderatorID, "error", err)
		}
	}
}

// SplitText breaks text into chunks of at most limit runes, preferring
// paragraph and word boundaries.
func SplitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = append(parts, string(runes))
			break
		}

		cut := limit
		window := string(runes[:limit])
		if i := strings.LastIndex(window, "\n"); i > limit/2 {
			cut = len([]rune(window[:i]))
		} else if i := strings.LastIndex(window, " "); i > limit/2 {
			cut = len([]rune(window[:i]))
		}

		parts = append(parts, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}

	return parts
}
