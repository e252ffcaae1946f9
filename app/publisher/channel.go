package publisher

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsdesk/app/bot"
	"newsdesk/app/moderation"
	"newsdesk/app/retry"
)

const captionLimit = 1024

var _ moderation.Publisher = (*ChannelPublisher)(nil)

// ChannelPublisher posts approved items to the destination Telegram channel.
type ChannelPublisher struct {
	api       *tgbotapi.BotAPI
	channelID int64
	policy    retry.Policy
}

func NewChannelPublisher(api *tgbotapi.BotAPI, channelID int64, policy retry.Policy) *ChannelPublisher {
	return &ChannelPublisher{
		api:       api,
		channelID: channelID,
		policy:    policy,
	}
}

func (p *ChannelPublisher) Name() string {
	return "channel"
}

func (p *ChannelPublisher) Publish(ctx context.Context, item moderation.ProcessedItem) error {
	if p.channelID == 0 {
		return fmt.Errorf("channel publishing is not configured")
	}

	return p.policy.Do(ctx, "channel publish", func() error {
		return p.send(item)
	})
}

func (p *ChannelPublisher) send(item moderation.ProcessedItem) error {
	text := html.EscapeString(item.Text)

	photoUsable := item.ImagePath != ""
	if photoUsable {
		if _, err := os.Stat(item.ImagePath); err != nil {
			slog.Warn("Image file missing, publishing text only", "path", item.ImagePath)
			photoUsable = false
		}
	}

	if photoUsable {
		photo := tgbotapi.NewPhoto(p.channelID, tgbotapi.FilePath(item.ImagePath))
		photo.ParseMode = tgbotapi.ModeHTML

		if len([]rune(text)) <= captionLimit {
			photo.Caption = text
			if _, err := p.api.Send(photo); err != nil {
				return fmt.Errorf("failed to send channel photo: %w", err)
			}
			return nil
		}

		// Long text: photo first, then the text in split messages.
		if _, err := p.api.Send(photo); err != nil {
			return fmt.Errorf("failed to send channel photo: %w", err)
		}
	}

	for _, part := range bot.SplitText(text, 4096) {
		msg := tgbotapi.NewMessage(p.channelID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := p.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send channel message: %w", err)
		}
	}

	return nil
}
