package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotPending is returned when an action arrives for an item that has
// already been resolved by another moderator. First responder wins; the
// later action is answered with "not found", never a duplicate transition.
var ErrNotPending = errors.New("item is not pending")

// RawItem is the ephemeral handle for an item in raw review.
type RawItem struct {
	Link      string
	Title     string
	Body      string
	ImagePath string
}

// ProcessedItem is the ephemeral handle for an item in final review, carrying
// the possibly rewritten text.
type ProcessedItem struct {
	Link          string
	Text          string
	ImagePath     string
	OriginalTitle string
}

// MessageRef identifies one chat message delivered to one moderator, so every
// copy of a broadcast can be retracted once any moderator acts.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Targets selects where a final-review publish action should deliver.
type Targets struct {
	Channel bool
	Site    bool
}

// PublishResult reports the per-target outcome of a publish action.
type PublishResult struct {
	ChannelAttempted bool
	ChannelErr       error
	SiteAttempted    bool
	SiteErr          error
}

// Published reports whether at least one attempted target succeeded.
func (r PublishResult) Published() bool {
	if r.ChannelAttempted && r.ChannelErr == nil {
		return true
	}
	if r.SiteAttempted && r.SiteErr == nil {
		return true
	}
	return false
}

// Partial reports whether some attempted target failed while another succeeded.
func (r PublishResult) Partial() bool {
	return r.Published() &&
		((r.ChannelAttempted && r.ChannelErr != nil) || (r.SiteAttempted && r.SiteErr != nil))
}

// Notifier delivers moderation broadcasts to every moderator and plain
// notifications about resolutions. Delivery failures to individual moderators
// are swallowed by the implementation; an error means no moderator received
// the broadcast at all.
type Notifier interface {
	BroadcastRaw(ctx context.Context, id string, item RawItem) ([]MessageRef, error)
	BroadcastProcessed(ctx context.Context, id string, item ProcessedItem) ([]MessageRef, error)
	Retract(refs []MessageRef)
	NotifyAll(ctx context.Context, text string)
}

// Rewriter paraphrases an article. An error means the caller should degrade
// to the deterministic fallback text.
type Rewriter interface {
	Rewrite(ctx context.Context, title, body string) (string, error)
}

// Publisher delivers an approved item to one publish target.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, item ProcessedItem) error
}

// ItemID derives the stable pending-map key for a link.
func ItemID(link string) string {
	hash := sha256.Sum256([]byte(link))
	return hex.EncodeToString(hash[:8])
}
