package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"newsdesk/app/database"
	"newsdesk/app/rewrite"
)

// Service is the moderation state machine. Each queue item travels
// raw review -> (optional rewrite) -> final review -> published or rejected,
// driven by moderator actions arriving through the chat interface. The
// pending maps are the only non-durable state; everything defining "what's
// next" lives in the database.
type Service struct {
	queueRepo database.QueueRepository
	dedupRepo database.DedupRepository
	lockRepo  database.LockRepository

	notifier Notifier
	rewriter Rewriter
	channel  Publisher
	site     Publisher

	maxWords int

	pendingRaw       *pendingStore[RawItem]
	pendingProcessed *pendingStore[ProcessedItem]
}

func NewService(queueRepo database.QueueRepository, dedupRepo database.DedupRepository,
	lockRepo database.LockRepository, notifier Notifier, rewriter Rewriter,
	channel, site Publisher, maxWords int) *Service {
	return &Service{
		queueRepo:        queueRepo,
		dedupRepo:        dedupRepo,
		lockRepo:         lockRepo,
		notifier:         notifier,
		rewriter:         rewriter,
		channel:          channel,
		site:             site,
		maxWords:         maxWords,
		pendingRaw:       newPendingStore[RawItem](),
		pendingProcessed: newPendingStore[ProcessedItem](),
	}
}

// SubmitRaw moves a dequeued item into raw review: registers the pending
// handle and broadcasts it to every moderator. A broadcast that reached
// nobody is an error and leaves no pending handle behind.
func (s *Service) SubmitRaw(ctx context.Context, item RawItem) error {
	id := ItemID(item.Link)

	s.pendingRaw.Put(id, item)

	refs, err := s.notifier.BroadcastRaw(ctx, id, item)
	if err != nil {
		s.pendingRaw.Remove(id)
		return fmt.Errorf("failed to broadcast raw item: %w", err)
	}

	if !s.pendingRaw.SetRefs(id, refs) {
		// Resolved while the broadcast was still going out.
		s.notifier.Retract(refs)
		return nil
	}

	slog.Info("Item entered raw review", "id", id, "link", item.Link, "copies", len(refs))
	return nil
}

// ApproveRaw resolves a raw review with "approve for rewrite": the item is
// paraphrased (degrading to the original text when the rewrite service
// fails) and moved into final review.
func (s *Service) ApproveRaw(ctx context.Context, id string) error {
	entry, ok := s.pendingRaw.Take(id)
	if !ok {
		return ErrNotPending
	}
	s.notifier.Retract(entry.refs)

	item := entry.item
	text, err := s.rewriter.Rewrite(ctx, item.Title, item.Body)
	if err != nil {
		slog.Warn("Rewrite failed, falling back to original text", "id", id, "error", err)
		text = rewrite.Fallback(item.Title, item.Body, s.maxWords)
	} else {
		text = rewrite.LimitWords(text, s.maxWords)
	}

	return s.submitProcessed(ctx, ProcessedItem{
		Link:          item.Link,
		Text:          text,
		ImagePath:     item.ImagePath,
		OriginalTitle: item.Title,
	})
}

// PublishAsIs resolves a raw review by skipping the rewrite: the original
// title and body become the final-review text.
func (s *Service) PublishAsIs(ctx context.Context, id string) error {
	entry, ok := s.pendingRaw.Take(id)
	if !ok {
		return ErrNotPending
	}
	s.notifier.Retract(entry.refs)

	item := entry.item
	return s.submitProcessed(ctx, ProcessedItem{
		Link:          item.Link,
		Text:          rewrite.Fallback(item.Title, item.Body, s.maxWords),
		ImagePath:     item.ImagePath,
		OriginalTitle: item.Title,
	})
}

func (s *Service) submitProcessed(ctx context.Context, item ProcessedItem) error {
	id := ItemID(item.Link)

	s.pendingProcessed.Put(id, item)

	refs, err := s.notifier.BroadcastProcessed(ctx, id, item)
	if err != nil {
		s.pendingProcessed.Remove(id)
		return fmt.Errorf("failed to broadcast processed item: %w", err)
	}

	if !s.pendingProcessed.SetRefs(id, refs) {
		s.notifier.Retract(refs)
		return nil
	}

	slog.Info("Item entered final review", "id", id, "link", item.Link, "copies", len(refs))
	return nil
}

// RejectRaw resolves a raw review as rejected: terminal for this item.
func (s *Service) RejectRaw(ctx context.Context, id string) error {
	entry, ok := s.pendingRaw.Take(id)
	if !ok {
		return ErrNotPending
	}
	s.notifier.Retract(entry.refs)
	s.resolveRejected(ctx, entry.item.Link, "raw")
	return nil
}

// RejectProcessed resolves a final review as rejected.
func (s *Service) RejectProcessed(ctx context.Context, id string) error {
	entry, ok := s.pendingProcessed.Take(id)
	if !ok {
		return ErrNotPending
	}
	s.notifier.Retract(entry.refs)
	s.resolveRejected(ctx, entry.item.Link, "processed")
	return nil
}

// resolveRejected marks the link permanently dismissed, distinct from
// published, so a later poll never re-queues it.
func (s *Service) resolveRejected(ctx context.Context, link, stage string) {
	if err := s.dedupRepo.MarkDismissed(link); err != nil {
		slog.Error("Failed to mark link dismissed", "link", link, "error", err)
	}
	if err := s.queueRepo.Complete(link); err != nil {
		slog.Error("Failed to complete queue item", "link", link, "error", err)
	}
	if err := s.lockRepo.Release(); err != nil {
		slog.Error("Failed to release moderation lock", "error", err)
	}

	slog.Info("Item rejected", "link", link, "stage", stage)

	if stage == "raw" {
		s.notifier.NotifyAll(ctx, "❌ Raw item rejected.")
	} else {
		s.notifier.NotifyAll(ctx, "❌ Processed item rejected.")
	}
}

// Publish resolves a final review by sending the item to the requested
// targets. Success on at least one target is a publish: the dedup record is
// marked published and the pending handle is discarded. Total failure
// restores the pending handle so the same action can simply be pressed again.
func (s *Service) Publish(ctx context.Context, id string, targets Targets) (PublishResult, error) {
	var result PublishResult

	if !targets.Channel && !targets.Site {
		return result, fmt.Errorf("no publish targets requested")
	}

	entry, ok := s.pendingProcessed.Take(id)
	if !ok {
		return result, ErrNotPending
	}
	item := entry.item

	if targets.Channel {
		result.ChannelAttempted = true
		result.ChannelErr = s.channel.Publish(ctx, item)
		if result.ChannelErr != nil {
			slog.Error("Channel publish failed", "id", id, "error", result.ChannelErr)
		}
	}

	if targets.Site {
		result.SiteAttempted = true
		result.SiteErr = s.site.Publish(ctx, item)
		if result.SiteErr != nil {
			slog.Error("Site publish failed", "id", id, "error", result.SiteErr)
		}
	}

	if !result.Published() {
		s.pendingProcessed.Restore(id, entry)
		return result, fmt.Errorf("all publish targets failed")
	}

	if err := s.dedupRepo.MarkPublished(item.Link); err != nil {
		slog.Error("Failed to mark link published", "link", item.Link, "error", err)
	}
	if err := s.queueRepo.Complete(item.Link); err != nil {
		slog.Error("Failed to complete queue item", "link", item.Link, "error", err)
	}
	s.notifier.Retract(entry.refs)
	if err := s.lockRepo.Release(); err != nil {
		slog.Error("Failed to release moderation lock", "error", err)
	}

	slog.Info("Item published", "id", id, "link", item.Link, "partial", result.Partial())
	s.notifier.NotifyAll(ctx, publishResultMessage(result))

	return result, nil
}

func publishResultMessage(result PublishResult) string {
	channelOK := result.ChannelAttempted && result.ChannelErr == nil
	siteOK := result.SiteAttempted && result.SiteErr == nil

	switch {
	case channelOK && siteOK:
		return "🚀 Published to the channel and the site."
	case channelOK && result.SiteAttempted:
		return "✅ Published to the channel (site failed)."
	case siteOK && result.ChannelAttempted:
		return "🌐 Published to the site (channel failed)."
	case channelOK:
		return "✅ Published to the channel."
	default:
		return "🌐 Published to the site."
	}
}

// PendingCounts reports the sizes of both pending maps for status commands.
func (s *Service) PendingCounts() (raw, processed int) {
	return s.pendingRaw.Len(), s.pendingProcessed.Len()
}
