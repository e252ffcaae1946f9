package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsdesk/app/database"
	"newsdesk/app/feed"
	"newsdesk/app/rewrite"
)

// PollFeedTask fetches one RSS source and enqueues every entry that has not
// been through the pipeline yet. A failure on a single entry skips that entry
// only; a failure on the whole feed fails only this task.
type PollFeedTask struct {
	Task
	sourceURL   string
	fetcher     *feed.Fetcher
	parser      *feed.Parser
	extractor   *feed.ContentExtractor
	dedupRepo   database.DedupRepository
	queueRepo   database.QueueRepository
	feedTimeout time.Duration
	maxEntries  int
}

func NewPollFeedTask(sourceURL string, fetcher *feed.Fetcher, parser *feed.Parser,
	extractor *feed.ContentExtractor, dedupRepo database.DedupRepository,
	queueRepo database.QueueRepository, feedTimeout time.Duration, maxEntries int) *PollFeedTask {
	return &PollFeedTask{
		Task:        NewTask(TaskTypePollFeed, sourceURL),
		sourceURL:   sourceURL,
		fetcher:     fetcher,
		parser:      parser,
		extractor:   extractor,
		dedupRepo:   dedupRepo,
		queueRepo:   queueRepo,
		feedTimeout: feedTimeout,
		maxEntries:  maxEntries,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.feedTimeout)
	data, err := t.fetcher.Fetch(fetchCtx, t.sourceURL)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	entries, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	newCount := 0
	skippedCount := 0

	for _, entry := range entries {
		if newCount >= t.maxEntries {
			break
		}

		_, known, err := t.dedupRepo.GetStatus(entry.Link)
		if err != nil {
			// Storage trouble aborts the whole poll, not just the entry.
			return fmt.Errorf("failed to check dedup status: %w", err)
		}
		if known {
			skippedCount++
			continue
		}

		if err := t.processEntry(ctx, entry); err != nil {
			slog.Warn("Failed to process feed entry, skipping",
				"feed", t.sourceURL, "link", entry.Link, "error", err)
			continue
		}
		newCount++
	}

	slog.Info("Task completed",
		"type", "PollFeed",
		"feed", t.sourceURL,
		"duration", t.GetDuration(),
		"total", len(entries),
		"known", skippedCount,
		"new", newCount)

	return nil
}

// processEntry extracts the article body and image, enqueues the item and
// marks the link seen. Extraction failures degrade to the feed summary;
// image failures degrade to a stock image or none.
func (t *PollFeedTask) processEntry(ctx context.Context, entry feed.Entry) error {
	body := t.extractBody(ctx, entry)
	imagePath := t.resolveImage(ctx, entry)

	if err := t.queueRepo.Enqueue(entry.Link, entry.Title, body, imagePath); err != nil {
		return err
	}

	if err := t.dedupRepo.MarkSeen(entry.Link); err != nil {
		return err
	}

	return nil
}

func (t *PollFeedTask) extractBody(ctx context.Context, entry feed.Entry) string {
	fetchCtx, cancel := context.WithTimeout(ctx, t.feedTimeout)
	defer cancel()

	html, err := t.fetcher.Fetch(fetchCtx, entry.Link)
	if err == nil {
		if body, extractErr := t.extractor.Run(html); extractErr == nil {
			return body
		} else {
			slog.Debug("Content extraction failed, using feed summary",
				"link", entry.Link, "error", extractErr)
		}
	} else {
		slog.Debug("Article fetch failed, using feed summary",
			"link", entry.Link, "error", err)
	}

	return rewrite.CleanText(entry.Summary)
}

func (t *PollFeedTask) resolveImage(ctx context.Context, entry feed.Entry) string {
	if entry.ImageURL != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, t.feedTimeout)
		defer cancel()

		path, err := t.fetcher.DownloadImage(fetchCtx, entry.ImageURL)
		if err == nil {
			return path
		}
		slog.Debug("Image download failed, using stock image",
			"link", entry.Link, "image_url", entry.ImageURL, "error", err)
	}

	return t.fetcher.StockImage()
}
