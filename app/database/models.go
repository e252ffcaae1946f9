package database

import (
	"time"
)

// DedupStatus marks how far a link has travelled through the pipeline.
type DedupStatus string

const (
	StatusSeen      DedupStatus = "seen"      // sent to moderation at least once
	StatusPublished DedupStatus = "published" // published to at least one target, never reprocessed
	StatusDismissed DedupStatus = "dismissed" // rejected by a moderator, never reprocessed
)

type Source struct {
	ID        int64
	URL       string
	CreatedAt time.Time
}

type DedupRecord struct {
	Link     string
	Status   DedupStatus
	MarkedAt time.Time
}

// QueueItem is a durable candidate news item awaiting moderation dispatch.
// Processing is set while the item is being pushed into raw review and is
// cleared either by Complete or by a staleness sweep.
type QueueItem struct {
	ID                  int64
	Link                string
	Title               string
	Body                string
	ImagePath           string
	CreatedAt           time.Time
	Processing          bool
	ProcessingStartedAt *time.Time
}
