package database

import (
	"time"
)

type SourceRepository interface {
	AddSource(url string) error
	RemoveSource(url string) error
	GetSources() ([]Source, error)
	GetSourceCount() (int, error)
}

type DedupRepository interface {
	GetStatus(link string) (DedupStatus, bool, error)
	IsPublished(link string) (bool, error)
	MarkSeen(link string) error
	MarkPublished(link string) error
	MarkDismissed(link string) error
}

type QueueRepository interface {
	Enqueue(link, title, body, imagePath string) error
	DequeueNext() (*QueueItem, error)
	Complete(link string) error
	SweepStale(threshold time.Duration) (int, error)
	Size() (int, error)
	ProcessingCount() (int, error)
}

type LockRepository interface {
	TryAcquire(ttl time.Duration) (bool, error)
	Release() error
}
