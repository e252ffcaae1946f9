package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ QueueRepository = (*SQLQueueRepository)(nil)

// SQLQueueRepository is the durable FIFO moderation queue.
type SQLQueueRepository struct {
	db *DB
}

func NewQueueRepository(db *DB) *SQLQueueRepository {
	return &SQLQueueRepository{db: db}
}

// Enqueue inserts a candidate item. Enqueueing a link already present is a
// no-op, so concurrent polls of the same feed cannot create duplicates.
func (r *SQLQueueRepository) Enqueue(link, title, body, imagePath string) error {
	_, err := r.db.Exec(`
		INSERT INTO queue (link, title, body, image_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (link) DO NOTHING
	`, link, title, body, imagePath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}
	return nil
}

// DequeueNext returns the oldest non-processing item and marks it processing
// in the same statement, so two concurrent dequeues can never return the
// same item.
func (r *SQLQueueRepository) DequeueNext() (*QueueItem, error) {
	var item QueueItem
	var startedAt sql.NullTime

	err := r.db.QueryRow(`
		UPDATE queue
		SET processing = 1, processing_started_at = ?
		WHERE id = (
			SELECT id FROM queue
			WHERE processing = 0
			ORDER BY created_at, id
			LIMIT 1
		)
		RETURNING id, link, title, body, image_path, created_at, processing, processing_started_at
	`, time.Now().UTC()).Scan(
		&item.ID, &item.Link, &item.Title, &item.Body, &item.ImagePath,
		&item.CreatedAt, &item.Processing, &startedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue item: %w", err)
	}

	if startedAt.Valid {
		item.ProcessingStartedAt = &startedAt.Time
	}

	return &item, nil
}

// Complete removes the queue row once its pending handle has been resolved,
// published or rejected alike.
func (r *SQLQueueRepository) Complete(link string) error {
	_, err := r.db.Exec(`DELETE FROM queue WHERE link = ?`, link)
	if err != nil {
		return fmt.Errorf("failed to complete item: %w", err)
	}
	return nil
}

// SweepStale clears the processing flag on items that started processing more
// than threshold ago. A crash between dequeue and complete must not strand an
// item forever; the sweep makes it eligible for redispatch.
func (r *SQLQueueRepository) SweepStale(threshold time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	result, err := r.db.Exec(`
		UPDATE queue
		SET processing = 0, processing_started_at = NULL
		WHERE processing = 1 AND processing_started_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get swept row count: %w", err)
	}

	return int(affected), nil
}

func (r *SQLQueueRepository) Size() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue size: %w", err)
	}
	return count, nil
}

func (r *SQLQueueRepository) ProcessingCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM queue WHERE processing = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get processing count: %w", err)
	}
	return count, nil
}
