package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ DedupRepository = (*SQLDedupRepository)(nil)

// SQLDedupRepository records which links have already entered or left the
// pipeline so a feed polled twice never queues the same article twice.
type SQLDedupRepository struct {
	db *DB
}

func NewDedupRepository(db *DB) *SQLDedupRepository {
	return &SQLDedupRepository{db: db}
}

func (r *SQLDedupRepository) GetStatus(link string) (DedupStatus, bool, error) {
	var status DedupStatus
	err := r.db.QueryRow(`SELECT status FROM dedup WHERE link = ?`, link).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get dedup status: %w", err)
	}
	return status, true, nil
}

func (r *SQLDedupRepository) IsPublished(link string) (bool, error) {
	status, ok, err := r.GetStatus(link)
	if err != nil {
		return false, err
	}
	return ok && status == StatusPublished, nil
}

// MarkSeen records that a link was handed to moderation. It never downgrades
// a published or dismissed record.
func (r *SQLDedupRepository) MarkSeen(link string) error {
	_, err := r.db.Exec(`
		INSERT INTO dedup (link, status, marked_at) VALUES (?, ?, ?)
		ON CONFLICT (link) DO NOTHING
	`, link, StatusSeen, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark link seen: %w", err)
	}
	return nil
}

func (r *SQLDedupRepository) MarkPublished(link string) error {
	return r.markTerminal(link, StatusPublished)
}

func (r *SQLDedupRepository) MarkDismissed(link string) error {
	return r.markTerminal(link, StatusDismissed)
}

// markTerminal upserts a terminal status. A published link stays published
// even if a later moderator dismisses a stale copy.
func (r *SQLDedupRepository) markTerminal(link string, status DedupStatus) error {
	_, err := r.db.Exec(`
		INSERT INTO dedup (link, status, marked_at) VALUES (?, ?, ?)
		ON CONFLICT (link) DO UPDATE SET
			status = excluded.status,
			marked_at = excluded.marked_at
		WHERE dedup.status != ?
	`, link, status, time.Now().UTC(), StatusPublished)
	if err != nil {
		return fmt.Errorf("failed to mark link %s: %w", status, err)
	}
	return nil
}
