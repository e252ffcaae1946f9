package database

import (
	"fmt"
	"time"
)

var _ LockRepository = (*SQLLockRepository)(nil)

// SQLLockRepository is the singleton moderation lock: a coarse gate keeping
// the scheduler from pushing a second item into raw review while one decision
// is still outstanding. The TTL lets the gate open again if the process died
// mid-moderation.
type SQLLockRepository struct {
	db *DB
}

func NewLockRepository(db *DB) *SQLLockRepository {
	return &SQLLockRepository{db: db}
}

// TryAcquire atomically takes the lock if it is free or expired.
func (r *SQLLockRepository) TryAcquire(ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE moderation_lock
		SET locked = 1, locked_until = ?
		WHERE id = 1 AND (locked = 0 OR locked_until IS NULL OR locked_until < ?)
	`, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("failed to acquire moderation lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get lock row count: %w", err)
	}

	return affected == 1, nil
}

func (r *SQLLockRepository) Release() error {
	_, err := r.db.Exec(`UPDATE moderation_lock SET locked = 0, locked_until = NULL WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to release moderation lock: %w", err)
	}
	return nil
}
