package database

import (
	"fmt"
)

var _ SourceRepository = (*SQLSourceRepository)(nil)

// SQLSourceRepository handles operator-managed RSS feed sources.
type SQLSourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SQLSourceRepository {
	return &SQLSourceRepository{db: db}
}

// AddSource registers a feed URL. Adding an already registered URL is a no-op.
func (r *SQLSourceRepository) AddSource(url string) error {
	_, err := r.db.Exec(`INSERT INTO sources (url) VALUES (?) ON CONFLICT (url) DO NOTHING`, url)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) RemoveSource(url string) error {
	_, err := r.db.Exec(`DELETE FROM sources WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) GetSources() ([]Source, error) {
	rows, err := r.db.Query(`SELECT id, url, created_at FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.URL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SQLSourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
