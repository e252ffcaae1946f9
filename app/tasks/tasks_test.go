package tasks

import (
	"context"
	"path/filepath"
	"testing"

	"newsdesk/app/database"
	"newsdesk/app/moderation"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewConnection(path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

type stubNotifier struct {
	rawCount int
	fail     bool
}

func (n *stubNotifier) BroadcastRaw(ctx context.Context, id string, item moderation.RawItem) ([]moderation.MessageRef, error) {
	if n.fail {
		return nil, context.DeadlineExceeded
	}
	n.rawCount++
	return []moderation.MessageRef{{ChatID: 1, MessageID: n.rawCount}}, nil
}

func (n *stubNotifier) BroadcastProcessed(ctx context.Context, id string, item moderation.ProcessedItem) ([]moderation.MessageRef, error) {
	return []moderation.MessageRef{{ChatID: 1, MessageID: 999}}, nil
}

func (n *stubNotifier) Retract(refs []moderation.MessageRef)       {}
func (n *stubNotifier) NotifyAll(ctx context.Context, text string) {}

type stubRewriter struct{}

func (stubRewriter) Rewrite(ctx context.Context, title, body string) (string, error) {
	return title + "\n\n" + body, nil
}

type stubPublisher struct{ name string }

func (p stubPublisher) Name() string { return p.name }
func (p stubPublisher) Publish(ctx context.Context, item moderation.ProcessedItem) error {
	return nil
}
