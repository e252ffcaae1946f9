package database

import (
	"testing"
)

func TestGetStatusUnknownLink(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDedupRepository(db)

	_, ok, err := repo.GetStatus("https://example.com/unknown")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if ok {
		t.Error("Expected unknown link to report not found")
	}
}

func TestMarkSeenDoesNotDowngrade(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDedupRepository(db)

	link := "https://example.com/a"

	if err := repo.MarkPublished(link); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}
	if err := repo.MarkSeen(link); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	status, ok, err := repo.GetStatus(link)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if !ok || status != StatusPublished {
		t.Errorf("Expected status %s, got %s (found=%v)", StatusPublished, status, ok)
	}
}

func TestPublishedIsFinal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDedupRepository(db)

	link := "https://example.com/a"

	if err := repo.MarkPublished(link); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}
	if err := repo.MarkDismissed(link); err != nil {
		t.Fatalf("MarkDismissed failed: %v", err)
	}

	published, err := repo.IsPublished(link)
	if err != nil {
		t.Fatalf("IsPublished failed: %v", err)
	}
	if !published {
		t.Error("Expected published link to stay published after a late dismiss")
	}
}

func TestMarkDismissedUpgradesSeen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDedupRepository(db)

	link := "https://example.com/a"

	if err := repo.MarkSeen(link); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := repo.MarkDismissed(link); err != nil {
		t.Fatalf("MarkDismissed failed: %v", err)
	}

	status, ok, err := repo.GetStatus(link)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if !ok || status != StatusDismissed {
		t.Errorf("Expected status %s, got %s (found=%v)", StatusDismissed, status, ok)
	}
}

func TestMarkPublishedUpgradesSeen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDedupRepository(db)

	link := "https://example.com/a"

	if err := repo.MarkSeen(link); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := repo.MarkPublished(link); err != nil {
		t.Fatalf("MarkPublished failed: %v", err)
	}

	published, err := repo.IsPublished(link)
	if err != nil {
		t.Fatalf("IsPublished failed: %v", err)
	}
	if !published {
		t.Error("Expected seen link to become published")
	}
}
