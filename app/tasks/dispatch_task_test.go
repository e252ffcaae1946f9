package tasks

import (
	"context"
	"testing"
	"time"

	"newsdesk/app/database"
	"newsdesk/app/moderation"
)

type dispatchFixture struct {
	dispatcher *Dispatcher
	service    *moderation.Service
	queueRepo  database.QueueRepository
	lockRepo   database.LockRepository
	notifier   *stubNotifier
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	db := setupTestDB(t)
	queueRepo := database.NewQueueRepository(db)
	dedupRepo := database.NewDedupRepository(db)
	lockRepo := database.NewLockRepository(db)
	notifier := &stubNotifier{}

	service := moderation.NewService(queueRepo, dedupRepo, lockRepo, notifier,
		stubRewriter{}, stubPublisher{name: "channel"}, stubPublisher{name: "site"}, 180)

	return &dispatchFixture{
		dispatcher: NewDispatcher(queueRepo, lockRepo, service, time.Hour),
		service:    service,
		queueRepo:  queueRepo,
		lockRepo:   lockRepo,
		notifier:   notifier,
	}
}

func TestDispatchNextEmptyQueue(t *testing.T) {
	f := newDispatchFixture(t)

	dispatched, err := f.dispatcher.DispatchNext(context.Background())
	if err != nil {
		t.Fatalf("DispatchNext failed: %v", err)
	}
	if dispatched {
		t.Error("Expected no dispatch from an empty queue")
	}

	// The lock must not stay held after a no-op dispatch.
	acquired, err := f.lockRepo.TryAcquire(time.Hour)
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if !acquired {
		t.Error("Expected the moderation lock to be free after an empty dispatch")
	}
}

func TestDispatchNextPushesOneItem(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	if err := f.queueRepo.Enqueue("https://example.com/a", "Title A", "Body A", ""); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := f.queueRepo.Enqueue("https://example.com/b", "Title B", "Body B", ""); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	dispatched, err := f.dispatcher.DispatchNext(ctx)
	if err != nil {
		t.Fatalf("DispatchNext failed: %v", err)
	}
	if !dispatched {
		t.Fatal("Expected a dispatch")
	}
	if f.notifier.rawCount != 1 {
		t.Errorf("Expected 1 raw broadcast, got %d", f.notifier.rawCount)
	}

	// A decision is outstanding, so the next cycle must not push item B.
	dispatched, err = f.dispatcher.DispatchNext(ctx)
	if err != nil {
		t.Fatalf("Second DispatchNext failed: %v", err)
	}
	if dispatched {
		t.Error("Expected dispatch to be blocked by the moderation lock")
	}
	if f.notifier.rawCount != 1 {
		t.Errorf("Expected still 1 raw broadcast, got %d", f.notifier.rawCount)
	}
}

func TestDispatchResumesAfterDecision(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	if err := f.queueRepo.Enqueue("https://example.com/a", "Title A", "Body A", ""); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := f.queueRepo.Enqueue("https://example.com/b", "Title B", "Body B", ""); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if _, err := f.dispatcher.DispatchNext(ctx); err != nil {
		t.Fatalf("DispatchNext failed: %v", err)
	}

	// Rejecting the outstanding item releases the lock and completes the row.
	if err := f.service.RejectRaw(ctx, moderation.ItemID("https://example.com/a")); err != nil {
		t.Fatalf("RejectRaw failed: %v", err)
	}

	dispatched, err := f.dispatcher.DispatchNext(ctx)
	if err != nil {
		t.Fatalf("DispatchNext failed: %v", err)
	}
	if !dispatched {
		t.Fatal("Expected the next item to be dispatched after the decision")
	}
	if f.notifier.rawCount != 2 {
		t.Errorf("Expected 2 raw broadcasts, got %d", f.notifier.rawCount)
	}
}

func TestDispatchFailedBroadcastReleasesLock(t *testing.T) {
	f := newDispatchFixture(t)
	f.notifier.fail = true
	ctx := context.Background()

	if err := f.queueRepo.Enqueue("https://example.com/a", "Title A", "Body A", ""); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if _, err := f.dispatcher.DispatchNext(ctx); err == nil {
		t.Fatal("Expected DispatchNext to fail when the broadcast reaches nobody")
	}

	acquired, err := f.lockRepo.TryAcquire(time.Hour)
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if !acquired {
		t.Error("Expected the lock to be released after a failed submit")
	}

	// The item stays marked processing until the stale sweep frees it.
	processing, err := f.queueRepo.ProcessingCount()
	if err != nil {
		t.Fatalf("ProcessingCount failed: %v", err)
	}
	if processing != 1 {
		t.Errorf("Expected 1 processing item awaiting the sweep, got %d", processing)
	}
}
