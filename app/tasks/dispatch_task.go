package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsdesk/app/database"
	"newsdesk/app/moderation"
)

// Dispatcher advances the moderation queue: it sweeps stale processing
// flags, then pushes the next item into raw review, at most one decision in
// flight at a time (moderation lock).
type Dispatcher struct {
	queueRepo      database.QueueRepository
	lockRepo       database.LockRepository
	service        *moderation.Service
	staleThreshold time.Duration
	lockTTL        time.Duration
}

func NewDispatcher(queueRepo database.QueueRepository, lockRepo database.LockRepository,
	service *moderation.Service, staleThreshold time.Duration) *Dispatcher {
	return &Dispatcher{
		queueRepo:      queueRepo,
		lockRepo:       lockRepo,
		service:        service,
		staleThreshold: staleThreshold,
		lockTTL:        staleThreshold,
	}
}

// DispatchNext reports whether an item was pushed into raw review. Nothing is
// dispatched when the queue is empty or a decision is already outstanding.
func (d *Dispatcher) DispatchNext(ctx context.Context) (bool, error) {
	swept, err := d.queueRepo.SweepStale(d.staleThreshold)
	if err != nil {
		return false, fmt.Errorf("failed to sweep stale items: %w", err)
	}
	if swept > 0 {
		slog.Info("Swept stale processing items back into the queue", "count", swept)
	}

	acquired, err := d.lockRepo.TryAcquire(d.lockTTL)
	if err != nil {
		return false, fmt.Errorf("failed to acquire moderation lock: %w", err)
	}
	if !acquired {
		slog.Debug("Moderation lock held, skipping dispatch")
		return false, nil
	}

	item, err := d.queueRepo.DequeueNext()
	if err != nil {
		d.releaseLock()
		return false, fmt.Errorf("failed to dequeue item: %w", err)
	}
	if item == nil {
		d.releaseLock()
		return false, nil
	}

	err = d.service.SubmitRaw(ctx, moderation.RawItem{
		Link:      item.Link,
		Title:     item.Title,
		Body:      item.Body,
		ImagePath: item.ImagePath,
	})
	if err != nil {
		// The item stays marked processing until the stale sweep frees it;
		// releasing the lock lets a later cycle try the next one.
		d.releaseLock()
		return false, fmt.Errorf("failed to submit item for review: %w", err)
	}

	return true, nil
}

func (d *Dispatcher) releaseLock() {
	if err := d.lockRepo.Release(); err != nil {
		slog.Error("Failed to release moderation lock", "error", err)
	}
}

// DispatchTask is the scheduler-cycle wrapper around the dispatcher.
type DispatchTask struct {
	Task
	dispatcher *Dispatcher
}

func NewDispatchTask(dispatcher *Dispatcher) *DispatchTask {
	return &DispatchTask{
		Task:       NewTask(TaskTypeDispatch, "queue"),
		dispatcher: dispatcher,
	}
}

func (t *DispatchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dispatched, err := t.dispatcher.DispatchNext(ctx)
	if err != nil {
		return err
	}

	slog.Debug("Task completed",
		"type", "Dispatch",
		"duration", t.GetDuration(),
		"dispatched", dispatched)

	return nil
}
