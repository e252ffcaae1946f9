package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsdesk/app/cfg"
	"newsdesk/app/database"
	"newsdesk/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler is the background loop: every cycle it enqueues one poll task
// per registered source plus a dispatch task, executed by a small worker
// pool. Failed tasks are re-enqueued with capped exponential backoff.
type Scheduler struct {
	sourceRepo database.SourceRepository
	dedupRepo  database.DedupRepository
	queueRepo  database.QueueRepository
	fetcher    *feed.Fetcher
	parser     *feed.Parser
	extractor  *feed.ContentExtractor
	dispatcher *Dispatcher

	interval       time.Duration
	workerCount    int
	feedTimeout    time.Duration
	entriesPerPoll int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(sourceRepo database.SourceRepository, dedupRepo database.DedupRepository,
	queueRepo database.QueueRepository, fetcher *feed.Fetcher, parser *feed.Parser,
	extractor *feed.ContentExtractor, dispatcher *Dispatcher) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		sourceRepo:     sourceRepo,
		dedupRepo:      dedupRepo,
		queueRepo:      queueRepo,
		fetcher:        fetcher,
		parser:         parser,
		extractor:      extractor,
		dispatcher:     dispatcher,
		interval:       time.Duration(c.SchedulerInterval) * time.Second,
		workerCount:    c.WorkerCount,
		feedTimeout:    time.Duration(c.FeedTimeout) * time.Second,
		entriesPerPoll: c.EntriesPerPoll,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueCycle()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCycle()
			}
		}
	}()
}

// Stop cancels new ticks and waits for in-flight tasks to finish. Queue state
// is durable, so nothing is lost across a restart.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// PollNow enqueues a poll task for every registered source, used by the
// force-check operator command.
func (s *Scheduler) PollNow(ctx context.Context) error {
	return s.enqueuePollTasks()
}

// DispatchNow runs one dispatch synchronously, used by the post-next
// operator command.
func (s *Scheduler) DispatchNow(ctx context.Context) (bool, error) {
	return s.dispatcher.DispatchNext(ctx)
}

func (s *Scheduler) QueueLength() int {
	return len(s.taskQueue)
}

func (s *Scheduler) enqueueCycle() {
	if err := s.enqueuePollTasks(); err != nil {
		slog.Warn("Failed to enqueue poll tasks", "error", err)
	}

	dispatchTask := NewDispatchTask(s.dispatcher)
	if err := s.EnqueueTask(dispatchTask); err != nil {
		slog.Warn("Failed to enqueue DispatchTask", "error", err)
	}
}

func (s *Scheduler) enqueuePollTasks() error {
	sources, err := s.sourceRepo.GetSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Debug("No feed sources registered")
		return nil
	}

	slog.Debug("Enqueueing poll tasks", "count", len(sources))

	for _, source := range sources {
		task := NewPollFeedTask(source.URL, s.fetcher, s.parser, s.extractor,
			s.dedupRepo, s.queueRepo, s.feedTimeout, s.entriesPerPoll)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue PollFeedTask", "feed", source.URL, "error", err)
		}
	}

	return nil
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
