package tasks

import (
	"context"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	PollNow(ctx context.Context) error
	DispatchNow(ctx context.Context) (bool, error)
	QueueLength() int
}
