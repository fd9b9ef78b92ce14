package ports

import (
	"context"
	"taskreminder/internal/domain"
	"time"
)

// DueTaskStore is the part of the task store the deadline scanner needs.
type DueTaskStore interface {
	// QueryDueSoon returns undone, not yet notified tasks with a deadline
	// in [now, now+lookahead).
	QueryDueSoon(ctx context.Context, now time.Time, lookahead time.Duration) ([]domain.Task, error)
	// TryMarkNotified flips notification_sent false -> true in a single
	// conditional statement and reports whether this call applied it.
	TryMarkNotified(ctx context.Context, id int64) (bool, error)
}

type TaskStore interface {
	DueTaskStore
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) error
}
