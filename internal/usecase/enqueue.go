package usecase

import (
	"context"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
)

const defaultMaxAttempts = 3

type Enqueuer struct {
	Q           ports.Queue
	MaxAttempts int
}

func (e Enqueuer) Now(ctx context.Context, j domain.Job) (string, error) {
	return e.Q.Enqueue(ctx, e.withDefaults(j))
}

// Reminder enqueues one dispatch job for the task snapshot r.
func (e Enqueuer) Reminder(ctx context.Context, r domain.Reminder) (string, error) {
	return e.Now(ctx, domain.Job{Type: domain.JobTypeReminder, Payload: r.Payload()})
}

func (e Enqueuer) withDefaults(j domain.Job) domain.Job {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = e.MaxAttempts
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = defaultMaxAttempts
	}
	return j
}
