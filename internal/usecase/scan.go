package usecase

import (
	"context"
	"fmt"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
	"time"

	"github.com/rs/zerolog/log"
)

// ReminderEnqueuer hands a task snapshot to the dispatch queue.
type ReminderEnqueuer interface {
	Reminder(ctx context.Context, r domain.Reminder) (string, error)
}

// Scanner periodically finds tasks whose deadline is within Lookahead and
// starts exactly one reminder per task.
type Scanner struct {
	Store     ports.DueTaskStore
	Enqueuer  ReminderEnqueuer
	Interval  time.Duration
	Lookahead time.Duration
	Location  *time.Location
	Now       func() time.Time
}

// TickResult summarises one scan.
type TickResult struct {
	Found    int
	Marked   int
	Enqueued int
}

// Run ticks immediately and then every Interval until ctx is done. A
// failed tick is logged and the next one starts from scratch.
func (s Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Ctx(ctx).Info().
		Dur("interval", s.Interval).
		Dur("lookahead", s.Lookahead).
		Msg("deadline scanner started")

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			log.Ctx(ctx).Error().Err(err).Msg("scan tick abandoned")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one scan. Each due task is flipped to notified first and
// enqueued only if this tick won the flip. A crash or enqueue failure
// after the flip loses that reminder; it never duplicates it.
func (s Scanner) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	now := s.now()

	tasks, err := s.Store.QueryDueSoon(ctx, now, s.Lookahead)
	if err != nil {
		return res, fmt.Errorf("query due tasks: %w", err)
	}
	res.Found = len(tasks)

	for _, t := range tasks {
		applied, err := s.Store.TryMarkNotified(ctx, t.ID)
		if err != nil {
			return res, fmt.Errorf("mark task %d notified: %w", t.ID, err)
		}
		if !applied {
			log.Ctx(ctx).Debug().Int64("task_id", t.ID).Msg("task already claimed, skipping")
			continue
		}
		res.Marked++

		jobID, err := s.Enqueuer.Reminder(ctx, t.Reminder())
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Int64("task_id", t.ID).
				Int64("owner_id", t.OwnerID).
				Msg("reminder enqueue failed after mark, notification is lost")
			continue
		}
		res.Enqueued++

		log.Ctx(ctx).Info().
			Int64("task_id", t.ID).
			Str("job_id", jobID).
			Time("deadline", t.Deadline).
			Msg("reminder enqueued")
	}

	if res.Found > 0 {
		log.Ctx(ctx).Info().
			Int("found", res.Found).
			Int("marked", res.Marked).
			Int("enqueued", res.Enqueued).
			Msg("scan tick finished")
	}
	return res, nil
}

func (s Scanner) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}
