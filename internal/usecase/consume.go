package usecase

import (
	"context"
	"errors"
	"fmt"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
	"taskreminder/pkg/backoff"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultRetryDelay = time.Minute

type Handler func(ctx context.Context, j domain.Job) error

// Router dispatches jobs to the handler registered for their type.
type Router map[string]Handler

func (r Router) Handle(ctx context.Context, j domain.Job) error {
	h, ok := r[j.Type]
	if !ok {
		return domain.Permanent(fmt.Errorf("no handler for job type %q", j.Type))
	}
	return h(ctx, j)
}

type Consumer struct {
	Q            ports.Queue
	ConsumerName string
	Block        time.Duration
	Backoff      backoff.Policy
	Now          func() time.Time
}

func (c Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := c.ProcessNext(ctx, handle); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Ctx(ctx).Error().Err(err).Str("consumer", c.ConsumerName).Msg("claiming job failed")
			c.pause(ctx)
		}
	}
}

// ProcessNext claims at most one job and runs it to a terminal outcome
// for this attempt: ack, retry later, or dead-letter. It reports whether
// a job was claimed. Handler failures are not returned; only queue errors are.
func (c Consumer) ProcessNext(ctx context.Context, handle Handler) (bool, error) {
	j, streamID, err := c.Q.Claim(ctx, c.ConsumerName, c.Block)
	if err != nil {
		if streamID != "" {
			// undecodable entry: park it in the DLQ rather than redeliver forever
			c.deadLetter(ctx, streamID, domain.Job{ID: streamID}, err)
			return true, nil
		}
		return false, err
	}
	if j == nil {
		return false, nil
	}

	logger := log.Ctx(ctx).With().
		Str("job_id", j.ID).
		Str("type", j.Type).
		Int("attempt", j.Attempts+1).
		Logger()
	ctx = logger.WithContext(ctx)

	j.Status = domain.JobRunning
	if err := c.Q.SaveState(ctx, *j); err != nil {
		logger.Warn().Err(err).Msg("saving running state failed")
	}

	err = handle(ctx, *j)
	if err == nil {
		j.Status = domain.JobDone
		j.LastError = ""
		if err := c.Q.Ack(ctx, streamID); err != nil {
			return true, err
		}
		if err := c.Q.SaveState(ctx, *j); err != nil {
			logger.Warn().Err(err).Msg("saving done state failed")
		}
		logger.Debug().Msg("job done")
		return true, nil
	}

	j.Attempts++
	j.LastError = err.Error()

	if domain.IsPermanent(err) {
		logger.Error().Err(err).Msg("job failed permanently, not retrying")
		c.deadLetter(ctx, streamID, *j, err)
		return true, nil
	}
	if j.Exhausted() {
		logger.Error().Err(err).Int("max_attempts", j.MaxAttempts).Msg("job attempts exhausted")
		c.deadLetter(ctx, streamID, *j, err)
		return true, nil
	}

	delay := c.delay(j.Attempts)
	runAt := c.now().Add(delay)
	if err := c.Q.Retry(ctx, streamID, *j, runAt); err != nil {
		return true, err
	}
	logger.Warn().Err(err).Dur("retry_in", delay).Msg("job failed, retry scheduled")
	return true, nil
}

func (c Consumer) deadLetter(ctx context.Context, streamID string, j domain.Job, cause error) {
	if err := c.Q.ToDLQ(ctx, streamID, j, cause.Error()); err != nil {
		log.Ctx(ctx).Error().Err(errors.Join(cause, err)).Str("job_id", j.ID).Msg("dead-lettering job failed")
	}
}

func (c Consumer) delay(attempt int) time.Duration {
	if c.Backoff == nil {
		return defaultRetryDelay
	}
	return c.Backoff(attempt)
}

func (c Consumer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Consumer) pause(ctx context.Context) {
	d := c.Block
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
