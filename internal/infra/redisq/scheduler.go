package redisq

import (
	"context"
	"strconv"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ ports.Scheduler = (*Scheduler)(nil)

// batchSize caps how many due jobs one pass moves.
const batchSize = 128

type Scheduler struct {
	C        *Client
	Interval time.Duration
	Now      func() time.Time
}

func NewScheduler(c *Client, interval time.Duration) *Scheduler {
	return &Scheduler{C: c, Interval: interval, Now: time.Now}
}

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.MoveDue(ctx); err != nil && ctx.Err() == nil {
			log.Ctx(ctx).Error().Err(err).Msg("moving due jobs failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// MoveDue republishes every delayed job whose run time has passed and
// returns how many it moved. A job id is only republished by the caller
// whose ZREM removed it, so concurrent schedulers never publish twice.
func (s *Scheduler) MoveDue(ctx context.Context) (int, error) {
	now := s.Now().UnixMilli()
	ids, err := s.C.Rdb.ZRangeByScore(ctx, s.C.Cfg.ScheduledZSet, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(now, 10),
		Offset: 0,
		Count:  batchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		removed, err := s.C.Rdb.ZRem(ctx, s.C.Cfg.ScheduledZSet, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}

		j, err := s.C.Get(ctx, id)
		if err != nil {
			s.putBack(ctx, id, now)
			return moved, err
		}
		if j == nil {
			log.Ctx(ctx).Warn().Str("job_id", id).Msg("delayed job has no state, dropping")
			continue
		}

		j.Status = domain.JobQueued
		if err := s.C.publish(ctx, *j); err != nil {
			s.putBack(ctx, id, now)
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (s *Scheduler) putBack(ctx context.Context, id string, score int64) {
	if err := s.C.Rdb.ZAdd(ctx, s.C.Cfg.ScheduledZSet, redis.Z{Score: float64(score), Member: id}).Err(); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("job_id", id).Msg("failed to reschedule job, it is lost")
	}
}
