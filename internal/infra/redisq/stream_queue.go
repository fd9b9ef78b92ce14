package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ ports.Queue = (*Client)(nil)

const jobField = "job"

func (c *Client) Enqueue(ctx context.Context, j domain.Job) (string, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	j.Status = domain.JobQueued

	if err := c.publish(ctx, j); err != nil {
		return "", err
	}
	return j.ID, nil
}

// publish writes the job state and appends the job to the stream in one
// MULTI/EXEC so a consumer never sees a job without its state.
func (c *Client) publish(ctx context.Context, j domain.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", j.ID, err)
	}
	_, err = c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		c.saveState(ctx, p, j)
		p.XAdd(ctx, &redis.XAddArgs{
			Stream: c.Cfg.StreamKey,
			Values: map[string]interface{}{jobField: b},
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", j.ID, err)
	}
	return nil
}

func (c *Client) EnqueueDelayed(ctx context.Context, j domain.Job, runAt time.Time) (string, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	j.Status = domain.JobDelayed
	j.NextRunAt = runAt.UTC()

	_, err := c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		c.saveState(ctx, p, j)
		p.ZAdd(ctx, c.Cfg.ScheduledZSet, redis.Z{Score: float64(runAt.UnixMilli()), Member: j.ID})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("schedule job %s: %w", j.ID, err)
	}
	return j.ID, nil
}

// Claim returns the next job for consumer. Jobs left unacked by a dead
// consumer for longer than ReclaimIdle are taken over before new ones.
func (c *Client) Claim(ctx context.Context, consumer string, block time.Duration) (*domain.Job, string, error) {
	if c.Cfg.ReclaimIdle > 0 {
		msgs, _, err := c.Rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.Cfg.StreamKey,
			Group:    c.Cfg.Group,
			Consumer: consumer,
			MinIdle:  c.Cfg.ReclaimIdle,
			Start:    "0-0",
			Count:    1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, "", err
		}
		if len(msgs) > 0 {
			return decodeMessage(msgs[0])
		}
	}

	res, err := c.Rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.Cfg.Group,
		Consumer: consumer,
		Streams:  []string{c.Cfg.StreamKey, ">"},
		Count:    1,
		Block:    block,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}

	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, "", nil
	}
	return decodeMessage(res[0].Messages[0])
}

func decodeMessage(msg redis.XMessage) (*domain.Job, string, error) {
	raw := msg.Values[jobField]
	var b []byte
	switch v := raw.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return nil, msg.ID, fmt.Errorf("unexpected job type: %T", v)
	}

	var j domain.Job
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, msg.ID, fmt.Errorf("decode job in %s: %w", msg.ID, err)
	}
	return &j, msg.ID, nil
}

func (c *Client) Ack(ctx context.Context, streamID string) error {
	return c.Rdb.XAck(ctx, c.Cfg.StreamKey, c.Cfg.Group, streamID).Err()
}

// Retry parks the job in the delayed set before acking the stream entry,
// all in one transaction, so a crash can't lose the job.
func (c *Client) Retry(ctx context.Context, streamID string, j domain.Job, runAt time.Time) error {
	j.Status = domain.JobDelayed
	j.NextRunAt = runAt.UTC()

	_, err := c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		c.saveState(ctx, p, j)
		p.ZAdd(ctx, c.Cfg.ScheduledZSet, redis.Z{Score: float64(runAt.UnixMilli()), Member: j.ID})
		p.XAck(ctx, c.Cfg.StreamKey, c.Cfg.Group, streamID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("retry job %s: %w", j.ID, err)
	}
	return nil
}

func (c *Client) ToDLQ(ctx context.Context, streamID string, j domain.Job, reason string) error {
	j.Status = domain.JobFailed
	b, err := json.Marshal(struct {
		domain.Job
		Reason string `json:"reason"`
	}{j, reason})
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", j.ID, err)
	}

	_, err = c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAdd(ctx, &redis.XAddArgs{
			Stream: c.Cfg.DLQStreamKey,
			Values: map[string]interface{}{jobField: b},
		})
		p.XAck(ctx, c.Cfg.StreamKey, c.Cfg.Group, streamID)
		c.saveState(ctx, p, j)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dead-letter job %s: %w", j.ID, err)
	}
	return nil
}

func (c *Client) SaveState(ctx context.Context, j domain.Job) error {
	_, err := c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		c.saveState(ctx, p, j)
		return nil
	})
	return err
}

func (c *Client) saveState(ctx context.Context, p redis.Pipeliner, j domain.Job) {
	key := stateKey(j.ID)
	m := map[string]any{
		"status":       string(j.Status),
		"attempts":     j.Attempts,
		"max_attempts": j.MaxAttempts,
		"type":         j.Type,
		"last_error":   j.LastError,
		"created_at":   toMs(j.CreatedAt),
		"next_run_at":  toMs(j.NextRunAt),
	}
	for k, v := range j.Payload {
		m["payload:"+k] = v
	}
	p.HSet(ctx, key, m)
	if c.Cfg.StateTTL > 0 {
		p.Expire(ctx, key, c.Cfg.StateTTL)
	}
}

// Get loads a job from its state hash. It returns nil, nil when the job
// is unknown or its state has expired.
func (c *Client) Get(ctx context.Context, id string) (*domain.Job, error) {
	h, err := c.Rdb.HGetAll(ctx, stateKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, nil
	}

	j := &domain.Job{
		ID:        id,
		Type:      h["type"],
		Status:    domain.JobStatus(h["status"]),
		LastError: h["last_error"],
		Payload:   map[string]string{},
	}
	j.Attempts, _ = strconv.Atoi(h["attempts"])
	j.MaxAttempts, _ = strconv.Atoi(h["max_attempts"])
	createdAt, _ := strconv.ParseInt(h["created_at"], 10, 64)
	nextRunAt, _ := strconv.ParseInt(h["next_run_at"], 10, 64)
	j.CreatedAt = fromMs(createdAt)
	j.NextRunAt = fromMs(nextRunAt)

	for k, v := range h {
		if name, ok := strings.CutPrefix(k, "payload:"); ok {
			j.Payload[name] = v
		}
	}
	return j, nil
}
