package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"taskreminder/internal/config"
	"taskreminder/internal/domain"
	"taskreminder/internal/infra/redisq"
)

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingEnqueuer collects reminders instead of queueing them.
type recordingEnqueuer struct {
	mu        sync.Mutex
	reminders []domain.Reminder
	err       error
}

func (e *recordingEnqueuer) Reminder(_ context.Context, r domain.Reminder) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.reminders = append(e.reminders, r)
	return "job-" + r.Title, nil
}

func (e *recordingEnqueuer) sent() []domain.Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Reminder(nil), e.reminders...)
}

type sentMessage struct {
	recipient int64
	text      string
	deadline  bool
}

// fakeChannel fails the first `failures` sends with err (or a transient
// error when err is nil) and records every call.
type fakeChannel struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    []sentMessage
}

var errChannelDown = errors.New("channel down")

func (c *fakeChannel) Send(ctx context.Context, recipient int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	c.calls = append(c.calls, sentMessage{recipient: recipient, text: text, deadline: hasDeadline})
	if len(c.calls) <= c.failures {
		if c.err != nil {
			return c.err
		}
		return errChannelDown
	}
	return nil
}

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newQueue(t *testing.T) (*redisq.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	q := redisq.New(config.Redis{
		Addr:          mr.Addr(),
		StreamKey:     "reminders:stream",
		Group:         "reminders",
		ScheduledZSet: "reminders:scheduled",
		DLQStreamKey:  "reminders:dlq",
	})
	t.Cleanup(func() { _ = q.Close() })
	require.NoError(t, q.Init(context.Background()))
	return q, mr
}
