package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskreminder/internal/domain"
	"taskreminder/internal/infra/redisq"
	"taskreminder/internal/testutil"
	"taskreminder/internal/usecase"
	"taskreminder/pkg/backoff"
)

const retryDelay = time.Minute

type harness struct {
	q       *redisq.Client
	clock   *fakeClock
	enq     usecase.Enqueuer
	cons    usecase.Consumer
	sched   *redisq.Scheduler
	channel *fakeChannel
	handle  usecase.Handler
}

func newHarness(t *testing.T, ch *fakeChannel) *harness {
	t.Helper()
	q, _ := newQueue(t)
	clock := newClock(t0)

	sched := redisq.NewScheduler(q, time.Second)
	sched.Now = clock.Now

	d := usecase.Dispatcher{Channel: ch, Display: time.UTC, Lookahead: lookahead, Timeout: time.Second}
	return &harness{
		q:     q,
		clock: clock,
		enq:   usecase.Enqueuer{Q: q, MaxAttempts: 3},
		cons: usecase.Consumer{
			Q:            q,
			ConsumerName: "w-1",
			Block:        10 * time.Millisecond,
			Backoff:      backoff.Fixed(retryDelay),
			Now:          clock.Now,
		},
		sched:   sched,
		channel: ch,
		handle:  usecase.Router{domain.JobTypeReminder: d.Handle}.Handle,
	}
}

func (h *harness) process(t *testing.T) {
	t.Helper()
	claimed, err := h.cons.ProcessNext(context.Background(), h.handle)
	require.NoError(t, err)
	require.True(t, claimed)
}

// waitOut checks the retry is parked for exactly retryDelay, then
// advances the clock and lets the scheduler move it back.
func (h *harness) waitOut(t *testing.T, jobID string) {
	t.Helper()
	ctx := context.Background()

	score, err := h.q.Rdb.ZScore(ctx, h.q.Cfg.ScheduledZSet, jobID).Result()
	require.NoError(t, err)
	assert.Equal(t, float64(h.clock.Now().Add(retryDelay).UnixMilli()), score)

	h.clock.Advance(retryDelay - time.Second)
	moved, err := h.sched.MoveDue(ctx)
	require.NoError(t, err)
	require.Zero(t, moved, "retry must wait for the full backoff")

	h.clock.Advance(time.Second)
	moved, err = h.sched.MoveDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, moved)
}

func (h *harness) scheduled(t *testing.T) int64 {
	t.Helper()
	n, err := h.q.Rdb.ZCard(context.Background(), h.q.Cfg.ScheduledZSet).Result()
	require.NoError(t, err)
	return n
}

func (h *harness) deadLetters(t *testing.T) int64 {
	t.Helper()
	n, err := h.q.Rdb.XLen(context.Background(), h.q.Cfg.DLQStreamKey).Result()
	require.NoError(t, err)
	return n
}

func (h *harness) pending(t *testing.T) int64 {
	t.Helper()
	p, err := h.q.Rdb.XPending(context.Background(), h.q.Cfg.StreamKey, h.q.Cfg.Group).Result()
	require.NoError(t, err)
	return p.Count
}

func TestDispatchSucceedsOnThirdAttempt(t *testing.T) {
	h := newHarness(t, &fakeChannel{failures: 2})
	ctx := context.Background()

	jobID, err := h.enq.Reminder(ctx, domain.Reminder{TaskID: 7, OwnerID: 1001, Title: "Pay rent", Deadline: t0})
	require.NoError(t, err)

	h.process(t)
	h.waitOut(t, jobID)
	h.process(t)
	h.waitOut(t, jobID)
	h.process(t)

	assert.Equal(t, 3, h.channel.callCount())
	assert.Zero(t, h.scheduled(t), "no further retries")
	assert.Zero(t, h.deadLetters(t))
	assert.Zero(t, h.pending(t))

	state, err := h.q.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, state.Status)
	assert.Equal(t, 2, state.Attempts)
}

func TestDispatchGivesUpAfterMaxAttempts(t *testing.T) {
	store := testutil.NewTestStore(t)
	h := newHarness(t, &fakeChannel{failures: 100})
	ctx := context.Background()

	task := seedTask(t, store, "doomed", t0.Add(5*time.Minute))
	scanner := newScanner(store, h.enq)
	res, err := scanner.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Enqueued)

	h.process(t)
	for attempt := 2; attempt <= 3; attempt++ {
		moved, err := h.sched.MoveDue(ctx)
		require.NoError(t, err)
		require.Zero(t, moved)
		h.clock.Advance(retryDelay)
		moved, err = h.sched.MoveDue(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, moved)
		h.process(t)
	}

	assert.Equal(t, 3, h.channel.callCount())
	assert.Zero(t, h.scheduled(t))
	assert.Equal(t, int64(1), h.deadLetters(t))
	assert.Zero(t, h.pending(t))

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent, "the flag is never rolled back")

	res, err = scanner.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Found)
}

func TestPermanentFailureSkipsRetries(t *testing.T) {
	h := newHarness(t, &fakeChannel{failures: 100, err: domain.Permanent(domain.ErrInvalidOwner)})
	ctx := context.Background()

	jobID, err := h.enq.Reminder(ctx, domain.Reminder{TaskID: 7, OwnerID: 1001, Title: "x", Deadline: t0})
	require.NoError(t, err)

	h.process(t)

	assert.Equal(t, 1, h.channel.callCount())
	assert.Zero(t, h.scheduled(t))
	assert.Equal(t, int64(1), h.deadLetters(t))

	state, err := h.q.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, state.Status)
	assert.Equal(t, 1, state.Attempts)
	assert.Contains(t, state.LastError, "invalid owner id")
}

func TestMalformedJobIsNotSent(t *testing.T) {
	h := newHarness(t, &fakeChannel{})
	ctx := context.Background()

	_, err := h.enq.Now(ctx, domain.Job{
		Type:    domain.JobTypeReminder,
		Payload: map[string]string{"task_id": "7", "owner_id": "1001", "deadline": "yesterday"},
	})
	require.NoError(t, err)

	h.process(t)

	assert.Zero(t, h.channel.callCount())
	assert.Equal(t, int64(1), h.deadLetters(t))
}

func TestProcessNextWithEmptyQueue(t *testing.T) {
	h := newHarness(t, &fakeChannel{})

	claimed, err := h.cons.ProcessNext(context.Background(), h.handle)
	require.NoError(t, err)
	assert.False(t, claimed)
}
