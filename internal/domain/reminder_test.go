package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderPayloadRoundTrip(t *testing.T) {
	deadline := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("UTC+3", 3*3600))
	r := Reminder{TaskID: 42, OwnerID: 1001, Title: "Ship it", Deadline: deadline}

	got, err := ReminderFromPayload(r.Payload())
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TaskID)
	assert.Equal(t, int64(1001), got.OwnerID)
	assert.Equal(t, "Ship it", got.Title)
	assert.True(t, got.Deadline.Equal(deadline))
	assert.Equal(t, time.UTC, got.Deadline.Location())
}

func TestReminderFromPayloadRejectsMalformedInput(t *testing.T) {
	valid := Reminder{TaskID: 1, OwnerID: 7, Title: "x", Deadline: time.Now()}.Payload()

	tests := []struct {
		name   string
		mutate func(p map[string]string)
		is     error
	}{
		{"bad task id", func(p map[string]string) { p["task_id"] = "abc" }, nil},
		{"missing owner", func(p map[string]string) { delete(p, "owner_id") }, ErrInvalidOwner},
		{"negative owner", func(p map[string]string) { p["owner_id"] = "-5" }, ErrInvalidOwner},
		{"bad deadline", func(p map[string]string) { p["deadline"] = "tomorrow" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make(map[string]string, len(valid))
			for k, v := range valid {
				p[k] = v
			}
			tt.mutate(p)

			_, err := ReminderFromPayload(p)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "payload errors must not be retried")
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("boom")
	err := Permanent(base)
	assert.ErrorIs(t, err, base)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, "boom", err.Error())

	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, IsPermanent(base))
}

func TestParseDeadline(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-05-01T10:00:00Z", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-05-01T10:00:00+03:00", time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)},
		{"01.05.2026 10:00", time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)},
		{"2026-05-01 10:00", time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)},
		{"2026-05-01T10:00:30", time.Date(2026, 5, 1, 7, 0, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDeadline(tt.raw, moscow)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseDeadline("next friday", moscow)
	assert.ErrorIs(t, err, ErrInvalidDeadline)
}

func TestFormatLocal(t *testing.T) {
	at := time.Date(2026, 5, 1, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "01.05.2026 10:05", FormatLocal(at, time.FixedZone("MSK", 3*3600)))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("done")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, s)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestJobExhausted(t *testing.T) {
	j := Job{Attempts: 2, MaxAttempts: 3}
	assert.False(t, j.Exhausted())
	j.Attempts++
	assert.True(t, j.Exhausted())
}
