package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Reminder is the task snapshot carried by a reminder job.
type Reminder struct {
	TaskID   int64
	OwnerID  int64
	Title    string
	Deadline time.Time
}

const (
	payloadTaskID   = "task_id"
	payloadOwnerID  = "owner_id"
	payloadTitle    = "title"
	payloadDeadline = "deadline"
)

func (r Reminder) Payload() map[string]string {
	return map[string]string{
		payloadTaskID:   strconv.FormatInt(r.TaskID, 10),
		payloadOwnerID:  strconv.FormatInt(r.OwnerID, 10),
		payloadTitle:    r.Title,
		payloadDeadline: r.Deadline.UTC().Format(time.RFC3339Nano),
	}
}

// ReminderFromPayload decodes a job payload. Every failure is permanent:
// a malformed payload stays malformed on the next attempt.
func ReminderFromPayload(p map[string]string) (Reminder, error) {
	var r Reminder

	taskID, err := strconv.ParseInt(p[payloadTaskID], 10, 64)
	if err != nil {
		return r, Permanent(fmt.Errorf("parse task id %q: %w", p[payloadTaskID], err))
	}
	ownerID, err := strconv.ParseInt(p[payloadOwnerID], 10, 64)
	if err != nil || ownerID <= 0 {
		return r, Permanent(fmt.Errorf("%w: %q", ErrInvalidOwner, p[payloadOwnerID]))
	}
	deadline, err := time.Parse(time.RFC3339Nano, p[payloadDeadline])
	if err != nil {
		return r, Permanent(fmt.Errorf("parse deadline %q: %w", p[payloadDeadline], err))
	}

	r.TaskID = taskID
	r.OwnerID = ownerID
	r.Title = p[payloadTitle]
	r.Deadline = deadline.UTC()
	return r, nil
}
