package domain

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	StatusUndone TaskStatus = "undone"
	StatusDone   TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	return s == StatusUndone || s == StatusDone
}

// ParseStatus validates a raw status value against the enumeration.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q (allowed: %s, %s)", ErrInvalidStatus, raw, StatusUndone, StatusDone)
	}
	return s, nil
}

// Task is a user task with a deadline. Deadline and CreatedAt are always UTC.
type Task struct {
	ID               int64      `json:"id"`
	OwnerID          int64      `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Deadline         time.Time  `json:"deadline"`
	Status           TaskStatus `json:"status"`
	NotificationSent bool       `json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Reminder returns the immutable snapshot handed to the dispatcher.
func (t Task) Reminder() Reminder {
	return Reminder{
		TaskID:   t.ID,
		OwnerID:  t.OwnerID,
		Title:    t.Title,
		Deadline: t.Deadline.UTC(),
	}
}

// TaskFilter narrows ListTasks. Nil fields are ignored; the due range is
// half-open [DueFrom, DueBefore).
type TaskFilter struct {
	OwnerID   *int64
	Status    *TaskStatus
	DueFrom   *time.Time
	DueBefore *time.Time
}
