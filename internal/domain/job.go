package domain

import "time"

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
	JobDelayed JobStatus = "delayed"
)

// JobTypeReminder identifies a deadline reminder dispatch job.
const JobTypeReminder = "reminder.send"

// Job is one unit of work on the queue. Attempts counts the attempts
// already made and travels with the job across retries.
type Job struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Payload     map[string]string `json:"payload"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	Status      JobStatus         `json:"status"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	NextRunAt   time.Time         `json:"next_run_at"`
}

// Exhausted reports whether no attempts are left.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
