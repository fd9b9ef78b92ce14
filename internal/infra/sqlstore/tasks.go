package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskreminder/internal/domain"
)

const taskColumns = `id, owner_id, title, description, deadline_ms, status, notification_sent, created_at_ms`

// taskRow mirrors the tasks table. Instants are stored as UTC epoch
// milliseconds so range comparisons behave the same on every driver.
type taskRow struct {
	ID               int64  `db:"id"`
	OwnerID          int64  `db:"owner_id"`
	Title            string `db:"title"`
	Description      string `db:"description"`
	DeadlineMs       int64  `db:"deadline_ms"`
	Status           string `db:"status"`
	NotificationSent bool   `db:"notification_sent"`
	CreatedAtMs      int64  `db:"created_at_ms"`
}

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Title:            r.Title,
		Description:      r.Description,
		Deadline:         time.UnixMilli(r.DeadlineMs).UTC(),
		Status:           domain.TaskStatus(r.Status),
		NotificationSent: r.NotificationSent,
		CreatedAt:        time.UnixMilli(r.CreatedAtMs).UTC(),
	}
}

func toDomain(rows []taskRow) []domain.Task {
	tasks := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
	}
	return tasks
}

// QueryDueSoon selects undone, not yet notified tasks due in [now, now+lookahead).
func (s *Store) QueryDueSoon(ctx context.Context, now time.Time, lookahead time.Duration) ([]domain.Task, error) {
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks
		WHERE status = ? AND notification_sent = ? AND deadline_ms >= ? AND deadline_ms < ?
		ORDER BY deadline_ms, id`)

	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows, query,
		string(domain.StatusUndone), false,
		now.UnixMilli(), now.Add(lookahead).UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying due tasks: %w", err)
	}
	return toDomain(rows), nil
}

// TryMarkNotified is the single conditional update that gates every
// reminder dispatch. Only the call that moves the flag from false to true
// sees one affected row.
func (s *Store) TryMarkNotified(ctx context.Context, id int64) (bool, error) {
	query := s.db.Rebind(`UPDATE tasks SET notification_sent = ?
		WHERE id = ? AND notification_sent = ? AND status = ?`)

	res, err := s.db.ExecContext(ctx, query, true, id, false, string(domain.StatusUndone))
	if err != nil {
		return false, fmt.Errorf("marking task %d notified: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for task %d: %w", id, err)
	}
	return n == 1, nil
}

// CreateTask inserts t and returns it with the store-assigned id.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.Status == "" {
		t.Status = domain.StatusUndone
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Deadline = t.Deadline.UTC()
	t.CreatedAt = t.CreatedAt.UTC()

	query := s.db.Rebind(`INSERT INTO tasks
		(owner_id, title, description, deadline_ms, status, notification_sent, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		t.OwnerID, t.Title, t.Description, t.Deadline.UnixMilli(),
		string(t.Status), t.NotificationSent, t.CreatedAt.UnixMilli(),
	).Scan(&t.ID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}

	// round-trip precision matches what a later read returns
	t.Deadline = time.UnixMilli(t.Deadline.UnixMilli()).UTC()
	t.CreatedAt = time.UnixMilli(t.CreatedAt.UnixMilli()).UTC()
	return t, nil
}

// GetTask returns domain.ErrTaskNotFound when no row matches.
func (s *Store) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, domain.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("getting task %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListTasks returns tasks matching f ordered by deadline.
func (s *Store) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if f.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, *f.OwnerID)
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.DueFrom != nil {
		conditions = append(conditions, "deadline_ms >= ?")
		args = append(args, f.DueFrom.UnixMilli())
	}
	if f.DueBefore != nil {
		conditions = append(conditions, "deadline_ms < ?")
		args = append(args, f.DueBefore.UnixMilli())
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY deadline_ms, id"

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return toDomain(rows), nil
}

// UpdateStatus changes a task's status in one statement. A transition to
// the current status is rejected with domain.ErrStatusUnchanged.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) error {
	query := s.db.Rebind(`UPDATE tasks SET status = ? WHERE id = ? AND status <> ?`)

	res, err := s.db.ExecContext(ctx, query, string(status), id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for task %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	// nothing changed: tell a missing task from a no-op transition
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("task %d: %w", id, domain.ErrStatusUnchanged)
}
