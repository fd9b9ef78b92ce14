package usecase

import (
	"context"
	"fmt"
	"strings"
	"taskreminder/internal/domain"
	"taskreminder/internal/ports"
	"time"

	"github.com/rs/zerolog/log"
)

// NewTask is the input for TaskService.Create. Deadline is raw user input.
type NewTask struct {
	Title       string
	Description string
	Deadline    string
	OwnerID     int64
}

// TaskService is the task CRUD surface used by the HTTP API.
type TaskService struct {
	Store     ports.TaskStore
	Display   *time.Location
	Lookahead time.Duration
	Now       func() time.Time
}

func (s TaskService) Create(ctx context.Context, in NewTask) (domain.Task, error) {
	if in.OwnerID <= 0 {
		return domain.Task{}, fmt.Errorf("%w: %d", domain.ErrInvalidOwner, in.OwnerID)
	}
	deadline, err := domain.ParseDeadline(in.Deadline, s.display())
	if err != nil {
		return domain.Task{}, err
	}
	now := s.now()
	if deadline.Before(now) {
		log.Ctx(ctx).Warn().Time("deadline", deadline).Time("now", now).Msg("deadline validation failed")
		return domain.Task{}, domain.ErrDeadlineInPast
	}

	t, err := s.Store.CreateTask(ctx, domain.Task{
		OwnerID:     in.OwnerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Deadline:    deadline,
		Status:      domain.StatusUndone,
		CreatedAt:   now,
	})
	if err != nil {
		return domain.Task{}, err
	}

	log.Ctx(ctx).Info().
		Int64("task_id", t.ID).
		Int64("owner_id", t.OwnerID).
		Time("deadline", t.Deadline).
		Msg("task created")
	return t, nil
}

func (s TaskService) Get(ctx context.Context, id int64) (domain.Task, error) {
	return s.Store.GetTask(ctx, id)
}

func (s TaskService) List(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	return s.Store.ListTasks(ctx, f)
}

// DueSoon lists undone tasks due within the lookahead, notified or not.
func (s TaskService) DueSoon(ctx context.Context) ([]domain.Task, error) {
	now := s.now()
	until := now.Add(s.Lookahead)
	undone := domain.StatusUndone
	return s.Store.ListTasks(ctx, domain.TaskFilter{Status: &undone, DueFrom: &now, DueBefore: &until})
}

// ChangeStatus validates raw and applies the transition. Setting the
// current status again is rejected with domain.ErrStatusUnchanged.
func (s TaskService) ChangeStatus(ctx context.Context, id int64, raw string) (domain.Task, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.Store.UpdateStatus(ctx, id, status); err != nil {
		return domain.Task{}, err
	}

	log.Ctx(ctx).Info().Int64("task_id", id).Str("status", string(status)).Msg("task status updated")
	return s.Store.GetTask(ctx, id)
}

func (s TaskService) display() *time.Location {
	if s.Display == nil {
		return time.UTC
	}
	return s.Display
}

func (s TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
