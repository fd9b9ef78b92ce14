package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"taskreminder/internal/domain"
	"taskreminder/internal/usecase"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type taskHandler struct {
	tasks    usecase.TaskService
	validate *validator.Validate
	display  *time.Location
}

type createTaskReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Deadline    string `json:"deadline" validate:"required"`
	OwnerID     int64  `json:"owner_id" validate:"required,gt=0"`
}

type taskResp struct {
	ID               int64             `json:"id"`
	OwnerID          int64             `json:"owner_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Deadline         time.Time         `json:"deadline"`
	DeadlineLocal    string            `json:"deadline_local"`
	Status           domain.TaskStatus `json:"status"`
	NotificationSent bool              `json:"notification_sent"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (h *taskHandler) toResp(t domain.Task) taskResp {
	loc := h.display
	if loc == nil {
		loc = time.UTC
	}
	return taskResp{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		Title:            t.Title,
		Description:      t.Description,
		Deadline:         t.Deadline,
		DeadlineLocal:    domain.FormatLocal(t.Deadline, loc),
		Status:           t.Status,
		NotificationSent: t.NotificationSent,
		CreatedAt:        t.CreatedAt,
	}
}

func (h *taskHandler) toResps(tasks []domain.Task) []taskResp {
	out := make([]taskResp, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, h.toResp(t))
	}
	return out
}

func (h *taskHandler) list(w http.ResponseWriter, r *http.Request) {
	var f domain.TaskFilter
	q := r.URL.Query()

	if raw := q.Get("owner_id"); raw != "" {
		owner, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "owner_id must be an integer")
			return
		}
		f.OwnerID = &owner
	}
	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &status
	}

	tasks, err := h.tasks.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResps(tasks))
}

func (h *taskHandler) deadlineSoon(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.DueSoon(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResps(tasks))
}

func (h *taskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTaskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.tasks.Create(r.Context(), usecase.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResp(t))
}

func (h *taskHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResp(t))
}

// patch only accepts a body of exactly {"status": "..."}.
func (h *taskHandler) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rawStatus, ok := body["status"]
	if !ok || len(body) != 1 {
		writeError(w, http.StatusBadRequest, "only the 'status' field may be updated")
		return
	}
	var status string
	if err := json.Unmarshal(rawStatus, &status); err != nil {
		writeError(w, http.StatusBadRequest, "status must be a string")
		return
	}

	t, err := h.tasks.ChangeStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResp(t))
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "task not found")
		return 0, false
	}
	return id, true
}

// fail maps domain errors to HTTP statuses. Anything unknown is a 500
// and its detail stays in the log.
func (h *taskHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrStatusUnchanged),
		errors.Is(err, domain.ErrDeadlineInPast),
		errors.Is(err, domain.ErrInvalidDeadline),
		errors.Is(err, domain.ErrInvalidOwner):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error, try again later")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
