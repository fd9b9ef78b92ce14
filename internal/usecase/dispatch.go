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

// Dispatcher delivers one reminder per job attempt. It never writes to
// the task store and does not re-check task status before sending.
type Dispatcher struct {
	Channel   ports.Channel
	Display   *time.Location
	Lookahead time.Duration
	Timeout   time.Duration
}

// Handle is the Handler for domain.JobTypeReminder jobs.
func (d Dispatcher) Handle(ctx context.Context, j domain.Job) error {
	r, err := domain.ReminderFromPayload(j.Payload)
	if err != nil {
		return err
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	text := RenderReminder(r, d.display(), d.Lookahead)
	if err := d.Channel.Send(ctx, r.OwnerID, text); err != nil {
		return fmt.Errorf("send reminder for task %d: %w", r.TaskID, err)
	}

	log.Ctx(ctx).Info().
		Int64("task_id", r.TaskID).
		Int64("owner_id", r.OwnerID).
		Msg("reminder sent")
	return nil
}

func (d Dispatcher) display() *time.Location {
	if d.Display == nil {
		return time.UTC
	}
	return d.Display
}

// RenderReminder formats the owner-facing Markdown text. The title is
// user input and stays outside any entity, where escapes are allowed.
func RenderReminder(r domain.Reminder, loc *time.Location, lookahead time.Duration) string {
	var b strings.Builder
	b.WriteString("⏰ *Task reminder*\n")
	fmt.Fprintf(&b, "%s\n", escapeMarkdown(r.Title))
	fmt.Fprintf(&b, "Deadline: %s\n", domain.FormatLocal(r.Deadline, loc))
	fmt.Fprintf(&b, "Less than %s left!\n", humanDuration(lookahead))
	fmt.Fprintf(&b, "ID: %d", r.TaskID)
	return b.String()
}

// legacy Markdown has no backslash escape, so backslashes pass through.
var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// humanDuration prints whole minutes as "10 minutes" and falls back to
// Duration.String otherwise.
func humanDuration(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
