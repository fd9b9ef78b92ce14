package ports

import (
	"context"
	"taskreminder/internal/domain"
	"time"
)

type Queue interface {
	Enqueue(ctx context.Context, j domain.Job) (string, error)
	EnqueueDelayed(ctx context.Context, j domain.Job, runAt time.Time) (string, error)
	Claim(ctx context.Context, consumer string, block time.Duration) (*domain.Job, string /*streamID*/, error)
	Ack(ctx context.Context, streamID string) error
	// Retry acks streamID and parks j in the delayed set until runAt.
	Retry(ctx context.Context, streamID string, j domain.Job, runAt time.Time) error
	ToDLQ(ctx context.Context, streamID string, j domain.Job, reason string) error
	SaveState(ctx context.Context, j domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
}

type Scheduler interface {
	// moves due jobs from the delayed set back into the stream
	Run(ctx context.Context) error
}
