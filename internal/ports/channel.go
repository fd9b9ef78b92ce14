package ports

import "context"

// Channel delivers a rendered message to a recipient. Errors marked with
// domain.Permanent are not worth retrying.
type Channel interface {
	Send(ctx context.Context, recipient int64, text string) error
}
