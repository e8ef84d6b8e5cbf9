package eventstore

import (
	"context"
	"time"
)

// Store persists build events.
type Store interface {
	Append(ctx context.Context, e Event) error
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)
	Close() error
}
