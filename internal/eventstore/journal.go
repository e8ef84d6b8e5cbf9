package eventstore

import (
	"context"
	"log/slog"

	"github.com/hazae41/glace/internal/logfields"
)

// Journal writes each event to the store, applies it to the projection and
// publishes it. Failures are logged and never propagate into a build.
type Journal struct {
	store      Store
	publisher  Publisher
	projection *BuildHistoryProjection
	logger     *slog.Logger
}

// NewJournal creates a journal. store and publisher may be nil.
func NewJournal(store Store, publisher Publisher, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{store: store, publisher: publisher, logger: logger}
	if store != nil {
		j.projection = NewBuildHistoryProjection(store, 0)
	}
	return j
}

// Record persists and publishes e.
func (j *Journal) Record(ctx context.Context, e Event) {
	if j.store != nil {
		if err := j.store.Append(ctx, e); err != nil {
			j.logger.Warn("Failed to store build event", logfields.BuildID(e.BuildID()), logfields.Error(err))
		}
		j.projection.Apply(e)
	}
	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, e); err != nil {
			j.logger.Warn("Failed to publish build event", logfields.BuildID(e.BuildID()), logfields.Error(err))
		}
	}
}

// Projection returns the live history, or nil without a store.
func (j *Journal) Projection() *BuildHistoryProjection { return j.projection }

// Close releases the store and the publisher.
func (j *Journal) Close() error {
	if j.publisher != nil {
		j.publisher.Close()
	}
	if j.store != nil {
		return j.store.Close()
	}
	return nil
}
