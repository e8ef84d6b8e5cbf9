package eventstore

import (
	"github.com/hazae41/glace/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.EventsError("could not open event store database").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.EventsError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.EventsError("failed to query events from store").Build()

	// ErrPublishFailed indicates a build event could not be published.
	ErrPublishFailed = errors.EventsError("failed to publish build event").Build()
)
