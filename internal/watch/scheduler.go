package watch

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/hazae41/glace/internal/foundation/errors"
)

// newScheduler registers fn as a periodic job. The caller starts and shuts
// down the returned scheduler.
func newScheduler(interval time.Duration, fn func()) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategorySchedule, "failed to create scheduler").Build()
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategorySchedule, "failed to schedule periodic rebuild").
			WithContext("interval", interval.String()).
			Build()
	}
	return s, nil
}
