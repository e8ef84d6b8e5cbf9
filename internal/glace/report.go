package glace

import (
	"fmt"
	"time"
)

// BuildOutcome is the final state of a build.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport summarizes one build.
type BuildReport struct {
	BuildID string
	Trigger string
	Mode    string
	Input   string
	Output  string
	Start   time.Time
	End     time.Time

	Documents   int // document tasks, one per parameter assignment
	Standalone  int // standalone scripts and styles
	Copied      int // files copied verbatim
	Rendered    int // static modules executed for documents
	Prerendered int // standalone scripts executed into files
	Artifacts   int // files persisted by the client pass
	Warnings    int // bundler warnings across both passes
	Skipped     int // references left untouched (remote, data:, ...)

	StageDurations map[StageName]time.Duration
	FailedStage    StageName
	Err            error
	Outcome        BuildOutcome
}

func newBuildReport(id, trigger string) *BuildReport {
	return &BuildReport{
		BuildID:        id,
		Trigger:        trigger,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
	}
}

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

func (r *BuildReport) finish(err error, canceled bool) {
	r.End = time.Now()
	r.Err = err
	switch {
	case canceled:
		r.Outcome = OutcomeCanceled
	case err != nil:
		r.Outcome = OutcomeFailed
	case r.Warnings > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("documents=%d standalone=%d copied=%d rendered=%d prerendered=%d artifacts=%d warnings=%d duration=%s outcome=%s",
		r.Documents, r.Standalone, r.Copied, r.Rendered, r.Prerendered, r.Artifacts, r.Warnings,
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}
