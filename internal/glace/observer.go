package glace

import (
	"context"
	"time"

	"github.com/hazae41/glace/internal/eventstore"
	"github.com/hazae41/glace/internal/metrics"
)

// BuildObserver receives callbacks around the build lifecycle.
type BuildObserver interface {
	OnBuildStart(report *BuildReport)
	OnStageComplete(report *BuildReport, stage StageName, d time.Duration, err error)
	OnBuildComplete(report *BuildReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(*BuildReport)                                     {}
func (NoopObserver) OnStageComplete(*BuildReport, StageName, time.Duration, error) {}
func (NoopObserver) OnBuildComplete(*BuildReport)                                  {}

type multiObserver []BuildObserver

func (m multiObserver) OnBuildStart(r *BuildReport) {
	for _, o := range m {
		o.OnBuildStart(r)
	}
}

func (m multiObserver) OnStageComplete(r *BuildReport, s StageName, d time.Duration, err error) {
	for _, o := range m {
		o.OnStageComplete(r, s, d, err)
	}
}

func (m multiObserver) OnBuildComplete(r *BuildReport) {
	for _, o := range m {
		o.OnBuildComplete(r)
	}
}

// recorderObserver adapts metrics.Recorder into a BuildObserver.
type recorderObserver struct{ rec metrics.Recorder }

func (recorderObserver) OnBuildStart(*BuildReport)                                     {}
func (recorderObserver) OnStageComplete(*BuildReport, StageName, time.Duration, error) {}
func (r recorderObserver) OnBuildComplete(report *BuildReport) {
	r.rec.ObserveBuildDuration(report.Duration())
	r.rec.IncBuildOutcome(string(report.Outcome))
	r.rec.SetDocuments(report.Documents)
}

// JournalObserver records the build lifecycle in an event journal.
type JournalObserver struct {
	Journal *eventstore.Journal
}

func (o JournalObserver) OnBuildStart(r *BuildReport) {
	o.record(eventstore.NewBuildStarted(r.BuildID, eventstore.BuildStartedMeta{
		Input:   r.Input,
		Output:  r.Output,
		Mode:    r.Mode,
		Trigger: r.Trigger,
	}))
}

func (o JournalObserver) OnStageComplete(r *BuildReport, stage StageName, d time.Duration, err error) {
	meta := eventstore.StageCompletedMeta{Stage: string(stage), DurationMS: d.Milliseconds()}
	if err != nil {
		meta.Error = err.Error()
	}
	o.record(eventstore.NewStageCompleted(r.BuildID, meta))
}

func (o JournalObserver) OnBuildComplete(r *BuildReport) {
	meta := eventstore.BuildCompletedMeta{
		Outcome:    string(r.Outcome),
		Documents:  r.Documents,
		Artifacts:  r.Artifacts,
		Copied:     r.Copied,
		Rendered:   r.Rendered + r.Prerendered,
		Warnings:   r.Warnings,
		DurationMS: r.Duration().Milliseconds(),
		ErrorStage: string(r.FailedStage),
	}
	if r.Err != nil {
		meta.Error = r.Err.Error()
	}
	o.record(eventstore.NewBuildCompleted(r.BuildID, meta))
}

func (o JournalObserver) record(e *eventstore.BaseEvent, err error) {
	if o.Journal == nil || err != nil {
		return
	}
	o.Journal.Record(context.Background(), e)
}
