package glace

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/logfields"
	"github.com/hazae41/glace/internal/metrics"
)

// StageName identifies a build stage.
type StageName string

const (
	StagePrepare       StageName = "prepare"
	StageWalk          StageName = "walk"
	StageRegister      StageName = "register"
	StageClientPass    StageName = "client_pass"
	StageClientResolve StageName = "client_resolve"
	StageStaticPass    StageName = "static_pass"
	StageStaticResolve StageName = "static_resolve"
	StageFinalize      StageName = "finalize"
	StagePostProcess   StageName = "post_process"
	StagePromote       StageName = "promote"
)

type stageFn func(ctx context.Context, bs *buildState) error

type stageDef struct {
	Name StageName
	Fn   stageFn
}

func pipeline() []stageDef {
	return []stageDef{
		{StagePrepare, stagePrepare},
		{StageWalk, stageWalk},
		{StageRegister, stageRegister},
		{StageClientPass, stageClientPass},
		{StageClientResolve, stageClientResolve},
		{StageStaticPass, stageStaticPass},
		{StageStaticResolve, stageStaticResolve},
		{StageFinalize, stageFinalize},
		{StagePostProcess, stagePostProcess},
		{StagePromote, stagePromote},
	}
}

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, bs *buildState, stages []stageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			bs.report.FailedStage = st.Name
			bs.b.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			bs.b.observer.OnStageComplete(bs.report, st.Name, 0, ctx.Err())
			return ctx.Err()
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		if err != nil && ctx.Err() == nil {
			err = stageError(st.Name, err)
		}
		dur := time.Since(t0)
		bs.report.StageDurations[st.Name] = dur
		bs.b.recorder.ObserveStageDuration(string(st.Name), dur)
		bs.b.recorder.IncStageResult(string(st.Name), stageResult(ctx, err))
		bs.b.observer.OnStageComplete(bs.report, st.Name, dur, err)

		if err != nil {
			bs.report.FailedStage = st.Name
			return err
		}
		bs.logger.Debug("Stage complete", logfields.Phase(string(st.Name)), slog.Duration("duration", dur))
	}
	return nil
}

func stageResult(ctx context.Context, err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case ctx.Err() != nil:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

// stageError attaches the stage to unclassified errors.
func stageError(stage StageName, err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("stage", string(stage))
	}
	return errors.WrapError(err, errors.CategoryInternal, "stage failed").
		Fatal().
		WithContext("stage", string(stage)).
		Build()
}
