// Package eventstore records build events in SQLite, optionally fans them
// out over NATS, and projects them into a build history.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	StatusRunning = "running"
	StatusFailed  = "failed"
)

// BuildSummary is the read model for one build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Status      string        `json:"status"` // running, or the final outcome
	Trigger     string        `json:"trigger,omitempty"`
	Mode        string        `json:"mode,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Stages      []string      `json:"stages,omitempty"`
	Documents   int           `json:"documents"`
	Artifacts   int           `json:"artifacts"`
	ErrorStage  string        `json:"error_stage,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// BuildHistoryProjection rebuilds BuildSummary values from stored events.
type BuildHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	builds  map[string]*BuildSummary
	history []*BuildSummary // completed builds, newest first
	maxSize int
}

func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild replays every stored event.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builds = make(map[string]*BuildSummary)
	p.history = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	return nil
}

// Apply folds one live event into the projection.
func (p *BuildHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *BuildHistoryProjection) applyLocked(e Event) {
	id := e.BuildID()
	if id == "" {
		return
	}
	s, ok := p.builds[id]
	if !ok {
		s = &BuildSummary{BuildID: id, Status: StatusRunning, StartedAt: e.Timestamp()}
		p.builds[id] = s
	}

	switch e.Type() {
	case TypeBuildStarted:
		var meta BuildStartedMeta
		if json.Unmarshal(e.Payload(), &meta) == nil {
			s.Trigger, s.Mode = meta.Trigger, meta.Mode
		}
		s.StartedAt = e.Timestamp()

	case TypeStageCompleted:
		var meta StageCompletedMeta
		if json.Unmarshal(e.Payload(), &meta) == nil {
			s.Stages = append(s.Stages, meta.Stage)
		}

	case TypeBuildCompleted:
		var meta BuildCompletedMeta
		if json.Unmarshal(e.Payload(), &meta) == nil {
			s.Status = meta.Outcome
			s.Documents, s.Artifacts = meta.Documents, meta.Artifacts
			s.ErrorStage, s.Error = meta.ErrorStage, meta.Error
		}
		if s.Status == "" || s.Status == StatusRunning {
			s.Status = StatusFailed
		}
		done := e.Timestamp()
		s.CompletedAt = &done
		s.Duration = done.Sub(s.StartedAt)
		p.history = append([]*BuildSummary{s}, p.history...)
		if len(p.history) > p.maxSize {
			for _, old := range p.history[p.maxSize:] {
				delete(p.builds, old.BuildID)
			}
			p.history = p.history[:p.maxSize]
		}
	}
}

// History returns completed builds, newest first.
func (p *BuildHistoryProjection) History() []BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]BuildSummary, len(p.history))
	for i, s := range p.history {
		out[i] = *s
	}
	return out
}

// Build returns the summary for one build.
func (p *BuildHistoryProjection) Build(buildID string) (BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.builds[buildID]
	if !ok {
		return BuildSummary{}, false
	}
	return *s, true
}
