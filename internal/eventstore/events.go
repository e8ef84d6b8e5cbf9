package eventstore

import (
	"encoding/json"
	"time"

	"github.com/hazae41/glace/internal/foundation/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStageCompleted = "StageCompleted"
	TypeBuildCompleted = "BuildCompleted"
)

// BuildStartedMeta describes the build being started.
type BuildStartedMeta struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Mode   string `json:"mode"`
	// Trigger is what caused the build: "cli", "watch", "schedule".
	Trigger string `json:"trigger"`
}

// StageCompletedMeta reports one finished stage.
type StageCompletedMeta struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// BuildCompletedMeta summarizes a finished build.
type BuildCompletedMeta struct {
	Outcome    string `json:"outcome"`
	Documents  int    `json:"documents"`
	Artifacts  int    `json:"artifacts"`
	Copied     int    `json:"copied"`
	Rendered   int    `json:"rendered"`
	Warnings   int    `json:"warnings"`
	DurationMS int64  `json:"duration_ms"`
	ErrorStage string `json:"error_stage,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newEvent(buildID, typ string, body any) (*BaseEvent, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.EventsError("failed to marshal event payload").
			WithCause(err).
			WithContext("build_id", buildID).
			WithContext("type", typ).
			Build()
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      typ,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

func NewBuildStarted(buildID string, meta BuildStartedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildStarted, meta)
}

func NewStageCompleted(buildID string, meta StageCompletedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeStageCompleted, meta)
}

func NewBuildCompleted(buildID string, meta BuildCompletedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildCompleted, meta)
}
