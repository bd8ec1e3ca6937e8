package manager

import (
	"time"

	"ggufchat/pkg/types"
)

// State represents the lifecycle state of the manager.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
)

// ModelInfo describes the active model handle.
type ModelInfo struct {
	State        State            `json:"state"`
	Path         string           `json:"path,omitempty"`
	Name         string           `json:"name,omitempty"`
	Params       types.LoadParams `json:"params"`
	SizeBytes    int64            `json:"size_bytes,omitempty"`
	LoadDuration time.Duration    `json:"load_duration_ns,omitempty"`
	LoadedAt     time.Time        `json:"loaded_at,omitzero"`
}

// Loaded reports whether a model handle is live.
func (i ModelInfo) Loaded() bool { return i.State == StateLoaded }

// FinishReason records why a generation ended.
type FinishReason string

const (
	FinishStop         FinishReason = "stop"
	FinishLength       FinishReason = "length"
	FinishStopSequence FinishReason = "stop_sequence"
	FinishCancelled    FinishReason = "cancelled"
)

// Result is the outcome of one generation.
type Result struct {
	Text         string        `json:"text"`
	Tokens       int           `json:"tokens"`
	FinishReason FinishReason  `json:"finish_reason"`
	Duration     time.Duration `json:"duration_ns"`
}
